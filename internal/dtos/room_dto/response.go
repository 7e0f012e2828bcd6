package room_dto

import "github.com/pipohost/ronza-sub000/internal/entity"

type MemberResponse struct {
	UserID     string      `json:"user_id"`
	Name       string      `json:"name"`
	Role       entity.Role `json:"role"`
	Rank       entity.Rank `json:"cosmetic_rank,omitempty"`
	Background string      `json:"background,omitempty"`
	IsMuted    bool        `json:"is_muted"`
	IsSpeaking bool        `json:"is_speaking"`
	HandRaised bool        `json:"hand_raised"`
	HasOpenMic bool        `json:"has_open_mic"`
}

func ToMemberResponse(m *entity.Member) MemberResponse {
	return MemberResponse{
		UserID:     m.UserID,
		Name:       m.Name,
		Role:       m.Role,
		Rank:       m.Rank,
		Background: m.Background,
		IsMuted:    m.IsMuted,
		IsSpeaking: m.IsSpeaking,
		HandRaised: m.HandRaised,
		HasOpenMic: m.HasOpenMic,
	}
}

type QueueResponse struct {
	RoomID  string                 `json:"room_id"`
	Entries []entity.MicQueueEntry `json:"entries"`
}

type SpeakerResponse struct {
	RoomID  string          `json:"room_id"`
	Speaker *MemberResponse `json:"speaker"`
}
