package entity

// Member is the per-user presence document. It exists iff the user is
// currently in the room; the heartbeat refreshes LastSeen every ~15s and the
// inactivity sweep deletes records whose heartbeat went stale.
type Member struct {
	UserID         string `json:"userId"`
	Name           string `json:"name"`
	Role           Role   `json:"role"`
	Rank           Rank   `json:"cosmeticRank"`
	Background     string `json:"background,omitempty"`
	DeviceID       string `json:"deviceId"`
	IsMuted        bool   `json:"isMuted"`
	IsSpeaking     bool   `json:"isSpeaking"`
	HandRaised     bool   `json:"handRaised"`
	HandRaisedAt   int64  `json:"handRaisedAt,omitempty"`
	HasOpenMic     bool   `json:"hasOpenMic"`
	MicTimeStarted int64  `json:"micTimeStarted,omitempty"`
	StrippedRole   Role   `json:"strippedRole,omitempty"`
	LastSeen       int64  `json:"lastSeen"`
}

// PotentialSpeaker reports whether this member is waiting for the mic:
// hand raised and not voice-muted.
func (m *Member) PotentialSpeaker() bool {
	return m.HandRaised && !m.IsMuted
}
