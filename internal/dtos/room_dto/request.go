package room_dto

type JoinRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=32"`
	Password string `json:"password,omitempty" validate:"omitempty,max=64"`
}

type TargetRequest struct {
	TargetID string `json:"target_id" validate:"required"`
}

type MuteRequest struct {
	TargetID string `json:"target_id" validate:"required"`
	Muted    bool   `json:"muted"`
}

type BanRequest struct {
	TargetID string `json:"target_id" validate:"required"`
	Reason   string `json:"reason,omitempty" validate:"omitempty,max=256"`
}

type OpenMicRequest struct {
	TargetID string `json:"target_id" validate:"required"`
	Grant    bool   `json:"grant"`
}
