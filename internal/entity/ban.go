package entity

// LeaveCause labels why a member left a room; it selects the system message
// appended to the activity log.
type LeaveCause string

const (
	LeaveVoluntary LeaveCause = "voluntary"
	LeaveKicked    LeaveCause = "kicked"
	LeaveBanned    LeaveCause = "banned"
)

type Ban struct {
	ID        string `json:"id"`
	TargetID  string `json:"targetId"`
	Name      string `json:"name"`
	DeviceID  string `json:"deviceId,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Issuer    string `json:"issuer"`
	Timestamp int64  `json:"timestamp"`
}
