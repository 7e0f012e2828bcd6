package entity

// MicQueueEntry is a cached projection of a waiting member. The queue is
// always recomputable from the live member records; the copy on the room
// document only exists for fast reads.
type MicQueueEntry struct {
	UserID       string `json:"userId"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
	HandRaisedAt int64  `json:"handRaisedAt"`
}

type Room struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"ownerId"`
	MaxUsers      int             `json:"maxUsers"`
	Locked        bool            `json:"locked"`
	AnnounceJoins bool            `json:"announceJoins"`
	UserCount     int             `json:"userCount"`
	CategoryMutes map[string]bool `json:"categoryMutes,omitempty"`
	ReservedNames []string        `json:"reservedNames,omitempty"`
	MicQueue      []MicQueueEntry `json:"micQueue"`
	ActivityLog   []string        `json:"activityLog,omitempty"`
}

// DefaultMuted reports whether a member joining with the given role starts
// out voice-muted.
func (r *Room) DefaultMuted(role Role) bool {
	if r.CategoryMutes == nil {
		return false
	}
	return r.CategoryMutes[string(role)]
}
