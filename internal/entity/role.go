package entity

// Role is the administrative role of a member inside a room.
type Role string

const (
	RoleVisitor    Role = "visitor"
	RoleSpecial    Role = "special"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// Priority returns the queue sort weight for a role. Lower sorts first.
func (r Role) Priority() int {
	switch r {
	case RoleSuperadmin:
		return 0
	case RoleAdmin:
		return 1
	case RoleSpecial:
		return 2
	default:
		return 3
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleVisitor, RoleSpecial, RoleAdmin, RoleSuperadmin:
		return true
	}
	return false
}

// Rank is the cosmetic tier of a member. It is orthogonal to Role; only the
// top tier carries permission weight (universal override + moderation
// immunity).
type Rank string

const (
	RankNone             Rank = ""
	RankRegisteredMember Rank = "registered_member"
	RankBackgroundName   Rank = "background_name"
	RankSuperName        Rank = "super_name"
	RankMythicalAdmin    Rank = "mythical_admin"
)

func (r Rank) IsTopTier() bool {
	return r == RankMythicalAdmin
}
