package entity

// ReservedName is a globally reserved display name owned by a tenant. It
// outranks both room-local registered members and plain visitors.
type ReservedName struct {
	ID           int64  `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	NameLower    string `gorm:"uniqueIndex;not null"`
	Role         string `gorm:"not null"`
	Rank         string
	PasswordHash string
	OwnerID      string `gorm:"index"`
}

// RegisteredMember is a room-scoped registered name. It outranks a plain
// visitor name but is itself outranked by a global reserved name.
type RegisteredMember struct {
	ID           int64  `gorm:"primaryKey"`
	RoomID       string `gorm:"index:idx_registered_room_name,unique;not null"`
	NameLower    string `gorm:"index:idx_registered_room_name,unique;not null"`
	Name         string `gorm:"not null"`
	Role         string `gorm:"not null"`
	Rank         string
	PasswordHash string
}
