package entity

import "time"

// VisitorLog is the append-only record written on every successful join.
type VisitorLog struct {
	RoomID    string    `bson:"room_id"`
	UserID    string    `bson:"user_id"`
	DeviceID  string    `bson:"device_id"`
	Name      string    `bson:"name"`
	Geo       string    `bson:"geo"`
	CreatedAt time.Time `bson:"created_at"`
}
