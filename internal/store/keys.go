package store

import "fmt"

// Key layout. Every room-scoped mutation goes through a transaction that
// watches the room's version key and bumps it in the same pipeline, so any
// two transactions touching the same room serialize against each other.

const roomsIndexKey = "rooms"

func RoomKey(roomID string) string {
	return "room:" + roomID
}

func VerKey(roomID string) string {
	return "room:" + roomID + ":ver"
}

func MemberKey(roomID, userID string) string {
	return fmt.Sprintf("room:%s:member:%s", roomID, userID)
}

func MemberIndexKey(roomID string) string {
	return "room:" + roomID + ":members"
}

func DeviceIndexKey(roomID string) string {
	return "room:" + roomID + ":devices"
}

func MuteOverrideKey(roomID string) string {
	return "room:" + roomID + ":muteovr"
}

func RoomBanKey(roomID string) string {
	return "room:" + roomID + ":bans"
}

func RoomDeviceBanKey(roomID string) string {
	return "room:" + roomID + ":devbans"
}

func TenantBanKey(ownerID string) string {
	return "tenant:" + ownerID + ":bans"
}

func TenantDeviceBanKey(ownerID string) string {
	return "tenant:" + ownerID + ":devbans"
}
