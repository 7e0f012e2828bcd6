package app_error

import (
	"encoding/json"
	"net/http"
)

// Kind is the machine-readable failure discriminator. Callers branch on it
// instead of matching message strings.
type Kind string

const (
	KindRoomLocked          Kind = "room_locked"
	KindRoomFull            Kind = "room_full"
	KindAlreadyInRoom       Kind = "already_in_room"
	KindBanned              Kind = "banned"
	KindNameReserved        Kind = "name_reserved"
	KindIncorrectPassword   Kind = "incorrect_password"
	KindNotAMember          Kind = "not_a_member"
	KindInsufficientRole    Kind = "insufficient_role"
	KindTargetImmune        Kind = "target_immune"
	KindTransactionConflict Kind = "transaction_conflict"
	KindNotFound            Kind = "not_found"
	KindBadRequest          Kind = "bad_request"
	KindUnauthorized        Kind = "unauthorized"
	KindInternal            Kind = "internal"
)

type AppError struct {
	Code    int    `json:"-"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) JSON(w http.ResponseWriter) error {
	return json.NewEncoder(w).Encode(e)
}

func NewAppError(code int, msg, field string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    KindInternal,
		Message: msg,
		Field:   field,
	}
}

func New(kind Kind, code int, msg, field string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: msg,
		Field:   field,
	}
}

// Policy failures surfaced to room clients. Each maps to the HTTP status the
// operation handlers respond with.

func RoomLocked() *AppError {
	return New(KindRoomLocked, http.StatusForbidden, "room is locked", "room")
}

func RoomFull() *AppError {
	return New(KindRoomFull, http.StatusConflict, "room is full", "room")
}

func AlreadyInRoom() *AppError {
	return New(KindAlreadyInRoom, http.StatusConflict, "device already has a session in this room", "device")
}

func Banned() *AppError {
	return New(KindBanned, http.StatusForbidden, "you are banned from this room", "user")
}

func NameReserved() *AppError {
	return New(KindNameReserved, http.StatusConflict, "this name is reserved", "name")
}

func IncorrectPassword() *AppError {
	return New(KindIncorrectPassword, http.StatusUnauthorized, "incorrect password for this name", "password")
}

func NotAMember() *AppError {
	return New(KindNotAMember, http.StatusForbidden, "you are not a member of this room", "user")
}

func InsufficientRole() *AppError {
	return New(KindInsufficientRole, http.StatusForbidden, "insufficient role for this operation", "role")
}

func TargetImmune() *AppError {
	return New(KindTargetImmune, http.StatusForbidden, "target is immune to moderation", "target")
}

func TransactionConflict() *AppError {
	return New(KindTransactionConflict, http.StatusConflict, "too many concurrent updates, try again", "txn")
}

func RoomNotFound() *AppError {
	return New(KindNotFound, http.StatusNotFound, "room not found", "room")
}
