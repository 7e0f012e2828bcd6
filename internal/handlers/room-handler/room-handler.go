package room_handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pipohost/ronza-sub000/internal/authgate"
	"github.com/pipohost/ronza-sub000/internal/dtos/room_dto"
	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
	"github.com/pipohost/ronza-sub000/internal/handlers"
	"github.com/pipohost/ronza-sub000/internal/middleware"
	moderation_service "github.com/pipohost/ronza-sub000/internal/use-case/moderation-case"
	presence_service "github.com/pipohost/ronza-sub000/internal/use-case/presence-case"
	queue_service "github.com/pipohost/ronza-sub000/internal/use-case/queue-case"
)

// moderatorRoles gates the moderation endpoints. The fine-grained
// actor-vs-target rules live in the moderation guard.
var moderatorRoles = []entity.Role{entity.RoleSpecial, entity.RoleAdmin, entity.RoleSuperadmin}

type RoomHandler struct {
	Gate       *authgate.AuthGate
	Presence   presence_service.PresenceServiceContract
	Queue      queue_service.QueueServiceContract
	Moderation moderation_service.ModerationServiceContract
	Validate   *validator.Validate
}

func NewRoomHandler(
	gate *authgate.AuthGate,
	presence presence_service.PresenceServiceContract,
	queue queue_service.QueueServiceContract,
	moderation moderation_service.ModerationServiceContract,
) *RoomHandler {
	return &RoomHandler{
		Gate:       gate,
		Presence:   presence,
		Queue:      queue,
		Moderation: moderation,
		Validate:   validator.New(),
	}
}

func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req room_dto.JoinRequest
	defer r.Body.Close()

	roomID := chi.URLParam(r, "roomId")
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return app_error.New(app_error.KindBadRequest, http.StatusBadRequest, "Invalid JSON", "body")
	}

	if err := h.Validate.Struct(req); err != nil {
		return app_error.New(app_error.KindBadRequest, http.StatusBadRequest, fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	userID, deviceID, appErr := callerIdentity(r)
	if appErr != nil {
		return appErr
	}

	member, appErr := h.Presence.Join(r.Context(), presence_service.JoinRequest{
		RoomID:   roomID,
		UserID:   userID,
		Name:     req.Name,
		Password: req.Password,
		DeviceID: deviceID,
		IP:       clientIP(r),
	})
	if appErr != nil {
		return appErr
	}

	writeOK(w, r, "joined room", room_dto.ToMemberResponse(member))
	return nil
}

func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	roomID := chi.URLParam(r, "roomId")
	userID, _, appErr := callerIdentity(r)
	if appErr != nil {
		return appErr
	}

	// Idempotent: a second leave (or a racing unload beacon) is a success.
	if appErr := h.Presence.Leave(r.Context(), roomID, userID, entity.LeaveVoluntary, ""); appErr != nil {
		return appErr
	}

	writeOK(w, r, "left room", "OK")
	return nil
}

func (h *RoomHandler) Heartbeat(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	roomID := chi.URLParam(r, "roomId")
	userID, _, appErr := callerIdentity(r)
	if appErr != nil {
		return appErr
	}

	if appErr := h.Presence.Heartbeat(r.Context(), roomID, userID); appErr != nil {
		return appErr
	}

	writeOK(w, r, "heartbeat refreshed", "OK")
	return nil
}

func (h *RoomHandler) RaiseHand(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	return h.handOp(w, r, h.Queue.RaiseHand, "hand raised")
}

func (h *RoomHandler) LowerHand(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	return h.handOp(w, r, h.Queue.LowerHand, "hand lowered")
}

func (h *RoomHandler) handOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, roomID, userID string) *app_error.AppError, msg string) *app_error.AppError {
	roomID := chi.URLParam(r, "roomId")
	userID, _, appErr := callerIdentity(r)
	if appErr != nil {
		return appErr
	}

	if _, appErr := h.Gate.CheckMember(r.Context(), roomID, userID); appErr != nil {
		return appErr
	}
	if appErr := op(r.Context(), roomID, userID); appErr != nil {
		return appErr
	}

	writeOK(w, r, msg, "OK")
	return nil
}

func (h *RoomHandler) Mute(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req room_dto.MuteRequest
	actor, roomID, appErr := h.moderationActor(r, &req)
	if appErr != nil {
		return appErr
	}

	if appErr := h.Moderation.Mute(r.Context(), roomID, actor, req.TargetID, req.Muted); appErr != nil {
		return appErr
	}

	writeOK(w, r, "mute updated", "OK")
	return nil
}

func (h *RoomHandler) Kick(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req room_dto.TargetRequest
	actor, roomID, appErr := h.moderationActor(r, &req)
	if appErr != nil {
		return appErr
	}

	if appErr := h.Presence.Kick(r.Context(), roomID, actor, req.TargetID); appErr != nil {
		return appErr
	}

	writeOK(w, r, "member kicked", "OK")
	return nil
}

func (h *RoomHandler) Ban(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req room_dto.BanRequest
	actor, roomID, appErr := h.moderationActor(r, &req)
	if appErr != nil {
		return appErr
	}

	if appErr := h.Presence.Ban(r.Context(), roomID, actor, req.TargetID, req.Reason); appErr != nil {
		return appErr
	}

	writeOK(w, r, "member banned", "OK")
	return nil
}

func (h *RoomHandler) ForceMicDrop(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req room_dto.TargetRequest
	actor, roomID, appErr := h.moderationActor(r, &req)
	if appErr != nil {
		return appErr
	}

	if appErr := h.Moderation.ForceMicDrop(r.Context(), roomID, actor, req.TargetID); appErr != nil {
		return appErr
	}

	writeOK(w, r, "mic dropped", "OK")
	return nil
}

func (h *RoomHandler) ForceMicDropAll(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	roomID := chi.URLParam(r, "roomId")
	userID, _, appErr := callerIdentity(r)
	if appErr != nil {
		return appErr
	}

	actor, appErr := h.Gate.CheckMember(r.Context(), roomID, userID, moderatorRoles...)
	if appErr != nil {
		return appErr
	}

	if appErr := h.Moderation.ForceMicDropAll(r.Context(), roomID, actor); appErr != nil {
		return appErr
	}

	writeOK(w, r, "all mics dropped", "OK")
	return nil
}

func (h *RoomHandler) GrantOpenMic(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req room_dto.OpenMicRequest
	actor, roomID, appErr := h.moderationActor(r, &req)
	if appErr != nil {
		return appErr
	}

	if appErr := h.Moderation.GrantOpenMic(r.Context(), roomID, actor, req.TargetID, req.Grant); appErr != nil {
		return appErr
	}

	writeOK(w, r, "open mic updated", "OK")
	return nil
}

func (h *RoomHandler) ToggleRole(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req room_dto.TargetRequest
	actor, roomID, appErr := h.moderationActor(r, &req)
	if appErr != nil {
		return appErr
	}

	if appErr := h.Moderation.ToggleRole(r.Context(), roomID, actor, req.TargetID); appErr != nil {
		return appErr
	}

	writeOK(w, r, "role toggled", "OK")
	return nil
}

func (h *RoomHandler) GetQueue(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	roomID := chi.URLParam(r, "roomId")

	entries, appErr := h.Queue.CurrentQueue(r.Context(), roomID)
	if appErr != nil {
		return appErr
	}

	writeOK(w, r, "queue fetched", room_dto.QueueResponse{RoomID: roomID, Entries: entries})
	return nil
}

func (h *RoomHandler) GetSpeaker(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	roomID := chi.URLParam(r, "roomId")

	speaker, appErr := h.Queue.CurrentSpeaker(r.Context(), roomID)
	if appErr != nil {
		return appErr
	}

	resp := room_dto.SpeakerResponse{RoomID: roomID}
	if speaker != nil {
		member := room_dto.ToMemberResponse(speaker)
		resp.Speaker = &member
	}

	writeOK(w, r, "speaker fetched", resp)
	return nil
}

// moderationActor decodes and validates the request body, then resolves the
// acting moderator with the auth gate's lag-tolerant membership check.
func (h *RoomHandler) moderationActor(r *http.Request, req any) (*entity.Member, string, *app_error.AppError) {
	defer r.Body.Close()

	roomID := chi.URLParam(r, "roomId")
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return nil, "", app_error.New(app_error.KindBadRequest, http.StatusBadRequest, "Invalid JSON", "body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return nil, "", app_error.New(app_error.KindBadRequest, http.StatusBadRequest, fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	userID, _, appErr := callerIdentity(r)
	if appErr != nil {
		return nil, "", appErr
	}

	actor, appErr := h.Gate.CheckMember(r.Context(), roomID, userID, moderatorRoles...)
	if appErr != nil {
		return nil, "", appErr
	}

	return actor, roomID, nil
}

func callerIdentity(r *http.Request) (userID, deviceID string, appErr *app_error.AppError) {
	userID, ok := r.Context().Value(middleware.UserClaimsKey).(string)
	if !ok || userID == "" {
		return "", "", app_error.New(app_error.KindUnauthorized, http.StatusUnauthorized, "user id is not found in context", "context")
	}
	deviceID, _ = r.Context().Value(middleware.FingerprintKey).(string)
	return userID, deviceID, nil
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeOK[T any](w http.ResponseWriter, r *http.Request, message string, data T) {
	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse(message, data, reqID))
}
