package presence_service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
	"github.com/pipohost/ronza-sub000/internal/geo"
	"github.com/pipohost/ronza-sub000/internal/queue"
	visitorlog_repo "github.com/pipohost/ronza-sub000/internal/repo/visitorlog"
	"github.com/pipohost/ronza-sub000/internal/store"
	identity_service "github.com/pipohost/ronza-sub000/internal/use-case/identity-case"
	moderation_service "github.com/pipohost/ronza-sub000/internal/use-case/moderation-case"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// activityLogCap bounds the room's append-only activity log; oldest entries
// are trimmed first.
const activityLogCap = 200

type PresenceService struct {
	Store            *store.Store
	Identity         identity_service.IdentityServiceContract
	Visitors         visitorlog_repo.VisitorLogRepoContract
	Geo              geo.Resolver
	Producer         queue.Producer
	HeartbeatTimeout time.Duration
}

func NewPresenceService(
	st *store.Store,
	identity identity_service.IdentityServiceContract,
	visitors visitorlog_repo.VisitorLogRepoContract,
	geoResolver geo.Resolver,
	producer queue.Producer,
	heartbeatTimeout time.Duration,
) PresenceServiceContract {
	return &PresenceService{
		Store:            st,
		Identity:         identity,
		Visitors:         visitors,
		Geo:              geoResolver,
		Producer:         producer,
		HeartbeatTimeout: heartbeatTimeout,
	}
}

func (s *PresenceService) Join(ctx context.Context, req JoinRequest) (*entity.Member, *app_error.AppError) {
	room, appErr := s.Store.GetRoom(ctx, req.RoomID)
	if appErr != nil {
		return nil, appErr
	}
	if room == nil {
		return nil, app_error.RoomNotFound()
	}

	existing, appErr := s.Store.GetMember(ctx, req.RoomID, req.UserID)
	if appErr != nil {
		return nil, appErr
	}
	if existing != nil {
		// Idempotent re-join, same device or a new one. A member who is
		// already inside is not subject to lock or capacity checks.
		member, rejoinErr := s.rejoin(ctx, req)
		if rejoinErr == nil {
			return member, nil
		}
		if rejoinErr.Kind != app_error.KindNotAMember {
			return nil, rejoinErr
		}
		// Raced with a leave; fall through to a fresh admit.
	}

	if room.Locked {
		return nil, app_error.RoomLocked()
	}
	if room.UserCount >= room.MaxUsers {
		// Pre-check only; the decisive check runs inside the transaction.
		return nil, app_error.RoomFull()
	}

	owner, err := s.Store.Redis.HGet(ctx, store.DeviceIndexKey(req.RoomID), req.DeviceID).Result()
	if err != nil && err != redis.Nil {
		return nil, app_error.NewAppError(http.StatusInternalServerError, "failed to check device index", "redis")
	}
	if owner != "" && owner != req.UserID {
		return nil, app_error.AlreadyInRoom()
	}

	banned, appErr := s.Store.IsBanned(ctx, room, req.UserID, req.DeviceID)
	if appErr != nil {
		return nil, appErr
	}
	if banned {
		return nil, app_error.Banned()
	}

	draft, appErr := s.Identity.Resolve(ctx, identity_service.ResolveRequest{
		UserID:   req.UserID,
		DeviceID: req.DeviceID,
		Name:     req.Name,
		Password: req.Password,
		Room:     room,
	})
	if appErr != nil {
		return nil, appErr
	}

	overridden, appErr := s.Store.HasMuteOverride(ctx, req.RoomID, req.UserID)
	if appErr != nil {
		return nil, appErr
	}
	if overridden {
		draft.IsMuted = true
	}
	draft.LastSeen = time.Now().UnixMilli()

	admitted := draft
	fresh := false
	txnErr := s.Store.Txn(ctx, req.RoomID, func(tx *redis.Tx) error {
		fresh = false
		liveRoom, appErr := store.GetJSON[entity.Room](ctx, tx, store.RoomKey(req.RoomID))
		if appErr != nil {
			return appErr
		}
		if liveRoom == nil {
			return app_error.RoomNotFound()
		}
		if liveRoom.Locked {
			return app_error.RoomLocked()
		}
		if liveRoom.UserCount >= liveRoom.MaxUsers {
			return app_error.RoomFull()
		}

		liveOwner, err := tx.HGet(ctx, store.DeviceIndexKey(req.RoomID), req.DeviceID).Result()
		if err != nil && err != redis.Nil {
			return app_error.NewAppError(http.StatusInternalServerError, "failed to re-check device index", "redis")
		}
		if liveOwner != "" && liveOwner != req.UserID {
			return app_error.AlreadyInRoom()
		}

		liveExisting, appErr := store.GetJSON[entity.Member](ctx, tx, store.MemberKey(req.RoomID, req.UserID))
		if appErr != nil {
			return appErr
		}
		if liveExisting != nil {
			// A concurrent request already admitted this user; refresh the
			// record instead of counting the member twice.
			return s.refreshMembership(ctx, tx, req, liveExisting, &admitted)
		}

		memberDoc, appErr := store.MarshalDoc(draft)
		if appErr != nil {
			return appErr
		}

		liveRoom.UserCount++
		if liveRoom.AnnounceJoins {
			appendActivity(liveRoom, fmt.Sprintf("%s joined the room", draft.Name))
		}
		roomDoc, appErr := store.MarshalDoc(liveRoom)
		if appErr != nil {
			return appErr
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, store.MemberKey(req.RoomID, req.UserID), memberDoc, 0)
			pipe.SAdd(ctx, store.MemberIndexKey(req.RoomID), req.UserID)
			pipe.HSet(ctx, store.DeviceIndexKey(req.RoomID), req.DeviceID, req.UserID)
			pipe.Set(ctx, store.RoomKey(req.RoomID), roomDoc, 0)
			pipe.Incr(ctx, store.VerKey(req.RoomID))
			return nil
		})
		if err == nil {
			fresh = true
		}
		return err
	})
	if txnErr != nil {
		return nil, txnErr
	}

	if fresh {
		s.recordVisitor(ctx, req, draft)
	}
	s.notifyRoomChanged(ctx, req.RoomID)

	return admitted, nil
}

// rejoin refreshes the membership of a user who is already in the room. When
// the user came back on a different device, the device index is remapped so
// the old device is freed for other users.
func (s *PresenceService) rejoin(ctx context.Context, req JoinRequest) (*entity.Member, *app_error.AppError) {
	var member *entity.Member
	txnErr := s.Store.Txn(ctx, req.RoomID, func(tx *redis.Tx) error {
		live, appErr := store.GetJSON[entity.Member](ctx, tx, store.MemberKey(req.RoomID, req.UserID))
		if appErr != nil {
			return appErr
		}
		if live == nil {
			return app_error.NotAMember()
		}

		liveOwner, err := tx.HGet(ctx, store.DeviceIndexKey(req.RoomID), req.DeviceID).Result()
		if err != nil && err != redis.Nil {
			return app_error.NewAppError(http.StatusInternalServerError, "failed to check device index", "redis")
		}
		if liveOwner != "" && liveOwner != req.UserID {
			return app_error.AlreadyInRoom()
		}

		return s.refreshMembership(ctx, tx, req, live, &member)
	})
	if txnErr != nil {
		return nil, txnErr
	}
	return member, nil
}

// refreshMembership updates the heartbeat and device mapping of a live
// member without touching the room's user count.
func (s *PresenceService) refreshMembership(ctx context.Context, tx *redis.Tx, req JoinRequest, member *entity.Member, out **entity.Member) error {
	oldDevice := member.DeviceID
	member.DeviceID = req.DeviceID
	member.LastSeen = time.Now().UnixMilli()

	doc, appErr := store.MarshalDoc(member)
	if appErr != nil {
		return appErr
	}
	_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, store.MemberKey(req.RoomID, req.UserID), doc, 0)
		if req.DeviceID != "" {
			pipe.HSet(ctx, store.DeviceIndexKey(req.RoomID), req.DeviceID, req.UserID)
		}
		if oldDevice != "" && oldDevice != req.DeviceID {
			pipe.HDel(ctx, store.DeviceIndexKey(req.RoomID), oldDevice)
		}
		pipe.Incr(ctx, store.VerKey(req.RoomID))
		return nil
	})
	if err == nil {
		*out = member
	}
	return err
}

func (s *PresenceService) Leave(ctx context.Context, roomID, userID string, cause entity.LeaveCause, actorName string) *app_error.AppError {
	changed := false
	txnErr := s.Store.Txn(ctx, roomID, func(tx *redis.Tx) error {
		member, appErr := store.GetJSON[entity.Member](ctx, tx, store.MemberKey(roomID, userID))
		if appErr != nil {
			return appErr
		}
		if member == nil {
			// Already gone: success, not an error. An explicit close and a
			// best-effort unload signal may both land here.
			return nil
		}

		liveRoom, appErr := store.GetJSON[entity.Room](ctx, tx, store.RoomKey(roomID))
		if appErr != nil {
			return appErr
		}

		var roomDoc string
		if liveRoom != nil {
			if liveRoom.UserCount > 0 {
				liveRoom.UserCount--
			}
			if liveRoom.AnnounceJoins {
				appendActivity(liveRoom, leaveMessage(member.Name, cause, actorName))
			}
			roomDoc, appErr = store.MarshalDoc(liveRoom)
			if appErr != nil {
				return appErr
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, store.MemberKey(roomID, userID))
			pipe.SRem(ctx, store.MemberIndexKey(roomID), userID)
			if member.DeviceID != "" {
				pipe.HDel(ctx, store.DeviceIndexKey(roomID), member.DeviceID)
			}
			if roomDoc != "" {
				pipe.Set(ctx, store.RoomKey(roomID), roomDoc, 0)
			}
			pipe.Incr(ctx, store.VerKey(roomID))
			return nil
		})
		if err == nil {
			changed = true
		}
		return err
	})
	if txnErr != nil {
		return txnErr
	}

	if changed {
		s.notifyRoomChanged(ctx, roomID)
	}
	return nil
}

func (s *PresenceService) Kick(ctx context.Context, roomID string, actor *entity.Member, targetID string) *app_error.AppError {
	target, appErr := s.Store.GetMember(ctx, roomID, targetID)
	if appErr != nil {
		return appErr
	}
	if target == nil {
		return nil
	}
	if appErr := moderation_service.CanModerate(actor, target); appErr != nil {
		return appErr
	}

	return s.Leave(ctx, roomID, targetID, entity.LeaveKicked, actor.Name)
}

func (s *PresenceService) Ban(ctx context.Context, roomID string, actor *entity.Member, targetID, reason string) *app_error.AppError {
	target, appErr := s.Store.GetMember(ctx, roomID, targetID)
	if appErr != nil {
		return appErr
	}

	ban := &entity.Ban{
		ID:        uuid.New().String(),
		TargetID:  targetID,
		Issuer:    actor.Name,
		Reason:    reason,
		Timestamp: time.Now().Unix(),
	}
	if target != nil {
		if appErr := moderation_service.CanModerate(actor, target); appErr != nil {
			return appErr
		}
		ban.Name = target.Name
		ban.DeviceID = target.DeviceID
	} else if actor.Role != entity.RoleAdmin && actor.Role != entity.RoleSuperadmin && !actor.Rank.IsTopTier() {
		// With no target record there is no rank to weigh, so pre-banning an
		// arbitrary user id needs a real admin behind it.
		return app_error.InsufficientRole()
	}

	// The ban record lands before the membership is removed, so a racing
	// re-join observes it.
	if appErr := s.Store.AddBan(ctx, roomID, ban); appErr != nil {
		return appErr
	}

	return s.Leave(ctx, roomID, targetID, entity.LeaveBanned, actor.Name)
}

func (s *PresenceService) Heartbeat(ctx context.Context, roomID, userID string) *app_error.AppError {
	return s.Store.Txn(ctx, roomID, func(tx *redis.Tx) error {
		member, appErr := store.GetJSON[entity.Member](ctx, tx, store.MemberKey(roomID, userID))
		if appErr != nil {
			return appErr
		}
		if member == nil {
			return app_error.NotAMember()
		}
		member.LastSeen = time.Now().UnixMilli()

		doc, appErr := store.MarshalDoc(member)
		if appErr != nil {
			return appErr
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, store.MemberKey(roomID, userID), doc, 0)
			pipe.Incr(ctx, store.VerKey(roomID))
			return nil
		})
		return err
	})
}

// SweepInactive removes members whose heartbeat exceeded the timeout and
// reconciles userCount drift. It runs periodically outside any request path.
func (s *PresenceService) SweepInactive(ctx context.Context) {
	roomIDs, appErr := s.Store.RoomIDs(ctx)
	if appErr != nil {
		log.Error().Err(appErr).Msg("sweep: failed to list rooms")
		return
	}

	cutoff := time.Now().Add(-s.HeartbeatTimeout).UnixMilli()
	for _, roomID := range roomIDs {
		members, appErr := store.ListMembers(ctx, s.Store.Redis, roomID)
		if appErr != nil {
			log.Error().Err(appErr).Str("room_id", roomID).Msg("sweep: failed to list members")
			continue
		}
		for _, m := range members {
			if m.LastSeen >= cutoff {
				continue
			}
			if appErr := s.Leave(ctx, roomID, m.UserID, entity.LeaveVoluntary, ""); appErr != nil {
				log.Error().Err(appErr).Str("room_id", roomID).Str("user_id", m.UserID).Msg("sweep: failed to remove inactive member")
			}
		}
		if appErr := s.reconcileUserCount(ctx, roomID); appErr != nil {
			log.Error().Err(appErr).Str("room_id", roomID).Msg("sweep: failed to reconcile user count")
		}
	}
}

// reconcileUserCount corrects denormalized-counter drift transactionally
// against the live member index.
func (s *PresenceService) reconcileUserCount(ctx context.Context, roomID string) *app_error.AppError {
	return s.Store.Txn(ctx, roomID, func(tx *redis.Tx) error {
		liveRoom, appErr := store.GetJSON[entity.Room](ctx, tx, store.RoomKey(roomID))
		if appErr != nil {
			return appErr
		}
		if liveRoom == nil {
			return nil
		}
		members, appErr := store.ListMembers(ctx, tx, roomID)
		if appErr != nil {
			return appErr
		}
		if liveRoom.UserCount == len(members) {
			return nil
		}

		liveRoom.UserCount = len(members)
		doc, appErr := store.MarshalDoc(liveRoom)
		if appErr != nil {
			return appErr
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, store.RoomKey(roomID), doc, 0)
			pipe.Incr(ctx, store.VerKey(roomID))
			return nil
		})
		return err
	})
}

func (s *PresenceService) recordVisitor(ctx context.Context, req JoinRequest, member *entity.Member) {
	if s.Visitors == nil {
		return
	}
	entry := &entity.VisitorLog{
		RoomID:    req.RoomID,
		UserID:    req.UserID,
		DeviceID:  req.DeviceID,
		Name:      member.Name,
		Geo:       "N/A",
		CreatedAt: time.Now(),
	}
	if s.Geo != nil {
		entry.Geo = s.Geo.Lookup(ctx, req.IP)
	}
	if appErr := s.Visitors.Append(ctx, entry); appErr != nil {
		log.Error().Err(appErr).Str("room_id", req.RoomID).Msg("failed to append visitor log")
	}
}

func (s *PresenceService) notifyRoomChanged(ctx context.Context, roomID string) {
	if s.Producer == nil {
		return
	}
	if err := s.Producer.RoomChanged(ctx, roomID); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to enqueue room change event")
	}
}

func appendActivity(room *entity.Room, msg string) {
	room.ActivityLog = append(room.ActivityLog, msg)
	if len(room.ActivityLog) > activityLogCap {
		room.ActivityLog = room.ActivityLog[len(room.ActivityLog)-activityLogCap:]
	}
}

func leaveMessage(name string, cause entity.LeaveCause, actorName string) string {
	switch cause {
	case entity.LeaveKicked:
		return fmt.Sprintf("%s was kicked by %s", name, actorName)
	case entity.LeaveBanned:
		return fmt.Sprintf("%s was banned by %s", name, actorName)
	default:
		return fmt.Sprintf("%s left the room", name)
	}
}
