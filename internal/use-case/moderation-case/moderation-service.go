package moderation_service

import (
	"context"

	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
	"github.com/pipohost/ronza-sub000/internal/queue"
	"github.com/pipohost/ronza-sub000/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type ModerationService struct {
	Store    *store.Store
	Producer queue.Producer
}

func NewModerationService(st *store.Store, producer queue.Producer) ModerationServiceContract {
	return &ModerationService{
		Store:    st,
		Producer: producer,
	}
}

// mutateTarget reads the target under watch, runs the guard, applies fn and
// persists the result. fn returns false when nothing changed.
func (s *ModerationService) mutateTarget(ctx context.Context, roomID string, actor *entity.Member, targetID string, fn func(tx *redis.Tx, pipeExtra *[]func(redis.Pipeliner), target *entity.Member) bool) *app_error.AppError {
	changed := false
	appErr := s.Store.Txn(ctx, roomID, func(tx *redis.Tx) error {
		target, appErr := store.GetJSON[entity.Member](ctx, tx, store.MemberKey(roomID, targetID))
		if appErr != nil {
			return appErr
		}
		if target == nil {
			return app_error.NotAMember()
		}
		if appErr := CanModerate(actor, target); appErr != nil {
			return appErr
		}

		var extra []func(redis.Pipeliner)
		if !fn(tx, &extra, target) {
			return nil
		}

		doc, appErr := store.MarshalDoc(target)
		if appErr != nil {
			return appErr
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, store.MemberKey(roomID, targetID), doc, 0)
			for _, apply := range extra {
				apply(pipe)
			}
			pipe.Incr(ctx, store.VerKey(roomID))
			return nil
		})
		if err == nil {
			changed = true
		}
		return err
	})
	if appErr != nil {
		return appErr
	}

	if changed {
		s.notifyRoomChanged(ctx, roomID)
	}
	return nil
}

// Mute also persists a per-user override so the target re-joins muted.
func (s *ModerationService) Mute(ctx context.Context, roomID string, actor *entity.Member, targetID string, muted bool) *app_error.AppError {
	return s.mutateTarget(ctx, roomID, actor, targetID, func(tx *redis.Tx, extra *[]func(redis.Pipeliner), target *entity.Member) bool {
		target.IsMuted = muted
		*extra = append(*extra, func(pipe redis.Pipeliner) {
			if muted {
				pipe.HSet(ctx, store.MuteOverrideKey(roomID), targetID, "1")
			} else {
				pipe.HDel(ctx, store.MuteOverrideKey(roomID), targetID)
			}
		})
		return true
	})
}

func (s *ModerationService) ForceMicDrop(ctx context.Context, roomID string, actor *entity.Member, targetID string) *app_error.AppError {
	return s.mutateTarget(ctx, roomID, actor, targetID, func(tx *redis.Tx, extra *[]func(redis.Pipeliner), target *entity.Member) bool {
		if !target.IsSpeaking && !target.HandRaised {
			return false
		}
		target.IsSpeaking = false
		target.MicTimeStarted = 0
		target.HandRaised = false
		target.HandRaisedAt = 0
		return true
	})
}

// ForceMicDropAll clears every moderatable speaker and raised hand in one
// transaction. Protected targets are skipped, not an error: a room-wide
// sweep should not fail because one admin is present.
func (s *ModerationService) ForceMicDropAll(ctx context.Context, roomID string, actor *entity.Member) *app_error.AppError {
	changed := false
	appErr := s.Store.Txn(ctx, roomID, func(tx *redis.Tx) error {
		members, appErr := store.ListMembers(ctx, tx, roomID)
		if appErr != nil {
			return appErr
		}

		docs := make(map[string]string)
		for _, m := range members {
			if !m.IsSpeaking && !m.HandRaised {
				continue
			}
			if CanModerate(actor, m) != nil {
				continue
			}
			m.IsSpeaking = false
			m.MicTimeStarted = 0
			m.HandRaised = false
			m.HandRaisedAt = 0
			doc, appErr := store.MarshalDoc(m)
			if appErr != nil {
				return appErr
			}
			docs[m.UserID] = doc
		}
		if len(docs) == 0 {
			return nil
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for id, doc := range docs {
				pipe.Set(ctx, store.MemberKey(roomID, id), doc, 0)
			}
			pipe.Incr(ctx, store.VerKey(roomID))
			return nil
		})
		if err == nil {
			changed = true
		}
		return err
	})
	if appErr != nil {
		return appErr
	}

	if changed {
		s.notifyRoomChanged(ctx, roomID)
	}
	return nil
}

func (s *ModerationService) GrantOpenMic(ctx context.Context, roomID string, actor *entity.Member, targetID string, grant bool) *app_error.AppError {
	return s.mutateTarget(ctx, roomID, actor, targetID, func(tx *redis.Tx, extra *[]func(redis.Pipeliner), target *entity.Member) bool {
		if target.HasOpenMic == grant {
			return false
		}
		target.HasOpenMic = grant
		return true
	})
}

// ToggleRole strips the target down to visitor, remembering the old role so
// the same action restores it.
func (s *ModerationService) ToggleRole(ctx context.Context, roomID string, actor *entity.Member, targetID string) *app_error.AppError {
	return s.mutateTarget(ctx, roomID, actor, targetID, func(tx *redis.Tx, extra *[]func(redis.Pipeliner), target *entity.Member) bool {
		if target.StrippedRole != "" {
			target.Role = target.StrippedRole
			target.StrippedRole = ""
			return true
		}
		if target.Role == entity.RoleVisitor {
			return false
		}
		target.StrippedRole = target.Role
		target.Role = entity.RoleVisitor
		return true
	})
}

func (s *ModerationService) notifyRoomChanged(ctx context.Context, roomID string) {
	if s.Producer == nil {
		return
	}
	if err := s.Producer.RoomChanged(ctx, roomID); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to enqueue room change event")
	}
}
