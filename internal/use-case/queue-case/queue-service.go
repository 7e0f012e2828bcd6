package queue_service

import (
	"context"
	"sort"
	"time"

	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
	"github.com/pipohost/ronza-sub000/internal/queue"
	"github.com/pipohost/ronza-sub000/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type QueueService struct {
	Store    *store.Store
	Producer queue.Producer
	// MicTimeLimit bounds how long a promoted speaker keeps the mic; zero
	// disables the limit. Members with hasOpenMic are always exempt.
	MicTimeLimit time.Duration
}

func NewQueueService(st *store.Store, producer queue.Producer, micTimeLimit time.Duration) QueueServiceContract {
	return &QueueService{
		Store:        st,
		Producer:     producer,
		MicTimeLimit: micTimeLimit,
	}
}

// Recompute is a pure function of current membership state: the triggering
// event is a wake-up hint only. Running it twice on the same input never
// diverges, which is what makes at-least-once delivery safe.
func (s *QueueService) Recompute(ctx context.Context, roomID string) *app_error.AppError {
	return s.Store.Txn(ctx, roomID, func(tx *redis.Tx) error {
		room, appErr := store.GetJSON[entity.Room](ctx, tx, store.RoomKey(roomID))
		if appErr != nil {
			return appErr
		}
		if room == nil {
			return nil
		}

		members, appErr := store.ListMembers(ctx, tx, roomID)
		if appErr != nil {
			return appErr
		}
		// Deterministic examination order regardless of index order.
		sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })

		potential := make(map[string]*entity.Member, len(members))
		for _, m := range members {
			if m.PotentialSpeaker() {
				potential[m.UserID] = m
			}
		}

		// Drop queue entries whose user is no longer waiting, then append
		// newly waiting members. Kept entries are rebuilt from the live
		// member record so role or name changes while waiting take effect.
		newQueue := make([]entity.MicQueueEntry, 0, len(room.MicQueue))
		queued := make(map[string]bool, len(room.MicQueue))
		for _, e := range room.MicQueue {
			m := potential[e.UserID]
			if m == nil || queued[e.UserID] {
				continue
			}
			newQueue = append(newQueue, entity.MicQueueEntry{
				UserID:       m.UserID,
				Name:         m.Name,
				Role:         m.Role,
				HandRaisedAt: m.HandRaisedAt,
			})
			queued[e.UserID] = true
		}
		for _, m := range members {
			if potential[m.UserID] == nil || queued[m.UserID] {
				continue
			}
			newQueue = append(newQueue, entity.MicQueueEntry{
				UserID:       m.UserID,
				Name:         m.Name,
				Role:         m.Role,
				HandRaisedAt: m.HandRaisedAt,
			})
			queued[m.UserID] = true
		}

		// Role priority first, then raise time. Stable, so equal pairs keep
		// their relative order.
		sort.SliceStable(newQueue, func(i, j int) bool {
			pi, pj := newQueue[i].Role.Priority(), newQueue[j].Role.Priority()
			if pi != pj {
				return pi < pj
			}
			return newQueue[i].HandRaisedAt < newQueue[j].HandRaisedAt
		})

		updates := make(map[string]*entity.Member)

		// Concurrent writes can momentarily leave several speakers; keep the
		// first examined, demote the rest.
		var speaker *entity.Member
		for _, m := range members {
			if !m.IsSpeaking {
				continue
			}
			if speaker == nil {
				speaker = m
				continue
			}
			m.IsSpeaking = false
			m.MicTimeStarted = 0
			updates[m.UserID] = m
		}

		if speaker != nil && !s.speakerStillValid(speaker) {
			speaker.IsSpeaking = false
			speaker.MicTimeStarted = 0
			updates[speaker.UserID] = speaker
			speaker = nil
		}

		if speaker == nil && len(newQueue) > 0 {
			head := newQueue[0]
			newQueue = newQueue[1:]
			delete(queued, head.UserID)
			// The head always resolves: entries without a live, waiting
			// member were filtered above.
			next := potential[head.UserID]
			next.IsSpeaking = true
			next.HandRaised = false
			next.HandRaisedAt = 0
			next.MicTimeStarted = time.Now().UnixMilli()
			updates[next.UserID] = next
			speaker = next
		}

		if len(updates) == 0 && queuesEqual(room.MicQueue, newQueue) {
			// Converged: nothing to persist, not even a version bump.
			return nil
		}

		room.MicQueue = newQueue
		roomDoc, appErr := store.MarshalDoc(room)
		if appErr != nil {
			return appErr
		}

		docs := make(map[string]string, len(updates))
		for id, m := range updates {
			doc, appErr := store.MarshalDoc(m)
			if appErr != nil {
				return appErr
			}
			docs[id] = doc
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for id, doc := range docs {
				pipe.Set(ctx, store.MemberKey(roomID, id), doc, 0)
			}
			pipe.Set(ctx, store.RoomKey(roomID), roomDoc, 0)
			pipe.Incr(ctx, store.VerKey(roomID))
			return nil
		})
		return err
	})
}

// speakerStillValid decides whether the active speaker keeps the mic:
// not muted, and inside the mic time limit unless they hold an open mic.
func (s *QueueService) speakerStillValid(m *entity.Member) bool {
	if m.IsMuted {
		return false
	}
	if s.MicTimeLimit > 0 && !m.HasOpenMic && m.MicTimeStarted > 0 {
		started := time.UnixMilli(m.MicTimeStarted)
		if time.Since(started) > s.MicTimeLimit {
			return false
		}
	}
	return true
}

func (s *QueueService) RaiseHand(ctx context.Context, roomID, userID string) *app_error.AppError {
	appErr := s.Store.Txn(ctx, roomID, func(tx *redis.Tx) error {
		member, appErr := store.GetJSON[entity.Member](ctx, tx, store.MemberKey(roomID, userID))
		if appErr != nil {
			return appErr
		}
		if member == nil {
			return app_error.NotAMember()
		}
		if member.IsSpeaking || member.HandRaised {
			return nil
		}

		member.HandRaised = true
		member.HandRaisedAt = time.Now().UnixMilli()
		return s.writeMember(ctx, tx, roomID, member)
	})
	if appErr != nil {
		return appErr
	}

	s.notifyRoomChanged(ctx, roomID)
	return nil
}

// LowerHand releases the mic when the caller is speaking, otherwise it just
// withdraws the raised hand.
func (s *QueueService) LowerHand(ctx context.Context, roomID, userID string) *app_error.AppError {
	appErr := s.Store.Txn(ctx, roomID, func(tx *redis.Tx) error {
		member, appErr := store.GetJSON[entity.Member](ctx, tx, store.MemberKey(roomID, userID))
		if appErr != nil {
			return appErr
		}
		if member == nil {
			return app_error.NotAMember()
		}
		if !member.IsSpeaking && !member.HandRaised {
			return nil
		}

		member.IsSpeaking = false
		member.MicTimeStarted = 0
		member.HandRaised = false
		member.HandRaisedAt = 0
		return s.writeMember(ctx, tx, roomID, member)
	})
	if appErr != nil {
		return appErr
	}

	s.notifyRoomChanged(ctx, roomID)
	return nil
}

func (s *QueueService) CurrentQueue(ctx context.Context, roomID string) ([]entity.MicQueueEntry, *app_error.AppError) {
	room, appErr := s.Store.GetRoom(ctx, roomID)
	if appErr != nil {
		return nil, appErr
	}
	if room == nil {
		return nil, app_error.RoomNotFound()
	}
	return room.MicQueue, nil
}

func (s *QueueService) CurrentSpeaker(ctx context.Context, roomID string) (*entity.Member, *app_error.AppError) {
	members, appErr := store.ListMembers(ctx, s.Store.Redis, roomID)
	if appErr != nil {
		return nil, appErr
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	for _, m := range members {
		if m.IsSpeaking {
			return m, nil
		}
	}
	return nil, nil
}

func (s *QueueService) writeMember(ctx context.Context, tx *redis.Tx, roomID string, member *entity.Member) error {
	doc, appErr := store.MarshalDoc(member)
	if appErr != nil {
		return appErr
	}
	_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, store.MemberKey(roomID, member.UserID), doc, 0)
		pipe.Incr(ctx, store.VerKey(roomID))
		return nil
	})
	return err
}

func (s *QueueService) notifyRoomChanged(ctx context.Context, roomID string) {
	if s.Producer == nil {
		return
	}
	if err := s.Producer.RoomChanged(ctx, roomID); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to enqueue room change event")
	}
}

func queuesEqual(a, b []entity.MicQueueEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
