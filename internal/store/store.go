package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Store adapts the replicated document database. Documents are JSON values
// under per-room keys; consistency comes from optimistic WATCH transactions
// retried a bounded number of times.
type Store struct {
	Redis         *redis.Client
	MaxTxnRetries int
}

func New(rdb *redis.Client, maxTxnRetries int) *Store {
	if maxTxnRetries <= 0 {
		maxTxnRetries = 5
	}
	return &Store{Redis: rdb, MaxTxnRetries: maxTxnRetries}
}

// Txn runs fn under WATCH of the room's version key. fn reads through tx and
// writes through tx.TxPipelined; the pipeline must bump the version key so
// concurrent room transactions conflict and retry. Policy errors returned by
// fn pass through untouched; exhausted retries surface as TransactionConflict.
func (s *Store) Txn(ctx context.Context, roomID string, fn func(tx *redis.Tx) error) *app_error.AppError {
	for attempt := 0; attempt < s.MaxTxnRetries; attempt++ {
		err := s.Redis.Watch(ctx, fn, VerKey(roomID))
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		var appErr *app_error.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		log.Error().Err(err).Str("room_id", roomID).Msg("room transaction failed")
		return app_error.NewAppError(http.StatusInternalServerError, "unexpected error during room transaction", "redis")
	}
	return app_error.TransactionConflict()
}

// GetJSON fetches and decodes a JSON document. A missing key is a cache-miss,
// not an error: (nil, nil).
func GetJSON[T any](ctx context.Context, c redis.Cmdable, key string) (*T, *app_error.AppError) {
	val, err := c.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, app_error.NewAppError(http.StatusInternalServerError, "unexpected error occur when trying to get from redis", "redis")
	}

	var data T
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return nil, app_error.NewAppError(http.StatusInternalServerError, "unexpected error occur when unmarshal json", "json")
	}

	return &data, nil
}

// GetJSONRetry is the bounded read-with-backoff primitive: it re-reads a
// possibly lagging document up to attempts times, sleeping delay between
// reads. It never loops unbounded; attempts is a small fixed number.
func GetJSONRetry[T any](ctx context.Context, c redis.Cmdable, key string, attempts int, delay time.Duration) (*T, *app_error.AppError) {
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; ; i++ {
		doc, appErr := GetJSON[T](ctx, c, key)
		if appErr != nil {
			return nil, appErr
		}
		if doc != nil || i+1 >= attempts {
			return doc, nil
		}
		select {
		case <-ctx.Done():
			return nil, app_error.NewAppError(http.StatusInternalServerError, "context cancelled during read retry", "redis")
		case <-time.After(delay):
		}
	}
}

func MarshalDoc(v any) (string, *app_error.AppError) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", app_error.NewAppError(http.StatusInternalServerError, "unexpected error occur when marshal json", "json")
	}
	return string(b), nil
}

func (s *Store) GetRoom(ctx context.Context, roomID string) (*entity.Room, *app_error.AppError) {
	return GetJSON[entity.Room](ctx, s.Redis, RoomKey(roomID))
}

// SaveRoom persists a room document and registers it in the rooms index.
// Used by room provisioning (outside this core) and by tests.
func (s *Store) SaveRoom(ctx context.Context, room *entity.Room) *app_error.AppError {
	doc, appErr := MarshalDoc(room)
	if appErr != nil {
		return appErr
	}
	pipe := s.Redis.TxPipeline()
	pipe.Set(ctx, RoomKey(room.ID), doc, 0)
	pipe.SAdd(ctx, roomsIndexKey, room.ID)
	pipe.Incr(ctx, VerKey(room.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return app_error.NewAppError(http.StatusInternalServerError, "failed to persist room", "redis")
	}
	return nil
}

func (s *Store) RoomIDs(ctx context.Context) ([]string, *app_error.AppError) {
	ids, err := s.Redis.SMembers(ctx, roomsIndexKey).Result()
	if err != nil {
		return nil, app_error.NewAppError(http.StatusInternalServerError, "failed to list rooms", "redis")
	}
	return ids, nil
}

func (s *Store) GetMember(ctx context.Context, roomID, userID string) (*entity.Member, *app_error.AppError) {
	return GetJSON[entity.Member](ctx, s.Redis, MemberKey(roomID, userID))
}

// ListMembers reads the member index and resolves every live member record.
// It accepts any Cmdable so it works both on the bare client and inside a
// watched transaction. Index entries whose record is gone are skipped.
func ListMembers(ctx context.Context, c redis.Cmdable, roomID string) ([]*entity.Member, *app_error.AppError) {
	ids, err := c.SMembers(ctx, MemberIndexKey(roomID)).Result()
	if err != nil {
		return nil, app_error.NewAppError(http.StatusInternalServerError, "failed to read member index", "redis")
	}

	members := make([]*entity.Member, 0, len(ids))
	for _, id := range ids {
		m, appErr := GetJSON[entity.Member](ctx, c, MemberKey(roomID, id))
		if appErr != nil {
			return nil, appErr
		}
		if m == nil {
			continue
		}
		members = append(members, m)
	}
	return members, nil
}

// IsBanned checks every applicable ban list: tenant-wide by user and device,
// then the room's own user and device lists.
func (s *Store) IsBanned(ctx context.Context, room *entity.Room, userID, deviceID string) (bool, *app_error.AppError) {
	checks := []struct {
		key   string
		field string
	}{
		{TenantBanKey(room.OwnerID), userID},
		{TenantDeviceBanKey(room.OwnerID), deviceID},
		{RoomBanKey(room.ID), userID},
		{RoomDeviceBanKey(room.ID), deviceID},
	}
	for _, c := range checks {
		if c.field == "" {
			continue
		}
		found, err := s.Redis.HExists(ctx, c.key, c.field).Result()
		if err != nil {
			return false, app_error.NewAppError(http.StatusInternalServerError, "failed to check ban list", "redis")
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// AddBan records a room-level ban by user id and, when known, by device id.
// Ban records are plain inserts; the membership removal that follows runs in
// its own transaction.
func (s *Store) AddBan(ctx context.Context, roomID string, ban *entity.Ban) *app_error.AppError {
	doc, appErr := MarshalDoc(ban)
	if appErr != nil {
		return appErr
	}
	pipe := s.Redis.TxPipeline()
	pipe.HSet(ctx, RoomBanKey(roomID), ban.TargetID, doc)
	if ban.DeviceID != "" {
		pipe.HSet(ctx, RoomDeviceBanKey(roomID), ban.DeviceID, doc)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return app_error.NewAppError(http.StatusInternalServerError, "failed to persist ban record", "redis")
	}
	return nil
}

func (s *Store) HasMuteOverride(ctx context.Context, roomID, userID string) (bool, *app_error.AppError) {
	found, err := s.Redis.HExists(ctx, MuteOverrideKey(roomID), userID).Result()
	if err != nil {
		return false, app_error.NewAppError(http.StatusInternalServerError, "failed to read mute override", "redis")
	}
	return found, nil
}

func (s *Store) SetMuteOverride(ctx context.Context, roomID, userID string, muted bool) *app_error.AppError {
	var err error
	if muted {
		err = s.Redis.HSet(ctx, MuteOverrideKey(roomID), userID, "1").Err()
	} else {
		err = s.Redis.HDel(ctx, MuteOverrideKey(roomID), userID).Err()
	}
	if err != nil {
		return app_error.NewAppError(http.StatusInternalServerError, "failed to persist mute override", "redis")
	}
	return nil
}
