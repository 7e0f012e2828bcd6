package moderation_service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
	"github.com/pipohost/ronza-sub000/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (ModerationServiceContract, *store.Store, *redis.Client) {
	t.Helper()
	mockRedis := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mockRedis.Addr()})
	t.Cleanup(func() { client.Close() })

	st := store.New(client, 5)
	return NewModerationService(st, nil), st, client
}

func seedMember(t *testing.T, client *redis.Client, roomID string, m *entity.Member) {
	t.Helper()
	ctx := context.Background()
	doc, appErr := store.MarshalDoc(m)
	require.Nil(t, appErr)
	require.NoError(t, client.Set(ctx, store.MemberKey(roomID, m.UserID), doc, 0).Err())
	require.NoError(t, client.SAdd(ctx, store.MemberIndexKey(roomID), m.UserID).Err())
}

func readMember(t *testing.T, st *store.Store, roomID, userID string) *entity.Member {
	t.Helper()
	m, appErr := st.GetMember(context.Background(), roomID, userID)
	require.Nil(t, appErr)
	require.NotNil(t, m)
	return m
}

func admin(id string) *entity.Member {
	return &entity.Member{UserID: id, Name: id, Role: entity.RoleAdmin}
}

func TestMute_SetsFlagAndOverride(t *testing.T) {
	svc, st, client := newTestService(t)
	ctx := context.Background()
	seedMember(t, client, "r1", &entity.Member{UserID: "t1", Role: entity.RoleVisitor})

	require.Nil(t, svc.Mute(ctx, "r1", admin("a1"), "t1", true))

	assert.True(t, readMember(t, st, "r1", "t1").IsMuted)
	found, _ := st.HasMuteOverride(ctx, "r1", "t1")
	assert.True(t, found, "the override must survive the member leaving and re-joining")
}

func TestMute_UnmuteClearsOverride(t *testing.T) {
	svc, st, client := newTestService(t)
	ctx := context.Background()
	seedMember(t, client, "r1", &entity.Member{UserID: "t1", Role: entity.RoleVisitor, IsMuted: true})
	require.Nil(t, st.SetMuteOverride(ctx, "r1", "t1", true))

	require.Nil(t, svc.Mute(ctx, "r1", admin("a1"), "t1", false))

	assert.False(t, readMember(t, st, "r1", "t1").IsMuted)
	found, _ := st.HasMuteOverride(ctx, "r1", "t1")
	assert.False(t, found)
}

func TestMute_TargetNotAMember(t *testing.T) {
	svc, _, _ := newTestService(t)

	appErr := svc.Mute(context.Background(), "r1", admin("a1"), "ghost", true)

	require.NotNil(t, appErr)
	assert.Equal(t, app_error.KindNotAMember, appErr.Kind)
}

func TestMute_GuardRejectsPeerTarget(t *testing.T) {
	svc, st, client := newTestService(t)
	seedMember(t, client, "r1", &entity.Member{UserID: "t1", Role: entity.RoleAdmin})

	appErr := svc.Mute(context.Background(), "r1", admin("a1"), "t1", true)

	require.NotNil(t, appErr)
	assert.Equal(t, app_error.KindInsufficientRole, appErr.Kind)
	assert.False(t, readMember(t, st, "r1", "t1").IsMuted, "a rejected mutation must not persist")
}

func TestMute_TopRankTargetImmune(t *testing.T) {
	svc, _, client := newTestService(t)
	seedMember(t, client, "r1", &entity.Member{UserID: "t1", Role: entity.RoleVisitor, Rank: entity.RankMythicalAdmin})

	appErr := svc.Mute(context.Background(), "r1", &entity.Member{UserID: "a1", Role: entity.RoleSuperadmin}, "t1", true)

	require.NotNil(t, appErr)
	assert.Equal(t, app_error.KindTargetImmune, appErr.Kind)
}

func TestForceMicDrop_ClearsSpeakingAndHand(t *testing.T) {
	svc, st, client := newTestService(t)
	seedMember(t, client, "r1", &entity.Member{
		UserID: "t1", Role: entity.RoleVisitor,
		IsSpeaking: true, MicTimeStarted: 12345, HandRaised: true, HandRaisedAt: 99,
	})

	require.Nil(t, svc.ForceMicDrop(context.Background(), "r1", admin("a1"), "t1"))

	got := readMember(t, st, "r1", "t1")
	assert.False(t, got.IsSpeaking)
	assert.False(t, got.HandRaised)
	assert.Zero(t, got.MicTimeStarted)
	assert.Zero(t, got.HandRaisedAt)
}

func TestForceMicDrop_NoopWhenIdle(t *testing.T) {
	svc, _, client := newTestService(t)
	seedMember(t, client, "r1", &entity.Member{UserID: "t1", Role: entity.RoleVisitor})

	ver := client.Get(context.Background(), store.VerKey("r1")).Val()
	require.Nil(t, svc.ForceMicDrop(context.Background(), "r1", admin("a1"), "t1"))

	assert.Equal(t, ver, client.Get(context.Background(), store.VerKey("r1")).Val(), "an idle target should not produce a write")
}

func TestForceMicDropAll_SkipsProtectedTargets(t *testing.T) {
	svc, st, client := newTestService(t)
	ctx := context.Background()
	seedMember(t, client, "r1", &entity.Member{UserID: "v1", Role: entity.RoleVisitor, IsSpeaking: true})
	seedMember(t, client, "r1", &entity.Member{UserID: "v2", Role: entity.RoleVisitor, HandRaised: true})
	seedMember(t, client, "r1", &entity.Member{UserID: "boss", Role: entity.RoleAdmin, HandRaised: true})

	require.Nil(t, svc.ForceMicDropAll(ctx, "r1", admin("a1")))

	assert.False(t, readMember(t, st, "r1", "v1").IsSpeaking)
	assert.False(t, readMember(t, st, "r1", "v2").HandRaised)
	assert.True(t, readMember(t, st, "r1", "boss").HandRaised, "peers the actor cannot moderate are skipped, not an error")
}

func TestGrantOpenMic_Toggle(t *testing.T) {
	svc, st, client := newTestService(t)
	ctx := context.Background()
	seedMember(t, client, "r1", &entity.Member{UserID: "t1", Role: entity.RoleVisitor})

	require.Nil(t, svc.GrantOpenMic(ctx, "r1", admin("a1"), "t1", true))
	assert.True(t, readMember(t, st, "r1", "t1").HasOpenMic)

	require.Nil(t, svc.GrantOpenMic(ctx, "r1", admin("a1"), "t1", false))
	assert.False(t, readMember(t, st, "r1", "t1").HasOpenMic)
}

func TestToggleRole_StripAndRestore(t *testing.T) {
	svc, st, client := newTestService(t)
	ctx := context.Background()
	actor := &entity.Member{UserID: "a1", Role: entity.RoleSuperadmin}
	seedMember(t, client, "r1", &entity.Member{UserID: "t1", Role: entity.RoleAdmin})

	require.Nil(t, svc.ToggleRole(ctx, "r1", actor, "t1"))
	stripped := readMember(t, st, "r1", "t1")
	assert.Equal(t, entity.RoleVisitor, stripped.Role)
	assert.Equal(t, entity.RoleAdmin, stripped.StrippedRole)

	require.Nil(t, svc.ToggleRole(ctx, "r1", actor, "t1"))
	restored := readMember(t, st, "r1", "t1")
	assert.Equal(t, entity.RoleAdmin, restored.Role)
	assert.Empty(t, restored.StrippedRole)
}

func TestToggleRole_VisitorWithoutStrippedRoleIsNoop(t *testing.T) {
	svc, st, client := newTestService(t)
	seedMember(t, client, "r1", &entity.Member{UserID: "t1", Role: entity.RoleVisitor})

	require.Nil(t, svc.ToggleRole(context.Background(), "r1", &entity.Member{UserID: "a1", Role: entity.RoleSuperadmin}, "t1"))

	assert.Equal(t, entity.RoleVisitor, readMember(t, st, "r1", "t1").Role)
}
