package identity_service

import (
	"context"
	"strings"
	"testing"

	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
	"github.com/pipohost/ronza-sub000/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	reserved   map[string]*entity.ReservedName
	registered map[string]*entity.RegisteredMember
}

func (f *fakeDirectory) FindReservedName(_ context.Context, name string) (*entity.ReservedName, *app_error.AppError) {
	return f.reserved[strings.ToLower(name)], nil
}

func (f *fakeDirectory) FindRegisteredMember(_ context.Context, roomID, name string) (*entity.RegisteredMember, *app_error.AppError) {
	return f.registered[roomID+"/"+strings.ToLower(name)], nil
}

func newService(dir *fakeDirectory) IdentityServiceContract {
	if dir.reserved == nil {
		dir.reserved = map[string]*entity.ReservedName{}
	}
	if dir.registered == nil {
		dir.registered = map[string]*entity.RegisteredMember{}
	}
	return NewIdentityService(dir)
}

func testRoom() *entity.Room {
	return &entity.Room{ID: "r1", OwnerID: "owner", MaxUsers: 10}
}

func TestResolve_PlainVisitor(t *testing.T) {
	svc := newService(&fakeDirectory{})

	member, appErr := svc.Resolve(context.Background(), ResolveRequest{
		UserID: "u1", Name: "wanderer", Room: testRoom(),
	})

	require.Nil(t, appErr)
	assert.Equal(t, entity.RoleVisitor, member.Role)
	assert.Equal(t, entity.RankNone, member.Rank)
	assert.False(t, member.IsMuted)
}

func TestResolve_VisitorInheritsCategoryMute(t *testing.T) {
	svc := newService(&fakeDirectory{})
	room := testRoom()
	room.CategoryMutes = map[string]bool{string(entity.RoleVisitor): true}

	member, appErr := svc.Resolve(context.Background(), ResolveRequest{
		UserID: "u1", Name: "wanderer", Room: room,
	})

	require.Nil(t, appErr)
	assert.True(t, member.IsMuted, "visitors join muted when the room mutes the category")
}

func TestResolve_ReservedNameGrantsRoleAndRank(t *testing.T) {
	svc := newService(&fakeDirectory{
		reserved: map[string]*entity.ReservedName{
			"duke": {Name: "Duke", Role: string(entity.RoleAdmin), Rank: string(entity.RankSuperName)},
		},
	})

	member, appErr := svc.Resolve(context.Background(), ResolveRequest{
		UserID: "u1", Name: "dUkE", Room: testRoom(),
	})

	require.Nil(t, appErr)
	assert.Equal(t, "Duke", member.Name, "directory canonical casing wins")
	assert.Equal(t, entity.RoleAdmin, member.Role)
	assert.Equal(t, entity.RankSuperName, member.Rank)
}

func TestResolve_ReservedNameBeatsRegisteredMember(t *testing.T) {
	svc := newService(&fakeDirectory{
		reserved: map[string]*entity.ReservedName{
			"duke": {Name: "Duke", Role: string(entity.RoleSuperadmin)},
		},
		registered: map[string]*entity.RegisteredMember{
			"r1/duke": {Name: "duke", Role: string(entity.RoleVisitor)},
		},
	})

	member, appErr := svc.Resolve(context.Background(), ResolveRequest{
		UserID: "u1", Name: "duke", Room: testRoom(),
	})

	require.Nil(t, appErr)
	assert.Equal(t, entity.RoleSuperadmin, member.Role, "global reservation outranks the room registration")
}

func TestResolve_ReservedNameWrongPassword(t *testing.T) {
	hash, err := utils.GenerateHash("letmein")
	require.NoError(t, err)

	svc := newService(&fakeDirectory{
		reserved: map[string]*entity.ReservedName{
			"duke": {Name: "Duke", Role: string(entity.RoleAdmin), PasswordHash: hash},
		},
	})

	_, appErr := svc.Resolve(context.Background(), ResolveRequest{
		UserID: "u1", Name: "Duke", Password: "wrong", Room: testRoom(),
	})

	require.NotNil(t, appErr)
	assert.Equal(t, app_error.KindIncorrectPassword, appErr.Kind)
}

func TestResolve_ReservedNameCorrectPassword(t *testing.T) {
	hash, err := utils.GenerateHash("letmein")
	require.NoError(t, err)

	svc := newService(&fakeDirectory{
		reserved: map[string]*entity.ReservedName{
			"duke": {Name: "Duke", Role: string(entity.RoleAdmin), PasswordHash: hash},
		},
	})

	member, appErr := svc.Resolve(context.Background(), ResolveRequest{
		UserID: "u1", Name: "Duke", Password: "letmein", Room: testRoom(),
	})

	require.Nil(t, appErr)
	assert.Equal(t, entity.RoleAdmin, member.Role)
}

func TestResolve_RegisteredMemberDefaultsRank(t *testing.T) {
	svc := newService(&fakeDirectory{
		registered: map[string]*entity.RegisteredMember{
			"r1/scout": {RoomID: "r1", Name: "Scout", Role: string(entity.RoleSpecial)},
		},
	})

	member, appErr := svc.Resolve(context.Background(), ResolveRequest{
		UserID: "u1", Name: "scout", Room: testRoom(),
	})

	require.Nil(t, appErr)
	assert.Equal(t, entity.RoleSpecial, member.Role)
	assert.Equal(t, entity.RankRegisteredMember, member.Rank)
}

func TestResolve_RoomReservedNameBlocked(t *testing.T) {
	svc := newService(&fakeDirectory{})
	room := testRoom()
	room.ReservedNames = []string{"Oracle"}

	_, appErr := svc.Resolve(context.Background(), ResolveRequest{
		UserID: "u1", Name: "oracle", Room: room,
	})

	require.NotNil(t, appErr)
	assert.Equal(t, app_error.KindNameReserved, appErr.Kind, "room-level reservations match case-insensitively")
}

func TestResolve_TopTierGetsBackground(t *testing.T) {
	svc := newService(&fakeDirectory{
		reserved: map[string]*entity.ReservedName{
			"myth": {Name: "Myth", Role: string(entity.RoleSuperadmin), Rank: string(entity.RankMythicalAdmin)},
		},
	})

	member, appErr := svc.Resolve(context.Background(), ResolveRequest{
		UserID: "u1", Name: "Myth", Room: testRoom(),
	})

	require.Nil(t, appErr)
	assert.NotEmpty(t, member.Background, "top cosmetic tier carries a decorative background")
}

func TestResolve_InvalidDirectoryRoleFallsBackToVisitor(t *testing.T) {
	svc := newService(&fakeDirectory{
		reserved: map[string]*entity.ReservedName{
			"odd": {Name: "Odd", Role: "archwizard"},
		},
	})

	member, appErr := svc.Resolve(context.Background(), ResolveRequest{
		UserID: "u1", Name: "Odd", Room: testRoom(),
	})

	require.Nil(t, appErr)
	assert.Equal(t, entity.RoleVisitor, member.Role, "unknown directory roles must not escalate")
}
