package moderation_service

import (
	"testing"

	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
	"github.com/stretchr/testify/assert"
)

func member(role entity.Role, rank entity.Rank) *entity.Member {
	return &entity.Member{UserID: "x", Role: role, Rank: rank}
}

func TestCanModerate(t *testing.T) {
	tests := []struct {
		name     string
		actor    *entity.Member
		target   *entity.Member
		wantKind app_error.Kind
	}{
		{
			name:   "admin moderates visitor",
			actor:  member(entity.RoleAdmin, entity.RankNone),
			target: member(entity.RoleVisitor, entity.RankNone),
		},
		{
			name:   "special moderates visitor",
			actor:  member(entity.RoleSpecial, entity.RankNone),
			target: member(entity.RoleVisitor, entity.RankNone),
		},
		{
			name:     "special cannot touch superadmin",
			actor:    member(entity.RoleSpecial, entity.RankNone),
			target:   member(entity.RoleSuperadmin, entity.RankNone),
			wantKind: app_error.KindInsufficientRole,
		},
		{
			name:     "admin cannot touch admin",
			actor:    member(entity.RoleAdmin, entity.RankNone),
			target:   member(entity.RoleAdmin, entity.RankNone),
			wantKind: app_error.KindInsufficientRole,
		},
		{
			name:   "superadmin moderates admin",
			actor:  member(entity.RoleSuperadmin, entity.RankNone),
			target: member(entity.RoleAdmin, entity.RankNone),
		},
		{
			name:   "superadmin moderates superadmin",
			actor:  member(entity.RoleSuperadmin, entity.RankNone),
			target: member(entity.RoleSuperadmin, entity.RankNone),
		},
		{
			name:   "top rank actor moderates admin despite visitor role",
			actor:  member(entity.RoleVisitor, entity.RankMythicalAdmin),
			target: member(entity.RoleAdmin, entity.RankNone),
		},
		{
			name:     "top rank target immune to superadmin",
			actor:    member(entity.RoleSuperadmin, entity.RankNone),
			target:   member(entity.RoleVisitor, entity.RankMythicalAdmin),
			wantKind: app_error.KindTargetImmune,
		},
		{
			name:     "top rank target immune to top rank actor",
			actor:    member(entity.RoleSuperadmin, entity.RankMythicalAdmin),
			target:   member(entity.RoleVisitor, entity.RankMythicalAdmin),
			wantKind: app_error.KindTargetImmune,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := CanModerate(tt.actor, tt.target)
			if tt.wantKind == "" {
				assert.Nil(t, appErr)
			} else {
				if assert.NotNil(t, appErr) {
					assert.Equal(t, tt.wantKind, appErr.Kind)
				}
			}
		})
	}
}
