package moderation_service

import (
	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
)

// CanModerate is the single decision table every privileged operation
// consults before mutating anything.
//
//   - a top-cosmetic-rank target is immune to everyone
//   - admin/superadmin targets may only be touched by a superadmin or a
//     top-cosmetic-rank actor
func CanModerate(actor, target *entity.Member) *app_error.AppError {
	if target.Rank.IsTopTier() {
		return app_error.TargetImmune()
	}

	actorOutranks := actor.Role == entity.RoleSuperadmin || actor.Rank.IsTopTier()
	if !actorOutranks && (target.Role == entity.RoleAdmin || target.Role == entity.RoleSuperadmin) {
		return app_error.InsufficientRole()
	}

	return nil
}
