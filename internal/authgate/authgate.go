package authgate

import (
	"context"
	"crypto/rsa"
	"net/http"
	"time"

	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
	"github.com/pipohost/ronza-sub000/internal/store"
	"github.com/pipohost/ronza-sub000/internal/utils"
)

// AuthGate verifies a caller's session and role against the room's live
// membership record. Reads immediately after a join may observe the prior
// state, so the gate tolerates replication lag with exactly two bounded
// retries across the whole check: one for a missing record, one for a role
// that doesn't qualify yet. No unbounded backoff.
type AuthGate struct {
	Store      *store.Store
	PublicKey  *rsa.PublicKey
	RetryDelay time.Duration
}

func New(st *store.Store, publicKey *rsa.PublicKey, retryDelay time.Duration) *AuthGate {
	return &AuthGate{
		Store:      st,
		PublicKey:  publicKey,
		RetryDelay: retryDelay,
	}
}

// CheckAuth returns the caller's membership record when the session is valid
// and the role qualifies. An empty requiredRoles means authentication only.
func (g *AuthGate) CheckAuth(ctx context.Context, token, roomID string, requiredRoles ...entity.Role) (*entity.Member, *app_error.AppError) {
	claims, err := utils.ParseAndVerifySign(token, g.PublicKey)
	if err != nil {
		return nil, app_error.New(app_error.KindUnauthorized, http.StatusUnauthorized, "invalid or expired session", "auth")
	}

	return g.CheckMember(ctx, roomID, claims.Sub, requiredRoles...)
}

// CheckMember is CheckAuth after session verification; exposed separately so
// callers holding an already-verified user id can reuse the same retry
// semantics.
func (g *AuthGate) CheckMember(ctx context.Context, roomID, userID string, requiredRoles ...entity.Role) (*entity.Member, *app_error.AppError) {
	memberKey := store.MemberKey(roomID, userID)

	// First retry budget: absorb a membership record the replica hasn't
	// caught up with yet.
	member, appErr := store.GetJSONRetry[entity.Member](ctx, g.Store.Redis, memberKey, 2, g.RetryDelay)
	if appErr != nil {
		return nil, appErr
	}
	if member == nil {
		return nil, app_error.NotAMember()
	}

	if roleQualifies(member, requiredRoles) {
		return member, nil
	}

	// Second retry budget: the role itself may be stale (e.g. a grant that
	// hasn't replicated). One more delayed read, then the failure is final.
	select {
	case <-ctx.Done():
		return nil, app_error.InsufficientRole()
	case <-time.After(g.RetryDelay):
	}

	member, appErr = g.Store.GetMember(ctx, roomID, userID)
	if appErr != nil {
		return nil, appErr
	}
	if member == nil {
		return nil, app_error.NotAMember()
	}
	if roleQualifies(member, requiredRoles) {
		return member, nil
	}

	return nil, app_error.InsufficientRole()
}

func roleQualifies(member *entity.Member, requiredRoles []entity.Role) bool {
	if len(requiredRoles) == 0 {
		return true
	}
	if member.Rank.IsTopTier() {
		// Top cosmetic tier overrides every role requirement.
		return true
	}
	for _, role := range requiredRoles {
		if member.Role == role {
			return true
		}
	}
	return false
}
