package identity_service

import (
	"context"
	"math/rand"
	"strings"

	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
	directory_repo "github.com/pipohost/ronza-sub000/internal/repo/directory"
	"github.com/pipohost/ronza-sub000/internal/utils"
)

// Decorative backgrounds handed out to the top cosmetic tier.
var mythicalBackgrounds = []string{
	"aurora", "nebula", "inferno", "abyss", "eclipse", "prism", "monsoon",
}

type IdentityService struct {
	Directory directory_repo.DirectoryRepoContract
}

func NewIdentityService(directory directory_repo.DirectoryRepoContract) IdentityServiceContract {
	return &IdentityService{
		Directory: directory,
	}
}

// Resolve applies the name priority chain: global reserved name, then
// room-scoped registered member, then plain visitor. Matching is
// case-insensitive throughout.
func (s *IdentityService) Resolve(ctx context.Context, req ResolveRequest) (*entity.Member, *app_error.AppError) {
	draft := &entity.Member{
		UserID:   req.UserID,
		Name:     req.Name,
		DeviceID: req.DeviceID,
		Role:     entity.RoleVisitor,
		Rank:     entity.RankNone,
	}

	reserved, appErr := s.Directory.FindReservedName(ctx, req.Name)
	if appErr != nil {
		return nil, appErr
	}
	if reserved != nil {
		if appErr := checkPassword(reserved.PasswordHash, req.Password); appErr != nil {
			return nil, appErr
		}
		applyGrant(draft, reserved.Name, reserved.Role, reserved.Rank)
		finishDraft(draft, req.Room)
		return draft, nil
	}

	registered, appErr := s.Directory.FindRegisteredMember(ctx, req.Room.ID, req.Name)
	if appErr != nil {
		return nil, appErr
	}
	if registered != nil {
		if appErr := checkPassword(registered.PasswordHash, req.Password); appErr != nil {
			return nil, appErr
		}
		applyGrant(draft, registered.Name, registered.Role, registered.Rank)
		if draft.Rank == entity.RankNone {
			draft.Rank = entity.RankRegisteredMember
		}
		finishDraft(draft, req.Room)
		return draft, nil
	}

	for _, name := range req.Room.ReservedNames {
		if strings.EqualFold(name, req.Name) {
			return nil, app_error.NameReserved()
		}
	}

	draft.IsMuted = req.Room.DefaultMuted(entity.RoleVisitor)
	return draft, nil
}

func checkPassword(hash, password string) *app_error.AppError {
	if hash == "" {
		return nil
	}
	ok, err := utils.VerifyHash(hash, password)
	if err != nil || !ok {
		return app_error.IncorrectPassword()
	}
	return nil
}

func applyGrant(draft *entity.Member, canonicalName, role, rank string) {
	// Keep the directory's canonical casing of the name.
	draft.Name = canonicalName
	if r := entity.Role(role); r.Valid() {
		draft.Role = r
	}
	draft.Rank = entity.Rank(rank)
}

func finishDraft(draft *entity.Member, room *entity.Room) {
	draft.IsMuted = room.DefaultMuted(draft.Role)
	if draft.Rank.IsTopTier() {
		draft.Background = mythicalBackgrounds[rand.Intn(len(mythicalBackgrounds))]
	}
}
