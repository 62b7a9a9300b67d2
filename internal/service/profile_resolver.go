package service

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/skillswap/skillswap-backend/internal/domain"
	"github.com/skillswap/skillswap-backend/internal/repository"
	"github.com/skillswap/skillswap-backend/pkg/cache"
	"github.com/skillswap/skillswap-backend/pkg/logger"
)

// ProfileResolver batch-resolves display summaries for user ids
type ProfileResolver interface {
	Resolve(ctx context.Context, userIDs []string) (map[string]*domain.ProfileSummary, error)
}

type profileResolver struct {
	repo  repository.ProfileRepository
	cache cache.Service
	log   zerolog.Logger
}

// NewProfileResolver reads through the redis cache when one is available; cacheSvc may be nil
func NewProfileResolver(repo repository.ProfileRepository, cacheSvc cache.Service) ProfileResolver {
	return &profileResolver{
		repo:  repo,
		cache: cacheSvc,
		log:   logger.WithComponent("profile_resolver"),
	}
}

// Resolve returns summaries keyed by user id; unknown users are absent
func (r *profileResolver) Resolve(ctx context.Context, userIDs []string) (map[string]*domain.ProfileSummary, error) {
	ids := uniqueNonEmpty(userIDs)
	result := make(map[string]*domain.ProfileSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	missing := ids
	if r.cache != nil && r.cache.IsAvailable() {
		cached, err := r.cache.GetProfiles(ctx, ids)
		if err != nil {
			r.log.Warn().Err(err).Msg("profile cache read failed")
		} else {
			missing = nil
			for _, id := range ids {
				var summary domain.ProfileSummary
				if raw, ok := cached[id]; ok && json.Unmarshal(raw, &summary) == nil {
					result[id] = &summary
					continue
				}
				missing = append(missing, id)
			}
		}
	}
	if len(missing) == 0 {
		return result, nil
	}

	profiles, err := r.repo.FindByIDs(ctx, missing)
	if err != nil {
		return result, err
	}
	for id, p := range profiles {
		summary := p.Summary()
		result[id] = summary
		if r.cache != nil {
			if err := r.cache.SetProfile(ctx, id, summary); err != nil {
				r.log.Warn().Err(err).Str("user_id", id).Msg("profile cache write failed")
			}
		}
	}
	return result, nil
}

func uniqueNonEmpty(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
