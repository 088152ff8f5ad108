package shopping

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/alchemorsel/mealplan/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// ListCacheKey is the cache key of a user's list snapshot
func ListCacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("shopping:list:%s", userID.String())
}

func (s *Service) cachedList(ctx context.Context, userID uuid.UUID) (*inbound.ShoppingListDTO, bool) {
	data, err := s.cache.Get(ctx, ListCacheKey(userID))
	if err != nil {
		if stderrors.Is(err, outbound.ErrCacheMiss) {
			s.metrics.CacheLookup(monitoring.CacheMiss)
		} else {
			s.metrics.CacheLookup(monitoring.CacheError)
			s.logger.Warn("Shopping list cache read failed", zap.String("user_id", userID.String()), zap.Error(err))
		}
		return nil, false
	}

	var dto inbound.ShoppingListDTO
	if err := msgpack.Unmarshal(data, &dto); err != nil {
		s.metrics.CacheLookup(monitoring.CacheError)
		s.logger.Warn("Discarding undecodable cached list", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, false
	}

	s.metrics.CacheLookup(monitoring.CacheHit)
	return &dto, true
}

func (s *Service) cacheList(ctx context.Context, dto *inbound.ShoppingListDTO) {
	data, err := msgpack.Marshal(dto)
	if err != nil {
		s.logger.Warn("Failed to encode list for cache", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, ListCacheKey(dto.UserID), data, s.config.CacheTTL); err != nil {
		s.logger.Warn("Shopping list cache write failed", zap.String("user_id", dto.UserID.String()), zap.Error(err))
	}
}

func (s *Service) invalidateList(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Delete(ctx, ListCacheKey(userID)); err != nil {
		s.logger.Warn("Shopping list cache invalidation failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}
