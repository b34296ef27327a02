package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"agreepay/internal/clients"
	"agreepay/internal/domain"
)

type PricingRepository interface {
	GetActive(ctx context.Context) (*domain.PricingConfig, error)
	Update(ctx context.Context, dailyRate float64, userID int64) (*domain.PricingConfig, error)
}

const (
	pricingCacheKey = "pricing_config"
	pricingCacheTTL = 5 * time.Minute
)

type PricingService struct {
	repo  PricingRepository
	redis *clients.RedisClient
}

func NewPricingService(repo PricingRepository, redis *clients.RedisClient) *PricingService {
	return &PricingService{repo: repo, redis: redis}
}

// Get returns the active pricing config, synthesizing the default when the
// rate was never configured.
func (s *PricingService) Get(ctx context.Context) (*domain.PricingConfig, error) {
	if s.redis != nil {
		if data, err := s.redis.Get(ctx, pricingCacheKey); err == nil && data != "" {
			var cached domain.PricingConfig
			if err := json.Unmarshal([]byte(data), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	cfg, err := s.repo.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		now := time.Now().UTC()
		cfg = &domain.PricingConfig{
			DailyRate: domain.DefaultDailyRate,
			IsActive:  true,
			CreatedAt: &now,
			UpdatedAt: &now,
		}
	}

	if s.redis != nil {
		if data, err := json.Marshal(cfg); err == nil {
			if err := s.redis.Set(ctx, pricingCacheKey, string(data), pricingCacheTTL); err != nil {
				log.Printf("pricing cache write error: %v", err)
			}
		}
	}
	return cfg, nil
}

// DailyRate is a convenience read for the calculator callers; the rate is
// always handed in explicitly, never read from ambient state inside the
// calculation itself.
func (s *PricingService) DailyRate(ctx context.Context) (float64, error) {
	cfg, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	return cfg.DailyRate, nil
}

// Update writes a new active config. Any authenticated participant may call
// this; the open rate-editing policy is a product decision, audit fields
// record who did it.
func (s *PricingService) Update(ctx context.Context, dailyRate float64, userID int64) (*domain.PricingConfig, error) {
	if dailyRate <= 0 {
		return nil, &ValidationError{Field: "daily_rate", Message: fmt.Sprintf("daily rate must be positive, got %v", dailyRate)}
	}

	cfg, err := s.repo.Update(ctx, dailyRate, userID)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if err := s.redis.Del(ctx, pricingCacheKey); err != nil {
			log.Printf("pricing cache invalidate error: %v", err)
		}
	}
	return cfg, nil
}
