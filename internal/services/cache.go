package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// CacheService wraps redis behind a circuit breaker: when redis flaps, reads
// fail fast and callers fall through to the database instead of piling up.
type CacheService struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

func NewCacheService(client *redis.Client, threshold int, logger *logrus.Logger) *CacheService {
	settings := gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: uint32(threshold),
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &CacheService{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Set(ctx, key, data, expiration).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.Get(ctx, key).Result()
	})
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("key not found")
		}
		return fmt.Errorf("failed to get cache: %w", err)
	}

	if err := json.Unmarshal([]byte(result.(string)), dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

// Cache key generators
func LeaderboardCacheKey(class string) string {
	return fmt.Sprintf("leaderboard:%s", class)
}

func RecapCacheKey(seasonID uint, day int) string {
	return fmt.Sprintf("recap:%d:%d", seasonID, day)
}

func StatsCacheKey(class string) string {
	return fmt.Sprintf("stats:%s", class)
}
