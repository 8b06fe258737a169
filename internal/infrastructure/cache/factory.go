package cache

import (
	"fmt"

	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/infrastructure/config"
)

// NewIdempotencyStore builds the receipt dedup store selected by configuration
func NewIdempotencyStore(cfg *config.Config) (shared.IdempotencyStore, error) {
	switch cfg.Idempotency.Backend {
	case "redis":
		return NewRedisIdempotencyStore(cfg.Redis)
	case "memory":
		return NewInMemoryIdempotencyStore(), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", cfg.Idempotency.Backend)
	}
}
