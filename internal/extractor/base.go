package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"prisradar/offerworker/internal/provider"
	pkgerrors "prisradar/offerworker/pkg/errors"
)

// base carries the cooldown handling shared by all extractor strategies.
type base struct {
	deps Deps
}

func blockKey(cfg provider.Config) string {
	return strings.ToLower(cfg.Name) + "_rate_limited"
}

// checkBlocked reports an error when the provider is in a cooldown window.
func (b *base) checkBlocked(cfg provider.Config) error {
	if b.deps.Cache == nil {
		return nil
	}
	if _, err := b.deps.Cache.Get(blockKey(cfg)); err == nil {
		return pkgerrors.NewRateLimit(cfg.Name, b.deps.BlockTime)
	}
	return nil
}

// noteRateLimit records a cooldown marker when the fetch was rate limited,
// so the next sweep skips this provider until the block expires.
func (b *base) noteRateLimit(cfg provider.Config, err error) {
	if b.deps.Cache == nil || err == nil {
		return
	}
	if strings.HasPrefix(err.Error(), "rate limited") {
		blockSeconds := fmt.Sprintf("%d", int(b.deps.BlockTime/time.Second))
		b.deps.Cache.Set(blockKey(cfg), []byte(blockSeconds), b.deps.BlockTime)
	}
}

func checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}
