package service

import (
	"context"
	"sync"

	"github.com/botledger/botgate/internal/config"
	"github.com/botledger/botgate/internal/model"
	"golang.org/x/time/rate"
)

// ProjectResolver resolves an API key to an active project. Inactive and
// nonexistent projects both come back as a not-found error.
type ProjectResolver interface {
	ResolveByApiKey(ctx context.Context, apiKey string) (*model.Project, error)
}

// Directory 负责凭证解析和每个项目的限流器
//
// Credential resolution always goes to the store so a deactivated project
// stops ingesting immediately; only the limiters live in memory.
type Directory struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	repo     ProjectResolver
	qps      float64
	burst    int
}

func NewDirectory(cfg *config.Config, repo ProjectResolver) *Directory {
	d := &Directory{
		limiters: make(map[string]*rate.Limiter),
		repo:     repo,
		qps:      10,
		burst:    20,
	}
	if cfg != nil {
		if cfg.RateLimit.QPS > 0 {
			d.qps = cfg.RateLimit.QPS
		}
		if cfg.RateLimit.Burst > 0 {
			d.burst = cfg.RateLimit.Burst
		}
	}
	return d
}

// Resolve returns the active project for the credential, or false. The caller
// must not distinguish why resolution failed.
func (d *Directory) Resolve(ctx context.Context, apiKey string) (*model.Project, bool) {
	if d.repo == nil || apiKey == "" {
		return nil, false
	}
	project, err := d.repo.ResolveByApiKey(ctx, apiKey)
	if err != nil || project == nil {
		return nil, false
	}
	return project, true
}

// LimiterFor lazily creates the per-project token bucket.
func (d *Directory) LimiterFor(projectID string) *rate.Limiter {
	d.mu.RLock()
	limiter, ok := d.limiters[projectID]
	d.mu.RUnlock()
	if ok {
		return limiter
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if limiter, ok := d.limiters[projectID]; ok {
		return limiter
	}
	limit := rate.Limit(d.qps)
	if limit == 0 {
		limit = rate.Inf
	}
	burst := d.burst
	if burst == 0 {
		burst = 1
	}
	limiter = rate.NewLimiter(limit, burst)
	d.limiters[projectID] = limiter
	return limiter
}

// Forget drops a project's limiter, e.g. after deletion.
func (d *Directory) Forget(projectID string) {
	d.mu.Lock()
	delete(d.limiters, projectID)
	d.mu.Unlock()
}
