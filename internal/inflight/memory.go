package inflight

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type lease struct {
	token     string
	expiresAt time.Time
}

// MemoryGuard is a Guard for a single process.
type MemoryGuard struct {
	mu      sync.Mutex
	leases  map[string]lease
	ttl     time.Duration
	nowFunc func() time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{
		leases:  map[string]lease{},
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.nowFunc()
	if l, ok := g.leases[key]; ok && (g.ttl <= 0 || now.Before(l.expiresAt)) {
		return "", false, nil
	}
	token := uuid.NewString()
	g.leases[key] = lease{token: token, expiresAt: now.Add(g.ttl)}
	return token, true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.leases[key]; ok && l.token == token {
		delete(g.leases, key)
	}
	return nil
}
