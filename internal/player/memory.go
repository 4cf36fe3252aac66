package player

import (
	"context"
	"sync"

	"hfl-auth/internal/model"
)

// MemoryGateway resolves players from in-process maps. It backs development
// mode and tests; production resolves against the league's Scylla tables.
type MemoryGateway struct {
	mu           sync.RWMutex
	players      map[string]*model.Player
	applications map[string]*model.Application
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		players:      make(map[string]*model.Player),
		applications: make(map[string]*model.Application),
	}
}

func (g *MemoryGateway) AddPlayer(p *model.Player) {
	g.mu.Lock()
	defer g.mu.Unlock()
	copied := *p
	g.players[p.Phone] = &copied
}

func (g *MemoryGateway) AddApplication(a *model.Application) {
	g.mu.Lock()
	defer g.mu.Unlock()
	copied := *a
	g.applications[a.Phone] = &copied
}

func (g *MemoryGateway) Resolve(_ context.Context, phone string) (model.Resolution, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if p, ok := g.players[phone]; ok {
		copied := *p
		return model.Resolution{Player: &copied}, nil
	}
	if _, ok := g.applications[phone]; ok {
		return model.Resolution{HasPendingApplication: true}, nil
	}
	return model.Resolution{}, nil
}
