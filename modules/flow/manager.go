package flow

import (
	"context"
	"log"
	"sync"
	"time"
)

// Manager - controllers per (user, session) with idle eviction. Evicted
// sessions live on in the snapshot store and resume on next access.
type Manager struct {
	mu          sync.Mutex
	controllers map[string]*Controller
	snaps       SnapshotStore
	uploads     UploadService
	gen         GenerationService
	hub         *Hub
}

// NewManager - wizard session registry
func NewManager(snaps SnapshotStore, uploads UploadService, gen GenerationService, hub *Hub) *Manager {
	return &Manager{
		controllers: make(map[string]*Controller),
		snaps:       snaps,
		uploads:     uploads,
		gen:         gen,
		hub:         hub,
	}
}

// Controller - get or create the controller for a user's session
func (m *Manager) Controller(ctx context.Context, userID, sessionID string) *Controller {
	key := userID + ":" + sessionID

	m.mu.Lock()
	defer m.mu.Unlock()

	if ctrl, ok := m.controllers[key]; ok {
		return ctrl
	}

	var notify func(State)
	if m.hub != nil {
		notify = func(state State) { m.hub.Broadcast(sessionID, state) }
	}
	ctrl := NewController(ctx, key, userID, m.snaps, m.uploads, m.gen, notify)
	m.controllers[key] = ctrl
	return ctrl
}

// StartCleanup - evict controllers idle longer than maxIdle
func (m *Manager) StartCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.evictIdle(maxIdle)
			}
		}
	}()
}

func (m *Manager) evictIdle(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, ctrl := range m.controllers {
		if ctrl.LastActive().Before(cutoff) {
			delete(m.controllers, key)
			log.Printf("🧹 [Flow] Evicted idle session %s", key)
		}
	}
}
