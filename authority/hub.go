package authority

import (
	"maps"
	"slices"
	"sync"

	"github.com/oomph-ac/netmove/movement"
	"github.com/oomph-ac/netmove/oerror"
	"github.com/oomph-ac/netmove/transport"
	"github.com/oomph-ac/netmove/worker"
	"github.com/sirupsen/logrus"
)

// Hub holds the sessions of every spawned entity and processes them once per server tick. Different
// sessions are processed concurrently on a worker pool; a single session is never processed by two
// goroutines at once.
type Hub struct {
	engine  movement.Engine
	opts    movement.Options
	options []movement.Option
	pool    *worker.Pool
	log     *logrus.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewHub returns a hub creating sessions that use the engine and executor options passed. If pool is
// nil the default worker pool is used.
func NewHub(engine movement.Engine, opts movement.Options, pool *worker.Pool, log *logrus.Logger, options ...movement.Option) *Hub {
	if pool == nil {
		pool = worker.Default()
	}
	return &Hub{
		engine:   engine,
		opts:     opts,
		options:  options,
		pool:     pool,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Spawn creates the session of a newly spawned entity.
func (h *Hub) Spawn(entity string, conn transport.Conn, initial movement.State) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[entity]; ok {
		return nil, oerror.New("entity %s is already spawned", entity)
	}
	s := NewSession(entity, conn, h.engine, h.opts, initial, h.log, h.options...)
	h.sessions[entity] = s
	h.log.Debugf("spawned %s at %v", entity, initial.Pos)
	return s, nil
}

// Despawn closes and removes the session of the entity.
func (h *Hub) Despawn(entity string) error {
	h.mu.Lock()
	s, ok := h.sessions[entity]
	delete(h.sessions, entity)
	h.mu.Unlock()

	if !ok {
		return oerror.New("entity %s is not spawned", entity)
	}
	h.log.Debugf("despawned %s", entity)
	return s.Close()
}

// Session returns the session of the entity.
func (h *Hub) Session(entity string) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[entity]
	return s, ok
}

// Len returns the amount of spawned entities.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Tick processes every session and waits until all of them are done. Sessions whose connection failed
// are despawned.
func (h *Hub) Tick() {
	h.mu.Lock()
	sessions := slices.Collect(maps.Values(h.sessions))
	h.mu.Unlock()

	var (
		failedMu sync.Mutex
		failed   []string
	)
	fs := make([]func(), 0, len(sessions))
	for _, s := range sessions {
		fs = append(fs, func() {
			if err := s.Process(); err != nil {
				h.log.Errorf("%v", err)
				failedMu.Lock()
				failed = append(failed, s.Entity())
				failedMu.Unlock()
			}
		})
	}
	h.pool.Run(fs...)

	for _, entity := range failed {
		_ = h.Despawn(entity)
	}
}

// Close despawns every entity.
func (h *Hub) Close() {
	h.mu.Lock()
	entities := slices.Collect(maps.Keys(h.sessions))
	h.mu.Unlock()

	for _, entity := range entities {
		_ = h.Despawn(entity)
	}
}
