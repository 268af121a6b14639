// Package server runs the in-process authoritative simulation: a fixed-period
// tick that steps every AI ship once and hands subscribers a snapshot.
package server

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/event"
	"github.com/opd-ai/go-skirmish/pkg/logging"
	"github.com/opd-ai/go-skirmish/pkg/metrics"
)

// DefaultPeriod is the authoritative tick period.
const DefaultPeriod = 100 * time.Millisecond

// Simulation is the world state the server advances.
type Simulation interface {
	// StepAI applies one steering step to every AI ship and returns how many
	// were stepped. It must serialize with any other writer of the world.
	StepAI() int
	// Snapshot returns a copy of every ship's state.
	Snapshot() []entity.ShipState
}

// Snapshot is the state produced by one tick.
type Snapshot struct {
	Sequence uint64
	Time     time.Time
	Ships    []entity.ShipState
}

// Ship returns the state of the ship with the given ID.
func (s Snapshot) Ship(id entity.ID) (entity.ShipState, bool) {
	for _, st := range s.Ships {
		if st.ID == id {
			return st, true
		}
	}
	return entity.ShipState{}, false
}

// Handler receives tick snapshots.
type Handler func(Snapshot)

// Subscription identifies a registered handler.
type Subscription struct {
	ID     uint64
	Cancel func()
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Server is the tick broadcaster.
type Server struct {
	sim     Simulation
	period  time.Duration
	clock   func() time.Time
	logger  *logging.Logger
	bus     *event.Bus
	metrics *metrics.Metrics

	subMu       sync.RWMutex
	subscribers map[uint64]Handler
	nextSubID   uint64

	tickMu   sync.Mutex
	sequence uint64
	lastTick atomic.Int64

	runMu   sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) { s.clock = clock }
}

// WithEventBus publishes a TickCompleted event after each tick.
func WithEventBus(bus *event.Bus) Option {
	return func(s *Server) { s.bus = bus }
}

// WithMetrics records tick counts and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a stopped server. A non-positive period uses DefaultPeriod.
func New(sim Simulation, period time.Duration, opts ...Option) *Server {
	if period <= 0 {
		period = DefaultPeriod
	}
	s := &Server{
		sim:         sim,
		period:      period,
		clock:       time.Now,
		logger:      logging.Discard(),
		subscribers: make(map[uint64]Handler),
		nextSubID:   1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")
	return s
}

// Period returns the tick period.
func (s *Server) Period() time.Duration { return s.period }

// Subscribe registers h for every tick after the one in progress, if any.
func (s *Server) Subscribe(h Handler) *Subscription {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = h
	n := len(s.subscribers)
	s.subMu.Unlock()

	s.metrics.Subscribers(n)

	var once sync.Once
	return &Subscription{
		ID: id,
		Cancel: func() {
			once.Do(func() { s.unsubscribe(id) })
		},
	}
}

// Unsubscribe removes a subscription. Unknown or already removed
// subscriptions are ignored.
func (s *Server) Unsubscribe(sub *Subscription) {
	if sub == nil || sub.Cancel == nil {
		return
	}
	sub.Cancel()
}

func (s *Server) unsubscribe(id uint64) {
	s.subMu.Lock()
	delete(s.subscribers, id)
	n := len(s.subscribers)
	s.subMu.Unlock()
	s.metrics.Subscribers(n)
}

// SubscriberCount returns the number of registered handlers.
func (s *Server) SubscriberCount() int {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	return len(s.subscribers)
}

// Tick runs one authoritative step: every AI ship advances once, then each
// subscriber registered before the tick began receives the same fully
// advanced snapshot, in subscription order.
func (s *Server) Tick() Snapshot {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	started := time.Now()
	subs := s.currentSubscribers()

	stepped := s.sim.StepAI()
	s.sequence++
	now := s.clock()
	snap := Snapshot{Sequence: s.sequence, Time: now, Ships: s.sim.Snapshot()}
	s.lastTick.Store(now.UnixNano())

	for _, sub := range subs {
		sub.handler(snap.clone())
	}

	elapsed := time.Since(started)
	s.metrics.TickObserved(elapsed)
	if s.bus != nil {
		s.bus.Publish(event.NewTickEvent(s, snap.Sequence, stepped, elapsed))
	}
	if elapsed > s.period {
		s.logger.Warn(context.Background(), "tick overran its period",
			"sequence", snap.Sequence,
			"elapsed", elapsed,
			"period", s.period,
		)
	}
	return snap
}

func (s *Server) currentSubscribers() []subscriber {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	subs := make([]subscriber, 0, len(s.subscribers))
	for id, h := range s.subscribers {
		subs = append(subs, subscriber{id: id, handler: h})
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	return subs
}

func (snap Snapshot) clone() Snapshot {
	ships := make([]entity.ShipState, len(snap.Ships))
	copy(ships, snap.Ships)
	snap.Ships = ships
	return snap
}

// LastTick returns the time of the last completed tick, or the zero time.
func (s *Server) LastTick() time.Time {
	ns := s.lastTick.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Sequence returns the number of completed ticks.
func (s *Server) Sequence() uint64 {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.sequence
}

// Running reports whether the tick loop is active.
func (s *Server) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.running
}

// Start launches the tick loop. It returns immediately; the loop runs until
// Stop is called or ctx is cancelled. Starting a running server is a no-op.
func (s *Server) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(ctx, s.stop, s.done)
	s.logger.Info(ctx, "tick loop started", "period", s.period)
}

// loop runs the fixed-period tick
func (s *Server) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-stop:
			return
		case <-ctx.Done():
			s.runMu.Lock()
			if s.stop == stop {
				s.running = false
			}
			s.runMu.Unlock()
			return
		}
	}
}

// Stop halts the tick loop and waits for an in-flight tick to finish. It is
// safe to call more than once and on a server that never started.
func (s *Server) Stop() {
	s.runMu.Lock()
	stop, done := s.stop, s.done
	wasRunning := s.running
	s.running = false
	s.stop = nil
	s.runMu.Unlock()

	if stop == nil {
		return
	}
	if wasRunning {
		close(stop)
	}
	<-done
	s.logger.Info(context.Background(), "tick loop stopped", "ticks", s.Sequence())
}
