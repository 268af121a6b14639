// pkg/engine/loop.go
package engine

import (
	"context"
	"time"
)

// DefaultFrameInterval paces Run when no interval is given.
const DefaultFrameInterval = time.Second / 60

// Start attaches the session to its drivers: it subscribes to the tick,
// starts the tick server and requests every missing ship model. Front-ends
// that own their frame loop call Start and then Frame once per frame;
// others use Run. Starting a running or stopped session is a no-op.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return
	}
	s.running = true
	s.runMu.Unlock()

	if s.server != nil {
		s.tickSub = s.server.Subscribe(s.onTick)
		s.server.Start(ctx)
	}
	requested := s.RequestModels(ctx)
	s.logger.Info(ctx, "session started", "models_requested", requested)
}

// Run starts the session and calls Frame every interval until ctx is
// cancelled or Stop is called, then stops the session. A non-positive
// interval uses DefaultFrameInterval.
func (s *Session) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}

	s.runMu.Lock()
	if s.stop != nil {
		s.runMu.Unlock()
		return nil
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done
	s.runMu.Unlock()

	s.Start(ctx)
	err := s.frameLoop(ctx, interval, stop)
	close(done)
	s.Stop()
	return err
}

func (s *Session) frameLoop(ctx context.Context, interval time.Duration, stop <-chan struct{}) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Frame(s.clock())
		case <-stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop tears the session down: the frame loop ends, the tick subscription
// is cancelled, the server and asset service stop, input is ignored and
// every projectile and ship handle is released. A stopped session cannot be
// restarted. Stop is safe to call more than once but not from a presenter
// or an event handler.
func (s *Session) Stop() {
	s.runMu.Lock()
	stop, done := s.stop, s.done
	s.stop = nil
	s.runMu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.input.Release()
	s.mu.Unlock()

	if s.tickSub != nil {
		s.tickSub.Cancel()
	}
	if s.server != nil {
		s.server.Stop()
	}
	if s.assets != nil {
		s.assets.Close()
	}

	var released int
	s.mu.Lock()
	s.world.Update(func() {
		s.combat.Reset()
		released = s.world.releaseHandles()
	})
	frames := s.frames
	s.mu.Unlock()

	s.runMu.Lock()
	s.running = false
	s.runMu.Unlock()
	s.logger.Info(context.Background(), "session stopped", "frames", frames, "handles_released", released)
}

// Running reports whether the session has started and not stopped.
func (s *Session) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.running
}
