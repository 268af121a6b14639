// pkg/render/renderer.go
package render

import (
	"context"
	"sync/atomic"

	"github.com/opd-ai/go-skirmish/pkg/assets"
	"github.com/opd-ai/go-skirmish/pkg/engine"
	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/logging"
	"github.com/opd-ai/go-skirmish/pkg/physics"
)

// NullRenderer draws nothing. It hands out logging handles so the
// simulation runs exactly as it would behind a real front-end, which makes
// it the renderer of choice for headless runs and tests.
type NullRenderer struct {
	logger   *logging.Logger
	frames   atomic.Uint64
	handles  atomic.Int64
	released atomic.Int64
}

// NewNullRenderer creates a new NullRenderer with structured logging.
func NewNullRenderer(logger *logging.Logger) *NullRenderer {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &NullRenderer{logger: logger}
}

// CreateProjectile implements entity.Renderer.
func (d *NullRenderer) CreateProjectile(p *entity.Projectile) entity.Handle {
	if p == nil {
		d.logger.Debug(context.Background(), "CreateProjectile called with nil projectile")
		return nil
	}
	d.logger.Debug(context.Background(), "CreateProjectile called",
		"projectile_id", p.ID,
		"ammo", p.Kind.String(),
		"target_id", p.TargetID,
	)
	return d.newHandle(string(p.ID))
}

// Load implements assets.Loader. Models load instantly.
func (d *NullRenderer) Load(ctx context.Context, req assets.Request) (entity.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.logger.Debug(ctx, "Load called", "ship_id", req.ID, "model", req.Model)
	return d.newHandle(string(req.ID)), nil
}

// Present implements engine.Presenter.
func (d *NullRenderer) Present(state engine.FrameState) {
	d.frames.Add(1)
	d.logger.Debug(context.Background(), "Present called",
		"frame", state.Frame,
		"tick", state.Tick,
		"ships", len(state.Ships),
		"projectiles", len(state.Projectiles),
		"attacking", state.Attacking,
	)
}

// Frames returns the number of frames presented.
func (d *NullRenderer) Frames() uint64 { return d.frames.Load() }

// Live returns the number of handles created and not yet released.
func (d *NullRenderer) Live() int { return int(d.handles.Load() - d.released.Load()) }

func (d *NullRenderer) newHandle(name string) *nullHandle {
	d.handles.Add(1)
	return &nullHandle{name: name, owner: d}
}

type nullHandle struct {
	name     string
	owner    *NullRenderer
	released atomic.Bool
}

func (h *nullHandle) SetTransform(position, facing physics.Vector3) {}

func (h *nullHandle) Release() {
	if h.released.CompareAndSwap(false, true) {
		h.owner.released.Add(1)
		h.owner.logger.Debug(context.Background(), "handle released", "name", h.name)
	}
}

var (
	_ entity.Renderer  = (*NullRenderer)(nil)
	_ engine.Presenter = (*NullRenderer)(nil)
	_ assets.Loader    = (*NullRenderer)(nil)
)
