// pkg/render/engo/scene.go
package engo

import (
	"context"
	"image/color"
	"time"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-skirmish/pkg/config"
	"github.com/opd-ai/go-skirmish/pkg/engine"
	"github.com/opd-ai/go-skirmish/pkg/input"
	"github.com/opd-ai/go-skirmish/pkg/logging"
)

// SessionFactory builds the session once the scene's renderer and camera
// exist.
type SessionFactory func(view engine.View, renderer *Renderer, presenter engine.Presenter) *engine.Session

// Scene is the engo scene of the sandbox. engo drives the frames: every
// update runs one Session.Frame and flushes the sprites it moved.
type Scene struct {
	cfg     *config.Config
	logger  *logging.Logger
	factory SessionFactory
	ctx     context.Context
	clock   func() time.Time

	camera   *CameraSystem
	sprites  *Sprites
	renderer *Renderer
	hud      *HUDSystem
	session  *engine.Session
}

// NewScene creates the sandbox scene. The session starts in Setup and stops
// in Exit.
func NewScene(ctx context.Context, cfg *config.Config, factory SessionFactory, logger *logging.Logger) *Scene {
	if logger == nil {
		logger = logging.NewLogger()
	}
	cam := NewCameraSystem(cfg.Camera.FOV, cfg.Render.Width, cfg.Render.Height)
	sprites := NewSprites(cfg.Assets.PlayerModel, cfg.Assets.EnemyModel)
	scene := &Scene{
		cfg:      cfg,
		logger:   logger.With("component", "engo_scene"),
		factory:  factory,
		ctx:      ctx,
		clock:    time.Now,
		camera:   cam,
		sprites:  sprites,
		renderer: NewRenderer(cam, sprites, logger),
		hud:      NewHUDSystem(cam),
	}
	scene.session = factory(cam.View(), scene.renderer, scene)
	return scene
}

// Type returns the scene type (required by Engo)
func (scene *Scene) Type() string {
	return "SkirmishScene"
}

// Preload is called before the scene starts (required by Engo)
func (scene *Scene) Preload() {}

// Setup is called when the scene starts (required by Engo)
func (scene *Scene) Setup(u engo.Updater) {
	world, _ := u.(*ecs.World)
	SetupInputBindings()
	common.SetBackground(color.RGBA{R: 4, G: 4, B: 16, A: 255})

	renderSystem := &common.RenderSystem{}
	world.AddSystem(renderSystem)
	world.AddSystem(scene.camera)
	world.AddSystem(NewInputSystem(scene.session, scene.region))
	world.AddSystem(&frameSystem{scene: scene})
	world.AddSystem(scene.hud)

	scene.sprites.Load()
	scene.renderer.Attach(renderSystem)
	if err := scene.hud.Attach(renderSystem); err != nil {
		scene.logger.Error(scene.ctx, "HUD disabled", err)
	}

	scene.session.Start(scene.ctx)
	scene.logger.Info(scene.ctx, "scene started")
}

// Present implements engine.Presenter.
func (scene *Scene) Present(state engine.FrameState) {
	scene.renderer.Flush()
	scene.hud.Present(state)
}

// Session returns the session driven by the scene.
func (scene *Scene) Session() *engine.Session { return scene.session }

func (scene *Scene) region(x, y float32) input.Region {
	return scene.hud.Region(x, y)
}

// Exit is called when the scene is exiting (required by Engo)
func (scene *Scene) Exit() {
	scene.session.Stop()
	scene.renderer.Flush()
	scene.logger.Info(scene.ctx, "scene exited")
}

// frameSystem runs one session frame per engo update.
type frameSystem struct {
	scene *Scene
}

func (f *frameSystem) Remove(basic ecs.BasicEntity) {}

func (f *frameSystem) Update(dt float32) {
	f.scene.session.Frame(f.scene.clock())
}

// Run opens the window and blocks until it closes.
func Run(scene *Scene) {
	cfg := scene.cfg.Render
	engo.Run(engo.RunOptions{
		Title:      cfg.Title,
		Width:      cfg.Width,
		Height:     cfg.Height,
		Fullscreen: cfg.Fullscreen,
		VSync:      cfg.VSync,
		FPSLimit:   cfg.FrameRate,
	}, scene)
}
