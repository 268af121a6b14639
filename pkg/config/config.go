// Package config holds the tunable constants of the sandbox and loads them
// from an optional YAML/JSON file and SKIRMISH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override, e.g.
// SKIRMISH_COMBAT_MAX_ATTACK_RANGE.
const EnvPrefix = "SKIRMISH"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config contains the complete sandbox configuration
type Config struct {
	World     WorldConfig     `mapstructure:"world" yaml:"world"`
	Combat    CombatConfig    `mapstructure:"combat" yaml:"combat"`
	Camera    CameraConfig    `mapstructure:"camera" yaml:"camera"`
	Selection SelectionConfig `mapstructure:"selection" yaml:"selection"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Render    RenderConfig    `mapstructure:"render" yaml:"render"`
	Assets    AssetsConfig    `mapstructure:"assets" yaml:"assets"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
}

// WorldConfig describes the initial population and ship motion
type WorldConfig struct {
	AIShips         int     `mapstructure:"ai_ships" yaml:"ai_ships"`
	SpawnHalfExtent float64 `mapstructure:"spawn_half_extent" yaml:"spawn_half_extent"`
	AIMoveSpeed     float64 `mapstructure:"ai_move_speed" yaml:"ai_move_speed"`
	PlayerMoveSpeed float64 `mapstructure:"player_move_speed" yaml:"player_move_speed"`
	PatrolMinRadius float64 `mapstructure:"patrol_min_radius" yaml:"patrol_min_radius"`
	PatrolMaxRadius float64 `mapstructure:"patrol_max_radius" yaml:"patrol_max_radius"`
	LabelDistance   float64 `mapstructure:"label_distance" yaml:"label_distance"`
	PlayerName      string  `mapstructure:"player_name" yaml:"player_name"`
	PlayerClan      string  `mapstructure:"player_clan" yaml:"player_clan"`
	AINameFormat    string  `mapstructure:"ai_name_format" yaml:"ai_name_format"`
	// Seed fixes the random source; zero picks a random seed.
	Seed uint64 `mapstructure:"seed" yaml:"seed"`
}

// CombatConfig contains the attack and ballistics constants
type CombatConfig struct {
	MaxAttackRange   float64       `mapstructure:"max_attack_range" yaml:"max_attack_range"`
	FireInterval     time.Duration `mapstructure:"fire_interval" yaml:"fire_interval"`
	ProjectileSpeed  float64       `mapstructure:"projectile_speed" yaml:"projectile_speed"`
	ProjectileLength float64       `mapstructure:"projectile_length" yaml:"projectile_length"`
	HitboxRadius     float64       `mapstructure:"hitbox_radius" yaml:"hitbox_radius"`
	MaxLifetime      time.Duration `mapstructure:"max_lifetime" yaml:"max_lifetime"`
	BeamOffset       float64       `mapstructure:"beam_offset" yaml:"beam_offset"`
	RingOffset       float64       `mapstructure:"ring_offset" yaml:"ring_offset"`
	RingInnerRadius  float64       `mapstructure:"ring_inner_radius" yaml:"ring_inner_radius"`
	RingOuterRadius  float64       `mapstructure:"ring_outer_radius" yaml:"ring_outer_radius"`
	RingTube         float64       `mapstructure:"ring_tube" yaml:"ring_tube"`
}

// CameraConfig contains the orbit camera limits and projection
type CameraConfig struct {
	Radius          float64 `mapstructure:"radius" yaml:"radius"`
	Phi             float64 `mapstructure:"phi" yaml:"phi"`
	Theta           float64 `mapstructure:"theta" yaml:"theta"`
	DragSensitivity float64 `mapstructure:"drag_sensitivity" yaml:"drag_sensitivity"`
	ZoomSensitivity float64 `mapstructure:"zoom_sensitivity" yaml:"zoom_sensitivity"`
	MinRadius       float64 `mapstructure:"min_radius" yaml:"min_radius"`
	MaxRadius       float64 `mapstructure:"max_radius" yaml:"max_radius"`
	PhiMargin       float64 `mapstructure:"phi_margin" yaml:"phi_margin"`
	FOV             float64 `mapstructure:"fov" yaml:"fov"`
	Near            float64 `mapstructure:"near" yaml:"near"`
	Far             float64 `mapstructure:"far" yaml:"far"`
}

// SelectionConfig controls entity picking
type SelectionConfig struct {
	HitboxRadius  float64 `mapstructure:"hitbox_radius" yaml:"hitbox_radius"`
	IncludePlayer bool    `mapstructure:"include_player" yaml:"include_player"`
}

// ServerConfig configures the authoritative tick
type ServerConfig struct {
	TickPeriod  time.Duration `mapstructure:"tick_period" yaml:"tick_period"`
	HealthAddr  string        `mapstructure:"health_addr" yaml:"health_addr"`
	StaleFactor int           `mapstructure:"stale_factor" yaml:"stale_factor"`
}

// RenderConfig selects and sizes the front-end
type RenderConfig struct {
	Renderer   string `mapstructure:"renderer" yaml:"renderer"`
	FrameRate  int    `mapstructure:"frame_rate" yaml:"frame_rate"`
	Width      int    `mapstructure:"width" yaml:"width"`
	Height     int    `mapstructure:"height" yaml:"height"`
	Title      string `mapstructure:"title" yaml:"title"`
	Fullscreen bool   `mapstructure:"fullscreen" yaml:"fullscreen"`
	VSync      bool   `mapstructure:"vsync" yaml:"vsync"`
}

// AssetsConfig configures asynchronous model loading
type AssetsConfig struct {
	PlayerModel               string        `mapstructure:"player_model" yaml:"player_model"`
	EnemyModel                string        `mapstructure:"enemy_model" yaml:"enemy_model"`
	LoadTimeout               time.Duration `mapstructure:"load_timeout" yaml:"load_timeout"`
	MaxRetries                int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelay                time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	BreakerMaxRequests        uint32        `mapstructure:"breaker_max_requests" yaml:"breaker_max_requests"`
	BreakerInterval           time.Duration `mapstructure:"breaker_interval" yaml:"breaker_interval"`
	BreakerTimeout            time.Duration `mapstructure:"breaker_timeout" yaml:"breaker_timeout"`
	BreakerConsecutiveFailure uint32        `mapstructure:"breaker_consecutive_failures" yaml:"breaker_consecutive_failures"`
}

// TelemetryConfig configures logging and metrics
type TelemetryConfig struct {
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
}

// DefaultConfig returns the stock sandbox configuration
func DefaultConfig() *Config {
	return &Config{
		World: WorldConfig{
			AIShips:         5,
			SpawnHalfExtent: 250,
			AIMoveSpeed:     1,
			PlayerMoveSpeed: 1,
			PatrolMinRadius: 350,
			PatrolMaxRadius: 500,
			LabelDistance:   300,
			PlayerName:      "Omni",
			PlayerClan:      "[DEV]",
			AINameFormat:    "-=[ Venom %d ]=-",
		},
		Combat: CombatConfig{
			MaxAttackRange:   160,
			FireInterval:     350 * time.Millisecond,
			ProjectileSpeed:  2,
			ProjectileLength: 3,
			HitboxRadius:     5,
			MaxLifetime:      5 * time.Second,
			BeamOffset:       5,
			RingOffset:       2,
			RingInnerRadius:  2,
			RingOuterRadius:  3,
			RingTube:         0.2,
		},
		Camera: CameraConfig{
			Radius:          100,
			Phi:             math.Pi / 4,
			Theta:           0,
			DragSensitivity: 0.01,
			ZoomSensitivity: 0.05,
			MinRadius:       20,
			MaxRadius:       300,
			PhiMargin:       0.1,
			FOV:             75,
			Near:            0.1,
			Far:             1000,
		},
		Selection: SelectionConfig{
			HitboxRadius:  8,
			IncludePlayer: false,
		},
		Server: ServerConfig{
			TickPeriod:  100 * time.Millisecond,
			HealthAddr:  ":8080",
			StaleFactor: 10,
		},
		Render: RenderConfig{
			Renderer:  "terminal",
			FrameRate: 60,
			Width:     1280,
			Height:    720,
			Title:     "Skirmish",
			VSync:     true,
		},
		Assets: AssetsConfig{
			PlayerModel:               "models/fighter.glb",
			EnemyModel:                "models/venom.glb",
			LoadTimeout:               5 * time.Second,
			MaxRetries:                3,
			RetryDelay:                250 * time.Millisecond,
			BreakerMaxRequests:        1,
			BreakerInterval:           time.Minute,
			BreakerTimeout:            10 * time.Second,
			BreakerConsecutiveFailure: 5,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "INFO",
			MetricsAddr: ":9090",
		},
	}
}

// Load reads configuration from path (optional) and SKIRMISH_* environment
// variables on top of DefaultConfig. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for values the simulation cannot run with
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.World.AIShips >= 0, "world.ai_ships must not be negative")
	check(c.World.AIMoveSpeed > 0, "world.ai_move_speed must be positive")
	check(c.World.PlayerMoveSpeed > 0, "world.player_move_speed must be positive")
	check(c.World.PatrolMinRadius >= 0 && c.World.PatrolMaxRadius >= c.World.PatrolMinRadius,
		"world patrol radii must satisfy 0 <= min <= max")

	check(c.Combat.MaxAttackRange > 0, "combat.max_attack_range must be positive")
	check(c.Combat.FireInterval > 0, "combat.fire_interval must be positive")
	check(c.Combat.ProjectileSpeed > 0, "combat.projectile_speed must be positive")
	check(c.Combat.HitboxRadius > 0, "combat.hitbox_radius must be positive")
	check(c.Combat.MaxLifetime > 0, "combat.max_lifetime must be positive")

	check(c.Camera.MinRadius > 0 && c.Camera.MaxRadius >= c.Camera.MinRadius,
		"camera radius limits must satisfy 0 < min <= max")
	check(c.Camera.PhiMargin >= 0 && c.Camera.PhiMargin < math.Pi/2,
		"camera.phi_margin must be in [0, pi/2)")
	check(c.Camera.FOV > 0 && c.Camera.FOV < 180, "camera.fov must be in (0, 180)")
	check(c.Camera.Near > 0 && c.Camera.Far > c.Camera.Near, "camera clip planes must satisfy 0 < near < far")

	check(c.Selection.HitboxRadius > 0, "selection.hitbox_radius must be positive")
	check(c.Server.TickPeriod > 0, "server.tick_period must be positive")
	check(c.Render.FrameRate > 0, "render.frame_rate must be positive")
	check(c.Render.Renderer == "terminal" || c.Render.Renderer == "engo" || c.Render.Renderer == "null",
		"render.renderer must be terminal, engo or null, got %q", c.Render.Renderer)
	check(c.Assets.MaxRetries >= 1, "assets.max_retries must be at least 1")

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// setDefaults registers every key so environment overrides are picked up
// by Unmarshal even when no file mentions them.
func setDefaults(v *viper.Viper, d *Config) {
	defaults := map[string]any{
		"world.ai_ships":          d.World.AIShips,
		"world.spawn_half_extent": d.World.SpawnHalfExtent,
		"world.ai_move_speed":     d.World.AIMoveSpeed,
		"world.player_move_speed": d.World.PlayerMoveSpeed,
		"world.patrol_min_radius": d.World.PatrolMinRadius,
		"world.patrol_max_radius": d.World.PatrolMaxRadius,
		"world.label_distance":    d.World.LabelDistance,
		"world.player_name":       d.World.PlayerName,
		"world.player_clan":       d.World.PlayerClan,
		"world.ai_name_format":    d.World.AINameFormat,
		"world.seed":              d.World.Seed,

		"combat.max_attack_range":  d.Combat.MaxAttackRange,
		"combat.fire_interval":     d.Combat.FireInterval,
		"combat.projectile_speed":  d.Combat.ProjectileSpeed,
		"combat.projectile_length": d.Combat.ProjectileLength,
		"combat.hitbox_radius":     d.Combat.HitboxRadius,
		"combat.max_lifetime":      d.Combat.MaxLifetime,
		"combat.beam_offset":       d.Combat.BeamOffset,
		"combat.ring_offset":       d.Combat.RingOffset,
		"combat.ring_inner_radius": d.Combat.RingInnerRadius,
		"combat.ring_outer_radius": d.Combat.RingOuterRadius,
		"combat.ring_tube":         d.Combat.RingTube,

		"camera.radius":           d.Camera.Radius,
		"camera.phi":              d.Camera.Phi,
		"camera.theta":            d.Camera.Theta,
		"camera.drag_sensitivity": d.Camera.DragSensitivity,
		"camera.zoom_sensitivity": d.Camera.ZoomSensitivity,
		"camera.min_radius":       d.Camera.MinRadius,
		"camera.max_radius":       d.Camera.MaxRadius,
		"camera.phi_margin":       d.Camera.PhiMargin,
		"camera.fov":              d.Camera.FOV,
		"camera.near":             d.Camera.Near,
		"camera.far":              d.Camera.Far,

		"selection.hitbox_radius":  d.Selection.HitboxRadius,
		"selection.include_player": d.Selection.IncludePlayer,

		"server.tick_period":  d.Server.TickPeriod,
		"server.health_addr":  d.Server.HealthAddr,
		"server.stale_factor": d.Server.StaleFactor,

		"render.renderer":   d.Render.Renderer,
		"render.frame_rate": d.Render.FrameRate,
		"render.width":      d.Render.Width,
		"render.height":     d.Render.Height,
		"render.title":      d.Render.Title,
		"render.fullscreen": d.Render.Fullscreen,
		"render.vsync":      d.Render.VSync,

		"assets.player_model":                 d.Assets.PlayerModel,
		"assets.enemy_model":                  d.Assets.EnemyModel,
		"assets.load_timeout":                 d.Assets.LoadTimeout,
		"assets.max_retries":                  d.Assets.MaxRetries,
		"assets.retry_delay":                  d.Assets.RetryDelay,
		"assets.breaker_max_requests":         d.Assets.BreakerMaxRequests,
		"assets.breaker_interval":             d.Assets.BreakerInterval,
		"assets.breaker_timeout":              d.Assets.BreakerTimeout,
		"assets.breaker_consecutive_failures": d.Assets.BreakerConsecutiveFailure,

		"telemetry.log_level":    d.Telemetry.LogLevel,
		"telemetry.log_file":     d.Telemetry.LogFile,
		"telemetry.metrics_addr": d.Telemetry.MetricsAddr,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}
