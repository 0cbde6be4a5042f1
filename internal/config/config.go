package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Simulation  SimulationConfig  `toml:"simulation"`
	Scheduler   SchedulerConfig   `toml:"scheduler"`
	Spatial     SpatialConfig     `toml:"spatial"`
	Queries     QueryConfig       `toml:"queries"`
	Data        DataConfig        `toml:"data"`
	Scripting   ScriptingConfig   `toml:"scripting"`
	Telemetry   TelemetryConfig   `toml:"telemetry"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	Logging     LoggingConfig     `toml:"logging"`
}

type SimulationConfig struct {
	Name        string        `toml:"name"`
	MaxEntities int           `toml:"max_entities"`
	BaseRate    int           `toml:"base_rate"`    // ticks per simulated second
	FrameBudget time.Duration `toml:"frame_budget"` // per-tick update budget; 0 = tick interval
	Pooling     bool          `toml:"pooling"`
	Seed        int64         `toml:"seed"` // demo scenario RNG seed
	DemoShips   int           `toml:"demo_ships"`
	DemoDebris  int           `toml:"demo_debris"`
	StartTime   int64         // set at boot, not from config
}

// TickInterval is the wall-clock duration of one tick at BaseRate.
func (c SimulationConfig) TickInterval() time.Duration {
	if c.BaseRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.BaseRate)
}

// SchedulerConfig holds the firing interval, in ticks, of each cadence tier.
type SchedulerConfig struct {
	Realtime int `toml:"realtime"`
	High     int `toml:"high"`
	Normal   int `toml:"normal"`
	Idle     int `toml:"idle"`
}

type SpatialConfig struct {
	Enabled          bool          `toml:"enabled"`
	CellSize         float64       `toml:"cell_size"`
	QueryBudget      time.Duration `toml:"query_budget"`
	Rebucket         string        `toml:"rebucket"` // "eager", "periodic" or "query"
	RebucketInterval int           `toml:"rebucket_interval"`
}

type QueryConfig struct {
	MaxPerTick int `toml:"max_per_tick"` // deferred queries resolved per tick; <= 0 = all
}

type DataConfig struct {
	KindsPath string `toml:"kinds_path"`
}

type ScriptingConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type TelemetryConfig struct {
	Enabled         bool          `toml:"enabled"`
	Driver          string        `toml:"driver"` // "postgres" or "sqlite"
	DSN             string        `toml:"dsn"`
	IntervalTicks   int           `toml:"interval_ticks"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type DiagnosticsConfig struct {
	ValidateInterval int  `toml:"validate_interval"` // ticks; 0 disables
	Overlay          bool `toml:"overlay"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Simulation.StartTime = time.Now().Unix()
	return cfg, nil
}

// Validate reports every load-bearing setting that would leave the subsystem in
// an undefined state.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalid, name, v))
		}
	}
	positive("simulation.max_entities", c.Simulation.MaxEntities)
	positive("simulation.base_rate", c.Simulation.BaseRate)
	positive("scheduler.realtime", c.Scheduler.Realtime)
	positive("scheduler.high", c.Scheduler.High)
	positive("scheduler.normal", c.Scheduler.Normal)
	positive("scheduler.idle", c.Scheduler.Idle)
	if c.Spatial.CellSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: spatial.cell_size must be positive, got %g", ErrInvalid, c.Spatial.CellSize))
	}
	switch c.Spatial.Rebucket {
	case "eager", "query":
	case "periodic":
		positive("spatial.rebucket_interval", c.Spatial.RebucketInterval)
	default:
		errs = append(errs, fmt.Errorf("%w: spatial.rebucket %q (want eager, periodic or query)", ErrInvalid, c.Spatial.Rebucket))
	}
	if c.Telemetry.Enabled {
		switch c.Telemetry.Driver {
		case "postgres", "sqlite":
		default:
			errs = append(errs, fmt.Errorf("%w: telemetry.driver %q (want postgres or sqlite)", ErrInvalid, c.Telemetry.Driver))
		}
		positive("telemetry.interval_ticks", c.Telemetry.IntervalTicks)
	}
	return errors.Join(errs...)
}

func Defaults() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Name:        "simcore",
			MaxEntities: 4096,
			BaseRate:    60,
			FrameBudget: 8 * time.Millisecond,
			Pooling:     true,
			Seed:        1,
			DemoShips:   64,
			DemoDebris:  512,
		},
		Scheduler: SchedulerConfig{
			Realtime: 1,
			High:     2,
			Normal:   6,
			Idle:     60,
		},
		Spatial: SpatialConfig{
			Enabled:          true,
			CellSize:         100,
			QueryBudget:      time.Millisecond,
			Rebucket:         "eager",
			RebucketInterval: 10,
		},
		Queries: QueryConfig{
			MaxPerTick: 64,
		},
		Data: DataConfig{
			KindsPath: "data/yaml/kinds.yaml",
		},
		Scripting: ScriptingConfig{
			Enabled: true,
			Dir:     "scripts",
		},
		Telemetry: TelemetryConfig{
			Enabled:         false,
			Driver:          "sqlite",
			DSN:             "file:simcore-telemetry.db",
			IntervalTicks:   300,
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Diagnostics: DiagnosticsConfig{
			ValidateInterval: 600,
			Overlay:          false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
