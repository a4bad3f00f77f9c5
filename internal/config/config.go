package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt          = 1.0 / 60.0
	DefaultDuration    = 5.0
	DefaultRecordEvery = 1
	DefaultGravity     = -9.80665
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type InsertStrategy string

const (
	InsertSimple InsertStrategy = "simple"
	InsertSAH    InsertStrategy = "sah"
)

type PositionCorrection string

const (
	// CorrectionSplitImpulse solves penetration on a pseudo-velocity that never
	// shows up in reported velocities.
	CorrectionSplitImpulse PositionCorrection = "split_impulse"
	// CorrectionNGS nudges transforms directly.
	CorrectionNGS PositionCorrection = "ngs"
	// CorrectionBaumgarte feeds penetration back into the velocity solve.
	CorrectionBaumgarte PositionCorrection = "baumgarte"
)

type Config struct {
	Scene         string  `yaml:"scene"`
	Dt            float64 `yaml:"dt"`
	Duration      float64 `yaml:"duration"`
	Seed          int64   `yaml:"seed"`
	ValidateState bool    `yaml:"validate_state"`
	RecordEvery   int     `yaml:"record_every"`
	Physics       Physics `yaml:"physics"`
}

// Physics holds every engine tunable. It is copied into the world at
// construction and never read from anywhere else.
type Physics struct {
	Gravity     [3]float64  `yaml:"gravity"`
	Workers     int         `yaml:"workers"`
	BroadPhase  BroadPhase  `yaml:"broadphase"`
	Contact     Contact     `yaml:"contact"`
	Solver      Solver      `yaml:"solver"`
	Integration Integration `yaml:"integration"`
	Sleep       Sleep       `yaml:"sleep"`
}

type BroadPhase struct {
	InsertStrategy         InsertStrategy `yaml:"insert_strategy"`
	Balance                bool           `yaml:"balance"`
	AabbPadding            float64        `yaml:"aabb_padding"`
	DisplacementMultiplier float64        `yaml:"displacement_multiplier"`
	// IncrementalThreshold is the moved-proxy fraction above which pairs are
	// recollected from scratch.
	IncrementalThreshold float64 `yaml:"incremental_threshold"`
}

type Contact struct {
	LinearSlop            float64 `yaml:"linear_slop"`
	PersistenceThreshold  float64 `yaml:"persistence_threshold"`
	SeparationThreshold   float64 `yaml:"separation_threshold"`
	BounceThreshold       float64 `yaml:"bounce_threshold"`
	VelocityBaumgarte     float64 `yaml:"velocity_baumgarte"`
	SplitImpulseBaumgarte float64 `yaml:"split_impulse_baumgarte"`
	NgsBaumgarte          float64 `yaml:"ngs_baumgarte"`
	MaxNgsCorrection      float64 `yaml:"max_ngs_correction"`
}

type Solver struct {
	VelocityIterations int                `yaml:"velocity_iterations"`
	PositionIterations int                `yaml:"position_iterations"`
	PositionCorrection PositionCorrection `yaml:"position_correction"`
	WarmStarting       bool               `yaml:"warm_starting"`
}

type Integration struct {
	MaxTranslation float64 `yaml:"max_translation"`
	MaxRotation    float64 `yaml:"max_rotation"`
	LinearDamping  float64 `yaml:"linear_damping"`
	AngularDamping float64 `yaml:"angular_damping"`
}

type Sleep struct {
	Enabled          bool    `yaml:"enabled"`
	TimeToSleep      float64 `yaml:"time_to_sleep"`
	LinearThreshold  float64 `yaml:"linear_threshold"`
	AngularThreshold float64 `yaml:"angular_threshold"`
}

func DefaultPhysics() Physics {
	return Physics{
		Gravity: [3]float64{0, DefaultGravity, 0},
		Workers: 1,
		BroadPhase: BroadPhase{
			InsertStrategy:         InsertSAH,
			Balance:                true,
			AabbPadding:            0.1,
			DisplacementMultiplier: 2.0,
			IncrementalThreshold:   0.45,
		},
		Contact: Contact{
			LinearSlop:            0.005,
			PersistenceThreshold:  0.05,
			SeparationThreshold:   0.05,
			BounceThreshold:       0.5,
			VelocityBaumgarte:     0.2,
			SplitImpulseBaumgarte: 0.4,
			NgsBaumgarte:          1.0,
			MaxNgsCorrection:      0.2,
		},
		Solver: Solver{
			VelocityIterations: 10,
			PositionIterations: 5,
			PositionCorrection: CorrectionSplitImpulse,
			WarmStarting:       true,
		},
		Integration: Integration{
			MaxTranslation: 20,
			MaxRotation:    math.Pi,
		},
		Sleep: Sleep{
			Enabled:          true,
			TimeToSleep:      1.0,
			LinearThreshold:  0.2,
			AngularThreshold: 0.5,
		},
	}
}

func DefaultConfig() *Config {
	return &Config{
		Scene:         "stack",
		Dt:            DefaultDt,
		Duration:      DefaultDuration,
		ValidateState: true,
		RecordEvery:   DefaultRecordEvery,
		Physics:       DefaultPhysics(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func invalid(field string, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, field, fmt.Sprintf(format, args...))
}

func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return invalid("dt", "must be positive, got %g", c.Dt)
	}
	if c.Duration <= 0 {
		return invalid("duration", "must be positive, got %g", c.Duration)
	}
	if c.RecordEvery < 0 {
		return invalid("record_every", "must not be negative, got %d", c.RecordEvery)
	}
	return c.Physics.Validate()
}

func (p Physics) Validate() error {
	if p.Workers < 0 {
		return invalid("workers", "must not be negative, got %d", p.Workers)
	}

	switch p.BroadPhase.InsertStrategy {
	case InsertSimple, InsertSAH:
	default:
		return invalid("broadphase.insert_strategy", "unknown value %q", p.BroadPhase.InsertStrategy)
	}
	if p.BroadPhase.AabbPadding < 0 {
		return invalid("broadphase.aabb_padding", "must not be negative")
	}
	if p.BroadPhase.DisplacementMultiplier < 0 {
		return invalid("broadphase.displacement_multiplier", "must not be negative")
	}
	if t := p.BroadPhase.IncrementalThreshold; t < 0 || t > 1 {
		return invalid("broadphase.incremental_threshold", "must be in [0, 1], got %g", t)
	}

	c := p.Contact
	for name, v := range map[string]float64{
		"contact.linear_slop":             c.LinearSlop,
		"contact.persistence_threshold":   c.PersistenceThreshold,
		"contact.separation_threshold":    c.SeparationThreshold,
		"contact.bounce_threshold":        c.BounceThreshold,
		"contact.velocity_baumgarte":      c.VelocityBaumgarte,
		"contact.split_impulse_baumgarte": c.SplitImpulseBaumgarte,
		"contact.ngs_baumgarte":           c.NgsBaumgarte,
		"contact.max_ngs_correction":      c.MaxNgsCorrection,
	} {
		if v < 0 || math.IsNaN(v) {
			return invalid(name, "must not be negative, got %g", v)
		}
	}

	if p.Solver.VelocityIterations < 1 {
		return invalid("solver.velocity_iterations", "must be at least 1, got %d", p.Solver.VelocityIterations)
	}
	if p.Solver.PositionIterations < 0 {
		return invalid("solver.position_iterations", "must not be negative, got %d", p.Solver.PositionIterations)
	}
	switch p.Solver.PositionCorrection {
	case CorrectionSplitImpulse, CorrectionNGS, CorrectionBaumgarte:
	default:
		return invalid("solver.position_correction", "unknown value %q", p.Solver.PositionCorrection)
	}

	if p.Integration.MaxTranslation <= 0 || p.Integration.MaxRotation <= 0 {
		return invalid("integration", "per-step caps must be positive")
	}
	if p.Integration.LinearDamping < 0 || p.Integration.AngularDamping < 0 {
		return invalid("integration", "damping must not be negative")
	}

	if p.Sleep.TimeToSleep < 0 || p.Sleep.LinearThreshold < 0 || p.Sleep.AngularThreshold < 0 {
		return invalid("sleep", "thresholds must not be negative")
	}
	return nil
}
