package config

import "sort"

// Presets maps a scene to named adjustments applied on top of DefaultConfig.
var Presets = map[string]map[string]func(*Config){
	"rest": {
		"default": func(c *Config) {},
		"bouncy": func(c *Config) {
			c.Physics.Contact.BounceThreshold = 0.1
		},
		"coarse": func(c *Config) {
			c.Dt = 1.0 / 30.0
			c.Physics.Solver.VelocityIterations = 4
		},
	},
	"stack": {
		"default": func(c *Config) {},
		"ngs": func(c *Config) {
			c.Physics.Solver.PositionCorrection = CorrectionNGS
		},
		"baumgarte": func(c *Config) {
			c.Physics.Solver.PositionCorrection = CorrectionBaumgarte
		},
		"cold": func(c *Config) {
			c.Physics.Solver.WarmStarting = false
		},
		"tall": func(c *Config) {
			c.Duration = 10
			c.Physics.Solver.VelocityIterations = 20
		},
	},
	"pyramid": {
		"sah": func(c *Config) {
			c.Physics.BroadPhase.InsertStrategy = InsertSAH
		},
		"simple": func(c *Config) {
			c.Physics.BroadPhase.InsertStrategy = InsertSimple
		},
		"unbalanced": func(c *Config) {
			c.Physics.BroadPhase.Balance = false
		},
	},
	"rain": {
		"incremental": func(c *Config) {
			c.Physics.BroadPhase.IncrementalThreshold = 1
		},
		"full": func(c *Config) {
			c.Physics.BroadPhase.IncrementalThreshold = 0
		},
		"parallel": func(c *Config) {
			c.Physics.Workers = 4
		},
	},
	"pendulum": {
		"default": func(c *Config) {},
		"long": func(c *Config) {
			c.Duration = 20
			c.Physics.Sleep.Enabled = false
		},
	},
	"motor": {
		"default": func(c *Config) {},
		"ngs": func(c *Config) {
			c.Physics.Solver.PositionCorrection = CorrectionNGS
		},
	},
}

// GetPreset returns a fresh config with the preset applied, or nil if unknown.
func GetPreset(scene, preset string) *Config {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	apply, ok := scenePresets[preset]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Scene = scene
	apply(cfg)
	return cfg
}

func ListPresets(scene string) []string {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenePresets))
	for name := range scenePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
