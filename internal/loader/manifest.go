// Package loader reads and validates the YAML scenario manifest.
package loader

import (
	"fmt"
	"time"
)

//// UTILITY TYPES

// Triple is a three-component vector field (position, velocity, attitude).
type Triple [3]float64

func (t *Triple) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw []float64
	if err := unmarshal(&raw); err != nil {
		return fmt.Errorf("value must be a list of numbers")
	}
	if len(raw) != 3 {
		return fmt.Errorf("value must have exactly 3 components, got %d", len(raw))
	}
	copy(t[:], raw)
	return nil
}

// Duration accepts Go duration strings ("500ms", "1s") in the manifest.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return fmt.Errorf("invalid duration %q", raw)
	}
	p, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(p)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

//// MANIFEST

// Manifest is the root of the scenario configuration.
type Manifest struct {
	Scenario string   `yaml:"scenario"`
	Seed     uint64   `yaml:"seed"`
	EventLog EventLog `yaml:"event_log"`
	Sim      Sim      `yaml:"sim"`
}

// EventLog configures the simulation event log output.
type EventLog struct {
	RateHz        float64 `yaml:"rate_hz"`
	QueueCapacity int     `yaml:"queue_capacity"`
	Timeline      string  `yaml:"timeline"`
	IncludeExec   *bool   `yaml:"include_exec"`
	IncludeSim    *bool   `yaml:"include_sim"`
	IncludeUTC    *bool   `yaml:"include_utc"`
	Output        string  `yaml:"output"` // empty means stdout
}

// Sim configures the frame loop and the initial entity set.
type Sim struct {
	RateHz       float64  `yaml:"rate_hz"`
	DataInterval Duration `yaml:"data_interval"`
	Duration     Duration `yaml:"duration"` // zero means run until interrupted
	Workers      int      `yaml:"workers"`
	Entities     []Entity `yaml:"entities"`
}

// Entity declares one entity present at scenario start.
type Entity struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	Position Triple `yaml:"position"`
	Velocity Triple `yaml:"velocity"`
	AirData  bool   `yaml:"air_data"`
}
