package loader

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"talon/internal/queue"
	"talon/internal/simlog"
)

// Loader reads one scenario manifest from disk.
type Loader struct {
	File     string
	Manifest Manifest
}

func NewLoader(fileName string) *Loader {
	return &Loader{File: fileName}
}

// Load parses, defaults and validates the manifest.
func (l *Loader) Load() error {
	file, err := os.Open(l.File)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	var manifest Manifest
	decoder := yaml.NewDecoder(bufio.NewReaderSize(file, 64*1024))
	if err := decoder.Decode(&manifest); err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			for _, msg := range typeErr.Errors {
				if strings.HasPrefix(msg, "line") {
					return fmt.Errorf("%w: %s", ErrInvalidYamlFormat, msg)
				}
			}
		}
		return fmt.Errorf("%w: %v", ErrInvalidYamlFormat, err)
	}

	manifest.applyDefaults()
	if err := manifest.Validate(); err != nil {
		return err
	}
	l.Manifest = manifest
	return nil
}

func (l *Loader) GetManifest() Manifest {
	return l.Manifest
}

func (m *Manifest) applyDefaults() {
	if m.EventLog.RateHz == 0 {
		m.EventLog.RateHz = 10
	}
	if m.EventLog.QueueCapacity == 0 {
		m.EventLog.QueueCapacity = queue.DefaultCapacity
	}
	if m.EventLog.Timeline == "" {
		m.EventLog.Timeline = "utc"
	}
	// Timestamp columns default to visible.
	yes := true
	if m.EventLog.IncludeExec == nil {
		m.EventLog.IncludeExec = &yes
	}
	if m.EventLog.IncludeSim == nil {
		m.EventLog.IncludeSim = &yes
	}
	if m.EventLog.IncludeUTC == nil {
		m.EventLog.IncludeUTC = &yes
	}

	if m.Sim.RateHz == 0 {
		m.Sim.RateHz = 60
	}
	if m.Sim.DataInterval == 0 {
		m.Sim.DataInterval = Duration(time.Second)
	}
	if m.Sim.Workers == 0 {
		m.Sim.Workers = runtime.NumCPU()
	}
	for i := range m.Sim.Entities {
		if m.Sim.Entities[i].Kind == "" {
			m.Sim.Entities[i].Kind = "generic"
		}
	}
}

// Validate checks the manifest after defaults have been applied.
func (m *Manifest) Validate() error {
	if m.Scenario == "" {
		return &requiredFieldError{field: "scenario"}
	}
	if _, err := simlog.ParseTimeSource(m.EventLog.Timeline); err != nil {
		return &invalidFieldError{
			field:  "event_log.timeline",
			reason: fmt.Sprintf("must be exec, sim or utc, got %q", m.EventLog.Timeline),
		}
	}
	if m.EventLog.RateHz <= 0 {
		return &invalidFieldError{field: "event_log.rate_hz", reason: "must be positive"}
	}
	if m.EventLog.QueueCapacity < 0 {
		return &invalidFieldError{field: "event_log.queue_capacity", reason: "must not be negative"}
	}
	if m.Sim.RateHz <= 0 {
		return &invalidFieldError{field: "sim.rate_hz", reason: "must be positive"}
	}
	if m.Sim.DataInterval <= 0 {
		return &invalidFieldError{field: "sim.data_interval", reason: "must be positive"}
	}
	if m.Sim.Workers < 1 {
		return &invalidFieldError{field: "sim.workers", reason: "must be at least 1"}
	}
	if len(m.Sim.Entities) == 0 {
		return &requiredFieldError{field: "sim.entities"}
	}

	seen := make(map[string]struct{}, len(m.Sim.Entities))
	for _, e := range m.Sim.Entities {
		if e.Name == "" {
			return &requiredFieldError{field: "name", entity: e.Kind}
		}
		if _, dup := seen[e.Name]; dup {
			return &duplicateEntityNameError{name: e.Name}
		}
		seen[e.Name] = struct{}{}
	}
	return nil
}
