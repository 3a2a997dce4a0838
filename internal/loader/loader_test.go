package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

const minimalManifest = `
scenario: intercept
sim:
  entities:
    - name: viper-1
      kind: fighter
      position: [0, 0, -3000]
      velocity: [250, 0, 0]
`

func TestLoadAppliesDefaults(t *testing.T) {
	l := NewLoader(writeManifest(t, minimalManifest))
	if err := l.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	m := l.GetManifest()

	if m.EventLog.Timeline != "utc" {
		t.Errorf("expected utc timeline default, got %q", m.EventLog.Timeline)
	}
	if m.EventLog.QueueCapacity != 1000 {
		t.Errorf("expected queue capacity 1000, got %d", m.EventLog.QueueCapacity)
	}
	if m.EventLog.RateHz != 10 {
		t.Errorf("expected event log rate 10, got %v", m.EventLog.RateHz)
	}
	for name, inc := range map[string]*bool{
		"include_exec": m.EventLog.IncludeExec,
		"include_sim":  m.EventLog.IncludeSim,
		"include_utc":  m.EventLog.IncludeUTC,
	} {
		if inc == nil || !*inc {
			t.Errorf("expected %s default true", name)
		}
	}
	if m.Sim.RateHz != 60 {
		t.Errorf("expected sim rate 60, got %v", m.Sim.RateHz)
	}
	if m.Sim.DataInterval.Std() != time.Second {
		t.Errorf("expected 1s data interval, got %v", m.Sim.DataInterval.Std())
	}
	if m.Sim.Workers < 1 {
		t.Errorf("expected positive worker default, got %d", m.Sim.Workers)
	}
}

func TestLoadFullManifest(t *testing.T) {
	l := NewLoader(writeManifest(t, `
scenario: two-ship sweep
seed: 42
event_log:
  rate_hz: 20
  queue_capacity: 256
  timeline: sim
  include_utc: false
  output: events.log
sim:
  rate_hz: 120
  data_interval: 500ms
  duration: 30s
  workers: 4
  entities:
    - name: viper-1
      kind: fighter
      position: [0, 0, -3000]
      velocity: [250, 0, 0]
      air_data: true
    - name: bandit-1
      kind: fighter
      position: [40000, 0, -5000]
      velocity: [-300, 0, 0]
`))
	if err := l.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	m := l.GetManifest()

	if m.Seed != 42 {
		t.Errorf("expected seed 42, got %d", m.Seed)
	}
	if m.EventLog.Timeline != "sim" || m.EventLog.QueueCapacity != 256 {
		t.Errorf("unexpected event log config: %+v", m.EventLog)
	}
	if *m.EventLog.IncludeUTC {
		t.Error("include_utc: false was not honored")
	}
	if !*m.EventLog.IncludeExec {
		t.Error("unset include_exec should default true")
	}
	if m.Sim.DataInterval.Std() != 500*time.Millisecond {
		t.Errorf("unexpected data interval: %v", m.Sim.DataInterval.Std())
	}
	if m.Sim.Duration.Std() != 30*time.Second {
		t.Errorf("unexpected duration: %v", m.Sim.Duration.Std())
	}
	if len(m.Sim.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(m.Sim.Entities))
	}
	if m.Sim.Entities[0].Position != (Triple{0, 0, -3000}) {
		t.Errorf("unexpected position: %v", m.Sim.Entities[0].Position)
	}
	if !m.Sim.Entities[0].AirData || m.Sim.Entities[1].AirData {
		t.Error("air_data flags not honored")
	}
}

func TestLoadRejectsInvalidTimeline(t *testing.T) {
	l := NewLoader(writeManifest(t, `
scenario: bad
event_log:
  timeline: gps
sim:
  entities:
    - name: x
`))
	err := l.Load()
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}

func TestLoadRejectsDuplicateEntityNames(t *testing.T) {
	l := NewLoader(writeManifest(t, `
scenario: dup
sim:
  entities:
    - name: viper-1
    - name: viper-1
`))
	err := l.Load()
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for duplicate names, got %v", err)
	}
}

func TestLoadRequiresScenarioAndEntities(t *testing.T) {
	cases := map[string]string{
		"missing scenario": `
sim:
  entities:
    - name: x
`,
		"no entities": `
scenario: empty
sim:
  entities: []
`,
		"unnamed entity": `
scenario: anon
sim:
  entities:
    - kind: fighter
`,
	}
	for name, content := range cases {
		l := NewLoader(writeManifest(t, content))
		if err := l.Load(); !errors.Is(err, ErrRequiredField) {
			t.Errorf("%s: expected ErrRequiredField, got %v", name, err)
		}
	}
}

func TestLoadRejectsBadVector(t *testing.T) {
	l := NewLoader(writeManifest(t, `
scenario: vec
sim:
  entities:
    - name: x
      position: [1, 2]
`))
	if err := l.Load(); err == nil {
		t.Fatal("expected error for 2-component vector")
	}
}

func TestLoadReportsYamlTypeErrors(t *testing.T) {
	l := NewLoader(writeManifest(t, `
scenario: bad-types
sim:
  rate_hz: "fast"
  entities:
    - name: x
`))
	err := l.Load()
	if !errors.Is(err, ErrInvalidYamlFormat) {
		t.Fatalf("expected ErrInvalidYamlFormat, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "nope.yaml"))
	if err := l.Load(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejectsNonPositiveRates(t *testing.T) {
	m := Manifest{Scenario: "r", Sim: Sim{Entities: []Entity{{Name: "x"}}}}
	m.applyDefaults()
	m.Sim.RateHz = -1
	if err := m.Validate(); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}
