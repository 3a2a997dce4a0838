package simlog

import (
	"strings"
	"testing"
)

type testEntity struct {
	name string
	kind string
	pos  Vec3
	vel  Vec3
	ori  Vec3
}

func (e *testEntity) Name() string      { return e.name }
func (e *testEntity) Kind() string      { return e.kind }
func (e *testEntity) Position() Vec3    { return e.pos }
func (e *testEntity) Velocity() Vec3    { return e.vel }
func (e *testEntity) Orientation() Vec3 { return e.ori }

type testAircraft struct {
	testEntity
	alpha, beta, ias float64
}

func (a *testAircraft) Alpha() float64    { return a.alpha }
func (a *testAircraft) Beta() float64     { return a.beta }
func (a *testAircraft) Airspeed() float64 { return a.ias }

type testTrack struct {
	id  string
	pos Vec3
	vel Vec3
	sn  float64
}

func (t *testTrack) TrackID() string      { return t.id }
func (t *testTrack) Position() Vec3       { return t.pos }
func (t *testTrack) Velocity() Vec3       { return t.vel }
func (t *testTrack) SignalNoise() float64 { return t.sn }

func newTestEntity(name string) *testEntity {
	return &testEntity{
		name: name,
		kind: "fighter",
		pos:  Vec3{100, 200, -3000},
		vel:  Vec3{250, 0, 0},
		ori:  Vec3{0.1, 0.2, 1.5},
	}
}

func TestEntityCreatedFormat(t *testing.T) {
	e := NewEntityCreated(newTestEntity("viper-1"))
	e.Stamp(1.0, 2.0, 3.0, true, true, true)

	line := e.Describe()
	fields := strings.Split(line, "\t")
	// 3 timestamps + token + name + kind + 9 kinematic values.
	if len(fields) != 15 {
		t.Fatalf("expected 15 fields, got %d: %q", len(fields), line)
	}
	if fields[0] != "1.000" || fields[1] != "2.000" || fields[2] != "3.000" {
		t.Fatalf("unexpected timestamp columns: %v", fields[:3])
	}
	if fields[3] != "ENTITY_CREATED" {
		t.Fatalf("expected ENTITY_CREATED token, got %q", fields[3])
	}
	if fields[4] != "viper-1" || fields[5] != "fighter" {
		t.Fatalf("unexpected identity fields: %v", fields[4:6])
	}
	if fields[6] != "100.0000" || fields[8] != "-3000.0000" {
		t.Fatalf("unexpected position fields: %v", fields[6:9])
	}
}

func TestDescribeIdempotent(t *testing.T) {
	e := NewEntityData(&testAircraft{
		testEntity: *newTestEntity("hornet-2"),
		alpha:      2.5, beta: -0.5, ias: 180,
	})
	e.Stamp(10.5, 20.25, 30.125, true, true, true)

	first := e.Describe()
	second := e.Describe()
	if first != second {
		t.Fatalf("Describe not idempotent:\n%q\n%q", first, second)
	}
	if !strings.Contains(first, "ENTITY_DATA") {
		t.Fatalf("missing kind token: %q", first)
	}
	if !strings.HasSuffix(first, "2.5000\t-0.5000\t180.0000") {
		t.Fatalf("missing air data fields: %q", first)
	}
}

func TestStampFirstWins(t *testing.T) {
	e := NewEntityRemoved(newTestEntity("x"))
	e.Stamp(1, 2, 3, true, true, true)
	before := e.Describe()
	e.Stamp(9, 9, 9, false, false, false)
	after := e.Describe()
	if before != after {
		t.Fatalf("re-stamp changed output:\n%q\n%q", before, after)
	}
}

func TestHiddenColumnsOmitted(t *testing.T) {
	e := NewGunFired(newTestEntity("cobra-3"), 50)
	e.Stamp(1.5, 2.5, 3.5, false, true, false)

	line := e.Describe()
	if !strings.HasPrefix(line, "2.500\tGUN_FIRED") {
		t.Fatalf("expected only sim column before token: %q", line)
	}
	if strings.Contains(line, "1.500") || strings.Contains(line, "3.500") {
		t.Fatalf("hidden timestamp leaked into line: %q", line)
	}
	if !strings.HasSuffix(line, "\tcobra-3\t50") {
		t.Fatalf("unexpected gun fields: %q", line)
	}
}

func TestNilSourceCaptureSentinels(t *testing.T) {
	e := NewEntityCreated(nil)
	e.Stamp(0, 0, 0, false, false, false)
	line := e.Describe()

	if !strings.HasPrefix(line, "ENTITY_CREATED\tunknown\tunknown") {
		t.Fatalf("expected sentinel identity, got %q", line)
	}
	if !strings.Contains(line, "NaN") {
		t.Fatalf("expected NaN sentinels for kinematics, got %q", line)
	}
}

func TestPartialEngagementCapture(t *testing.T) {
	// Target already destroyed at capture time: the event still records the
	// shooter and weapon, with sentinels for the target.
	e := NewWeaponRelease(newTestEntity("shooter"), newTestEntity("aim-9"), nil)
	e.Stamp(0, 0, 0, false, false, false)
	line := e.Describe()
	if line != "WEAPON_RELEASE\tshooter\taim-9\tunknown" {
		t.Fatalf("unexpected engagement line: %q", line)
	}
}

func TestNoAirDataFallsBackToNaN(t *testing.T) {
	// Plain entity without air data accessors.
	e := NewEntityData(newTestEntity("cargo-1"))
	e.Stamp(0, 0, 0, false, false, false)
	if !strings.HasSuffix(e.Describe(), "NaN\tNaN\tNaN") {
		t.Fatalf("expected NaN air data: %q", e.Describe())
	}
}

func TestTrackEventFormat(t *testing.T) {
	owner := newTestEntity("ownship")
	trk := &testTrack{id: "T-042", pos: Vec3{5000, 1000, -2000}, vel: Vec3{-200, 10, 0}, sn: 12.5}

	e := NewTrackAdded("radar", owner, trk)
	e.Stamp(0, 0, 0, false, false, false)
	fields := strings.Split(e.Describe(), "\t")
	// token + sensor + trackID + owner name + 9 vectors + sn.
	if len(fields) != 14 {
		t.Fatalf("expected 14 fields, got %d: %v", len(fields), fields)
	}
	if fields[0] != "TRACK_ADDED" || fields[1] != "radar" || fields[2] != "T-042" {
		t.Fatalf("unexpected header fields: %v", fields[:3])
	}
	if fields[13] != "12.50" {
		t.Fatalf("expected signal/noise 12.50, got %q", fields[13])
	}
}

func TestSecondaryChannelVariants(t *testing.T) {
	owner := newTestEntity("ownship")
	trk := &testTrack{id: "R-7", sn: 3}

	cases := []struct {
		event *Event
		token string
	}{
		{NewRwrTrackAdded("rwr", owner, trk), "RWR_TRACK_ADDED"},
		{NewRwrTrackUpdated("rwr", owner, trk), "RWR_TRACK_UPDATED"},
		{NewRwrTrackRemoved("rwr", owner, trk), "RWR_TRACK_REMOVED"},
		{NewTrackUpdated("radar", owner, trk), "TRACK_UPDATED"},
		{NewTrackRemoved("radar", owner, trk), "TRACK_REMOVED"},
	}
	for _, tc := range cases {
		tc.event.Stamp(0, 0, 0, false, false, false)
		if !strings.HasPrefix(tc.event.Describe(), tc.token+"\t") {
			t.Errorf("expected token %s, got %q", tc.token, tc.event.Describe())
		}
	}
}

func TestDetonationFields(t *testing.T) {
	e := NewDetonation(newTestEntity("s"), newTestEntity("w"), newTestEntity("t"), 2, 15.25)
	e.Stamp(0, 0, 0, false, false, false)
	if got := e.Describe(); got != "DETONATION\ts\tw\tt\t2\t15.2" {
		t.Fatalf("unexpected detonation line: %q", got)
	}
}

func TestCaptureIsSnapshot(t *testing.T) {
	src := newTestEntity("mover")
	e := NewEntityCreated(src)

	// Mutating the source after construction must not affect the event.
	before := e.Describe()
	src.pos = Vec3{9e9, 9e9, 9e9}
	src.name = "changed"
	after := e.Describe()
	if before != after {
		t.Fatalf("event observed live domain state:\n%q\n%q", before, after)
	}
}
