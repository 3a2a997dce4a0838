package simlog

import "math"

// Vec3 is a position, velocity or orientation triple.
type Vec3 [3]float64

// NaNVec3 returns the sentinel vector used when a source field could not be
// captured.
func NaNVec3() Vec3 {
	n := math.NaN()
	return Vec3{n, n, n}
}

// UnknownName is the sentinel identifier recorded when a domain object is
// gone or unnamed at capture time.
const UnknownName = "unknown"

// EntityState is the read-only view a domain object must expose to be
// captured into a log event. Every accessor is called exactly once, inside
// the event constructor, on the producer's thread.
type EntityState interface {
	Name() string
	Kind() string
	Position() Vec3
	Velocity() Vec3
	Orientation() Vec3
}

// AirDataState is optionally implemented by entities that carry air data.
// Entity-data events capture it when present.
type AirDataState interface {
	Alpha() float64
	Beta() float64
	Airspeed() float64
}

// TrackState is the read-only view of a sensor track.
type TrackState interface {
	TrackID() string
	Position() Vec3
	Velocity() Vec3
	SignalNoise() float64
}

// EntitySnapshot is the immutable copy of an entity taken at capture time.
// Events hold snapshots only, never references into live domain state.
type EntitySnapshot struct {
	Name string
	Kind string
	Pos  Vec3
	Vel  Vec3
	Ori  Vec3
}

// AirDataSnapshot holds captured air data, NaN when unavailable.
type AirDataSnapshot struct {
	Alpha    float64
	Beta     float64
	Airspeed float64
}

// TrackSnapshot is the immutable copy of a sensor track and its owner.
type TrackSnapshot struct {
	Sensor      string
	TrackID     string
	Owner       EntitySnapshot
	TgtPos      Vec3
	TgtVel      Vec3
	SignalNoise float64
}

// captureEntity copies an entity's state, substituting sentinels for anything
// that is missing. A partially missing source never fails the capture.
func captureEntity(src EntityState) EntitySnapshot {
	if src == nil {
		return EntitySnapshot{
			Name: UnknownName,
			Kind: UnknownName,
			Pos:  NaNVec3(),
			Vel:  NaNVec3(),
			Ori:  NaNVec3(),
		}
	}
	snap := EntitySnapshot{
		Name: src.Name(),
		Kind: src.Kind(),
		Pos:  src.Position(),
		Vel:  src.Velocity(),
		Ori:  src.Orientation(),
	}
	if snap.Name == "" {
		snap.Name = UnknownName
	}
	if snap.Kind == "" {
		snap.Kind = UnknownName
	}
	return snap
}

func captureAirData(src EntityState) AirDataSnapshot {
	if air, ok := src.(AirDataState); ok {
		return AirDataSnapshot{
			Alpha:    air.Alpha(),
			Beta:     air.Beta(),
			Airspeed: air.Airspeed(),
		}
	}
	n := math.NaN()
	return AirDataSnapshot{Alpha: n, Beta: n, Airspeed: n}
}

func captureTrack(sensor string, owner EntityState, trk TrackState) TrackSnapshot {
	snap := TrackSnapshot{
		Sensor: sensor,
		Owner:  captureEntity(owner),
	}
	if snap.Sensor == "" {
		snap.Sensor = UnknownName
	}
	if trk == nil {
		snap.TrackID = UnknownName
		snap.TgtPos = NaNVec3()
		snap.TgtVel = NaNVec3()
		snap.SignalNoise = math.NaN()
		return snap
	}
	snap.TrackID = trk.TrackID()
	if snap.TrackID == "" {
		snap.TrackID = UnknownName
	}
	snap.TgtPos = trk.Position()
	snap.TgtVel = trk.Velocity()
	snap.SignalNoise = trk.SignalNoise()
	return snap
}
