// Package simlog implements the simulation event log: tagged event variants
// that snapshot domain state at construction time, and the logger that drains
// and renders them on its own periodic tick.
package simlog

import (
	"bytes"
	"fmt"
)

// Payload is the sealed set of event variants. Rendering is one exhaustive
// type switch in Describe, so adding a variant means extending that switch.
type Payload interface {
	isPayload()
}

// EntityCreated records an entity joining the simulation.
type EntityCreated struct {
	Entity EntitySnapshot
}

// EntityData records a periodic kinematic and air-data sample of an entity.
type EntityData struct {
	Entity EntitySnapshot
	Air    AirDataSnapshot
}

// EntityRemoved records an entity leaving the simulation.
type EntityRemoved struct {
	Entity EntitySnapshot
}

// WeaponRelease records a weapon released by a shooter at a target.
type WeaponRelease struct {
	Shooter EntitySnapshot
	Weapon  EntitySnapshot
	Target  EntitySnapshot
}

// GunFired records a burst of rounds fired by a shooter.
type GunFired struct {
	Shooter EntitySnapshot
	Rounds  int
}

// Kill records a target killed by a weapon released from a shooter.
type Kill struct {
	Shooter EntitySnapshot
	Weapon  EntitySnapshot
	Target  EntitySnapshot
}

// Detonation records a weapon detonation and its miss distance in meters.
// A negative miss distance means it was not measured.
type Detonation struct {
	Shooter      EntitySnapshot
	Weapon       EntitySnapshot
	Target       EntitySnapshot
	DetType      int
	MissDistance float64
}

// TrackAdded records a new track on the primary sensor channel.
type TrackAdded struct {
	Track TrackSnapshot
}

// TrackUpdated records an update on the primary sensor channel.
type TrackUpdated struct {
	Track TrackSnapshot
}

// TrackRemoved records a dropped track on the primary sensor channel.
type TrackRemoved struct {
	Track TrackSnapshot
}

// RwrTrackAdded records a new track on the RWR (secondary) channel.
type RwrTrackAdded struct {
	Track TrackSnapshot
}

// RwrTrackUpdated records an update on the RWR (secondary) channel.
type RwrTrackUpdated struct {
	Track TrackSnapshot
}

// RwrTrackRemoved records a dropped track on the RWR (secondary) channel.
type RwrTrackRemoved struct {
	Track TrackSnapshot
}

func (EntityCreated) isPayload()   {}
func (EntityData) isPayload()      {}
func (EntityRemoved) isPayload()   {}
func (WeaponRelease) isPayload()   {}
func (GunFired) isPayload()        {}
func (Kill) isPayload()            {}
func (Detonation) isPayload()      {}
func (TrackAdded) isPayload()      {}
func (TrackUpdated) isPayload()    {}
func (TrackRemoved) isPayload()    {}
func (RwrTrackAdded) isPayload()   {}
func (RwrTrackUpdated) isPayload() {}
func (RwrTrackRemoved) isPayload() {}

// Event pairs a captured payload with the timestamps and visibility flags
// assigned by the logger at drain time. After construction an event holds no
// reference into shared mutable domain state, so it is safe to hand to the
// consumer thread.
type Event struct {
	Payload Payload

	exec, sim, utc             float64
	showExec, showSim, showUTC bool
	stamped                    bool
}

// Constructors capture the referenced domain state immediately, on the
// caller's thread, before returning.

func NewEntityCreated(src EntityState) *Event {
	return &Event{Payload: EntityCreated{Entity: captureEntity(src)}}
}

func NewEntityData(src EntityState) *Event {
	return &Event{Payload: EntityData{
		Entity: captureEntity(src),
		Air:    captureAirData(src),
	}}
}

func NewEntityRemoved(src EntityState) *Event {
	return &Event{Payload: EntityRemoved{Entity: captureEntity(src)}}
}

func NewWeaponRelease(shooter, weapon, target EntityState) *Event {
	return &Event{Payload: WeaponRelease{
		Shooter: captureEntity(shooter),
		Weapon:  captureEntity(weapon),
		Target:  captureEntity(target),
	}}
}

func NewGunFired(shooter EntityState, rounds int) *Event {
	return &Event{Payload: GunFired{
		Shooter: captureEntity(shooter),
		Rounds:  rounds,
	}}
}

func NewKill(shooter, weapon, target EntityState) *Event {
	return &Event{Payload: Kill{
		Shooter: captureEntity(shooter),
		Weapon:  captureEntity(weapon),
		Target:  captureEntity(target),
	}}
}

func NewDetonation(shooter, weapon, target EntityState, detType int, missDist float64) *Event {
	return &Event{Payload: Detonation{
		Shooter:      captureEntity(shooter),
		Weapon:       captureEntity(weapon),
		Target:       captureEntity(target),
		DetType:      detType,
		MissDistance: missDist,
	}}
}

func NewTrackAdded(sensor string, owner EntityState, trk TrackState) *Event {
	return &Event{Payload: TrackAdded{Track: captureTrack(sensor, owner, trk)}}
}

func NewTrackUpdated(sensor string, owner EntityState, trk TrackState) *Event {
	return &Event{Payload: TrackUpdated{Track: captureTrack(sensor, owner, trk)}}
}

func NewTrackRemoved(sensor string, owner EntityState, trk TrackState) *Event {
	return &Event{Payload: TrackRemoved{Track: captureTrack(sensor, owner, trk)}}
}

func NewRwrTrackAdded(sensor string, owner EntityState, trk TrackState) *Event {
	return &Event{Payload: RwrTrackAdded{Track: captureTrack(sensor, owner, trk)}}
}

func NewRwrTrackUpdated(sensor string, owner EntityState, trk TrackState) *Event {
	return &Event{Payload: RwrTrackUpdated{Track: captureTrack(sensor, owner, trk)}}
}

func NewRwrTrackRemoved(sensor string, owner EntityState, trk TrackState) *Event {
	return &Event{Payload: RwrTrackRemoved{Track: captureTrack(sensor, owner, trk)}}
}

// Stamp assigns the timestamps and visibility flags. The first stamp wins;
// later calls are ignored so Describe stays stable once rendered.
func (e *Event) Stamp(exec, sim, utc float64, showExec, showSim, showUTC bool) {
	if e.stamped {
		return
	}
	e.exec = exec
	e.sim = sim
	e.utc = utc
	e.showExec = showExec
	e.showSim = showSim
	e.showUTC = showUTC
	e.stamped = true
}

// Stamped reports whether timestamps have been assigned.
func (e *Event) Stamped() bool { return e.stamped }

// Describe renders the event as one tab-separated line (without trailing
// newline): visible timestamps first, then the kind token, then the
// variant-specific fields. It reads only the captured snapshot and is
// idempotent.
func (e *Event) Describe() string {
	var b bytes.Buffer

	if e.showExec {
		fmt.Fprintf(&b, "%.3f\t", e.exec)
	}
	if e.showSim {
		fmt.Fprintf(&b, "%.3f\t", e.sim)
	}
	if e.showUTC {
		fmt.Fprintf(&b, "%.3f\t", e.utc)
	}

	switch p := e.Payload.(type) {
	case EntityCreated:
		b.WriteString("ENTITY_CREATED")
		appendEntity(&b, p.Entity)
	case EntityData:
		b.WriteString("ENTITY_DATA")
		appendEntity(&b, p.Entity)
		fmt.Fprintf(&b, "\t%.4f\t%.4f\t%.4f", p.Air.Alpha, p.Air.Beta, p.Air.Airspeed)
	case EntityRemoved:
		b.WriteString("ENTITY_REMOVED")
		appendEntity(&b, p.Entity)
	case WeaponRelease:
		b.WriteString("WEAPON_RELEASE")
		appendEngagement(&b, p.Shooter, p.Weapon, p.Target)
	case GunFired:
		b.WriteString("GUN_FIRED")
		fmt.Fprintf(&b, "\t%s\t%d", p.Shooter.Name, p.Rounds)
	case Kill:
		b.WriteString("KILL")
		appendEngagement(&b, p.Shooter, p.Weapon, p.Target)
	case Detonation:
		b.WriteString("DETONATION")
		appendEngagement(&b, p.Shooter, p.Weapon, p.Target)
		fmt.Fprintf(&b, "\t%d\t%.1f", p.DetType, p.MissDistance)
	case TrackAdded:
		b.WriteString("TRACK_ADDED")
		appendTrack(&b, p.Track)
	case TrackUpdated:
		b.WriteString("TRACK_UPDATED")
		appendTrack(&b, p.Track)
	case TrackRemoved:
		b.WriteString("TRACK_REMOVED")
		appendTrack(&b, p.Track)
	case RwrTrackAdded:
		b.WriteString("RWR_TRACK_ADDED")
		appendTrack(&b, p.Track)
	case RwrTrackUpdated:
		b.WriteString("RWR_TRACK_UPDATED")
		appendTrack(&b, p.Track)
	case RwrTrackRemoved:
		b.WriteString("RWR_TRACK_REMOVED")
		appendTrack(&b, p.Track)
	default:
		b.WriteString("UNKNOWN_EVENT")
	}

	return b.String()
}

func appendVec(b *bytes.Buffer, v Vec3) {
	fmt.Fprintf(b, "\t%.4f\t%.4f\t%.4f", v[0], v[1], v[2])
}

func appendEntity(b *bytes.Buffer, e EntitySnapshot) {
	fmt.Fprintf(b, "\t%s\t%s", e.Name, e.Kind)
	appendVec(b, e.Pos)
	appendVec(b, e.Vel)
	appendVec(b, e.Ori)
}

func appendEngagement(b *bytes.Buffer, shooter, weapon, target EntitySnapshot) {
	fmt.Fprintf(b, "\t%s\t%s\t%s", shooter.Name, weapon.Name, target.Name)
}

func appendTrack(b *bytes.Buffer, t TrackSnapshot) {
	fmt.Fprintf(b, "\t%s\t%s\t%s", t.Sensor, t.TrackID, t.Owner.Name)
	appendVec(b, t.Owner.Pos)
	appendVec(b, t.TgtPos)
	appendVec(b, t.TgtVel)
	fmt.Fprintf(b, "\t%.2f", t.SignalNoise)
}
