// Package world runs the demo battlespace: an ECS world of entities with
// kinematic state, a periodic sensor sweep, and scripted engagements. Every
// state change of interest is reported to the event log.
package world

import (
	"math"

	"github.com/google/uuid"

	"talon/internal/simlog"
)

// Identity names an entity. UID survives renames and is unique per run.
type Identity struct {
	Name string
	Kind string
	UID  uuid.UUID
}

// Kinematics is the position, velocity and attitude of an entity, in a flat
// north-east-down frame. Units are meters, meters per second and radians.
type Kinematics struct {
	Pos simlog.Vec3
	Vel simlog.Vec3
	Ori simlog.Vec3
}

// AirData is the air-relative state of a flying entity.
type AirData struct {
	Alpha    float64 // angle of attack, degrees
	Beta     float64 // sideslip, degrees
	Airspeed float64 // meters per second
}

// entityView adapts one entity's components for event capture. It holds
// copies, so it stays valid after the entity changes or dies.
type entityView struct {
	id  Identity
	kin Kinematics
	air *AirData
}

func (v *entityView) Name() string             { return v.id.Name }
func (v *entityView) Kind() string             { return v.id.Kind }
func (v *entityView) Position() simlog.Vec3    { return v.kin.Pos }
func (v *entityView) Velocity() simlog.Vec3    { return v.kin.Vel }
func (v *entityView) Orientation() simlog.Vec3 { return v.kin.Ori }

func (v *entityView) Alpha() float64 {
	if v.air == nil {
		return math.NaN()
	}
	return v.air.Alpha
}

func (v *entityView) Beta() float64 {
	if v.air == nil {
		return math.NaN()
	}
	return v.air.Beta
}

func (v *entityView) Airspeed() float64 {
	if v.air == nil {
		return math.NaN()
	}
	return v.air.Airspeed
}

// trackView adapts a sensed target for track event capture.
type trackView struct {
	id  string
	kin Kinematics
	sn  float64
}

func (v *trackView) TrackID() string        { return v.id }
func (v *trackView) Position() simlog.Vec3  { return v.kin.Pos }
func (v *trackView) Velocity() simlog.Vec3  { return v.kin.Vel }
func (v *trackView) SignalNoise() float64   { return v.sn }
