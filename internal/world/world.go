package world

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"talon/internal/simlog"
)

const (
	radarRange = 80_000.0 // meters
	rwrRange   = 40_000.0

	radarSensor = "radar"
	rwrSensor   = "rwr"
)

var ErrUnknownEntity = errors.New("unknown entity")

// Config assembles a World.
type Config struct {
	// ECS is the host entity store, typically owned by an ark-tools app.
	ECS *ecs.World
	// Events receives every simulation event. Required.
	Events *simlog.EventLogger
	// Workers sizes the frame-update pool.
	Workers int
	// DataInterval is the period between periodic entity samples and sensor
	// sweeps, in sim time.
	DataInterval time.Duration
	Logger       *zap.Logger
}

// trackRec is the sensor bookkeeping for one target entity.
type trackRec struct {
	radarID string
	rwrID   string
	onRadar bool
	onRwr   bool
}

// World advances entity state once per frame and reports to the event log.
// All mutating methods run on the sim thread; the Clock accessors are safe
// from any thread.
type World struct {
	zlog   *zap.Logger
	events *simlog.EventLogger

	ecs    *ecs.World
	bodies *ecs.Map2[Identity, Kinematics]
	air    *ecs.Map[AirData]
	filter *ecs.Filter2[Identity, Kinematics]

	pool    *ants.Pool
	workers int

	byName  map[string]ecs.Entity
	ownship ecs.Entity
	hasOwn  bool

	tracks    map[ecs.Entity]*trackRec
	nextRadar int
	nextRwr   int

	dataInterval float64
	sinceData    float64

	start   time.Time
	simBits atomic.Uint64
	frames  atomic.Uint64

	// scratch buffers reused across frames
	views []*entityView
	kins  []*Kinematics
}

// New builds a World on an existing ECS store.
func New(cfg Config) (*World, error) {
	if cfg.ECS == nil {
		return nil, errors.New("world requires an ECS store")
	}
	if cfg.Events == nil {
		return nil, errors.New("world requires an event logger")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.DataInterval <= 0 {
		cfg.DataInterval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	pool, err := ants.NewPool(
		cfg.Workers,
		ants.WithPreAlloc(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create frame pool: %w", err)
	}

	return &World{
		zlog:         cfg.Logger,
		events:       cfg.Events,
		ecs:          cfg.ECS,
		bodies:       ecs.NewMap2[Identity, Kinematics](cfg.ECS),
		air:          ecs.NewMap[AirData](cfg.ECS),
		filter:       ecs.NewFilter2[Identity, Kinematics](cfg.ECS),
		pool:         pool,
		workers:      cfg.Workers,
		byName:       make(map[string]ecs.Entity),
		tracks:       make(map[ecs.Entity]*trackRec),
		dataInterval: cfg.DataInterval.Seconds(),
		start:        time.Now(),
	}, nil
}

// ExecSeconds implements simlog.Clock: wall time since world creation.
func (w *World) ExecSeconds() float64 { return time.Since(w.start).Seconds() }

// SimSeconds implements simlog.Clock: accumulated frame time.
func (w *World) SimSeconds() float64 {
	return math.Float64frombits(w.simBits.Load())
}

// Frames returns the number of completed frames.
func (w *World) Frames() uint64 { return w.frames.Load() }

// Count returns the number of live entities.
func (w *World) Count() int { return len(w.byName) }

// State returns a copy of the named entity's kinematic state.
func (w *World) State(name string) (Kinematics, error) {
	e, ok := w.byName[name]
	if !ok {
		return Kinematics{}, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}
	_, kin := w.bodies.Get(e)
	return *kin, nil
}

// Spawn adds an entity and reports its creation. The first spawned entity
// becomes the ownship whose sensors produce track events. withAir attaches
// air-data state sampled in periodic entity reports.
func (w *World) Spawn(name, kind string, pos, vel simlog.Vec3, withAir bool) error {
	if _, exists := w.byName[name]; exists {
		return fmt.Errorf("entity %q already exists", name)
	}

	id := Identity{Name: name, Kind: kind, UID: uuid.New()}
	kin := Kinematics{Pos: pos, Vel: vel, Ori: headingOri(vel)}
	e := w.bodies.NewEntity(&id, &kin)
	if withAir {
		w.air.Add(e, &AirData{Airspeed: norm(vel)})
	}

	w.byName[name] = e
	if !w.hasOwn {
		w.ownship = e
		w.hasOwn = true
	}

	w.events.Log(simlog.NewEntityCreated(w.view(e)))
	w.zlog.Debug("entity spawned",
		zap.String("name", name),
		zap.String("kind", kind),
		zap.String("uid", id.UID.String()),
	)
	return nil
}

// Remove deletes an entity, dropping any sensor tracks held on it.
func (w *World) Remove(name string) error {
	e, ok := w.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}

	w.dropTracks(e)
	w.events.Log(simlog.NewEntityRemoved(w.view(e)))

	delete(w.byName, name)
	if w.hasOwn && e == w.ownship {
		w.hasOwn = false
	}
	delete(w.tracks, e)
	w.ecs.RemoveEntity(e)
	return nil
}

// Step advances the world by dt seconds of sim time. It matches
// sched.WorkFunc so a PeriodicTask can drive it.
func (w *World) Step(dt float64) error {
	w.integrate(dt)

	sim := w.SimSeconds() + dt
	w.simBits.Store(math.Float64bits(sim))
	w.frames.Add(1)

	w.sinceData += dt
	if w.sinceData >= w.dataInterval {
		w.sinceData = 0
		w.sampleEntities()
		w.sweepSensors()
	}
	return nil
}

// integrate advances kinematics for all entities, splitting the work across
// the frame pool.
func (w *World) integrate(dt float64) {
	w.kins = w.kins[:0]
	query := w.filter.Query()
	for query.Next() {
		_, kin := query.Get()
		w.kins = append(w.kins, kin)
	}

	n := len(w.kins)
	if n == 0 {
		return
	}

	chunk := (n + w.workers - 1) / w.workers
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		part := w.kins[lo:hi]
		wg.Add(1)
		task := func() {
			defer wg.Done()
			for _, kin := range part {
				for i := 0; i < 3; i++ {
					kin.Pos[i] += kin.Vel[i] * dt
				}
			}
		}
		if err := w.pool.Submit(task); err != nil {
			// Pool exhausted or released: do the work inline.
			task()
		}
	}
	wg.Wait()

	// Air data follows the new velocity state, on the sim thread.
	for _, e := range w.byName {
		if !w.air.Has(e) {
			continue
		}
		ad := w.air.Get(e)
		_, kin := w.bodies.Get(e)
		ad.Airspeed = norm(kin.Vel)
		ad.Alpha, ad.Beta = flowAngles(kin.Vel)
	}
}

// sampleEntities emits a periodic data record for every live entity.
func (w *World) sampleEntities() {
	w.views = w.views[:0]
	query := w.filter.Query()
	for query.Next() {
		w.views = append(w.views, w.view(query.Entity()))
	}
	for _, v := range w.views {
		w.events.Log(simlog.NewEntityData(v))
	}
}

// sweepSensors updates radar and RWR tracks against the ownship.
func (w *World) sweepSensors() {
	if !w.hasOwn {
		return
	}
	owner := w.view(w.ownship)
	_, ownKin := w.bodies.Get(w.ownship)
	ownPos := ownKin.Pos

	for _, e := range w.byName {
		if e == w.ownship {
			continue
		}
		_, kin := w.bodies.Get(e)
		rng := distance(ownPos, kin.Pos)

		rec := w.tracks[e]
		if rec == nil {
			rec = &trackRec{}
			w.tracks[e] = rec
		}

		if rng <= radarRange {
			trk := &trackView{id: rec.radarID, kin: *kin, sn: signalNoise(rng)}
			if !rec.onRadar {
				w.nextRadar++
				rec.radarID = fmt.Sprintf("T-%03d", w.nextRadar)
				rec.onRadar = true
				trk.id = rec.radarID
				w.events.Log(simlog.NewTrackAdded(radarSensor, owner, trk))
			} else {
				w.events.Log(simlog.NewTrackUpdated(radarSensor, owner, trk))
			}
		} else if rec.onRadar {
			rec.onRadar = false
			w.events.Log(simlog.NewTrackRemoved(radarSensor, owner,
				&trackView{id: rec.radarID, kin: *kin, sn: signalNoise(rng)}))
		}

		if rng <= rwrRange {
			trk := &trackView{id: rec.rwrID, kin: *kin, sn: signalNoise(rng)}
			if !rec.onRwr {
				w.nextRwr++
				rec.rwrID = fmt.Sprintf("R-%03d", w.nextRwr)
				rec.onRwr = true
				trk.id = rec.rwrID
				w.events.Log(simlog.NewRwrTrackAdded(rwrSensor, owner, trk))
			} else {
				w.events.Log(simlog.NewRwrTrackUpdated(rwrSensor, owner, trk))
			}
		} else if rec.onRwr {
			rec.onRwr = false
			w.events.Log(simlog.NewRwrTrackRemoved(rwrSensor, owner,
				&trackView{id: rec.rwrID, kin: *kin, sn: signalNoise(rng)}))
		}
	}
}

// dropTracks emits removals for any tracks still held on a dying entity.
func (w *World) dropTracks(e ecs.Entity) {
	rec := w.tracks[e]
	if rec == nil || !w.hasOwn {
		return
	}
	owner := w.view(w.ownship)
	_, kin := w.bodies.Get(e)
	_, ownKin := w.bodies.Get(w.ownship)
	rng := distance(ownKin.Pos, kin.Pos)

	if rec.onRadar {
		w.events.Log(simlog.NewTrackRemoved(radarSensor, owner,
			&trackView{id: rec.radarID, kin: *kin, sn: signalNoise(rng)}))
	}
	if rec.onRwr {
		w.events.Log(simlog.NewRwrTrackRemoved(rwrSensor, owner,
			&trackView{id: rec.rwrID, kin: *kin, sn: signalNoise(rng)}))
	}
}

// FireAt spawns a weapon entity flying from shooter to target and reports
// the release.
func (w *World) FireAt(shooter, weaponName, weaponKind, target string) error {
	se, ok := w.byName[shooter]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, shooter)
	}
	te, ok := w.byName[target]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, target)
	}

	_, skin := w.bodies.Get(se)
	_, tkin := w.bodies.Get(te)
	vel := interceptVelocity(skin.Pos, tkin.Pos, 900)

	if err := w.Spawn(weaponName, weaponKind, skin.Pos, vel, false); err != nil {
		return err
	}
	w.events.Log(simlog.NewWeaponRelease(w.view(se), w.view(w.byName[weaponName]), w.view(te)))
	return nil
}

// GunFire reports a gun burst by the named shooter.
func (w *World) GunFire(shooter string, rounds int) error {
	e, ok := w.byName[shooter]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, shooter)
	}
	w.events.Log(simlog.NewGunFired(w.view(e), rounds))
	return nil
}

// Detonate ends a weapon's flight. A miss distance inside the lethal radius
// also kills and removes the target; the weapon is always removed.
func (w *World) Detonate(shooter, weapon, target string, detType int, missDist float64) error {
	we, ok := w.byName[weapon]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, weapon)
	}

	// Shooter and target may already be gone; capture falls back to
	// sentinels for them.
	var sview, tview simlog.EntityState
	if se, ok := w.byName[shooter]; ok {
		sview = w.view(se)
	}
	if te, ok := w.byName[target]; ok {
		tview = w.view(te)
	}
	wview := w.view(we)

	w.events.Log(simlog.NewDetonation(sview, wview, tview, detType, missDist))

	const lethalRadius = 30.0
	if tview != nil && missDist >= 0 && missDist <= lethalRadius {
		w.events.Log(simlog.NewKill(sview, wview, tview))
		if err := w.Remove(target); err != nil {
			return err
		}
	}
	return w.Remove(weapon)
}

// Close releases the frame pool. The ECS store belongs to the caller.
func (w *World) Close() {
	w.pool.Release()
	w.zlog.Debug("world closed",
		zap.Uint64("frames", w.frames.Load()),
		zap.Int("entities", len(w.byName)),
	)
}

// view builds a capture adapter for a live entity.
func (w *World) view(e ecs.Entity) *entityView {
	id, kin := w.bodies.Get(e)
	v := &entityView{id: *id, kin: *kin}
	if w.air.Has(e) {
		cp := *w.air.Get(e)
		v.air = &cp
	}
	return v
}

//// MATH HELPERS

func norm(v simlog.Vec3) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func distance(a, b simlog.Vec3) float64 {
	return norm(simlog.Vec3{b[0] - a[0], b[1] - a[1], b[2] - a[2]})
}

// headingOri derives a roll/pitch/yaw attitude aligned with the velocity.
func headingOri(vel simlog.Vec3) simlog.Vec3 {
	h := math.Hypot(vel[0], vel[1])
	if h == 0 && vel[2] == 0 {
		return simlog.Vec3{}
	}
	return simlog.Vec3{0, math.Atan2(-vel[2], h), math.Atan2(vel[1], vel[0])}
}

// flowAngles derives angle of attack and sideslip, in degrees, from the
// body-relative flow implied by the velocity.
func flowAngles(vel simlog.Vec3) (alpha, beta float64) {
	h := math.Hypot(vel[0], vel[1])
	if h == 0 {
		return 0, 0
	}
	const deg = 180 / math.Pi
	return math.Atan2(vel[2], h) * deg, math.Atan2(vel[1], vel[0]) * deg
}

// interceptVelocity points a constant-speed velocity from origin at target.
func interceptVelocity(from, to simlog.Vec3, speed float64) simlog.Vec3 {
	d := simlog.Vec3{to[0] - from[0], to[1] - from[1], to[2] - from[2]}
	n := norm(d)
	if n == 0 {
		return simlog.Vec3{speed, 0, 0}
	}
	return simlog.Vec3{d[0] / n * speed, d[1] / n * speed, d[2] / n * speed}
}

// signalNoise models received signal quality falling off with range.
func signalNoise(rng float64) float64 {
	if rng < 1 {
		rng = 1
	}
	return 40 - 20*math.Log10(rng/1000)
}
