package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mlange-42/ark-tools/app"
	"go.uber.org/zap"

	"talon/internal/loader"
	"talon/internal/logger"
	"talon/internal/sched"
	"talon/internal/simlog"
	"talon/internal/world"
)

const defaultConfig = "configs/scenario.yaml"

func main() {
	zlog, err := logger.NewFromEnv()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = zlog.Sync() }()

	configFile := defaultConfig
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}

	l := loader.NewLoader(configFile)
	if err := l.Load(); err != nil {
		zlog.Fatal("failed to load scenario", zap.String("file", configFile), zap.Error(err))
	}
	manifest := l.GetManifest()

	runID := uuid.New()
	zlog.Info("starting scenario",
		zap.String("scenario", manifest.Scenario),
		zap.String("run_id", runID.String()),
		zap.Uint64("seed", manifest.Seed),
		zap.Float64("sim_rate_hz", manifest.Sim.RateHz),
		zap.Int("entities", len(manifest.Sim.Entities)),
	)

	// The ECS store hosting entity state, seeded for reproducible runs.
	tool := app.New(1024).Seed(manifest.Seed)

	sink, err := buildSink(manifest.EventLog.Output)
	if err != nil {
		zlog.Fatal("failed to open event log output", zap.Error(err))
	}

	source, err := simlog.ParseTimeSource(manifest.EventLog.Timeline)
	if err != nil {
		zlog.Fatal("bad timeline", zap.Error(err))
	}
	events, err := simlog.New(simlog.Config{
		Source:        source,
		IncludeExec:   *manifest.EventLog.IncludeExec,
		IncludeSim:    *manifest.EventLog.IncludeSim,
		IncludeUTC:    *manifest.EventLog.IncludeUTC,
		QueueCapacity: manifest.EventLog.QueueCapacity,
		Sink:          sink,
		Logger:        zlog.Named("simlog"),
	})
	if err != nil {
		zlog.Fatal("failed to create event logger", zap.Error(err))
	}

	battle, err := world.New(world.Config{
		ECS:          &tool.World,
		Events:       events,
		Workers:      manifest.Sim.Workers,
		DataInterval: manifest.Sim.DataInterval.Std(),
		Logger:       zlog.Named("world"),
	})
	if err != nil {
		zlog.Fatal("failed to create world", zap.Error(err))
	}
	// The sim owns both timelines once it exists.
	events.SetClock(battle)

	for _, e := range manifest.Sim.Entities {
		if err := battle.Spawn(e.Name, e.Kind, simlog.Vec3(e.Position), simlog.Vec3(e.Velocity), e.AirData); err != nil {
			zlog.Fatal("failed to spawn entity", zap.String("name", e.Name), zap.Error(err))
		}
	}

	script := newScript(battle, manifest, zlog.Named("script"))

	simTask, err := sched.New("sim", manifest.Sim.RateHz, script.step,
		sched.WithLogger(zlog.Named("sched")),
	)
	if err != nil {
		zlog.Fatal("failed to create sim task", zap.Error(err))
	}
	logTask, err := sched.New("event-log", manifest.EventLog.RateHz, events.Tick,
		sched.WithLogger(zlog.Named("sched")),
	)
	if err != nil {
		zlog.Fatal("failed to create event log task", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	simTask.Start(ctx)
	logTask.Start(ctx)

	if d := manifest.Sim.Duration.Std(); d > 0 {
		select {
		case <-sigChan:
			zlog.Info("shutdown signal received")
		case <-time.After(d):
			zlog.Info("scenario duration reached", zap.Duration("duration", d))
		}
	} else {
		<-sigChan
		zlog.Info("shutdown signal received")
	}

	// Stop producers before draining the event log.
	simTask.Stop()
	logTask.Stop()
	if err := events.Close(); err != nil {
		zlog.Error("event log close failed", zap.Error(err))
	}
	battle.Close()

	busted := simTask.BustedFrameStats().Value()
	qs := events.QueueStats()
	zlog.Info("run complete",
		zap.String("run_id", runID.String()),
		zap.Uint64("frames", simTask.TotalFrames()),
		zap.Float64("sim_time_s", battle.SimSeconds()),
		zap.Uint64("overruns", simTask.Overruns()),
		zap.Float64("busted_mean_s", busted.Mean),
		zap.Float64("busted_max_s", busted.Max),
		zap.Int64("events_rendered", events.Rendered()),
		zap.Int64("events_dropped", qs.Dropped),
	)
}

func buildSink(output string) (simlog.Sink, error) {
	if output == "" {
		return simlog.NewWriterSink(os.Stdout), nil
	}
	return simlog.NewFileSink(output)
}

// script drives a canned engagement on top of the frame loop so a default
// run produces weapon and kill events, not just kinematics.
type script struct {
	battle *world.World
	zlog   *zap.Logger

	shooter string
	target  string
	weapon  string

	gunDone   bool
	fired     bool
	detonated bool
}

func newScript(battle *world.World, m loader.Manifest, zlog *zap.Logger) *script {
	s := &script{battle: battle, zlog: zlog, weapon: "fox-1"}
	if len(m.Sim.Entities) >= 2 {
		s.shooter = m.Sim.Entities[0].Name
		s.target = m.Sim.Entities[len(m.Sim.Entities)-1].Name
	}
	return s
}

func (s *script) step(dt float64) error {
	if err := s.battle.Step(dt); err != nil {
		return err
	}
	if s.shooter == "" {
		return nil
	}

	now := s.battle.SimSeconds()
	switch {
	case !s.gunDone && now >= 5:
		s.gunDone = true
		if err := s.battle.GunFire(s.shooter, 40); err != nil {
			s.zlog.Warn("gun event failed", zap.Error(err))
		}
	case !s.fired && now >= 10:
		s.fired = true
		if err := s.battle.FireAt(s.shooter, s.weapon, "missile", s.target); err != nil {
			s.zlog.Warn("weapon release failed", zap.Error(err))
		}
	case s.fired && !s.detonated && now >= 25:
		s.detonated = true
		if err := s.battle.Detonate(s.shooter, s.weapon, s.target, 1, 8.5); err != nil {
			s.zlog.Warn("detonation failed", zap.Error(err))
		}
	}
	return nil
}
