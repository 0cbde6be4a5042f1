package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/driftyard/simcore/internal/config"
	"github.com/driftyard/simcore/internal/data"
	"github.com/driftyard/simcore/internal/overlay"
	"github.com/driftyard/simcore/internal/persist"
	"github.com/driftyard/simcore/internal/scripting"
	"github.com/driftyard/simcore/internal/system"
	"github.com/driftyard/simcore/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string, cfg *config.Config) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              simcore  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      entity lifecycle · tiers · grid      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mSession:\033[0m %s \033[90m(%d Hz, max %d entities)\033[0m\n\n",
		name, cfg.Simulation.BaseRate, cfg.Simulation.MaxEntities)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	profMode := flag.String("profile", "", "write a cpu or mem profile to the working directory")
	showOverlay := flag.Bool("overlay", false, "show the terminal statistics overlay")
	maxTicks := flag.Int("ticks", 0, "stop after this many ticks (0 = until interrupted)")
	flag.Parse()

	// 1. Load config
	cfgPath := "config/simcore.toml"
	if p := os.Getenv("SIMCORE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	useOverlay := *showOverlay || cfg.Diagnostics.Overlay

	// 2. Init logger
	log, err := newLogger(cfg.Logging, useOverlay)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	switch *profMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q (want cpu or mem)", *profMode)
	}

	printBanner(cfg.Simulation.Name, cfg)

	// 3. Kind table and tier policy
	printSection("Data")
	kinds, err := data.LoadKindTable(cfg.Data.KindsPath)
	if err != nil {
		return fmt.Errorf("kind table: %w", err)
	}
	printStat("Kinds", kinds.Count())

	deps := system.Deps{Kinds: kinds}
	if cfg.Scripting.Enabled {
		engine, err := scripting.NewEngine(cfg.Scripting.Dir, log.Named("lua"))
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
		deps.Policy = engine
		printOK("Lua tier policy loaded")
	}
	fmt.Println()

	// 4. Telemetry store
	if cfg.Telemetry.Enabled {
		printSection("Telemetry")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.Open(ctx, cfg.Telemetry, log)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		defer db.Close()
		printOK(fmt.Sprintf("%s connected", db.Driver))

		if err := persist.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("Migrations applied")

		repo := persist.NewStatsRepo(db)
		runID, err := repo.StartRun(ctx, persist.RunInfo{
			Name:        cfg.Simulation.Name,
			Started:     time.Unix(cfg.Simulation.StartTime, 0),
			MaxEntities: cfg.Simulation.MaxEntities,
			BaseRate:    cfg.Simulation.BaseRate,
			CellSize:    cfg.Spatial.CellSize,
			Rebucket:    cfg.Spatial.Rebucket,
		})
		if err != nil {
			return err
		}
		deps.Stats, deps.RunID = repo, runID
		printStat("Run", int(runID))
		fmt.Println()
	}

	// 5. Overlay
	var quit <-chan struct{}
	if useOverlay {
		ov, err := overlay.New()
		if err != nil {
			return err
		}
		defer ov.Close()
		deps.Drawer = ov
		quit = ov.Done()
	}

	// 6. Session and demo scenario
	printSection("World")
	session, err := system.NewSession(cfg, deps, log)
	if err != nil {
		return err
	}
	scenario := system.NewScenarioSystem(session, kinds, cfg.Simulation.Seed,
		cfg.Simulation.DemoShips, cfg.Simulation.DemoDebris, log.Named("scenario"))
	if err := scenario.Populate(); err != nil {
		return fmt.Errorf("populate: %w", err)
	}
	session.Register(scenario)
	printStat("Ships", len(session.Ctrl.ByKind(world.KindShip)))
	printStat("Debris", len(session.Ctrl.ByKind(world.KindDebris)))
	printStat("Pooled", session.Ctrl.Pool().Total())
	fmt.Println()

	// 7. Tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	ticker := time.NewTicker(session.TickInterval())
	defer ticker.Stop()

	printSection("Running")
	printReady(fmt.Sprintf("Tick loop started (tick: %s)", session.TickInterval()))
	fmt.Println()

	ticks := 0
	for {
		select {
		case <-ticker.C:
			session.Tick()
			ticks++
			if *maxTicks > 0 && ticks >= *maxTicks {
				log.Info("tick limit reached", zap.Int("ticks", ticks))
				return finish(session, useOverlay)
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			return finish(session, useOverlay)
		case <-quit:
			log.Info("overlay closed")
			return finish(session, useOverlay)
		}
	}
}

// finish flushes the session and prints the run summary. With the overlay up
// the summary goes to the log only; the screen is torn down after return.
func finish(s *system.Session, quiet bool) error {
	s.Shutdown()
	if quiet {
		return nil
	}
	st := s.Ctrl.Stats()
	p := message.NewPrinter(language.English)
	fmt.Println()
	printSection("Summary")
	p.Printf("  ticks %d · live %d · minted %d\n", st.Tick, st.Live, st.MintedIDs)
	p.Printf("  created %d · destroyed %d · rejected %d\n", st.Created, st.Destroyed, st.Rejected)
	p.Printf("  pool hits %d · misses %d\n", st.PoolHits, st.PoolMisses)
	p.Printf("  queries %d grid · %d deferred · %d slow\n", st.GridQueries, st.QueriesResolved, st.SlowQueries)
	p.Printf("  tick avg %v · max %v · overruns %d\n", st.AvgTick, st.MaxTick, st.Overruns)
	if s.Diag != nil {
		runs, violations := s.Diag.Totals()
		p.Printf("  integrity checks %d · violations %d\n", runs, violations)
	}
	return nil
}

// newLogger builds the zap logger. With the overlay active the terminal is
// owned by tcell, so output goes to simcore.log instead.
func newLogger(cfg config.LoggingConfig, toFile bool) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if toFile {
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		zapCfg.OutputPaths = []string{"simcore.log"}
		zapCfg.ErrorOutputPaths = []string{"simcore.log"}
	}

	return zapCfg.Build()
}
