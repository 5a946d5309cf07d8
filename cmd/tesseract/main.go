package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/tesseract/internal/admin"
	"github.com/banshee-data/tesseract/internal/config"
	"github.com/banshee-data/tesseract/internal/connectivity"
	"github.com/banshee-data/tesseract/internal/debounce"
	"github.com/banshee-data/tesseract/internal/ingest"
	"github.com/banshee-data/tesseract/internal/monitoring"
	"github.com/banshee-data/tesseract/internal/presentation"
	"github.com/banshee-data/tesseract/internal/router"
	"github.com/banshee-data/tesseract/internal/targets"
	"github.com/banshee-data/tesseract/internal/timeutil"
	"github.com/banshee-data/tesseract/internal/tui"
	"github.com/banshee-data/tesseract/internal/version"
)

var (
	configPath  = flag.String("config", config.DefaultConfigPath, "Path to the router config, .json or .yaml (empty uses built-in defaults)")
	udpPort     = flag.Int("udp-port", 0, "UDP port for orientation readings (0 uses the config value)")
	udpAddr     = flag.String("udp-addr", "", "Host to bind the UDP receiver to (empty binds all interfaces)")
	listen      = flag.String("listen", ":8080", "Debug HTTP listen address (empty disables the server)")
	serialPath  = flag.String("serial", "", "Read readings from a wired sensor on this serial port instead of UDP")
	pcapPath    = flag.String("pcap", "", "Replay readings from a pcap/pcapng capture instead of UDP")
	replaySpeed = flag.Float64("replay-speed", 1.0, "Replay speed multiplier for -pcap (0 = as fast as possible)")
	tuiMode     = flag.Bool("tui", false, "Render the presentation surfaces in the terminal")
	logFile     = flag.String("log-file", "tesseract.log", "Log destination while -tui is active")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// source is a reading producer the binary can stop on shutdown.
type source interface {
	Start(ctx context.Context) error
	Stop()
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *replaySpeed < 0 {
		log.Fatal("-replay-speed must be non-negative")
	}
	if *tuiMode && !term.IsTerminal(os.Stdout.Fd()) {
		log.Print("stdout is not a terminal, ignoring -tui")
		*tuiMode = false
	}

	if *tuiMode {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatalf("failed to open log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}
	log.Printf("starting %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := timeutil.RealClock{}
	maxFace := cfg.GetMaxFace()

	zeroPolicy, err := debounce.ParseZeroPolicy(cfg.GetZeroPolicy())
	if err != nil {
		log.Fatalf("invalid zero policy: %v", err)
	}
	holdPolicy, err := presentation.ParseHoldPolicy(cfg.GetHoldPolicy())
	if err != nil {
		log.Fatalf("invalid hold policy: %v", err)
	}

	reg, err := targets.NewRegistry(maxFace, buildSlots(cfg))
	if err != nil {
		log.Fatalf("failed to build target registry: %v", err)
	}
	switcher := targets.NewSwitcher(reg, targets.SwitcherConfig{
		SettleInterval: settleInterval(cfg),
		Clock:          clock,
	})
	switcher.DeactivateAll()

	machineCfg := presentation.MachineConfig{
		SplashIntro:    cfg.GetSplashIntro(),
		SplashHold:     cfg.GetSplashHold(),
		TransitionHold: cfg.GetTransitionHold(),
		HoldPolicy:     holdPolicy,
	}
	var surfaces *tui.Surfaces
	if *tuiMode {
		surfaces = tui.NewSurfaces()
		surfaces.Attach(&machineCfg)
	} else {
		machineCfg.Surfaces = presentation.LogSurfaces()
		machineCfg.Blur = presentation.NewLogSurface("blur")
		machineCfg.SplashSubtitle = presentation.NewLogSurface("splash subtitle")
	}
	machine := presentation.NewMachine(machineCfg, clock.Now())

	cell := &ingest.ReadingCell{}
	rt, err := router.New(router.Config{TickInterval: cfg.GetTickInterval()}, router.Deps{
		Cell:     cell,
		Filter:   debounce.New(debounce.Config{Threshold: cfg.GetStabilityThreshold(), ZeroPolicy: zeroPolicy}),
		Monitor:  connectivity.New(cfg.GetConnectivityTimeout()),
		Switcher: switcher,
		Machine:  machine,
		Clock:    clock,
	})
	if err != nil {
		log.Fatalf("failed to create router: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	// Start failures degrade to NotConnected rather than exiting.
	src, stats := newSource(cfg, cell, clock)
	if src != nil {
		if err := src.Start(gctx); err != nil {
			monitoring.Warnf("[ingest] source unavailable, running degraded: %v", err)
			rt.SetIngestError(err)
		} else {
			defer src.Stop()
			if *serialPath != "" {
				g.Go(func() error {
					logStatsEvery(gctx, stats, cfg.GetStatsInterval())
					return nil
				})
			}
		}
	} else {
		g.Go(func() error {
			res, err := ingest.ReplayPCAP(gctx, *pcapPath, ingest.ReplayConfig{
				UDPPort:  udpPortFor(cfg),
				MaxValue: maxFace,
				Speed:    *replaySpeed,
				Stats:    stats,
				Cell:     cell,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				monitoring.Warnf("[ingest] replay of %s failed: %v", *pcapPath, err)
				rt.SetIngestError(err)
				return nil
			}
			log.Printf("replay finished: %d packets, %d accepted, %d rejected", res.Packets, res.Accepted, res.Rejected)
			stats.LogStats()
			return nil
		})
	}

	g.Go(func() error {
		defer log.Print("router routine terminated")
		if err := rt.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("router loop: %w", err)
		}
		return nil
	})

	if *listen != "" {
		g.Go(func() error {
			serveDebug(gctx, *listen, admin.NewServer(rt, machine, maxFace))
			return nil
		})
	}

	if *tuiMode {
		p := tea.NewProgram(tui.NewModel(rt, surfaces, maxFace), tea.WithAltScreen(), tea.WithContext(gctx))
		if _, err := p.Run(); err != nil && gctx.Err() == nil {
			log.Printf("terminal UI error: %v", err)
		}
		stop()
	}

	if err := g.Wait(); err != nil {
		log.Printf("shutdown after error: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}

// loadConfig reads the config at path. An empty path, or the default path
// when that file does not exist, yields the built-in defaults.
func loadConfig(path string) (*config.RouterConfig, error) {
	if path == "" {
		return &config.RouterConfig{}, nil
	}
	cfg, err := config.LoadRouterConfig(path)
	if err != nil && path == config.DefaultConfigPath && errors.Is(err, fs.ErrNotExist) {
		monitoring.Warnf("[config] %s not found, using built-in defaults", path)
		return &config.RouterConfig{}, nil
	}
	return cfg, err
}

// buildSlots binds a LoggingTarget to every configured face. Without any
// projects every face gets a placeholder named face-N; once projects are
// configured, faces without one stay unassigned.
func buildSlots(cfg *config.RouterConfig) []targets.Slot {
	slots := make([]targets.Slot, cfg.GetMaxFace())
	for i := range slots {
		p, ok := cfg.ProjectFor(i + 1)
		if !ok {
			if len(cfg.Projects) == 0 {
				name := fmt.Sprintf("face-%d", i+1)
				slots[i] = targets.Slot{Target: targets.NewLoggingTarget(name), Project: targets.Project{Name: name}}
			}
			continue
		}
		slots[i] = targets.Slot{
			Target: targets.NewLoggingTarget(p.Name),
			Project: targets.Project{
				Name:        p.Name,
				CreatorName: p.CreatorName,
				CreatorURL:  p.CreatorURL,
				Description: p.Description,
			},
		}
	}
	return slots
}

// settleInterval maps a configured zero to the switcher's "no settle" value.
func settleInterval(cfg *config.RouterConfig) time.Duration {
	if d := cfg.GetSettleInterval(); d > 0 {
		return d
	}
	return -1
}

func udpPortFor(cfg *config.RouterConfig) int {
	if *udpPort > 0 {
		return *udpPort
	}
	return cfg.GetUDPPort()
}

func udpAddress(cfg *config.RouterConfig) string {
	return net.JoinHostPort(*udpAddr, strconv.Itoa(udpPortFor(cfg)))
}

// newSource picks the reading source from the flags. A nil source means
// pcap replay, which runs to completion on its own goroutine.
func newSource(cfg *config.RouterConfig, cell *ingest.ReadingCell, clock timeutil.Clock) (source, *ingest.PacketStats) {
	switch {
	case *pcapPath != "":
		return nil, ingest.NewPacketStats("pcap", clock)
	case *serialPath != "":
		stats := ingest.NewPacketStats("serial", clock)
		return ingest.NewSerialSource(ingest.SerialConfig{
			Path:     *serialPath,
			Options:  ingest.PortOptions{BaudRate: cfg.GetSerialBaudRate()},
			MaxValue: cfg.GetMaxFace(),
			Stats:    stats,
			Cell:     cell,
		}), stats
	}
	stats := ingest.NewPacketStats("udp", clock)
	return ingest.NewReceiver(ingest.ReceiverConfig{
		Address:     udpAddress(cfg),
		MaxValue:    cfg.GetMaxFace(),
		ReadTimeout: cfg.GetReadTimeout(),
		RcvBuf:      cfg.GetRcvBuf(),
		LogInterval: cfg.GetStatsInterval(),
		Stats:       stats,
		Cell:        cell,
	}), stats
}

func logStatsEvery(ctx context.Context, stats ingest.StatsRecorder, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats.LogStats()
		}
	}
}

func serveDebug(ctx context.Context, addr string, routes *admin.Server) {
	mux := http.NewServeMux()
	routes.AttachAdminRoutes(mux)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			monitoring.Warnf("[http] debug server unavailable: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
}
