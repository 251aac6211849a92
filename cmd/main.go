// HostBridge - host automation agent
// Executes input, screen capture and shell commands on behalf of a controller
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"hostbridge/internal/api"
	"hostbridge/internal/autostart"
	"hostbridge/internal/capture"
	"hostbridge/internal/config"
	"hostbridge/internal/input"
	"hostbridge/internal/metrics"
	"hostbridge/internal/network"
	"hostbridge/internal/osutils"
	"hostbridge/internal/protocol"
	"hostbridge/internal/router"
	"hostbridge/internal/shell"
	"hostbridge/internal/tray"
)

var (
	version     = "0.3.0"
	configPath  = pflag.String("config", "", "Path to the config file (.json, .yaml or .yml)")
	showVer     = pflag.Bool("version", false, "Show version")
	execCmd     = pflag.String("exec", "", "Run a shell command through the process engine and exit")
	captureTo   = pflag.String("capture", "", "Capture the screen to a PNG file and exit")
	screenSize  = pflag.Bool("screen-size", false, "Print the primary display size and exit")
	withTray    = pflag.Bool("tray", false, "Show the system tray icon")
	autostartTo = pflag.String("autostart", "", "Turn start on boot \"on\" or \"off\" and exit")
	logLevel    = pflag.String("log-level", "", "Log level (debug, info, warn, error); overrides the config")
)

func main() {
	pflag.Parse()

	if *showVer {
		fmt.Printf("hostbridge version %s\n", version)
		return
	}

	cfgMgr, err := config.NewManager(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize config: %v\n", err)
		os.Exit(1)
	}
	loadErr := cfgMgr.Load()
	cfg := cfgMgr.Get()

	log := newLogger(cfg.Agent.LogLevel)
	if loadErr != nil {
		log.Error().Err(loadErr).Str("path", cfgMgr.Path()).Msg("Config: failed to load")
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Str("path", cfgMgr.Path()).Msg("Config: invalid")
		os.Exit(2)
	}

	if err := osutils.Startup(log); err != nil {
		log.Warn().Err(err).Msg("Startup: platform initialization failed")
	}
	defer osutils.Shutdown()

	var code int
	switch {
	case *autostartTo != "":
		code = setAutostart(cfgMgr, *autostartTo, log)
	case *execCmd != "":
		code = runExec(cfg, *execCmd, log)
	case *captureTo != "":
		code = runCapture(*captureTo, log)
	case *screenSize:
		code = printScreenSize(log)
	default:
		runService(cfgMgr, log)
	}

	if code != 0 {
		osutils.Shutdown()
		os.Exit(code)
	}
}

func newLogger(level string) zerolog.Logger {
	if *logLevel != "" {
		level = *logLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var out zerolog.Logger
	if isatty.IsTerminal(os.Stderr.Fd()) {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	} else {
		out = zerolog.New(os.Stderr)
	}
	return out.Level(lvl).With().Timestamp().Logger()
}

func setAutostart(cfgMgr *config.Manager, mode string, log zerolog.Logger) int {
	var err error
	switch strings.ToLower(mode) {
	case "on":
		var args []string
		if *configPath != "" {
			args = append(args, "--config", cfgMgr.Path())
		}
		if cfgMgr.Get().General.Tray {
			args = append(args, "--tray")
		}
		err = autostart.Enable(args...)
	case "off":
		err = autostart.Disable()
	default:
		fmt.Fprintf(os.Stderr, "--autostart expects on or off, got %q\n", mode)
		return 2
	}
	if err != nil {
		log.Error().Err(err).Msg("Autostart: failed")
		return 1
	}

	enabled := autostart.IsEnabled()
	cfgMgr.Update(func(c *config.Config) { c.General.StartOnBoot = enabled })
	if err := cfgMgr.Save(); err != nil {
		log.Warn().Err(err).Msg("Config: failed to save")
	}
	fmt.Printf("Start on boot: %v\n", enabled)
	return 0
}

func runExec(cfg config.Config, command string, log zerolog.Logger) int {
	engine := shell.NewEngine(cfg.Process.Interpreter, log)
	out, err := engine.Execute(command, "")
	if err != nil {
		log.Error().Err(err).Msg("Exec: failed")
		return 1
	}
	fmt.Fprint(os.Stdout, out.Stdout)
	fmt.Fprint(os.Stderr, out.Stderr)
	return out.ExitCode
}

func runCapture(path string, log zerolog.Logger) int {
	if !capture.Supported {
		log.Error().Msg("Capture: not supported on this platform")
		return 1
	}
	png, err := capture.NewPipeline(capture.NewGrabber(), nil, log).Capture()
	if err != nil {
		log.Error().Err(err).Msg("Capture: failed")
		return 1
	}
	if err := os.WriteFile(path, png, 0644); err != nil {
		log.Error().Err(err).Msg("Capture: cannot write file")
		return 1
	}
	fmt.Printf("Wrote %d bytes to %s\n", len(png), path)
	return 0
}

func printScreenSize(log zerolog.Logger) int {
	if !capture.Supported {
		log.Error().Msg("Capture: not supported on this platform")
		return 1
	}
	size, err := capture.NewGrabber().ScreenSize()
	if err != nil {
		log.Error().Err(err).Msg("Capture: cannot read screen size")
		return 1
	}
	fmt.Printf("%dx%d\n", size.Width, size.Height)
	return 0
}

// buildRouter wires the engines enabled in cfg and available on this
// platform.
func buildRouter(cfg config.Config, journal *router.Journal, m *metrics.Registry, log zerolog.Logger) (*router.Router, *capture.Pipeline) {
	rc := router.Config{Journal: journal, Metrics: m}

	if cfg.Input.Enabled && input.Supported {
		rc.Input = input.NewEngine(input.NewBackend(), input.DefaultResolver(), log)
	} else {
		log.Info().Bool("enabled", cfg.Input.Enabled).Bool("supported", input.Supported).Msg("Service: input engine off")
	}

	var pipeline *capture.Pipeline
	if cfg.Capture.Enabled && capture.Supported {
		pipeline = capture.NewPipeline(capture.NewGrabber(), nil, log)
		rc.Capture = pipeline
	} else {
		log.Info().Bool("enabled", cfg.Capture.Enabled).Bool("supported", capture.Supported).Msg("Service: capture engine off")
	}

	if cfg.Process.Enabled {
		rc.Process = shell.NewEngine(cfg.Process.Interpreter, log)
	} else {
		log.Info().Msg("Service: process engine off")
	}

	return router.New(rc, log), pipeline
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func deviceType() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	default:
		return runtime.GOOS
	}
}

func runService(cfgMgr *config.Manager, log zerolog.Logger) {
	log.Info().Str("version", version).Msg("Service: starting")

	if cfgMgr.Get().Agent.DeviceName == "" {
		if host, err := os.Hostname(); err == nil {
			cfgMgr.Update(func(c *config.Config) { c.Agent.DeviceName = host })
		}
	}
	// Persist the generated device id and name.
	cfg := cfgMgr.Get()
	if err := cfgMgr.Save(); err != nil {
		log.Warn().Err(err).Msg("Config: failed to save")
	}

	m := metrics.Get()
	journal := router.NewJournal(cfg.Agent.JournalSize)
	rt, pipeline := buildRouter(cfg, journal, m, log)
	log.Info().Strs("capabilities", rt.Capabilities()).Msg("Service: engines ready")

	// Controller link
	var link *network.Link
	if cfg.Controller.Enabled {
		codec, err := protocol.CodecByName(cfg.Controller.Codec)
		if err != nil {
			log.Error().Err(err).Msg("Link: invalid codec, using json")
			codec = protocol.JSON
		}
		ip, _ := network.GetLocalIP()
		link = network.NewLink(network.LinkConfig{
			Address:           cfg.Controller.Address,
			Path:              cfg.Controller.Path,
			Token:             cfg.API.Token,
			Codec:             codec,
			ReconnectInterval: time.Duration(cfg.Controller.ReconnectInterval),
			Registration: protocol.DeviceRegisterData{
				DeviceID:     cfg.Agent.DeviceID,
				DeviceName:   cfg.Agent.DeviceName,
				DeviceType:   deviceType(),
				IPAddress:    ip,
				Version:      version,
				Capabilities: rt.Capabilities(),
			},
		}, rt, log)
	}

	// Local API
	var apiServer *api.Server
	if cfg.API.Enabled {
		if !isLoopback(cfg.API.Listen) {
			go func() {
				if err := osutils.EnsureFirewallRule(cfg.API.Port, log); err != nil {
					log.Warn().Err(err).Msg("Firewall: rule not applied")
				}
			}()
		}

		apiServer = api.NewServer(cfgMgr, rt, journal, m, log)
		apiServer.Version = version
		if link != nil {
			apiServer.LinkState = link.IsConnected
		}
		go func() {
			if err := apiServer.Start(); err != nil {
				log.Error().Err(err).Msg("API: server error")
			}
		}()
	}

	var t *tray.Tray
	var statusID int
	status := func(connected bool) string {
		switch {
		case link == nil:
			return "HostBridge: local only"
		case connected:
			return "HostBridge: connected to " + cfg.Controller.Address
		default:
			return "HostBridge: connecting to " + cfg.Controller.Address
		}
	}

	if link != nil {
		link.OnStateChange = func(connected bool) {
			m.SetControllerConnected(connected)
			if !connected {
				m.ControllerReconnect.Inc()
			}
			if t != nil {
				t.SetItemTitle(statusID, status(connected))
			}
		}
	}

	useTray := *withTray || cfg.General.Tray
	if useTray {
		t = tray.New("HostBridge "+version, log)
		statusID = t.AddLabel(status(false))
		t.AddSeparator()
		if pipeline != nil {
			t.AddMenuItem("Capture screen to file…", func() {
				dir, err := capture.PicturesDir()
				if err != nil {
					log.Error().Err(err).Msg("Tray: no home directory")
					return
				}
				if _, err := pipeline.SaveTo(dir, time.Now()); err != nil {
					log.Error().Err(err).Msg("Tray: capture failed")
				}
			})
			t.AddSeparator()
		}
		t.AddMenuItem("Quit", func() {
			t.Stop()
		})
	}

	if link != nil {
		link.Start()
	}

	shutdown := func() {
		log.Info().Msg("Service: shutting down")
		if link != nil {
			link.Close()
		}
		if apiServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := apiServer.Shutdown(ctx); err != nil {
				log.Warn().Err(err).Msg("API: shutdown incomplete")
			}
		}
	}

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if t != nil {
		go func() {
			<-sigCh
			t.Stop()
		}()
		log.Info().Msg("Service: running with tray")
		t.Run()
	} else {
		log.Info().Msg("Service: running. Press Ctrl+C to stop.")
		<-sigCh
	}
	shutdown()
}
