// Command cdc-sniffer decodes the radio-to-changer data line of a VAG CD
// changer bus and publishes the commands it sees to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/sweeney/cdc-sniffer/internal/capture"
	"github.com/sweeney/cdc-sniffer/internal/cdc"
	"github.com/sweeney/cdc-sniffer/internal/config"
	"github.com/sweeney/cdc-sniffer/internal/gpio"
	"github.com/sweeney/cdc-sniffer/internal/metrics"
	"github.com/sweeney/cdc-sniffer/internal/mqtt"
	"github.com/sweeney/cdc-sniffer/internal/session"
	"github.com/sweeney/cdc-sniffer/internal/status"
	"github.com/sweeney/cdc-sniffer/internal/web"
)

func main() {
	cfg, err := parseFlags(pflag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "cdc-sniffer: %v\n", err)
		os.Exit(2)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "cdc-sniffer",
		ReportTimestamp: true,
	})
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal("bad log level", "level", cfg.LogLevel, "err", err)
	}
	logger.SetLevel(level)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("fatal", "err", err)
	}
}

// parseFlags loads the optional config file and then applies any flag the
// user set explicitly on top of it.
func parseFlags(fs *pflag.FlagSet, args []string) (config.Config, error) {
	def := config.Default()

	configPath := fs.String("config", "", "YAML config file (flags override it)")
	source := fs.String("source", def.Source, "Edge source: gpio, file or synth")
	chip := fs.String("chip", def.Chip, "GPIO chip")
	line := fs.Int("line", def.Line, "GPIO line offset of the DATA OUT signal")
	activeLow := fs.Bool("active-low", def.ActiveLow, "Invert the GPIO line")
	bias := fs.String("bias", def.Bias, "GPIO bias: none, pull-up or pull-down")
	sampleRate := fs.Float64("sample-rate", def.SampleRate, "Sample rate in Hz")
	file := fs.String("file", def.File, "Capture file (one byte per sample) for --source=file")
	channel := fs.Uint("channel", def.Channel, "Channel bit within each capture byte")
	commands := fs.String("commands", def.Commands, "YAML command table (code: description)")
	broker := fs.String("broker", def.Broker, "MQTT broker address (empty to disable)")
	heartbeat := fs.Duration("heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	httpAddr := fs.String("http", def.HTTPAddr, "HTTP status address (empty to disable)")
	logLevel := fs.String("log-level", def.LogLevel, "Log level: debug, info, warn, error")
	printAnns := fs.Bool("print", def.Print, "Print annotations to stdout")
	rows := fs.StringSlice("rows", def.Rows, "Annotation rows to print: bits, bytes, commands")

	if err := fs.Parse(args); err != nil {
		return def, err
	}

	cfg := def
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return def, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "source":
			cfg.Source = *source
		case "chip":
			cfg.Chip = *chip
		case "line":
			cfg.Line = *line
		case "active-low":
			cfg.ActiveLow = *activeLow
		case "bias":
			cfg.Bias = *bias
		case "sample-rate":
			cfg.SampleRate = *sampleRate
		case "file":
			cfg.File = *file
		case "channel":
			cfg.Channel = *channel
		case "commands":
			cfg.Commands = *commands
		case "broker":
			cfg.Broker = *broker
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "log-level":
			cfg.LogLevel = *logLevel
		case "print":
			cfg.Print = *printAnns
		case "rows":
			cfg.Rows = *rows
		}
	})

	return cfg, cfg.Validate()
}

func run(cfg config.Config, logger *log.Logger) error {
	sessionID := uuid.NewString()

	table := cdc.DefaultCommands()
	if cfg.Commands != "" {
		t, err := cdc.LoadCommandsFile(cfg.Commands)
		if err != nil {
			return fmt.Errorf("load commands: %w", err)
		}
		table = t
		logger.Info("loaded command table", "path", cfg.Commands, "entries", len(table))
	}

	src, err := openSource(cfg, table)
	if err != nil {
		return fmt.Errorf("open %s source: %w", cfg.Source, err)
	}
	defer src.Close()

	// Initialize MQTT
	var publisher mqtt.Publisher = discardPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if cfg.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.Broker, "cdc-sniffer-"+sessionID[:8], logger)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher, mqttStatus = p, p
	}
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	m.SetSampleRate(src.SampleRate())

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(sessionID, time.Now(), status.Config{
		Source:      cfg.Source,
		SampleRate:  src.SampleRate(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
	})
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		logger.Warn("failed to publish startup event", "err", err)
	} else {
		logger.Debug("published startup event")
	}

	var broadcast func([]byte)
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, reg, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		broadcast = srv.Broadcast
		logger.Info("http status server listening", "addr", cfg.HTTPAddr)
	}

	var pr *printer
	if cfg.Print {
		pr = newPrinter(os.Stdout, cfg.Rows)
	}

	logger.Info("started",
		"session", sessionID,
		"source", cfg.Source,
		"rate", src.SampleRate(),
		"broker", cfg.Broker,
		"heartbeat", cfg.Heartbeat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, done := start(ctx, session.New(src, table, logger))

	var hbTick <-chan time.Time
	if cfg.Heartbeat > 0 {
		ticker := time.NewTicker(cfg.Heartbeat)
		defer ticker.Stop()
		hbTick = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		session:    sessionID,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		metrics:    m,
		printer:    pr,
		broadcast:  broadcast,
		logger:     logger,
		now:        time.Now,
	}
	return l.run(updates, done, hbTick, sigCh)
}

// openSource builds the edge source named by cfg.Source.
func openSource(cfg config.Config, table cdc.CommandTable) (gpio.Source, error) {
	switch cfg.Source {
	case config.SourceGPIO:
		lc, err := cfg.LineConfig()
		if err != nil {
			return nil, err
		}
		src, err := gpio.NewRealSource(lc)
		if err != nil {
			return nil, err
		}
		return src, nil

	case config.SourceFile:
		f, err := os.Open(cfg.File)
		if err != nil {
			return nil, err
		}
		r, err := capture.NewReader(f, cfg.Channel, cfg.SampleRate)
		if err != nil {
			f.Close()
			return nil, err
		}
		return r, nil

	case config.SourceSynth:
		edges, err := capture.Synthesize(cfg.SampleRate, synthFrames(table)...)
		if err != nil {
			return nil, err
		}
		return gpio.NewReplay(cfg.SampleRate, edges), nil
	}
	return nil, fmt.Errorf("unknown source %q", cfg.Source)
}

// synthFrames is one well-formed frame per known command, in code order,
// followed by a frame with a broken checksum.
func synthFrames(table cdc.CommandTable) [][cdc.FrameBytes]uint8 {
	codes := make([]int, 0, len(table))
	for code := range table {
		codes = append(codes, int(code))
	}
	sort.Ints(codes)

	frames := make([][cdc.FrameBytes]uint8, 0, len(codes)+1)
	for _, c := range codes {
		frames = append(frames, capture.Command(uint8(c)))
	}
	return append(frames, [cdc.FrameBytes]uint8{0xCA, 0x34, 0x00, 0x00})
}

// start runs s on its own goroutine. updates is closed when Run returns;
// done then yields Run's error.
func start(ctx context.Context, s *session.Session) (<-chan session.Update, <-chan error) {
	updates := make(chan session.Update, 64)
	done := make(chan error, 1)
	go func() {
		err := s.Run(ctx, func(u session.Update) {
			select {
			case updates <- u:
			case <-ctx.Done():
			}
		})
		close(updates)
		done <- err
	}()
	return updates, done
}

// discardPublisher stands in when no broker is configured.
type discardPublisher struct{}

func (discardPublisher) Publish(mqtt.FrameEvent) error        { return nil }
func (discardPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (discardPublisher) Close() error                         { return nil }
