package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emg-monitor.klederson.com/internal/app"
	"emg-monitor.klederson.com/internal/config"
	"emg-monitor.klederson.com/internal/emg"
	"emg-monitor.klederson.com/internal/logging"
	"emg-monitor.klederson.com/internal/sensor"
	"emg-monitor.klederson.com/internal/server"
	"emg-monitor.klederson.com/internal/telemetry"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagDemo           bool
	flagDevice         string
	flagService        string
	flagCharacteristic string
	flagRate           int
	flagParams         string
	flagLogLevel       string
	flagLogFile        string

	flagListen    string
	flagMQTT      string
	flagMQTTTopic string
	flagAutostart bool

	flagScanTimeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "emg-monitor",
		Short: "EMG Monitor - Terminal muscle strength and fatigue monitor",
		Long: `EMG Monitor streams surface EMG from a Bluetooth LE sensor, computes
RMS, peak amplitude and median frequency over a rolling buffer and fuses
them with user calibration into strength and fatigue readings.

Requires sudo or CAP_NET_ADMIN capability for real Bluetooth sensors.
Use --demo flag for a synthetic signal without hardware.`,
		SilenceUsage: true,
		RunE:         runMonitor,
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flagDemo, "demo", false, "Use a synthetic EMG signal (no Bluetooth required)")
	pf.StringVar(&flagDevice, "device", "", "Sensor local name or address")
	pf.StringVar(&flagService, "service", "", "Service UUID carrying EMG notifications")
	pf.StringVar(&flagCharacteristic, "characteristic", "", "Characteristic UUID carrying EMG notifications")
	pf.IntVar(&flagRate, "rate", config.DemoSampleRateHz, "Demo sample rate in Hz (500, 1000 or 2000)")
	pf.StringVar(&flagParams, "params", "", "TOML file with fusion parameters, watched for changes")
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&flagLogFile, "log-file", "", "Write logs to this file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run headless with a websocket feed, prometheus metrics and optional MQTT publishing",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&flagListen, "listen", ":8080", "HTTP listen address")
	serveCmd.Flags().StringVar(&flagMQTT, "mqtt", "", "MQTT broker address (host:port) to publish readings to")
	serveCmd.Flags().StringVar(&flagMQTTTopic, "mqtt-topic", telemetry.DefaultTopic, "MQTT topic for readings")
	serveCmd.Flags().BoolVar(&flagAutostart, "autostart", true, "Start streaming immediately")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "List nearby Bluetooth LE peripherals",
		RunE:  runScan,
	}
	scanCmd.Flags().DurationVar(&flagScanTimeout, "timeout", config.ScanTimeout, "Scan duration")

	rootCmd.AddCommand(serveCmd, scanCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging configures the default logger. fallback is used when no log
// file is given.
func setupLogging(fallback io.Writer) (func(), error) {
	if flagLogFile == "" {
		logging.Configure(fallback, flagLogLevel)
		return func() {}, nil
	}
	f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logging.Configure(f, flagLogLevel)
	return func() { _ = f.Close() }, nil
}

func newSource(logger zerolog.Logger) (sensor.Source, string, error) {
	if flagDemo {
		return sensor.NewDemoSource(sensor.WithRate(flagRate), sensor.WithDemoLogger(logger)),
			fmt.Sprintf("demo %dHz", flagRate), nil
	}
	if flagDevice == "" {
		return nil, "", errors.New("--device is required unless --demo is set (run 'emg-monitor scan' to find it)")
	}
	cfg := sensor.BLEConfig{
		Device:         flagDevice,
		Service:        flagService,
		Characteristic: flagCharacteristic,
	}
	return sensor.NewBLESource(cfg, logger), flagDevice, nil
}

// loadParams reads the params file, creating it with defaults when missing.
func loadParams(logger zerolog.Logger) config.Params {
	if flagParams == "" {
		return config.DefaultParams()
	}
	p, err := config.LoadParams(flagParams)
	if errors.Is(err, os.ErrNotExist) {
		if err := config.SaveParams(flagParams, p); err != nil {
			logger.Warn().Err(err).Msg("create params file")
		}
		return p
	}
	if err != nil {
		logger.Warn().Err(err).Str("path", flagParams).Msg("params file unreadable, using defaults")
	}
	return p
}

func newScheduler(logger zerolog.Logger, params config.Params) *emg.Scheduler {
	return emg.NewScheduler(
		emg.WithLogger(logger),
		emg.WithParams(params),
		emg.WithObserver(telemetry.NewMetrics(prometheus.DefaultRegisterer)),
	)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	// the alt screen owns the terminal, so logs go to the file or nowhere
	closeLog, err := setupLogging(io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := *logging.GetDefaultLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source, name, err := newSource(logger)
	if err != nil {
		return err
	}
	sched := newScheduler(logger, loadParams(logger))
	defer sched.Close()

	model := app.New(sched, source, name,
		app.WithParamsPath(flagParams),
		app.WithLogger(logger),
	)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithFPS(config.TargetFPS),
		tea.WithContext(ctx),
	)

	if err := model.StartSource(ctx); err != nil {
		if !flagDemo {
			fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
			fmt.Fprintln(os.Stderr, "Bluetooth access requires elevated permissions.")
			fmt.Fprintln(os.Stderr, "Try one of:")
			fmt.Fprintln(os.Stderr, "  sudo ./emg-monitor --device <name>")
			fmt.Fprintln(os.Stderr, "  sudo setcap cap_net_admin+ep ./emg-monitor")
			fmt.Fprintln(os.Stderr, "  ./emg-monitor --demo    (synthetic signal, no hardware needed)")
		}
		return err
	}
	defer model.StopSource()

	if flagParams != "" {
		go func() {
			err := config.WatchParams(ctx, flagParams, logger, func(params config.Params) {
				sched.SetParams(params)
				p.Send(app.ParamsReloadedMsg{})
			})
			if err != nil {
				p.Send(app.SourceErrorMsg{Err: err})
			}
		}()
	}

	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func runServe(cmd *cobra.Command, args []string) error {
	closeLog, err := setupLogging(os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := *logging.GetDefaultLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source, name, err := newSource(logger)
	if err != nil {
		return err
	}
	sched := newScheduler(logger, loadParams(logger))
	defer sched.Close()

	if err := source.Start(ctx, sched); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	defer func() {
		if err := source.Stop(); err != nil {
			logger.Warn().Err(err).Msg("stop source")
		}
	}()

	if flagAutostart {
		sched.Start()
	}

	if flagParams != "" {
		go func() {
			if err := config.WatchParams(ctx, flagParams, logger, sched.SetParams); err != nil {
				logger.Error().Err(err).Msg("params watcher stopped")
			}
		}()
	}

	if flagMQTT != "" {
		pub, err := telemetry.Dial(ctx, flagMQTT,
			telemetry.WithTopic(flagMQTTTopic),
			telemetry.WithPublisherLogger(logger),
		)
		if err != nil {
			return err
		}
		defer pub.Close()
		go func() {
			if err := pub.Run(ctx, sched); err != nil {
				logger.Error().Err(err).Msg("mqtt publisher stopped")
			}
		}()
	}

	mainLog := logging.Component("main")
	srv := &http.Server{
		Addr:              flagListen,
		Handler:           server.New(sched, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		mainLog.Info().Str("listen", flagListen).Str("source", name).Msg("serving")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	mainLog.Info().Msg("stopped")
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintf(os.Stderr, "Scanning for %s...\n", flagScanTimeout)
	peripherals, err := sensor.Discover(ctx, flagScanTimeout)
	if err != nil {
		return err
	}

	fmt.Printf("%-17s  %6s  %s\n", "ADDRESS", "RSSI", "NAME")
	for _, p := range peripherals {
		fmt.Printf("%-17s  %6.0f  %s\n", p.Address, p.RSSI, p.DisplayName())
	}
	fmt.Fprintf(os.Stderr, "%d peripherals\n", len(peripherals))
	return nil
}
