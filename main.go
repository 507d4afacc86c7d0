package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"solar-watch/internal/config"
	"solar-watch/internal/daylight"
	"solar-watch/internal/heartbeat"
	"solar-watch/internal/monitoring/application"
	monitoring "solar-watch/internal/monitoring/domain"
	"solar-watch/internal/monitoring/notify"
	"solar-watch/internal/observability/metrics"
	"solar-watch/internal/telemetry"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(logger).ExecuteContext(ctx); err != nil {
		logger.Printf("solar-watch: %v", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand(logger *log.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "solar-watch",
		Short: "Watch a solar inverter for lost output and stalled daily energy",
		Long: `solar-watch polls the inverter vendor API during daylight and sends a
message when output drops to zero or the daily energy counter stops
increasing for longer than the configured threshold.

Configuration is read from the environment, optionally on top of the YAML
file named by MONITOR_CONFIG.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd.Context(), logger)
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "once",
			Short: "Run a single monitoring cycle and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOnce(cmd.Context(), cmd, logger)
			},
		},
		&cobra.Command{
			Use:   "window",
			Short: "Print today's monitoring window and the next opening",
			RunE: func(cmd *cobra.Command, args []string) error {
				return printWindow(cmd)
			},
		},
	)
	return root
}

type app struct {
	cfg         config.Config
	window      *daylight.Window
	broadcaster *notify.Broadcaster
	gates       *notify.Gates
	notifier    *notify.Notifier
	monitor     *application.Monitor
}

func buildApp(cfg config.Config, logger *log.Logger) (*app, error) {
	window, err := newWindow(cfg)
	if err != nil {
		return nil, err
	}
	source, err := telemetry.NewClient(cfg.TelemetryBaseURL,
		telemetry.WithHTTPClient(&http.Client{Transport: vendorTransport()}),
		telemetry.WithTimeout(cfg.HTTPTimeout),
	)
	if err != nil {
		return nil, err
	}
	detector, err := monitoring.NewDetector(monitoring.DetectorConfig{
		PollInterval:     cfg.PollInterval,
		PowerEnabled:     cfg.PowerAlertEnabled,
		PowerAlertAfter:  cfg.PowerAlertAfter,
		EnergyEnabled:    cfg.EnergyAlertEnabled,
		EnergyAlertAfter: cfg.EnergyAlertAfter,
	})
	if err != nil {
		return nil, err
	}
	destinations, err := notify.ParseDestinations(cfg.Destinations, notify.DestinationOptions{
		TelegramToken:  cfg.TelegramToken,
		TelegramAPIURL: cfg.TelegramAPIURL,
		Timeout:        cfg.HTTPTimeout,
	})
	if err != nil {
		return nil, err
	}
	broadcaster, err := notify.NewBroadcaster(destinations,
		notify.WithSendTimeout(cfg.HTTPTimeout),
		notify.WithBroadcastLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	gates := notify.NewGates(cfg.AlertCooldown, cfg.SharedCooldown)
	notifier, err := notify.NewNotifier(broadcaster, gates,
		notify.WithPlant(cfg.PlantID),
		notify.WithLocation(cfg.Location),
		notify.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	monitor, err := application.NewMonitor(window, source, detector, notifier, cfg.PlantID,
		application.WithHeartbeat(heartbeat.NewPinger(cfg.HeartbeatURL, cfg.HTTPTimeout)),
		application.WithCallTimeout(cfg.HTTPTimeout),
		application.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:         cfg,
		window:      window,
		broadcaster: broadcaster,
		gates:       gates,
		notifier:    notifier,
		monitor:     monitor,
	}, nil
}

// vendorTransport keeps one idle connection to the vendor API between polls.
func vendorTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 1,
		IdleConnTimeout:     15 * time.Minute,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

func newWindow(cfg config.Config) (*daylight.Window, error) {
	return daylight.New(daylight.Config{
		Latitude:    cfg.Latitude,
		Longitude:   cfg.Longitude,
		StartBuffer: cfg.SunriseBuffer,
		EndBuffer:   cfg.SunsetBuffer,
		Location:    cfg.Location,
	})
}

func runMonitor(ctx context.Context, logger *log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	metrics.Init()
	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	logger.Printf("solar-watch starting: plant=%s poll=%s destinations=%d power_alert=%v energy_alert=%v shared_cooldown=%v",
		cfg.PlantID, cfg.PollInterval, a.broadcaster.Destinations(), cfg.PowerAlertEnabled, cfg.EnergyAlertEnabled, a.gates.Shared())

	if cfg.NotifyStartup {
		start, end, ok := a.window.Bounds(time.Now())
		a.notifier.NotifyStartup(ctx, notify.StartupInfo{
			PollInterval: cfg.PollInterval,
			Destinations: a.broadcaster.Destinations(),
			WindowStart:  start,
			WindowEnd:    end,
			WindowOK:     ok,
		})
	}

	var server *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/healthz", healthHandler(a.monitor, 3*cfg.PollInterval))
		server = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           loggingMiddleware(mux, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Printf("http listening on %s", cfg.MetricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("http server error: %v", err)
			}
		}()
	}

	scheduler, err := application.NewScheduler(a.monitor, cfg.PollInterval, logger)
	if err != nil {
		return err
	}
	scheduler.Start(ctx)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("http shutdown error: %v", err)
		}
	}
	logger.Printf("solar-watch stopped")
	return nil
}

func runOnce(ctx context.Context, cmd *cobra.Command, logger *log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	result := a.monitor.RunCycle(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "cycle=%s status=%s events=%d\n", result.ID, result.Status, len(result.Events))
	return result.Err
}

func printWindow(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	window, err := newWindow(cfg)
	if err != nil {
		return err
	}
	now := time.Now().In(window.Location())
	out := cmd.OutOrStdout()
	if start, end, ok := window.Bounds(now); ok {
		fmt.Fprintf(out, "today: %s - %s\n", start.In(window.Location()).Format(time.RFC3339), end.In(window.Location()).Format(time.RFC3339))
	} else {
		fmt.Fprintln(out, "today: no window")
	}
	fmt.Fprintf(out, "active: %v\n", window.IsActive(now))
	if next, ok := window.NextOpen(now); ok {
		fmt.Fprintf(out, "next open: %s\n", next.In(window.Location()).Format(time.RFC3339))
	} else {
		fmt.Fprintln(out, "next open: none within a year")
	}
	return nil
}

type successReporter interface {
	LastSuccess() (time.Time, bool)
}

// healthHandler reports unhealthy until the first cycle completes and
// whenever the last successful cycle is older than maxAge.
func healthHandler(monitor successReporter, maxAge time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last, ok := monitor.LastSuccess()
		if !ok {
			http.Error(w, "no successful cycle yet", http.StatusServiceUnavailable)
			return
		}
		age := time.Since(last).Round(time.Second)
		if maxAge > 0 && age > maxAge {
			http.Error(w, fmt.Sprintf("last successful cycle %s ago", age), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "ok last_success_age=%s", age)
	})
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
