// Command washer runs the fixed wash program on a relay-driven washing
// machine and reports progress over MQTT, HTTP and DogStatsD.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/washer-sequencer/internal/config"
	"github.com/sweeney/washer-sequencer/internal/gpio"
	"github.com/sweeney/washer-sequencer/internal/logging"
	"github.com/sweeney/washer-sequencer/internal/metrics"
	"github.com/sweeney/washer-sequencer/internal/mqtt"
	"github.com/sweeney/washer-sequencer/internal/program"
	"github.com/sweeney/washer-sequencer/internal/sequencer"
	"github.com/sweeney/washer-sequencer/internal/status"
	"github.com/sweeney/washer-sequencer/internal/web"
)

const httpShutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if errors.Is(err, config.ErrHelp) {
		return nil
	} else if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	closeLog, err := logging.Init(level, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closeLog()

	// Initialize GPIO
	board, err := gpio.Open(cfg.Chip, cfg.Pins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := board.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to release gpio lines")
		}
	}()

	// Print state mode
	if cfg.PrintState {
		full, err := board.Level.Asserted()
		if err != nil {
			return fmt.Errorf("read water level: %w", err)
		}
		fmt.Printf("Level: %s\n", levelString(full))
		return nil
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), len(program.Standard()), cfg.Status())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	observers := sequencer.Observers{tracker, newLogObserver()}

	d := &daemon{
		led:       board.Status,
		tracker:   tracker,
		heartbeat: cfg.Heartbeat,
		now:       time.Now,
	}

	// Initialize MQTT
	if cfg.Broker != "" {
		publisher, err := mqtt.NewRealPublisher(cfg.Broker, clientID())
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer publisher.Close()
		d.publisher = publisher
		d.mqttStatus = publisher
		observers = append(observers, mqtt.NewObserver(publisher))
	}

	// Initialize metrics
	if cfg.Statsd != "" {
		rec, err := metrics.New(cfg.Statsd, []string{"service:washer"})
		if err != nil {
			log.Warn().Err(err).Msg("metrics disabled")
		} else {
			defer rec.Close()
			d.metrics = rec
			observers = append(observers, rec)
		}
	}

	// Start HTTP status server
	if cfg.HTTP != "" {
		live := web.NewLive()
		observers = append(observers, live)
		srv := web.New(cfg.HTTP, tracker, live)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer shutdownHTTP(srv)
		log.Info().Str("addr", cfg.HTTP).Msg("http status server listening")
	}

	d.seq = sequencer.FromBoard(board,
		sequencer.WithFillTimeout(cfg.FillTimeout),
		sequencer.WithPollInterval(cfg.Poll),
		sequencer.WithObserver(observers),
	)

	log.Info().
		Str("chip", cfg.Chip).
		Dur("fill_timeout", cfg.FillTimeout).
		Dur("poll", cfg.Poll).
		Str("broker", cfg.Broker).
		Dur("program", program.Duration(program.Standard())).
		Msg("started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ctx, cancel := notifyContext(context.Background(), sigCh)
	defer cancel(nil)

	return d.run(ctx)
}

// daemon runs one wash program and then idles until shutdown.
type daemon struct {
	seq        *sequencer.CycleSequencer
	led        gpio.Output
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	metrics    *metrics.Recorder
	heartbeat  time.Duration
	now        func() time.Time
}

// run executes the program. A failed phase drives the machine to its safe
// state, publishes FAULT and returns the error. A completed program
// publishes COMPLETE and blinks the status LED until ctx ends.
func (d *daemon) run(ctx context.Context) error {
	d.publishSystem("STARTUP", "")

	if err := d.seq.Run(ctx); err != nil {
		if safeErr := d.seq.SafeState(); safeErr != nil {
			log.Error().Err(safeErr).Msg("failed to reach safe state")
		}

		if ctx.Err() != nil {
			reason := shutdownReason(ctx)
			log.Info().Str("reason", reason).Msg("program interrupted")
			d.tracker.SetState(status.StateStopped)
			d.publishSystem("SHUTDOWN", reason)
			return nil
		}

		log.Error().Err(err).Msg("program failed")
		d.tracker.SetFault(err.Error())
		d.publishSystem("FAULT", faultReason(err))
		return err
	}

	log.Info().Msg("program complete")
	d.tracker.SetState(status.StateComplete)
	if d.metrics != nil {
		d.metrics.ProgramCompleted()
	}
	d.publishSystem("COMPLETE", "")

	if d.heartbeat > 0 {
		if err := d.seq.Heartbeat(ctx, d.led, d.heartbeat); err != nil {
			log.Warn().Err(err).Msg("heartbeat stopped")
			<-ctx.Done()
		}
	} else {
		<-ctx.Done()
	}
	if err := d.led.Set(false); err != nil {
		log.Warn().Err(err).Msg("failed to switch status led off")
	}

	reason := shutdownReason(ctx)
	log.Info().Str("reason", reason).Msg("shutting down")
	d.tracker.SetState(status.StateStopped)
	d.publishSystem("SHUTDOWN", reason)
	return nil
}

// publishSystem sends a retained lifecycle event carrying the full status.
func (d *daemon) publishSystem(event, reason string) {
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	if d.publisher == nil {
		return
	}

	snap := d.tracker.Snapshot()
	e := mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := d.publisher.PublishSystem(e); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("failed to publish system event")
		return
	}
	log.Info().Str("event", event).Msg("published system event")
}

func faultReason(err error) string {
	if errors.Is(err, sequencer.ErrFillTimeout) {
		return "FILL_TIMEOUT"
	}
	return "HARDWARE_ERROR"
}

// signalError is the cancellation cause recorded when a signal arrives.
type signalError struct {
	sig os.Signal
}

func (e signalError) Error() string {
	return "received " + e.sig.String()
}

// notifyContext returns a context cancelled with a signalError cause when
// a signal arrives on sig.
func notifyContext(parent context.Context, sig <-chan os.Signal) (context.Context, context.CancelCauseFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	go func() {
		select {
		case s := <-sig:
			log.Info().Str("signal", s.String()).Msg("received signal")
			cancel(signalError{sig: s})
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func shutdownReason(ctx context.Context) string {
	var se signalError
	if errors.As(context.Cause(ctx), &se) {
		return signalName(se.sig)
	}
	return "CANCELLED"
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdownHTTP stops the status server, giving open requests httpShutdownTimeout.
func shutdownHTTP(srv shutdowner) {
	ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown")
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func clientID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "washer"
	}
	return "washer-" + host
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func levelString(full bool) string {
	if full {
		return "FULL"
	}
	return "NOT_FULL"
}
