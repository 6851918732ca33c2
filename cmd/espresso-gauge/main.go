// Command espresso-gauge samples the group-head pressure transducer, times
// shots and publishes readings to MQTT, a status page and a serial console.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/sweeney/espresso-gauge/internal/config"
	"github.com/sweeney/espresso-gauge/internal/console"
	"github.com/sweeney/espresso-gauge/internal/gauge"
	"github.com/sweeney/espresso-gauge/internal/input"
	"github.com/sweeney/espresso-gauge/internal/logic"
	"github.com/sweeney/espresso-gauge/internal/mqtt"
	"github.com/sweeney/espresso-gauge/internal/power"
	"github.com/sweeney/espresso-gauge/internal/sensor"
	"github.com/sweeney/espresso-gauge/internal/status"
	"github.com/sweeney/espresso-gauge/internal/web"
)

func main() {
	configPath := flag.String("config", "/etc/espresso-gauge.yaml", "YAML config file (missing file = defaults)")
	tick := flag.Duration("tick", 0, "Sampling period (overrides config)")
	broker := flag.String("broker", "", `MQTT broker address (overrides config, "off" disables)`)
	httpAddr := flag.String("http", "", `HTTP status address (overrides config, "off" disables)`)
	source := flag.String("sensor", "", "Sensor source: i2c or synthetic (overrides config)")
	serialPort := flag.String("serial", "", "Serial console port (overrides config)")
	dryRun := flag.Bool("dry-run", false, "Log power actions instead of performing them")
	debug := flag.Bool("debug", false, "Start with debug detail on")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	printPressure := flag.Bool("print-pressure", false, "Print one reading and exit")

	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid --log-level %q\n", *logLevel)
		os.Exit(2)
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: level, TimeFormat: time.TimeOnly})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	if *tick > 0 {
		cfg.Tick = *tick
	}
	if *broker != "" {
		cfg.MQTT.Broker = offOr(*broker)
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = offOr(*httpAddr)
	}
	if *source != "" {
		cfg.Sensor.Source = *source
	}
	if *serialPort != "" {
		cfg.Serial.Port = *serialPort
	}
	if *dryRun {
		cfg.Power.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, *debug, *printPressure); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func offOr(v string) string {
	if v == "off" {
		return ""
	}
	return v
}

// openSensor builds the configured exchanger and its reader. The returned
// closer releases the bus.
func openSensor(cfg *config.Config) (*sensor.Reader, io.Closer, error) {
	var src sensor.Exchanger
	var closer io.Closer = io.NopCloser(nil)

	switch cfg.Sensor.Source {
	case config.SourceSynthetic:
		src = sensor.NewSynthetic(cfg.Sensor.Calibration)
	default:
		bus, err := sensor.OpenBus(cfg.Sensor.Bus)
		if err != nil {
			return nil, nil, fmt.Errorf("open i2c bus: %w", err)
		}
		src = sensor.NewI2CExchanger(bus, cfg.Sensor.Address, cfg.Sensor.Register)
		closer = bus
	}
	return sensor.NewReader(src, cfg.ReaderConfig()), closer, nil
}

func run(cfg *config.Config, debug, printPressure bool) error {
	reader, closer, err := openSensor(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	if printPressure {
		p, err := reader.Read(context.Background())
		if err != nil {
			return fmt.Errorf("read sensor: %w", err)
		}
		fmt.Printf("%s bar (%d mbar, raw %s)\n", p, int32(p), reader.HexData())
		return nil
	}

	start := time.Now()
	tracker := status.NewTracker(start, status.Config{
		TickMs:        cfg.Tick.Milliseconds(),
		HistorySize:   cfg.History,
		FlowThreshold: cfg.Shot.FlowThreshold,
		IdleTimeoutMs: cfg.Idle.Timeout.Milliseconds(),
		HeartbeatMs:   cfg.MQTT.Heartbeat.Milliseconds(),
		SensorSource:  cfg.Sensor.Source,
		Broker:        cfg.MQTT.Broker,
		HTTPAddr:      cfg.HTTP.Addr,
		SerialPort:    cfg.Serial.Port,
	})
	tracker.SetBattery(readBattery(cfg.Power.SysfsRoot))

	// Telemetry is optional; the gauge must work without a broker.
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	var telemetry gauge.Telemetry
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewRealPublisher(mqtt.Options{Broker: cfg.MQTT.Broker, ClientID: cfg.MQTT.ClientID})
		if err != nil {
			slog.Warn("mqtt unavailable, telemetry disabled", "err", err)
		} else {
			defer pub.Close()
			publisher, mqttStatus, telemetry = pub, pub, pub
		}
	}
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}

	renderers := gauge.Renderers{tracker}
	if cfg.Serial.Port != "" {
		w, err := console.Open(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			return err
		}
		defer w.Close()
		renderers = append(renderers, w)
	}

	var buttons *input.Poller
	if cfg.Buttons.Chip != "" {
		r, err := input.NewRealReader(cfg.Buttons.Chip, cfg.Buttons.PinA, cfg.Buttons.PinB, cfg.Buttons.PinC)
		if err != nil {
			slog.Warn("buttons unavailable", "err", err)
		} else {
			defer r.Close()
			buttons = input.NewPoller(r)
		}
	}

	controller := &announcer{
		Controller: &power.System{DryRun: cfg.Power.DryRun},
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		now:        time.Now,
	}

	gcfg := gaugeConfig(cfg, telemetry != nil, debug)
	g := gauge.New(gcfg, reader, renderers, telemetry, controller, start)

	publishSystem(publisher, mqttStatus, tracker, "STARTUP", "", time.Now())

	resets := make(chan struct{}, 1)
	if cfg.HTTP.Addr != "" {
		classifier := logic.NewClassifier(gcfg.Thresholds, gcfg.Headroom, gcfg.Gradient)
		srv := web.New(cfg.HTTP.Addr, tracker, classifier, resets)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("http server", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		slog.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	slog.Info("started",
		"tick", cfg.Tick, "sensor", cfg.Sensor.Source, "broker", cfg.MQTT.Broker,
		"idle_timeout", cfg.Idle.Timeout, "heartbeat", cfg.MQTT.Heartbeat)

	// Poll faster than the sampling period so jitter does not skip ticks;
	// the orchestrator enforces the period itself.
	ticker := time.NewTicker(loopInterval(cfg.Tick))
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(context.Background(), loopDeps{
		gauge:       g,
		buttons:     buttons,
		publisher:   publisher,
		mqttStatus:  mqttStatus,
		tracker:     tracker,
		heartbeat:   logic.NewHeartbeat(cfg.MQTT.Heartbeat, start),
		batteryRoot: cfg.Power.SysfsRoot,
	}, time.Now, ticker.C, sigCh, resets)
}

func gaugeConfig(cfg *config.Config, telemetry, debug bool) gauge.Config {
	return gauge.Config{
		Period:        cfg.Tick,
		HistorySize:   cfg.History,
		FlowThreshold: logic.Pressure(cfg.Shot.FlowThreshold),
		IdleTimeout:   cfg.Idle.Timeout,
		Thresholds:    cfg.Thresholds(),
		Headroom:      logic.Pressure(cfg.Zones.Headroom),
		Telemetry:     telemetry && cfg.MQTT.Enabled,
		Debug:         debug,
	}
}

func loopInterval(tick time.Duration) time.Duration {
	if d := tick / 4; d >= time.Millisecond {
		return d
	}
	return time.Millisecond
}

// loopDeps are the collaborators driven by runLoop. buttons, publisher and
// mqttStatus may be nil.
type loopDeps struct {
	gauge       *gauge.Orchestrator
	buttons     *input.Poller
	publisher   mqtt.Publisher
	mqttStatus  mqtt.ConnectionStatus
	tracker     *status.Tracker
	heartbeat   *logic.Heartbeat
	batteryRoot string
}

func runLoop(ctx context.Context, d loopDeps, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, resets <-chan struct{}) error {
	buttonsFailing := false

	for {
		select {
		case s := <-sig:
			slog.Info("shutting down", "signal", s)
			reason := "UNKNOWN"
			if s == syscall.SIGINT {
				reason = "SIGINT"
			} else if s == syscall.SIGTERM {
				reason = "SIGTERM"
			}
			publishSystem(d.publisher, d.mqttStatus, d.tracker, "SHUTDOWN", reason, now())
			return nil

		case <-resets:
			d.gauge.ResetShotTimer(now())

		case <-tick:
			t := now()

			if d.buttons != nil {
				pressed, err := d.buttons.Poll()
				if err != nil {
					if !buttonsFailing {
						slog.Warn("button read failed", "err", err)
					}
					buttonsFailing = true
				} else {
					buttonsFailing = false
				}
				for _, b := range pressed {
					slog.Debug("button pressed", "button", b)
					if d.gauge.HandleButton(b, t) == gauge.Restarted {
						return nil
					}
				}
			}

			switch d.gauge.Tick(ctx, t) {
			case gauge.PoweredOff, gauge.Halted:
				return nil
			case gauge.Skipped:
				continue
			}

			if d.mqttStatus != nil {
				d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
			}

			if hb := d.heartbeat.Check(t); hb != nil {
				slog.Info("heartbeat", "uptime", hb.Uptime)
				if d.batteryRoot != "" {
					d.tracker.SetBattery(readBattery(d.batteryRoot))
				}
				// The client would queue a QoS 1 message while offline.
				if d.mqttStatus != nil && !d.mqttStatus.IsConnected() {
					slog.Debug("mqtt offline, skipping heartbeat")
				} else {
					publishSystem(d.publisher, d.mqttStatus, d.tracker, "HEARTBEAT", "", hb.Timestamp)
				}
			}
		}
	}
}

// publishSystem sends a lifecycle event carrying the full status document.
func publishSystem(pub mqtt.Publisher, conn mqtt.ConnectionStatus, tracker *status.Tracker, event, reason string, t time.Time) {
	if pub == nil {
		return
	}
	if conn != nil {
		tracker.SetMQTTConnected(conn.IsConnected())
	}
	snap := tracker.Snapshot()
	err := pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  t,
		Event:      event,
		Reason:     reason,
		Retained:   event != "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		slog.Warn("publish system event failed", "event", event, "err", err)
		return
	}
	slog.Info("published system event", "event", event)
}

// announcer publishes the terminal system event before handing the power
// action to the wrapped controller, which does not return on real hardware.
type announcer struct {
	power.Controller
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	now        func() time.Time
}

func (a *announcer) PowerOff() error {
	publishSystem(a.publisher, a.mqttStatus, a.tracker, "POWER_OFF", "IDLE", a.now())
	return a.Controller.PowerOff()
}

func (a *announcer) Restart() error {
	publishSystem(a.publisher, a.mqttStatus, a.tracker, "RESTART", "BUTTON", a.now())
	return a.Controller.Restart()
}

func readBattery(root string) int {
	pct, err := power.ReadBattery(root)
	if err != nil {
		slog.Debug("battery level unavailable", "err", err)
	}
	return pct
}
