// Command airspeedd runs differential pressure sensor drivers, derives
// airspeed from their samples and optionally forwards both to an MQTT
// broker. Drivers are started from the config file and from the console on
// stdin.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"

	"airspeed-go/bus"
	"airspeed-go/platform"
	"airspeed-go/services/airspeed"
	"airspeed-go/services/bridge"
	"airspeed-go/services/config"
	"airspeed-go/services/console"
	"airspeed-go/services/driver"
	"airspeed-go/services/heartbeat"
	"airspeed-go/services/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	simulate := flag.Bool("simulate", false, "use simulated i2c buses regardless of config")
	noConsole := flag.Bool("no-console", false, "do not read commands from stdin")
	monitor := flag.Bool("monitor", false, "log every published sample at debug level")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log := newLogger(cfg.Log.Level)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	perf, err := metrics.New(reg)
	if err != nil {
		log.Error("metrics setup failed", "err", err)
		return 1
	}
	srv := serveMetrics(cfg.Metrics.Listen, perf, log)

	b := bus.NewBus(cfg.Bus.QueueLen)
	buses := platform.New(cfg.Platform.Simulate || *simulate, log)
	defer buses.Close()

	mgr := driver.NewManager(driver.Config{
		Conn:    b.NewConnection("driver"),
		Buses:   buses,
		Metrics: perf,
		Logger:  log.With("service", "driver"),
	})

	var wg sync.WaitGroup
	spawn := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}
	spawn(func() { mgr.Serve(ctx) })
	spawn(func() { airspeed.New(b.NewConnection("airspeed"), log.With("service", "airspeed")).Run(ctx) })
	spawn(func() { bridge.Start(ctx, b.NewConnection("bridge"), log.With("service", "bridge")) })
	spawn(func() { heartbeat.New(b.NewConnection("heartbeat"), log.With("service", "heartbeat")).Run(ctx) })
	if *monitor {
		spawn(func() { runMonitor(ctx, b.NewConnection("monitor"), log) })
	}

	cfgSvc := config.NewService(*cfgPath, b.NewConnection("config"), log.With("service", "config"))
	if _, err := cfgSvc.Reload(); err != nil {
		return 1
	}

	for _, d := range cfg.Devices {
		if _, err := mgr.Start(d.Start()); err != nil {
			log.Error("autostart failed", "driver", d.Driver, "bus", d.Bus, "err", err)
		}
	}

	if !*noConsole {
		c := console.New(b.NewConnection("console"), os.Stdout, log)
		go func() {
			if err := c.Run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("console stopped", "err", err)
			}
		}()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	log.Info("airspeedd running", "config", *cfgPath, "simulate", cfg.Platform.Simulate || *simulate)
loop:
	for {
		select {
		case <-hup:
			_, _ = cfgSvc.Reload()
		case <-ctx.Done():
			break loop
		}
	}

	log.Info("shutting down")
	wg.Wait()
	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}
	return 0
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	}))
}

func serveMetrics(addr string, perf *metrics.Registry, log *slog.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", perf.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()
	log.Info("metrics listening", "addr", addr)
	return srv
}

func runMonitor(ctx context.Context, conn *bus.Connection, log *slog.Logger) {
	sub := conn.Subscribe(bus.T("#"))
	defer conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-sub.Channel():
			log.Debug("bus", "topic", m.Topic.String(), "payload", m.Payload)
		}
	}
}
