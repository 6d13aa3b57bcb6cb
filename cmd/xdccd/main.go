package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"xdccd/agent"
	"xdccd/api"
	"xdccd/config"
	"xdccd/ircnet"
	"xdccd/search"
	"xdccd/tui"
)

func main() {
	configPath := flag.String("config", "", "config file (default $XDCCD_CONFIG or config.toml)")
	useTUI := flag.Bool("tui", false, "run the interactive terminal UI")
	useBars := flag.Bool("bars", false, "draw progress bars for running downloads on stderr")
	logFile := flag.String("log", "xdccd.log", "log file used while the terminal UI runs")
	flag.Parse()

	path := config.Path()
	if *configPath != "" {
		path = *configPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		logrus.Fatalf("Could not load config: %v", err)
	}
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *useTUI {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logrus.Fatalf("Could not open log file: %v", err)
		}
		defer f.Close()
		logrus.SetOutput(f)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *useTUI, *useBars); err != nil && !errors.Is(err, context.Canceled) {
		logrus.Fatalf("xdccd: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, useTUI, useBars bool) error {
	publicIP, err := cfg.ResolvePublicIP(ctx, &http.Client{Timeout: 10 * time.Second}, config.PublicIPService)
	if err != nil {
		return err
	}
	window, err := cfg.Window()
	if err != nil {
		return err
	}

	sessions, err := ircnet.DialAll(ctx, cfg.Servers)
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range sessions {
			s.Close()
		}
	}()

	conns := make([]*agent.Connection, 0, len(sessions))
	for i, s := range sessions {
		conns = append(conns, agent.NewConnection(s.Name, s, cfg.Servers[i].Channels))
	}
	engine := agent.New(agent.Options{
		DownloadDir:  cfg.DownloadFolder,
		Port:         cfg.Port,
		PublicIP:     publicIP,
		SearchWindow: window,
	}, conns...)

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.SetupRouter(engine, api.Options{
			StaticDir:   cfg.StaticDir,
			CORSOrigins: cfg.CORSOrigins,
		}),
		// No write timeout: /events streams for as long as the client stays.
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return engine.Run(ctx) })
	g.Go(func() error {
		logrus.WithField("addr", cfg.HTTPAddr).Info("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		return server.Shutdown(shutdownCtx)
	})

	switch {
	case useTUI:
		aggregator := search.NewProviderAggregator(engine.Provider(), &search.XdccEuProvider{})
		g.Go(func() error {
			defer cancel()
			return tui.Run(ctx, engine, aggregator)
		})
	case useBars:
		g.Go(func() error { return tui.RunBars(ctx, engine, os.Stderr) })
	}

	return g.Wait()
}
