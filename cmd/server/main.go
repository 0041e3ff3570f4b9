package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/errgroup"

	"avl-svr/internal/admission"
	"avl-svr/internal/config"
	"avl-svr/internal/dispatcher"
	"avl-svr/internal/grpcclient"
	"avl-svr/internal/link"
	"avl-svr/internal/live"
	"avl-svr/internal/monitor"
	"avl-svr/internal/notify"
	"avl-svr/internal/observability"
	"avl-svr/internal/rawlog"
	"avl-svr/internal/server"
	"avl-svr/internal/store"
	"avl-svr/internal/tunnel"
)

var version = "dev"

const (
	forwardTimeout = 5 * time.Second
	replayInterval = 30 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (defaults to $CONFIG_FILE)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.Debug)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("avl-svr stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting avl-svr...", "version", version, "port", cfg.TCPPort, "env", cfg.AppEnv)

	want := cfg.FileLimit()
	if soft, hard, err := admission.RaiseFileLimit(want); err != nil {
		logger.Warn("could not raise file descriptor limit", "want", want, "err", err)
	} else {
		if soft < want {
			logger.Warn("file descriptor limit below session capacity", "soft", soft, "want", want, "max_sessions", cfg.MaxSessions)
		}
		logger.Info("file descriptor limit", "soft", soft, "hard", hard)
	}

	teams := notify.NewTeams(cfg.TeamsWebhookURL, cfg.AppEnv, logger)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = teams.Flush(flushCtx)
	}()

	var dial pgconn.DialFunc
	if cfg.SSH.Enabled() {
		tun := &tunnel.SSH{
			Host:                        cfg.SSH.Host,
			Port:                        cfg.SSH.Port,
			User:                        cfg.SSH.User,
			KeyPath:                     cfg.SSH.KeyPath,
			KnownHostsPath:              cfg.SSH.KnownHostsPath,
			InsecureSkipHostKeyChecking: cfg.SSH.Insecure,
			Logger:                      logger,
		}
		defer tun.Close()
		dial = tun.DialContext
		logger.Info("database tunnel enabled", "ssh_host", cfg.SSH.Host)
	}

	pool, err := store.NewPostgres(ctx, store.PostgresConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Name:     cfg.DB.Name,
		MaxConns: int32(cfg.DB.MaxConns),
	}, dial)
	if err != nil {
		teams.Notify("Database connection failed", err.Error())
		return err
	}
	defer pool.Close()

	repo := store.NewTeltonikaRepo(pool, teams)
	var sink server.Sink = repo
	var spool *store.Spool
	if cfg.SpoolPath != "" {
		spool, err = store.OpenSpool(cfg.SpoolPath)
		if err != nil {
			return err
		}
		defer spool.Close()
		sink = store.NewSpoolingSink(repo, spool)
	}

	var forwarders []dispatcher.Forwarder
	var devices monitor.DeviceLookup
	if cfg.Redis.Addr != "" {
		rdb, err := store.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		state := store.NewDeviceState(rdb)
		forwarders = append(forwarders, state)
		devices = state
	}
	if cfg.GRPCServer != "" {
		gc, err := grpcclient.NewGRPCClient(cfg.GRPCServer)
		if err != nil {
			return fmt.Errorf("grpc client %s: %w", cfg.GRPCServer, err)
		}
		defer gc.Close()
		forwarders = append(forwarders, gc)
	}
	proxy := link.New(cfg.ProxyAddr, logger)
	if proxy != nil {
		forwarders = append(forwarders, proxy)
	}
	if wh := notify.NewWebhook(cfg.WebhookBaseURL, teams); wh != nil {
		forwarders = append(forwarders, wh)
	}
	hub := live.NewHub(logger)
	forwarders = append(forwarders, hub)

	events := dispatcher.New(logger, cfg.ForwardQueueSize, forwardTimeout, forwarders...)

	raw, err := rawlog.New(cfg.RawLogDir, rawlog.DefaultPrefix)
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		InactivityTimeout: cfg.InactivityTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		PersistTimeout:    cfg.PersistTimeout,
		Debug:             cfg.Debug,
		Gate:              admission.New(cfg.MaxSessions),
		Sink:              sink,
		Events:            events,
		RawLog:            raw,
	}, logger)

	mon := monitor.New(monitor.Options{
		DB:       repo,
		Sessions: srv,
		Devices:  devices,
		Live:     hub,
	}, logger)

	teams.Notify(fmt.Sprintf("avl-svr v%s started", version), "")

	// forwarders outlive the listener so disconnect events from draining
	// sessions still go out
	fwdCtx, stopForwarding := context.WithCancel(context.Background())
	fwd, fwdCtx := errgroup.WithContext(fwdCtx)
	fwd.Go(func() error { return events.Run(fwdCtx) })
	fwd.Go(func() error { return proxy.Run(fwdCtx) })

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, net.JoinHostPort("", cfg.TCPPort))
	})
	g.Go(func() error {
		return mon.Run(gctx, net.JoinHostPort("", cfg.MonitorPort))
	})
	g.Go(func() error {
		return spool.Run(gctx, repo, replayInterval, logger)
	})

	err = g.Wait()
	if err != nil {
		logger.Error("shutting down", "err", err)
	} else {
		logger.Info("shutting down", "grace", cfg.ShutdownGrace)
	}

	graceCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if werr := srv.Wait(graceCtx); werr != nil {
		logger.Warn("sessions still open after grace period", "err", werr, "open", len(srv.Sessions()))
	}
	stopForwarding()
	_ = fwd.Wait()
	return err
}
