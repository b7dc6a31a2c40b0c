package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zsiec/arq/internal/config"
	"github.com/zsiec/arq/internal/health"
	"github.com/zsiec/arq/internal/logger"
	"github.com/zsiec/arq/internal/registry"
	"github.com/zsiec/arq/internal/server"
	"github.com/zsiec/arq/internal/session"
	"github.com/zsiec/arq/internal/transport"
	"github.com/zsiec/arq/pkg/version"
)

func main() {
	var (
		configPath  string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "configs/default.yaml", "Path to configuration file")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Parse()

	if showVersion {
		fmt.Println(version.GetInfo().String())
		os.Exit(0)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithField("version", version.GetInfo().Short()).Info("Starting receiver daemon")

	appLog := logger.NewLogrusAdapter(logger.WithComponent(log, "receiver"))

	udp, err := transport.NewUDPServer(&cfg.Transport, appLog)
	if err != nil {
		log.WithError(err).Fatal("Failed to bind UDP transport")
	}
	defer udp.Close()

	recv := session.NewReceiverSession(&cfg.Protocol, udp, appLog, nil)
	if err := recv.Start(); err != nil {
		log.WithError(err).Fatal("Failed to start receiver session")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := server.New(&cfg.Server, log)
	srv.AttachReceiver(recv)

	// The registry is optional; without redis the daemon still serves its own
	// stats.
	var reg registry.Registry
	var redisClient *redis.Client
	if cfg.Registry.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:        cfg.Registry.RedisAddr,
			Password:    cfg.Registry.RedisPassword,
			DB:          cfg.Registry.RedisDB,
			DialTimeout: cfg.Registry.DialTimeout,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.WithError(err).Fatal("Failed to connect to redis")
		}

		reg = registry.NewRedisRegistry(redisClient, appLog, cfg.Registry.TTL)
		srv.AttachRegistry(reg)
		srv.RegisterHealthChecker(health.NewRedisChecker(redisClient))

		if err := reg.Register(ctx, &registry.Session{
			ID:         recv.ID(),
			Role:       registry.RoleReceiver,
			Status:     registry.StatusActive,
			WindowSize: cfg.Protocol.WindowSize,
			TimeoutMs:  cfg.Protocol.Timeout.Milliseconds(),
		}); err != nil {
			log.WithError(err).Error("Failed to register session")
		}
		go publishStats(ctx, reg, recv, appLog)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	if cfg.Server.Enabled {
		if err := srv.Start(ctx); err != nil {
			log.WithError(err).Fatal("Stats server error")
		}
	} else {
		<-ctx.Done()
	}

	if err := recv.Stop(); err != nil {
		log.WithError(err).Error("Failed to stop receiver session")
	}
	if reg != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := reg.UpdateStatus(shutdownCtx, recv.ID(), registry.StatusClosed); err != nil {
			log.WithError(err).Warn("Failed to mark session closed")
		}
		shutdownCancel()
		reg.Close()
	}

	log.Info("Receiver daemon shutdown complete")
}

// publishStats pushes counter snapshots and heartbeats to the registry so
// other processes can observe this endpoint.
func publishStats(ctx context.Context, reg registry.Registry, recv *session.ReceiverSession, log logger.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := recv.Stats()
			err := reg.UpdateStats(ctx, recv.ID(), registry.SessionStats{
				PacketsReceived:   stats.PacketsReceived,
				PacketsInOrder:    stats.PacketsInOrder,
				PacketsOutOfOrder: stats.PacketsOutOfOrder,
				AcksSent:          stats.AcksSent,
				AcksLost:          stats.AcksLost,
			})
			if err != nil {
				log.WithError(err).Warn("Failed to publish session stats")
			}
		}
	}
}
