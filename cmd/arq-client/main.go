package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zsiec/arq/internal/config"
	"github.com/zsiec/arq/internal/logger"
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

	log.WithField("version", version.GetInfo().Short()).Info("Starting sender client")

	appLog := logger.NewLogrusAdapter(logger.WithComponent(log, "sender"))

	udp, err := transport.NewUDPClient(&cfg.Transport, appLog)
	if err != nil {
		log.WithError(err).Fatal("Failed to dial UDP transport")
	}
	defer udp.Close()

	send := session.NewSenderSession(&cfg.Protocol, udp, appLog)
	if err := send.Start(); err != nil {
		log.WithError(err).Fatal("Failed to start sender session")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		send.Stop()
	}()

	// Messages come from the command line, or one per line on stdin.
	messages := flag.Args()
	if len(messages) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				messages = append(messages, line)
			}
		}
		if err := scanner.Err(); err != nil {
			log.WithError(err).Fatal("Failed to read messages from stdin")
		}
	}
	if len(messages) == 0 {
		log.Fatal("No messages to send")
	}

	for i, msg := range messages {
		if err := send.Send([]byte(msg)); err != nil {
			log.WithError(err).WithField("message", i).Fatal("Send failed")
		}
	}

	if err := send.Drain(ctx); err != nil {
		log.WithError(err).Fatal("Transmission did not complete")
	}
	send.Stop()

	stats := send.Stats()
	log.WithFields(map[string]interface{}{
		"messages":        len(messages),
		"packets_sent":    stats.PacketsSent,
		"packets_lost":    stats.PacketsLost,
		"retransmissions": stats.Retransmissions,
		"timeouts":        stats.TimeoutsOccurred,
		"acks_received":   stats.AcksReceived,
		"efficiency":      stats.Efficiency(),
	}).Info("Transmission complete")
}
