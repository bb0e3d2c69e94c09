package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/corelib/config"
	"github.com/aledsdavies/corelib/debugsnap"
	"github.com/aledsdavies/corelib/pkg/buffer"
	"github.com/aledsdavies/corelib/pkg/reactor"
	"github.com/aledsdavies/corelib/pkg/tcpserver"
	"github.com/aledsdavies/corelib/regexrouter"
)

func newServeCmd() *cobra.Command {
	var configPath string
	var debugSnapshotPath string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reactor-backed TCP server with regex-based routing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, debugSnapshotPath, port)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults used if omitted)")
	cmd.Flags().StringVar(&debugSnapshotPath, "debug-snapshot", "", "write a CBOR debug snapshot to this path at shutdown")
	cmd.Flags().IntVar(&port, "port", 9000, "TCP port to listen on")
	return cmd
}

func runServe(configPath, debugSnapshotPath string, port int) error {
	logger := slog.Default()

	cfg, compiled, err := loadOrDefault(configPath)
	if err != nil {
		return err
	}

	router := regexrouter.New(compiled)

	re, err := reactor.New(logger)
	if err != nil {
		return fmt.Errorf("reactor init: %w", err)
	}

	srv := tcpserver.New(re, router, logger)

	addr, err := tcpserver.ParseIPv4(cfg.ListenAddress)
	if err != nil {
		return err
	}
	if err := srv.Serve(addr, port); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("corelib: listening", "address", cfg.ListenAddress, "port", port)

	var closeWatch func()
	if configPath != "" {
		closer, err := config.Watch(configPath, logger, func(_ *config.Config, compiled []config.CompiledRule) {
			router.SetRules(compiled)
			logger.Info("corelib: config reloaded, rule set swapped")
		})
		if err != nil {
			logger.Warn("corelib: config watch disabled", "error", err)
		} else {
			closeWatch = func() { closer.Close() }
		}
	}

	eventRing := buffer.NewRingBuffer[int](cfg.EventRingCapacity)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("corelib: shutting down")
	if closeWatch != nil {
		closeWatch()
	}
	srv.Deinit()

	if debugSnapshotPath != "" {
		if err := writeSnapshot(srv, eventRing, debugSnapshotPath); err != nil {
			logger.Warn("corelib: debug snapshot failed", "error", err)
		}
	}

	return nil
}

func loadOrDefault(configPath string) (*config.Config, []config.CompiledRule, error) {
	if configPath == "" {
		return config.Default(), nil, nil
	}
	return config.Load(configPath)
}

func writeSnapshot(srv *tcpserver.Server, ring *buffer.RingBuffer[int], path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	snap := debugsnap.Capture(srv, ring, time.Now().UnixNano())
	return debugsnap.WriteCBOR(f, snap)
}
