package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/bridgectl/internal/bridge"
	"github.com/danmuck/bridgectl/internal/config"
	"github.com/danmuck/bridgectl/internal/events"
	"github.com/danmuck/bridgectl/internal/host"
	"github.com/danmuck/bridgectl/internal/observability"
	"github.com/danmuck/bridgectl/internal/protocol"
	"github.com/danmuck/bridgectl/internal/transport"
)

func main() {
	configPath := flag.String("config", "cmd/hostctl/config.toml", "path to the host config")
	flag.Parse()

	observability.InitLogger("host")
	cfg, err := config.LoadHostConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load host config")
	}
	log.Info().Str("path", *configPath).Msg("loaded host config")

	mode, err := host.ParseMode(cfg.Mode)
	if err != nil {
		log.Fatal().Err(err).Msg("bad mode")
	}
	alert, err := protocol.ParseAlertMode(cfg.AlertMode)
	if err != nil {
		log.Fatal().Err(err).Msg("bad alert mode")
	}
	scoring, err := host.ParseScoring(cfg.Scoring)
	if err != nil {
		log.Fatal().Err(err).Msg("bad scoring")
	}

	teams := make(map[bridge.Direction]string)
	if cfg.NorthSouth != "" {
		teams[bridge.NorthSouth] = cfg.NorthSouth
	}
	if cfg.EastWest != "" {
		teams[bridge.EastWest] = cfg.EastWest
	}

	bus := events.NewBus()
	source := host.NewInMemorySource(host.DealBoards(cfg.BoardCount, cfg.Seed), mode)
	table := host.New(host.Config{
		Name:    cfg.Name,
		Mode:    mode,
		Alert:   alert,
		Scoring: scoring,
		Teams:   teams,
	}, source, bus, log.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := transport.ListenTCP(cfg.Addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Addr).Msg("listen failed")
	}
	defer listener.Close()
	go listener.Serve(ctx, table.AcceptConn)
	log.Info().Str("addr", listener.Addr()).Msg("table listening")

	monitor := observability.NewMonitor(cfg.Name, cfg.AdminAddr, cfg.CorsOrigins, bus, table.AcceptConn)
	go func() {
		if err := monitor.Serve(); err != nil {
			log.Error().Err(err).Msg("monitor stopped")
		}
	}()

	if err := table.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("session failed")
	}
}
