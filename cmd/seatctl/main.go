package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/bridgectl/internal/bridge"
	"github.com/danmuck/bridgectl/internal/client"
	"github.com/danmuck/bridgectl/internal/config"
	"github.com/danmuck/bridgectl/internal/engine"
	"github.com/danmuck/bridgectl/internal/events"
	"github.com/danmuck/bridgectl/internal/observability"
	"github.com/danmuck/bridgectl/internal/protocol"
	"github.com/danmuck/bridgectl/internal/transport"
)

func main() {
	configPath := flag.String("config", "cmd/seatctl/config.toml", "path to the seat config")
	flag.Parse()

	observability.InitLogger("seat")
	cfg, err := config.LoadSeatConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load seat config")
	}
	log.Info().Str("path", *configPath).Msg("loaded seat config")

	seat, err := bridge.ParseSeat(cfg.Seat)
	if err != nil {
		log.Fatal().Err(err).Msg("bad seat")
	}
	alert, err := protocol.ParseAlertMode(cfg.AlertMode)
	if err != nil {
		log.Fatal().Err(err).Msg("bad alert mode")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var conn transport.Conn
	if cfg.WSUrl != "" {
		conn, err = transport.DialWS(ctx, cfg.WSUrl, transport.DefaultDialConfig())
	} else {
		conn, err = transport.DialTCP(ctx, cfg.Addr, transport.DefaultDialConfig())
	}
	if err != nil {
		log.Fatal().Err(err).Msg("connect failed")
	}

	bus := events.NewBus()
	seatClient := client.New(client.Config{
		Seat:       seat,
		Team:       cfg.Team,
		Version:    cfg.Version,
		SystemInfo: cfg.SystemInfo,
		Alert:      alert,
	}, conn, bus, log.Logger)
	engine.Attach(seat, bus, log.Logger)

	log.Info().Str("seat", seat.String()).Str("team", cfg.Team).Msg("seat connecting")
	if err := seatClient.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("seat session failed")
	}
	log.Info().Msg("session complete")
}
