package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"eatgreet/internal/common/logger"
	"eatgreet/internal/config"
	"eatgreet/internal/connections/database"
	"eatgreet/internal/connections/rabbitmq"
	"eatgreet/internal/server"
)

func main() {
	var (
		mode       = flag.String("mode", "server", "run mode: server | notifier")
		configPath = flag.String("config", "config.yaml", "path to config file")
		port       = flag.Int("port", 0, "override listen port")
		pattern    = flag.String("pattern", "#", "notifier routing pattern, e.g. spice_garden.#")
	)
	flag.Parse()

	log := logger.New("eatgreet-" + *mode)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectAndMigrate(ctx, cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	defer db.Close()

	mq, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		log.WithError(err).Fatal("connect broker")
	}
	defer mq.Close()

	srv := server.New(cfg, log, db, mq)

	switch *mode {
	case "server":
		log.WithField("port", cfg.Server.Port).Info("starting api server")
		err = srv.Run(ctx)
	case "notifier":
		err = srv.RunNotifier(ctx, *pattern)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
	if err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("exited")
	}
	log.Info("shutdown complete")
}
