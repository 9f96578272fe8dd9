package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"enginefleet/internal/app"
	"enginefleet/internal/config"

	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:    "enginefleet",
		Usage:   "Provisions and operates per-subscriber workflow-engine instances",
		Version: "0.1.0",
		Commands: []*cli.Command{
			{
				Name:   "server",
				Usage:  "Start the provisioning API, worker, and sweeper",
				Action: runServer,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("shutdown signal received, cleaning up...")
		cancel()
	}()

	return a.Run(ctx)
}
