package main

import (
	"context"
	"fmt"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/mama165/sdk-go/logs"

	"github.com/Tyrowin/arenachat/internal/server"
)

func main() {
	cfg, err := server.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logs.GetLoggerFromLevel(cfg.SlogLevel())
	log.Info("Starting arena chat server...", "rooms", cfg.Rooms, "backlog", cfg.BacklogCapacity)

	srv := server.New(*cfg, log)
	srv.StartHub()

	httpServer := server.CreateServer(cfg.Addr(), srv.Routes())
	go func() {
		if err := server.StartServer(httpServer, log); err != nil {
			log.Error("HTTP server stopped", "error", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return server.ShutdownServer(ctx, httpServer, log)
			},
			"hub": func(ctx context.Context) error {
				timeout := cfg.ShutdownTimeout
				if deadline, ok := ctx.Deadline(); ok {
					timeout = time.Until(deadline)
				}
				return srv.Hub().Shutdown(timeout)
			},
		},
	)

	exitCode := <-wait
	log.Info("Server exited", "code", exitCode)
	os.Exit(exitCode)
}
