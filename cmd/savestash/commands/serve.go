package commands

import (
	"context"
	"time"

	"github.com/dyluth/savestash/internal/api"
	"github.com/dyluth/savestash/internal/games"
	"github.com/dyluth/savestash/internal/printer"
	"github.com/dyluth/savestash/pkg/store"
	"github.com/spf13/cobra"
)

var (
	serveListen string
	serveMemory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the management HTTP API",
	Long: `Serve the management HTTP API.

Endpoints:
  GET    /healthz
  GET    /api/games
  GET    /api/game?url=URL
  PATCH  /api/game?url=URL              body: {name, url, favicon, showFavicon, enabled, dataType}
  DELETE /api/game?url=URL
  POST   /api/game/toggle?url=URL
  GET    /api/game/saves?url=URL
  PATCH  /api/game/saves/{index}?url=URL body: {name}
  DELETE /api/game/saves/{index}?url=URL

Save indexes are 0-based, newest first.

With --memory the API runs on an empty in-process store that is discarded on
exit, which is handy for trying the API without Redis.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "Listen address (overrides config and SAVESTASH_LISTEN)")
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "Use a throwaway in-memory store instead of Redis")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	var (
		area   store.Area
		pinger api.Pinger
		listen string
	)
	if serveMemory {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		area = store.NewMemoryArea()
		listen = cfg.Server.Listen
		printer.Warning("Using an in-memory store. Nothing is persisted.\n")
	} else {
		redisArea, cfg, err := connect(ctx)
		if err != nil {
			return err
		}
		defer redisArea.Close()
		area, pinger, listen = redisArea, redisArea, cfg.Server.Listen
	}
	if serveListen != "" {
		listen = serveListen
	}

	index := games.NewIndex(area)
	if err := index.Start(ctx); err != nil {
		return err
	}
	defer index.Close()

	server := api.NewServer(listen, index, games.NewService(area), pinger)
	addr, err := server.Start()
	if err != nil {
		return printer.Error("cannot listen", err.Error(), []string{"Pick another address with --listen"})
	}

	printer.Success("API listening on http://%s (%d games)\n", addr, index.Len())
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
