package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/attachment"
	"github.com/parley-ai/parley/internal/config"
	"github.com/parley-ai/parley/internal/event"
	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/internal/mcp"
	"github.com/parley-ai/parley/internal/provider"
	"github.com/parley-ai/parley/internal/server"
	"github.com/parley-ai/parley/internal/session"
	"github.com/parley-ai/parley/internal/storage"
	"github.com/parley-ai/parley/internal/tool"
)

var (
	servePort     int
	serveHostname string
	serveDir      string
	serveNoCORS   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Parley server",
	Long: `Start Parley as a headless server that exposes an HTTP API.

Sessions are persisted under the data directory and survive restarts.
Message streams are NDJSON; session lifecycle events are available on
the /event SSE endpoint.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 7683, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHostname, "hostname", "127.0.0.1", "Hostname to listen on")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Working directory")
	serveCmd.Flags().BoolVar(&serveNoCORS, "no-cors", false, "Disable CORS headers")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.For("cli")

	workDir, err := GetWorkDir(serveDir)
	if err != nil {
		return err
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		return err
	}
	if appConfig.LogLevel != "" && !cmd.Flags().Changed("log-level") {
		logging.Init(logging.Config{Level: logging.ParseLevel(appConfig.LogLevel), Pretty: logPretty})
	}

	log.Info().Str("version", Version).Str("workdir", workDir).Msg("starting parley server")

	store := storage.New(paths.StoragePath())
	bus := event.NewBus()
	defer bus.Close()

	ctx := context.Background()
	providers := provider.InitializeProviders(ctx, appConfig)

	cache := attachment.NewCache()
	if err := cache.StartWatcher(); err != nil {
		log.Warn().Err(err).Msg("attachment watcher unavailable, falling back to mtime checks")
	}
	defer cache.Close()

	tools := tool.DefaultRegistry(workDir)

	mcpManager := mcp.NewManager()
	mcpManager.Connect(ctx, appConfig.MCP, tools)
	defer mcpManager.Close()

	sessions := session.NewService(store, bus)
	ask := session.NewAskCoordinator(bus)
	transformer := session.NewTransformer(cache)

	orchestrator := session.NewOrchestrator(sessions, providers, tools, ask, transformer, session.Options{
		AutoTitle:      appConfig.AutoTitleEnabled(),
		TitleMaxLength: appConfig.TitleMaxLength,
	})

	serverConfig := server.DefaultConfig()
	serverConfig.Port = servePort
	serverConfig.Host = serveHostname
	serverConfig.EnableCORS = !serveNoCORS

	srv := server.New(serverConfig, sessions, orchestrator, providers, tools, bus)

	go func() {
		log.Info().Str("addr", "http://"+serveHostname).Int("port", servePort).Msg("server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped")
	return nil
}
