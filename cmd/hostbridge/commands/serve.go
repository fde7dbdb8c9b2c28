package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/hostbridge/internal/config"
	"github.com/opencode-ai/hostbridge/internal/hostsim"
	"github.com/opencode-ai/hostbridge/internal/logging"
	"github.com/opencode-ai/hostbridge/internal/server"
	"github.com/opencode-ai/hostbridge/internal/storage"
	"github.com/opencode-ai/hostbridge/pkg/types"
)

var (
	servePort  int
	watchPath  string
	serveTheme map[string]string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the host emulator",
	Long: `Start the host emulator behind a websocket bridge.

Clients connect to ws://<host>:<port>/bridge, send commands and receive the
events the emulator answers with. Secure storage values persist in the
configured storage directory.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&watchPath, "watch-config", "", "Config file to watch for log level changes")
	serveCmd.Flags().StringToStringVar(&serveTheme, "theme", nil, "Theme params reported by the emulator, e.g. bg_color=#000000")
}

func runServe(cmd *cobra.Command, args []string) error {
	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Port = appConfig.Server.Port
	if servePort != 0 {
		serverConfig.Port = servePort
	}
	if appConfig.Server.CORS != nil {
		serverConfig.EnableCORS = *appConfig.Server.CORS
	}

	store := storage.New(appConfig.Storage.Path)
	srv := server.New(serverConfig, store, hostOptions()...)

	if path := configToWatch(); path != "" {
		w, err := config.Watch(path, applyReload)
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("config watch disabled")
		} else {
			defer w.Stop()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	logging.Info().Int("port", serverConfig.Port).Str("storage", appConfig.Storage.Path).Msg("hostbridge emulator started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	logging.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
	}

	logging.Info().Msg("server stopped")
	return nil
}

func hostOptions() []hostsim.Option {
	var opts []hostsim.Option
	if len(serveTheme) > 0 {
		opts = append(opts, hostsim.WithTheme(serveTheme))
	}
	return opts
}

// configToWatch picks the flag, then HOSTBRIDGE_CONFIG, then the project file
// when it exists.
func configToWatch() string {
	if watchPath != "" {
		return watchPath
	}
	if path := os.Getenv("HOSTBRIDGE_CONFIG"); path != "" {
		return path
	}
	dir, err := GetWorkDir(workDir)
	if err != nil {
		return ""
	}
	if path := config.ProjectConfigPath(dir); fileExists(path) {
		return path
	}
	return ""
}

// applyReload applies the settings that can change without a restart.
func applyReload(cfg *types.Config) {
	if logLevel != "" {
		// the command line wins
		return
	}
	level := logging.ParseLevel(cfg.Log.Level)
	logging.SetLevel(level)
	logging.Info().Str("level", level.String()).Msg("log level updated")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
