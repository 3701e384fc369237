package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shaleenx/q-net/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer questions over HTTP with a trained checkpoint",
	Long: `Serve loads a checkpoint and the cached dictionary and starts an HTTP server with:

  POST /v1/predict  {"passage": "...", "question": "..."} -> {"start", "end", "text", "score"}
  GET  /healthz`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("checkpoint", "", "checkpoint directory to serve")
	flags.String("host", "localhost", "server host")
	flags.Int("port", 8080, "server port")
	flags.String("mode", "release", "server mode (debug, release, test)")

	viper.BindPFlag("server.checkpoint", flags.Lookup("checkpoint"))
	viper.BindPFlag("server.host", flags.Lookup("host"))
	viper.BindPFlag("server.port", flags.Lookup("port"))
	viper.BindPFlag("server.mode", flags.Lookup("mode"))
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfg.Server.Checkpoint == "" {
		return errors.New("--checkpoint is required")
	}

	store, dict, err := openCache()
	if err != nil {
		return err
	}
	store.Close()

	m, man, err := loadCheckpoint(cfg.Server.Checkpoint, dict)
	if err != nil {
		return err
	}
	logger.Info("loaded model", "checkpoint", cfg.Server.Checkpoint, "run_id", man.RunID, "epoch", man.Epoch)

	srv := server.New(cfg.Server, &server.ModelPredictor{Model: m, Dictionary: dict}, logger)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- srv.Start()
	}()

	select {
	case err := <-serverErrChan:
		return errors.Wrapf(err, "Server error\n")
	case sig := <-sigChan:
		logger.Info("received signal", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return errors.Wrapf(srv.Stop(shutdownCtx), "Server shutdown error\n")
	}
}
