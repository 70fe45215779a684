package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/clipforge/internal/observability"
	"github.com/3leaps/clipforge/internal/server"
	"github.com/3leaps/clipforge/pkg/protocol"
)

var serveHTTP bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tool protocol on stdin/stdout",
	Long: `Serve the line-oriented JSON tool protocol for one agent client.

Requests arrive one per line on stdin; responses and error records leave on
stdout. Logging goes to stderr so the protocol channel stays clean. The
session ends on EOF or SIGINT/SIGTERM.

Examples:
  clipforge serve                          # stdio protocol only
  clipforge serve --http                   # also expose /health, /version, /jobs
  clipforge --workdir /srv/media serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveHTTP, "http", false, "Expose the HTTP status server")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildDeps(ctx)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Failed to initialize serve session", err)
	}

	log := observability.CLILogger

	if serveHTTP {
		statusSrv := server.New(deps.cfg.Server, versionInfo.Version, deps.manager, log)
		statusSrv.RegisterChecker("workdir", server.CheckerFunc(func(context.Context) error {
			info, err := os.Stat(deps.cfg.Workdir)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", deps.cfg.Workdir)
			}
			return nil
		}))
		go func() {
			if err := statusSrv.Start(ctx, deps.cfg.Server.ShutdownTimeout); err != nil {
				log.Error("status server stopped", zap.Error(err))
			}
		}()
	}

	log.Info("serve session started",
		zap.String("workdir", deps.cfg.Workdir),
		zap.Strings("tools", deps.registry.Tools()))

	srv := protocol.NewServer(os.Stdin, os.Stdout, deps.registry, log)
	if err := srv.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("serve session interrupted")
			return nil
		}
		return exitError(foundry.ExitFileReadError, "Protocol loop failed", err)
	}

	log.Info("serve session ended")
	return nil
}
