package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vecna/internal/catalog"
	"vecna/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline worker in the foreground until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withManager(func(mgr *workflow.Manager, _ *catalog.Store) error {
				err := mgr.Run(signalCtx)
				if errors.Is(err, workflow.ErrWorkerRunning) {
					cfg, _ := ctx.ensureConfig()
					return fmt.Errorf("%w (lock %s)", err, cfg.WorkerLockPath())
				}
				return err
			})
		},
	}
}
