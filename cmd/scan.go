package main

import (
	"context"
	"fmt"
	"os/signal"
	"scanrelay/internal/api/handler/v1handler"
	"scanrelay/internal/config"
	"syscall"

	"github.com/go-faster/jx"
	"github.com/spf13/cobra"
)

// scanCommand runs a single scan from the command line and prints what the
// HTTP endpoint would have answered.
func scanCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <url>",
		Short: "Scans one URL and prints the upstream result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if cfg.HTTP.RequestTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.HTTP.RequestTimeout)
				defer cancel()
			}

			s := getScanner(ctx, cfg, nil)
			res, err := s.Scan(ctx, args[0])
			if err != nil {
				e := v1handler.New(v1handler.Deps{}).NewError(ctx, err)
				var enc jx.Encoder
				e.Encode(&enc)
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), string(enc.Bytes()))

				return fmt.Errorf("scan failed with status %d", e.StatusCode)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(res.Payload))

			return nil
		},
	}
	cmd.SilenceUsage = true

	return cmd
}
