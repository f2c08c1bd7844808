package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/spiderlog/internal/server"
)

func serveCommand(flags *globalFlags) *cobra.Command {
	var (
		metricsAddr string
		noReminders bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Start the MCP server on stdio together with the feeding reminder loop.

Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "spiderlog": {
        "command": "spiderlog",
        "args": ["serve"]
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			app, err := flags.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if metricsAddr != "" {
				app.Config.MetricsAddr = metricsAddr
			}

			s, err := server.New(app)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}

			var wg sync.WaitGroup

			if !noReminders {
				worker, err := app.Reminder()
				if err != nil {
					return fmt.Errorf("creating reminders: %w", err)
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := worker.Run(ctx); err != nil {
						app.Logger.Error("reminder loop stopped", "module", "serve", "error", err)
					}
				}()
			}

			if app.Config.MetricsAddr != "" {
				srv := &http.Server{
					Addr:              app.Config.MetricsAddr,
					Handler:           metricsMux(app),
					ReadHeaderTimeout: 5 * time.Second,
				}
				wg.Add(2)
				go func() {
					defer wg.Done()
					app.Logger.Info("serving metrics", "module", "serve", "addr", srv.Addr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						app.Logger.Error("metrics server failed", "module", "serve", "error", err)
					}
				}()
				go func() {
					defer wg.Done()
					<-ctx.Done()
					shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
					defer done()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			err = mcpserver.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout)
			cancel()
			wg.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9464")
	cmd.Flags().BoolVar(&noReminders, "no-reminders", false, "Do not run the feeding reminder loop")
	return cmd
}

// metricsMux exposes /metrics and a liveness endpoint.
func metricsMux(app *server.App) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.Metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
