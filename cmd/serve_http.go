package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lukman83/pricepulse/internal/api"
	mcpserver "github.com/lukman83/pricepulse/mcp"
)

const shutdownTimeout = 30 * time.Second

var serveHTTPCmd = &cobra.Command{
	Use:   "serve-http",
	Short: "Start the cron trigger and MCP server over HTTP",
	Long:  "Serve GET /api/cron, GET /healthz and the MCP endpoint at /mcp for remote schedulers and agents.",
	Args:  cobra.NoArgs,
	RunE:  runServeHTTP,
}

func init() {
	serveHTTPCmd.Flags().String("port", "", "HTTP port (default from $PORT or 8080)")
	serveHTTPCmd.Flags().Duration("every", 0, "Also run a cycle on this interval (e.g. 6h); 0 disables")
	rootCmd.AddCommand(serveHTTPCmd)
}

func runServeHTTP(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	port := cfg.HTTPPort
	if p, _ := cmd.Flags().GetString("port"); p != "" {
		port = p
	}
	every, _ := cmd.Flags().GetDuration("every")

	// Canceled on shutdown so a running cycle stops fetching.
	ctx, cancel := context.WithCancel(cmdContext(cmd))
	defer cancel()

	mux := api.NewMux(a.cron, cfg.CronSecret)
	mux.Handle("/mcp", mcpserver.Handler(a.service(), cfg.APIKey))
	srv := api.NewServer(fmt.Sprintf(":%s", port), mux, log)
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	if every > 0 {
		go a.cron.Every(ctx, every)
		log.Info("scheduled cycles enabled", zap.Duration("every", every))
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("PricePulse HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			log.Info("graceful shutdown initiated")
			cancel()
			return srv.Shutdown(ctx)
		},
	})

	select {
	case err := <-errc:
		return err
	case code := <-wait:
		if code != 0 {
			return fmt.Errorf("shutdown finished with exit code %d", code)
		}
		return nil
	}
}
