package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ninetofiver/config"
	"ninetofiver/feed"
	"ninetofiver/web"
)

var (
	servePort   int
	serveHost   string
	serveDBPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local JSON API and leave feed server",
	Long: `Start a local HTTP server exposing:

- GET /feeds/leave.ics                          leave calendar feed
- GET /api/reports                              available reports
- GET /api/reports/{name}/filters               report filters with choices
- GET /api/reports/{name}?<filters>             report rows
- GET /api/redmine/users, /api/redmine/projects Redmine choices
- GET /api/users/{id}/redmine/performances      reconciled time entries (?from=&to=)
- GET /api/users/{id}/redmine/issues            assigned Redmine issues
- GET /metrics                                  Prometheus metrics

The server has no authentication and binds to localhost by default.`,
	Example: `
  # Start on the configured port (server.port, default 8080)
  ninetofiver serve

  # Start on a custom port with an explicit database
  ninetofiver serve --port 9090 --db ./ninetofiver.db
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}

		store, err := openStore(serveDBPath, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		client, err := newRedmineClient(cfg, log.Logger)
		if err != nil {
			return err
		}
		if client == nil {
			log.Warn().Msg("redmine is not configured, redmine endpoints return empty results")
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		addr := serveAddr(serveHost, port)

		server := &http.Server{
			Addr: addr,
			Handler: web.NewServer(web.Options{
				Store:    store,
				Client:   client,
				Resolver: resolverOptions(cfg),
				Feed:     feed.LeaveFeed{Link: cfg.Feeds.LeaveLink},
				Logger:   log.Logger,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.ListenAndServe()
		}()

		fmt.Printf("Listening on http://%s\n", addr)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-sigCh:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutdown server: %w", err)
			}
			err := <-errCh
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
	},
}

func serveAddr(host string, port int) string {
	host = strings.TrimSpace(host)
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP port (default: server.port)")
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Interface to bind")
	serveCmd.Flags().StringVar(&serveDBPath, "db", "", "Path to local SQLite database (default: database.path)")
}
