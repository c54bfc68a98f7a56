package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/calermo/seo-manager/internal/httpapi"
	"github.com/calermo/seo-manager/internal/research"
	"github.com/calermo/seo-manager/internal/service"
	"github.com/calermo/seo-manager/pkg/log"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr     string
	UIDir    string
	NoSweep  bool
	Research bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard backend",
		Long: `Start the HTTP backend: catalog and cache endpoints, the background
action queue, the notification stream, and the periodic cache sweep.

Example:
  seo-manager serve
  seo-manager serve --addr :9090 --ui ./dist`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	cmd.Flags().StringVar(&opts.UIDir, "ui", "", "serve the dashboard UI from this directory")
	cmd.Flags().BoolVar(&opts.NoSweep, "no-sweep", false, "disable the periodic cache sweep")
	cmd.Flags().BoolVar(&opts.Research, "research", true, "enable the research console endpoint")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	serverOpts := []httpapi.Option{}
	if opts.UIDir != "" {
		serverOpts = append(serverOpts, httpapi.WithUI(opts.UIDir, true))
	}

	if opts.Research && len(a.cfg.Research.APIKeys) > 0 {
		console, err := research.NewConsole(
			a.cfg.Research.APIURL,
			a.cfg.Research.Model,
			a.cfg.Research.APIKeys,
			time.Duration(a.cfg.Research.Timeout)*time.Second,
		)
		if err != nil {
			return err
		}
		serverOpts = append(serverOpts, httpapi.WithResearchConsole(console))
	}

	if !opts.NoSweep {
		janitor, err := service.NewJanitor(a.svc, a.cfg.Cache.SweepCron)
		if err != nil {
			return err
		}
		janitor.Start()
		defer janitor.Stop()
		serverOpts = append(serverOpts, httpapi.WithJanitor(janitor))
	}

	server := httpapi.NewServer(a.svc, serverOpts...)

	addr := opts.Addr
	if addr == "" {
		addr = a.cfg.System.HTTPAddr
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening on %s", addr)
		errCh <- server.ListenAndServe(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
