package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/routebot/internal/api"
)

func main() {
	root := &cobra.Command{
		Use:           "routebot",
		Short:         "Posts a random MyFly route with bookable itineraries to Discord",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to a YAML config file (default $ROUTEBOT_CONFIG)")
	flags.String("channel", "", "Discord channel id")
	flags.String("token", "", "Discord bot token")
	flags.Int("min-airport-size", 0, "Minimum airport size to sample")
	flags.Int("max-attempts", 0, "Maximum airport pairs to try")
	flags.Duration("retry-delay", 0, "Pause between failed attempts")
	flags.String("log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(runCmd())
	root.AddCommand(onceCmd())
	root.AddCommand(previewCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Post a route on a schedule and serve the ops API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer a.close()

			return serve(ctx, a)
		},
	}
}

func onceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Post one route immediately, ignoring the daily ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer a.close()

			msg, err := a.poster.Post(ctx, true)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func previewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Discover a route and print the message without posting",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer a.close()

			msg, _, err := a.poster.Compose(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

// serve runs the scheduler and, when configured, the ops API until ctx ends.
func serve(ctx context.Context, a *app) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.poster.RunScheduled(ctx, a.cfg.PostInterval)
		return nil
	})

	if a.cfg.HTTPAddr != "" {
		handlers := api.NewHandlers(a.poster, a.history(), a.log)
		router := api.NewRouter(handlers, a.cfg.BearerToken, a.dbPinger(), a.redisPinger(), a.registry, a.log)

		srv := &http.Server{
			Addr:         a.cfg.HTTPAddr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		}

		g.Go(func() error {
			a.log.Infow("ops api starting", "addr", a.cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listening: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("graceful shutdown: %w", err)
			}
			a.log.Infow("ops api shut down cleanly")
			return nil
		})
	}

	return g.Wait()
}
