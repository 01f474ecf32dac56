package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	httpapi "github.com/immxrtalbeast/debatehall/internal/api/http"
	"github.com/immxrtalbeast/debatehall/internal/auth"
	"github.com/immxrtalbeast/debatehall/internal/config"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/lib/logger/sl"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type rootOptions struct {
	configPath string
}

func (o *rootOptions) load() (*config.Config, *slog.Logger) {
	cfg := config.MustLoad(o.configPath)
	return cfg, setupLogger(cfg.Env)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "debatehall",
		Short:        "Moderated debate sessions with live chat and voting",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default is $CONFIG_PATH or config/local.yaml)")

	root.AddCommand(
		newServeCmd(opts),
		newAdvanceCmd(opts),
		newMigrateCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket API together with the phase scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log := opts.load()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				log.Error("failed to start application", sl.Err(err))
				return err
			}
			defer a.Close()

			router, err := httpapi.SetupRouter(httpapi.RouterConfig{AllowOrigins: cfg.HTTP.AllowOrigins}, a.auth, a.controllers)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Addr:              cfg.HTTP.Address,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("starting application", slog.String("addr", cfg.HTTP.Address))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			if cfg.Scheduler.Disabled {
				log.Info("scheduler disabled, phases advance on demand only")
			} else {
				g.Go(func() error {
					return a.scheduler.Run(gctx)
				})
			}

			if err := g.Wait(); err != nil {
				log.Error("application stopped", sl.Err(err))
				return err
			}
			log.Info("application stopped")
			return nil
		},
	}
}

func newAdvanceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Run a single scheduler pass over active sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log := opts.load()

			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				log.Error("failed to start application", sl.Err(err))
				return err
			}
			defer a.Close()

			applied, err := a.scheduler.Tick(cmd.Context())
			log.Info("scheduler pass finished", slog.Int("transitions", applied))
			return err
		},
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, log := opts.load()

			db, err := connectDatabase(cfg.Database)
			if err != nil {
				log.Error("failed to connect database", sl.Err(err))
				return err
			}
			if err := migrate(db); err != nil {
				log.Error("failed to migrate", sl.Err(err))
				return err
			}
			log.Info("schema is up to date")
			return nil
		},
	}
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		userID   string
		username string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := opts.load()

			id := uuid.New()
			if userID != "" {
				parsed, err := uuid.Parse(userID)
				if err != nil {
					return fmt.Errorf("invalid user id: %w", err)
				}
				id = parsed
			}
			if !domain.UserRole(role).Valid() {
				return fmt.Errorf("unknown role %q", role)
			}

			token, err := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL).IssueToken(domain.Principal{
				UserID:   id,
				Username: username,
				Role:     domain.UserRole(role),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "user id (random when empty)")
	cmd.Flags().StringVar(&username, "username", "guest", "display name")
	cmd.Flags().StringVar(&role, "role", string(domain.UserRoleStudent), "student, moderator or admin")
	return cmd
}
