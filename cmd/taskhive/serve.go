package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/mfarrow/taskhive/internal/api"
	"github.com/mfarrow/taskhive/internal/config"
	"github.com/mfarrow/taskhive/internal/contract"
	"github.com/mfarrow/taskhive/internal/metrics"
	"github.com/mfarrow/taskhive/internal/notify"
	"github.com/mfarrow/taskhive/internal/ratelimit"
	"github.com/mfarrow/taskhive/internal/task"
	"github.com/mfarrow/taskhive/internal/tasklist"
	"github.com/mfarrow/taskhive/internal/team"
	"github.com/mfarrow/taskhive/internal/user"
)

// sessionSweepInterval is how often expired sessions are purged.
const sessionSweepInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Taskhive API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	var dispatcher *notify.Dispatcher
	m := metrics.New(func() int {
		if dispatcher == nil {
			return 0
		}
		return dispatcher.QueueDepth()
	})
	m.RegisterDBPoolCollector(func() (total, idle, acquired int32) {
		st := pool.Stat()
		return st.TotalConns(), st.IdleConns(), st.AcquiredConns()
	})

	var notifier team.Notifier
	if cfg.Notify.APIKey != "" {
		client := notify.NewBrevoClient(cfg.Notify)
		dispatcher = notify.NewDispatcher(client, cfg.Notify.QueueSize, m.ObserveNotifySend)
		go dispatcher.Start(ctx)
		notifier = dispatcher
		slog.Info("notification dispatcher started", "queue_size", cfg.Notify.QueueSize)
	} else {
		slog.Info("notifications disabled: no API key configured")
	}

	userStore := user.NewStore(pool)
	teamStore := team.NewStore(pool)
	listStore := tasklist.NewStore(pool)
	taskStore := task.NewStore(pool)

	teamService := team.NewService(teamStore, userStore, notifier)
	listService := tasklist.NewService(listStore, teamService)
	taskService := task.NewService(taskStore, listService)

	limiter := ratelimit.New(cfg.RateLimit.Default, cfg.RateLimit.Window)

	go sweepSessions(ctx, userStore)

	router := api.NewRouter(api.RouterDeps{
		Users:          userStore,
		Teams:          teamService,
		Lists:          listService,
		Tasks:          taskService,
		Sessions:       user.NewAuthAdapter(userStore),
		Limiter:        limiter,
		Metrics:        m,
		Contract:       contract.NewRegistry(),
		DB:             pool,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if dispatcher != nil {
		dispatcher.Stop()
	}

	return srv.Shutdown(shutdownCtx)
}

// sweepSessions periodically removes expired sessions so the table does not
// grow without bound.
func sweepSessions(ctx context.Context, store *user.Store) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.CleanExpiredSessions(ctx)
			if err != nil {
				slog.Error("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired sessions removed", "count", n)
			}
		}
	}
}
