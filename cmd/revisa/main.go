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

	"github.com/spf13/pflag"

	"github.com/conorfennell/revisa/internal/config"
	"github.com/conorfennell/revisa/internal/metrics"
	"github.com/conorfennell/revisa/internal/progress"
	"github.com/conorfennell/revisa/internal/review"
	"github.com/conorfennell/revisa/internal/session"
	"github.com/conorfennell/revisa/internal/storage"
	"github.com/conorfennell/revisa/internal/sync"
	"github.com/conorfennell/revisa/internal/undo"
	"github.com/conorfennell/revisa/internal/web"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("revisa failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("revisa", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	configPath := fs.String("config", "revisa.yaml", "Path to an optional YAML config file")
	addSource := fs.String("add-source", "", "Add a new source path (local directory or git URL)")
	runSync := fs.Bool("sync", false, "Sync all sources and exit")
	watch := fs.Bool("watch", false, "Re-sync local sources whenever their files change")
	serve := fs.Bool("serve", false, "Start the web server")
	due := fs.Bool("due", false, "Print the cards due today and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	db, err := storage.Open(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Debug("Database opened", "path", cfg.DB.Path)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncer := sync.New(db, sync.Options{
		ReposDir:    cfg.Sources.ReposDir,
		NewCardEase: cfg.Study.NewCardEase,
		Logger:      logger,
	})

	switch {
	case *addSource != "":
		_, err := syncer.AddSource(*addSource)
		return err
	case *runSync:
		_, err := syncer.RunSync(ctx)
		return err
	case *due:
		return printDue(ctx, db)
	case *serve:
		return serveHTTP(ctx, cfg, db, syncer, *watch, logger)
	case *watch:
		return syncer.Watch(ctx, sync.DefaultDebounce)
	default:
		fs.Usage()
		return nil
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func printDue(ctx context.Context, db *storage.DB) error {
	cards, err := db.GetDueCards(ctx, time.Now())
	if err != nil {
		return err
	}
	metrics.DueCards.Set(float64(len(cards)))
	for _, c := range cards {
		fmt.Printf("%s\t%s\t%s\t%s\n", c.DueDate.Format("2006-01-02"), c.TopicID, c.ID, c.Question)
	}
	fmt.Printf("%d card(s) due.\n", len(cards))
	return nil
}

// progressStore returns the configured store. A progress file that cannot be decoded
// is reported here rather than silently dropped by the session manager.
func progressStore(cfg *config.Config, db *storage.DB, logger *slog.Logger) (session.ProgressStore, error) {
	if cfg.Progress.Backend != "file" {
		return db, nil
	}
	store := progress.NewFileStore(cfg.Progress.Path)
	keys, err := store.Keys()
	if err != nil {
		return nil, err
	}
	logger.Info("Using progress file", "path", cfg.Progress.Path, "keys", keys)
	return store, nil
}

func serveHTTP(ctx context.Context, cfg *config.Config, db *storage.DB, syncer *sync.Syncer, watch bool, logger *slog.Logger) error {
	store, err := progressStore(cfg, db, logger)
	if err != nil {
		return err
	}
	sessions := session.NewManager(store, session.WithLogger(logger))
	reviewer := review.NewReviewer(review.Config{
		Sessions: sessions,
		Updater:  undo.NewUpdater(db, logger),
		Cards:    db,
		History:  db,
		Deleter:  db,
		Logger:   logger,
	})
	srv, err := web.NewServer(web.Deps{
		DB:          db,
		Reviewer:    reviewer,
		Syncer:      syncer,
		NewCardEase: cfg.Study.NewCardEase,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	if watch {
		go func() {
			if err := syncer.Watch(ctx, sync.DefaultDebounce); err != nil {
				logger.Error("Watcher stopped", "error", err)
			}
		}()
	}

	go checkpoint(ctx, sessions, cfg.Study.CheckpointInterval)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", "http://"+cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		sessions.SaveProgress()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = httpServer.Shutdown(shutdownCtx)
	sessions.SaveProgress()
	return err
}

// checkpoint saves the active session's progress until ctx is done.
func checkpoint(ctx context.Context, sessions *session.Manager, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.SaveProgress()
		}
	}
}
