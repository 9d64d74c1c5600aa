// Package sync reconciles card sources (local directories or git repositories)
// with the card table: new cards are inserted, vanished cards are deleted and
// cards that are unchanged keep their review schedule.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/revisa/internal/domain"
	"github.com/conorfennell/revisa/internal/gitsource"
	"github.com/conorfennell/revisa/internal/knol"
	"github.com/conorfennell/revisa/internal/parser"
	"github.com/conorfennell/revisa/internal/sm2"
	"github.com/conorfennell/revisa/internal/storage"
)

// Source types stored in the sources table.
const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// Report summarises the reconciliation of one source.
type Report struct {
	SourceID int64
	Path     string
	Parsed   int
	Inserted int
	Deleted  int
	Errors   []error
}

// Syncer imports cards from every configured source.
type Syncer struct {
	db      *storage.DB
	git     *gitsource.Syncer
	newEase float64
	now     func() time.Time
	log     *slog.Logger
}

// Options configures a Syncer. Zero values fall back to sensible defaults.
type Options struct {
	ReposDir    string
	NewCardEase float64
	Now         func() time.Time
	Logger      *slog.Logger
}

func New(db *storage.DB, opts Options) *Syncer {
	s := &Syncer{
		db:      db,
		newEase: opts.NewCardEase,
		now:     opts.Now,
		log:     opts.Logger,
	}
	if s.newEase < sm2.MinEaseFactor {
		s.newEase = sm2.DefaultEaseFactor
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	reposDir := opts.ReposDir
	if reposDir == "" {
		reposDir = "repos"
	}
	s.git = gitsource.New(reposDir, s.log)
	return s
}

// AddSource registers a directory or git URL. Local paths are stored absolute.
// Adding a path that is already registered returns the existing source.
func (s *Syncer) AddSource(path string) (storage.Source, error) {
	sourceType := SourceLocal
	if gitsource.IsRemote(path) {
		sourceType = SourceGit
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return storage.Source{}, fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return storage.Source{}, fmt.Errorf("source path %s: %w", abs, err)
		}
		if !info.IsDir() {
			return storage.Source{}, fmt.Errorf("source path %s is not a directory", abs)
		}
		path = abs
	}

	existing, err := s.db.FindSourceByPath(path)
	if err != nil {
		return storage.Source{}, err
	}
	if existing != nil {
		s.log.Info("Source already exists", "id", existing.ID, "path", path)
		return *existing, nil
	}

	id, err := s.db.InsertSource(path, sourceType)
	if err != nil {
		return storage.Source{}, err
	}
	s.log.Info("Added source", "id", id, "type", sourceType, "path", path)
	return storage.Source{ID: id, Path: path, Type: sourceType}, nil
}

// Sources lists the registered sources.
func (s *Syncer) Sources() ([]storage.Source, error) {
	return s.db.GetAllSources()
}

// RunSync reconciles every source. A failing source is logged and skipped;
// only a failure to list the sources is returned.
func (s *Syncer) RunSync(ctx context.Context) ([]Report, error) {
	s.log.Info("Starting sync process for all sources...")
	sources, err := s.db.GetAllSources()
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}
	if len(sources) == 0 {
		s.log.Info("No sources configured. Add one with --add-source <path/or/url.git>")
		return nil, nil
	}

	var reports []Report
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		s.log.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		dir, err := s.checkout(ctx, source)
		if err != nil {
			s.log.Error("Error syncing source", "path", source.Path, "error", err)
			continue
		}
		report, err := s.Reconcile(ctx, source, dir)
		if err != nil {
			s.log.Error("Error reconciling source", "path", source.Path, "error", err)
			continue
		}
		reports = append(reports, report)
	}
	s.log.Info("Sync process complete.", "sources", len(reports))
	return reports, nil
}

func (s *Syncer) checkout(ctx context.Context, source storage.Source) (string, error) {
	switch source.Type {
	case SourceLocal:
		return source.Path, nil
	case SourceGit:
		return s.git.Sync(ctx, source.Path)
	default:
		return "", fmt.Errorf("unknown source type %q", source.Type)
	}
}

// Reconcile imports the markdown files under dir as the cards of source.
// Parse and insert failures are collected in the report; a walk failure aborts
// before anything is deleted.
func (s *Syncer) Reconcile(ctx context.Context, source storage.Source, dir string) (Report, error) {
	report := Report{SourceID: source.ID, Path: dir}
	seen := make(map[string]bool)
	dueDate := sm2.StartOfDay(s.now())

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !isMarkdown(d.Name()) {
			return nil
		}

		cards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		for _, card := range cards {
			report.Parsed++
			card.Hash = knol.Hash(card)
			if seen[card.Hash] {
				continue
			}
			seen[card.Hash] = true

			existing, err := s.db.FindCardByHash(ctx, card.Hash)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Errorf("db check for %s: %w", card.Hash, err))
				continue
			}
			if existing != nil {
				continue
			}
			card.ID = card.Hash
			card.SourceID = source.ID
			card.EaseFactor = s.newEase
			card.DueDate = dueDate
			if err := s.db.InsertCard(ctx, card); err != nil {
				report.Errors = append(report.Errors, fmt.Errorf("db insert for %s: %w", card.Hash, err))
				continue
			}
			s.log.Debug("New card inserted", "hash", card.Hash, "topic", card.TopicID)
			report.Inserted++
		}
		return nil
	})
	if walkErr != nil {
		return report, fmt.Errorf("error walking directory %s: %w", dir, walkErr)
	}

	dbCards, err := s.db.GetCardsBySourceID(ctx, source.ID)
	if err != nil {
		return report, fmt.Errorf("error getting cards for source %d: %w", source.ID, err)
	}
	for _, card := range dbCards {
		if seen[card.Hash] {
			continue
		}
		if err := s.db.DeleteCard(ctx, card.ID); err != nil && !errors.Is(err, domain.ErrCardNotFound) {
			s.log.Warn("Failed to delete orphaned card", "id", card.ID, "error", err)
			continue
		}
		report.Deleted++
	}

	if err := s.db.UpdateSourceLastScanned(source.ID); err != nil {
		s.log.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	s.log.Info("Reconciliation complete",
		"path", dir,
		"parsed_cards", report.Parsed,
		"inserted", report.Inserted,
		"orphaned_deleted", report.Deleted,
		"errors", len(report.Errors),
	)
	return report, nil
}

func isMarkdown(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".md")
}
