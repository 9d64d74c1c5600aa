// Package gitsource keeps local checkouts of git-backed card sources current.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// Syncer clones or fast-forwards repositories under a base directory.
type Syncer struct {
	BaseDir  string
	Progress io.Writer
	Logger   *slog.Logger
}

// New returns a Syncer that checks repositories out under baseDir.
func New(baseDir string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{BaseDir: baseDir, Logger: logger}
}

// Sync clones repoURL if it has no checkout yet, or pulls the latest changes
// if it does. It returns the path of the local checkout.
func (s *Syncer) Sync(ctx context.Context, repoURL string) (string, error) {
	localPath, err := LocalPath(s.BaseDir, repoURL)
	if err != nil {
		return "", err
	}

	_, err = os.Stat(localPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.Logger.Info("cloning repository", "url", repoURL, "path", localPath)
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:      repoURL,
			Progress: s.Progress,
		})
		if err != nil {
			return "", fmt.Errorf("failed to clone repo %s: %w", repoURL, err)
		}
	case err == nil:
		s.Logger.Info("pulling repository", "path", localPath)
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return "", fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return "", fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}
		err = worktree.PullContext(ctx, &git.PullOptions{
			RemoteName: "origin",
			Progress:   s.Progress,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return "", fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
	default:
		return "", fmt.Errorf("error checking path %s: %w", localPath, err)
	}
	return localPath, nil
}

// LocalPath maps an http(s) or scp-style git URL to a directory under baseDir,
// e.g. git@github.com:me/notes.git becomes baseDir/github.com/me/notes.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err == nil && (parsed.Scheme == "https" || parsed.Scheme == "http") && parsed.Host != "" {
		return filepath.Join(baseDir, parsed.Host, strings.TrimSuffix(parsed.Path, ".git")), nil
	}

	userHost, repoPath, ok := strings.Cut(repoURL, ":")
	if ok {
		if _, host, ok := strings.Cut(userHost, "@"); ok && host != "" && repoPath != "" {
			return filepath.Join(baseDir, host, strings.TrimSuffix(repoPath, ".git")), nil
		}
	}
	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}

// IsRemote reports whether path looks like a git URL rather than a local directory.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "http://") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "git@") ||
		strings.HasSuffix(path, ".git")
}
