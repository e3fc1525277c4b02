// Package gitops prepares the target project checkout.
package gitops

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"
)

// ErrNotRepository is returned when dir exists but is not a git repository.
var ErrNotRepository = errors.New("not a git repository")

// Outcome reports what CloneOrPull did.
type Outcome string

const (
	Cloned   Outcome = "cloned"
	Pulled   Outcome = "pulled"
	UpToDate Outcome = "up_to_date"
	Existing Outcome = "existing"
)

// #region clone-or-pull
// CloneOrPull clones url into dir when dir does not exist. An existing dir must
// be a repository; it is pulled from origin only when pull is set.
func CloneOrPull(ctx context.Context, url, dir string, pull bool, logger *zap.Logger) (Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		logger.Info("cloning repository", zap.String("url", url), zap.String("dir", dir))
		if _, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{URL: url}); err != nil {
			return "", fmt.Errorf("clone %s: %w", url, err)
		}
		return Cloned, nil
	} else if err != nil {
		return "", fmt.Errorf("stat %s: %w", dir, err)
	}

	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return "", fmt.Errorf("%s: %w", dir, ErrNotRepository)
	}
	if err != nil {
		return "", fmt.Errorf("open %s: %w", dir, err)
	}
	if !pull {
		logger.Info("using existing repository without pulling", zap.String("dir", dir))
		return Existing, nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		logger.Info("repository already up to date", zap.String("dir", dir))
		return UpToDate, nil
	}
	if err != nil {
		return "", fmt.Errorf("pull: %w", err)
	}
	logger.Info("repository updated", zap.String("dir", dir))
	return Pulled, nil
}
// #endregion clone-or-pull

// Branch returns the checked-out branch name, or "" for a detached HEAD.
func Branch(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", dir, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return "", nil
}
