package forge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/stagehand/internal/config"
	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
	"git.home.luguber.info/inful/stagehand/internal/logfields"
)

// LocalClient reads repositories from a directory of git clones. It exists
// for development and air-gapped runs; it has no write surface, so
// onboarding against it fails with ErrReadOnly at the factory.
type LocalClient struct {
	org    string
	root   string
	logger *slog.Logger
}

var _ Client = (*LocalClient)(nil)

// NewLocalClient creates a client over the clone root from the forge config.
func NewLocalClient(fc config.ForgeConfig, logger *slog.Logger) (*LocalClient, error) {
	if fc.Type != config.ForgeLocal {
		return nil, fnderrors.ValidationError(
			fmt.Sprintf("invalid forge type for local client: %s", fc.Type)).Build()
	}
	if logger == nil {
		logger = slog.Default()
	}

	root, err := filepath.Abs(fc.Path)
	if err != nil {
		return nil, fnderrors.ConfigError("resolving clone root").
			WithContext("path", fc.Path).
			Cause(err).
			Build()
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fnderrors.ConfigError("clone root is not a directory").
			WithContext("path", root).
			Build()
	}

	return &LocalClient{org: fc.Org, root: root, logger: logger}, nil
}

func (c *LocalClient) Org() string { return c.org }

// ListRepositories enumerates the clone root. Directories that are not git
// repositories are skipped; a broken clone is logged and skipped rather than
// failing the enumeration.
func (c *LocalClient) ListRepositories(ctx context.Context) ([]Repository, error) {
	dirents, err := os.ReadDir(c.root)
	if err != nil {
		return nil, fnderrors.GitError("reading clone root").
			WithContext("path", c.root).
			Cause(err).
			Build()
	}

	var repos []Repository
	for _, dirent := range dirents {
		if !dirent.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(c.root, dirent.Name(), ".git")); err != nil {
			continue
		}
		repo, err := c.inspect(dirent.Name())
		if err != nil {
			c.logger.Warn("skipping unreadable clone",
				logfields.Repository(dirent.Name()),
				logfields.Error(err))
			continue
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

// GetRepository inspects a single clone.
func (c *LocalClient) GetRepository(ctx context.Context, name string) (Repository, error) {
	if _, err := os.Stat(filepath.Join(c.root, name, ".git")); err != nil {
		return Repository{}, fmt.Errorf("%s/%s: %w", c.org, name, ErrRepositoryNotFound)
	}
	return c.inspect(name)
}

// inspect derives the metadata snapshot from the clone's history: creation
// time from the earliest commit, push time from the latest.
func (c *LocalClient) inspect(name string) (Repository, error) {
	repo := Repository{
		ID:       "local:" + name,
		Name:     name,
		FullName: c.org + "/" + name,
	}

	gitRepo, err := git.PlainOpen(filepath.Join(c.root, name))
	if err != nil {
		return Repository{}, fnderrors.GitError("opening clone").
			WithContext("repository", name).
			Cause(err).
			Build()
	}

	head, err := gitRepo.Head()
	if err != nil {
		// A clone without commits still counts as a repository.
		return repo, nil
	}
	if head.Name().IsBranch() {
		repo.DefaultBranch = head.Name().Short()
	}

	iter, err := gitRepo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return Repository{}, fnderrors.GitError("reading history").
			WithContext("repository", name).
			Cause(err).
			Build()
	}
	defer iter.Close()

	err = iter.ForEach(func(commit *object.Commit) error {
		when := commit.Committer.When
		if repo.CreatedAt.IsZero() || when.Before(repo.CreatedAt) {
			repo.CreatedAt = when
		}
		if when.After(repo.PushedAt) {
			repo.PushedAt = when
		}
		return nil
	})
	if err != nil {
		return Repository{}, fnderrors.GitError("walking history").
			WithContext("repository", name).
			Cause(err).
			Build()
	}
	return repo, nil
}

// resolve joins path under the clone, rejecting traversal outside it.
func (c *LocalClient) resolve(repo, path string) (string, error) {
	full := filepath.Join(c.root, repo, filepath.FromSlash(path))
	if !strings.HasPrefix(full, filepath.Join(c.root, repo)+string(filepath.Separator)) &&
		full != filepath.Join(c.root, repo) {
		return "", fnderrors.ValidationError("path escapes repository").
			WithContext("path", path).
			Build()
	}
	return full, nil
}

func (c *LocalClient) FileExists(ctx context.Context, repo, path string) (bool, error) {
	full, err := c.resolve(repo, path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *LocalClient) GetFileContent(ctx context.Context, repo, path string) (string, error) {
	full, err := c.resolve(repo, path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s/%s: %w", repo, path, ErrNotFound)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fnderrors.ForgeError("path is not a file").
			WithContext("path", path).
			Build()
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *LocalClient) ListEntries(ctx context.Context, repo, dir string) ([]Entry, error) {
	full, err := c.resolve(repo, dir)
	if err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s: %w", repo, dir, ErrNotFound)
		}
		return nil, err
	}

	entries := make([]Entry, 0, len(dirents))
	for _, dirent := range dirents {
		if dir == "" && dirent.Name() == ".git" {
			continue
		}
		entryType := EntryFile
		if dirent.IsDir() {
			entryType = EntryDir
		}
		entryPath := dirent.Name()
		if dir != "" {
			entryPath = strings.TrimSuffix(dir, "/") + "/" + dirent.Name()
		}
		entries = append(entries, Entry{Name: dirent.Name(), Path: entryPath, Type: entryType})
	}
	return entries, nil
}

// ListOpenPullRequests always reports none; local clones carry no review state.
func (c *LocalClient) ListOpenPullRequests(ctx context.Context, repo string) ([]PullRequest, error) {
	return nil, nil
}

func (c *LocalClient) GetPullRequest(ctx context.Context, repo string, number int) (PullRequest, error) {
	return PullRequest{}, fmt.Errorf("%s#%d: %w", repo, number, ErrNotFound)
}

func (c *LocalClient) CommitCount(ctx context.Context, repo string) (int, error) {
	gitRepo, err := git.PlainOpen(filepath.Join(c.root, repo))
	if err != nil {
		return 0, fnderrors.GitError("opening clone").
			WithContext("repository", repo).
			Cause(err).
			Build()
	}
	head, err := gitRepo.Head()
	if err != nil {
		return 0, nil
	}
	iter, err := gitRepo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return 0, fnderrors.GitError("reading history").
			WithContext("repository", repo).
			Cause(err).
			Build()
	}
	defer iter.Close()

	count := 0
	err = iter.ForEach(func(*object.Commit) error {
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// BranchProtected always reports false; clones carry no protection settings.
func (c *LocalClient) BranchProtected(ctx context.Context, repo, branch string) (bool, error) {
	return false, nil
}

// TopContributor tallies commit authors across the clone's history. Ties
// break toward the lexicographically smaller name so the result is stable.
func (c *LocalClient) TopContributor(ctx context.Context, repo string) (string, error) {
	gitRepo, err := git.PlainOpen(filepath.Join(c.root, repo))
	if err != nil {
		return "", fnderrors.GitError("opening clone").
			WithContext("repository", repo).
			Cause(err).
			Build()
	}
	head, err := gitRepo.Head()
	if err != nil {
		return "", fmt.Errorf("%s: no commits: %w", repo, ErrNotFound)
	}
	iter, err := gitRepo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return "", fnderrors.GitError("reading history").
			WithContext("repository", repo).
			Cause(err).
			Build()
	}
	defer iter.Close()

	counts := map[string]int{}
	err = iter.ForEach(func(commit *object.Commit) error {
		counts[commit.Author.Name]++
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(counts) == 0 {
		return "", fmt.Errorf("%s: no contributors: %w", repo, ErrNotFound)
	}

	top := ""
	for name, n := range counts {
		if top == "" || n > counts[top] || (n == counts[top] && name < top) {
			top = name
		}
	}
	return top, nil
}

// TeamsForUser always reports none; there is no team structure locally.
func (c *LocalClient) TeamsForUser(ctx context.Context, login string) ([]string, error) {
	return nil, nil
}
