package forge

import (
	"context"
	"time"
)

// Repository is an immutable metadata snapshot of a repository, read once per
// classification pass. Classification and scoring never mutate it.
type Repository struct {
	ID            string    `json:"id"`             // Unique ID from the forge
	Name          string    `json:"name"`           // Repository name
	FullName      string    `json:"full_name"`      // Full name (org/repo)
	Description   string    `json:"description"`    // Repository description
	Language      string    `json:"language"`       // Primary programming language
	Topics        []string  `json:"topics"`         // Repository topics/tags
	Stars         int       `json:"stars"`          // Stargazer count
	Forks         int       `json:"forks"`          // Fork count
	CreatedAt     time.Time `json:"created_at"`     // Creation timestamp
	PushedAt      time.Time `json:"pushed_at"`      // Last push timestamp (zero when never pushed)
	Archived      bool      `json:"archived"`       // Is repository archived
	Private       bool      `json:"private"`        // Is repository private
	Homepage      string    `json:"homepage"`       // Homepage URL
	DefaultBranch string    `json:"default_branch"` // Default branch name
	HTMLURL       string    `json:"html_url"`       // Web URL of the repository
}

// BaseBranch returns the repository's default branch, falling back to "main"
// when the forge did not report one.
func (r Repository) BaseBranch() string {
	if r.DefaultBranch != "" {
		return r.DefaultBranch
	}
	return "main"
}

// EntryType distinguishes files from directories in a tree listing.
type EntryType string

const (
	EntryFile EntryType = "file"
	EntryDir  EntryType = "dir"
)

// Entry is a single file or directory in a repository tree listing.
type Entry struct {
	Name string    `json:"name"`
	Path string    `json:"path"`
	Type EntryType `json:"type"`
}

// PullRequest is the subset of pull-request state the automation needs.
type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Branch string `json:"branch"` // head branch name
	Base   string `json:"base"`   // base branch name
	URL    string `json:"url"`
}

// Protection carries the branch-protection settings the automation toggles
// around a force merge.
type Protection struct {
	Strict                  bool     `json:"strict"`
	Contexts                []string `json:"contexts"`
	EnforceAdmins           bool     `json:"enforce_admins"`
	DismissStaleReviews     bool     `json:"dismiss_stale_reviews"`
	RequireCodeOwnerReviews bool     `json:"require_code_owner_reviews"`
}

// Client is the read-only query surface against a forge organization.
//
// Lookup misses are reported as plain negative results (false, empty list) or
// as ErrNotFound for content fetches; they are never transport errors. Probe
// failures (network, auth) surface as errors and are classified per call site.
type Client interface {
	// Org returns the organization this client is bound to.
	Org() string

	// ListRepositories returns all repositories of the organization.
	ListRepositories(ctx context.Context) ([]Repository, error)

	// GetRepository returns the metadata snapshot for a single repository.
	GetRepository(ctx context.Context, name string) (Repository, error)

	// FileExists reports whether a file or directory exists at path on the
	// default branch. Absence is (false, nil), not an error.
	FileExists(ctx context.Context, repo, path string) (bool, error)

	// GetFileContent returns the decoded content of a file. A missing file
	// yields ErrNotFound.
	GetFileContent(ctx context.Context, repo, path string) (string, error)

	// ListEntries lists the direct children of path ("" for the root).
	ListEntries(ctx context.Context, repo, path string) ([]Entry, error)

	// ListOpenPullRequests returns the open pull requests of a repository.
	ListOpenPullRequests(ctx context.Context, repo string) ([]PullRequest, error)

	// GetPullRequest returns a single pull request by number.
	GetPullRequest(ctx context.Context, repo string, number int) (PullRequest, error)

	// CommitCount returns the number of commits on the default branch.
	CommitCount(ctx context.Context, repo string) (int, error)

	// BranchProtected reports whether branch protection is enabled. An
	// unprotected branch is (false, nil), not an error.
	BranchProtected(ctx context.Context, repo, branch string) (bool, error)

	// TopContributor returns the login of the most-contributing author.
	// A repository without contributors yields ErrNotFound.
	TopContributor(ctx context.Context, repo string) (string, error)

	// TeamsForUser returns the names of the organization teams the given
	// login belongs to. No membership is an empty list, not an error.
	TeamsForUser(ctx context.Context, login string) ([]string, error)
}

// Mutator is the write surface used by the onboarding orchestrator. Forges
// without a write API (the local clone source) do not provide one.
type Mutator interface {
	// CreateBranch creates branch pointing at the head of fromBranch.
	CreateBranch(ctx context.Context, repo, branch, fromBranch string) error

	// CreateFile commits a new file to branch.
	CreateFile(ctx context.Context, repo, path, message, content, branch string) error

	// CreatePullRequest opens a pull request from head into base.
	CreatePullRequest(ctx context.Context, repo, title, body, head, base string) (PullRequest, error)

	// CreateIssue opens an issue and returns its number.
	CreateIssue(ctx context.Context, repo, title, body string, labels []string) (int, error)

	// MergePullRequest merges a pull request and reports whether the forge
	// confirmed the merge.
	MergePullRequest(ctx context.Context, repo string, number int, method, commitTitle, commitMessage string) (bool, error)

	// BranchProtection returns the protection settings of branch, or nil
	// when the branch is unprotected.
	BranchProtection(ctx context.Context, repo, branch string) (*Protection, error)

	// RemoveBranchProtection lifts protection from branch.
	RemoveBranchProtection(ctx context.Context, repo, branch string) error

	// SetBranchProtection applies protection settings to branch.
	SetBranchProtection(ctx context.Context, repo, branch string, protection *Protection) error
}
