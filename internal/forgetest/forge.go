// Package forgetest provides an in-memory forge implementation for tests.
// It implements both forge.Client and forge.Mutator, records every mutation,
// and lets tests inject failures per operation.
package forgetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"git.home.luguber.info/inful/stagehand/internal/forge"
)

// Fake is an in-memory forge. All exported maps may be populated directly by
// tests before use; methods are safe for concurrent callers.
type Fake struct {
	mu sync.Mutex

	org string

	Repos        []forge.Repository
	Files        map[string]map[string]string // repo -> path -> content
	PRs          map[string][]forge.PullRequest
	Commits      map[string]int
	Contributors map[string]string   // repo -> top contributor login
	Teams        map[string][]string // login -> team names
	Protections  map[string]*forge.Protection

	// Errs injects failures, keyed "Op", "Op:repo" or "Op:repo:path";
	// the most specific key wins.
	Errs map[string]error

	CreatedBranches []BranchRecord
	CreatedFiles    []FileRecord
	CreatedPRs      []forge.PullRequest
	CreatedIssues   []IssueRecord
	Merged          []MergeRecord
	RemovedShields  []string
	AppliedShields  []ShieldRecord

	nextPR int
}

var (
	_ forge.Client  = (*Fake)(nil)
	_ forge.Mutator = (*Fake)(nil)
)

type BranchRecord struct {
	Repo, Branch, From string
}

type FileRecord struct {
	Repo, Path, Message, Content, Branch string
}

type IssueRecord struct {
	Repo, Title, Body string
	Labels            []string
	Number            int
}

type MergeRecord struct {
	Repo          string
	Number        int
	Method        string
	CommitTitle   string
	CommitMessage string
}

type ShieldRecord struct {
	Repo, Branch string
	Protection   *forge.Protection
}

// New creates an empty Fake bound to org.
func New(org string) *Fake {
	return &Fake{
		org:          org,
		Files:        map[string]map[string]string{},
		PRs:          map[string][]forge.PullRequest{},
		Commits:      map[string]int{},
		Contributors: map[string]string{},
		Teams:        map[string][]string{},
		Protections:  map[string]*forge.Protection{},
		Errs:         map[string]error{},
	}
}

// AddRepo registers a repository and returns the Fake for chaining.
func (f *Fake) AddRepo(repo forge.Repository) *Fake {
	f.Repos = append(f.Repos, repo)
	return f
}

// AddFile stores default-branch content for a repository.
func (f *Fake) AddFile(repo, path, content string) *Fake {
	if f.Files[repo] == nil {
		f.Files[repo] = map[string]string{}
	}
	f.Files[repo][path] = content
	return f
}

// FailWith injects err for the given key ("Op", "Op:repo" or "Op:repo:path").
func (f *Fake) FailWith(key string, err error) *Fake {
	f.Errs[key] = err
	return f
}

func (f *Fake) fail(op, repo, path string) error {
	if err, ok := f.Errs[op+":"+repo+":"+path]; ok {
		return err
	}
	if err, ok := f.Errs[op+":"+repo]; ok {
		return err
	}
	if err, ok := f.Errs[op]; ok {
		return err
	}
	return nil
}

func (f *Fake) Org() string { return f.org }

func (f *Fake) ListRepositories(_ context.Context) ([]forge.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListRepositories", "", ""); err != nil {
		return nil, err
	}
	out := make([]forge.Repository, len(f.Repos))
	copy(out, f.Repos)
	return out, nil
}

func (f *Fake) GetRepository(_ context.Context, name string) (forge.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetRepository", name, ""); err != nil {
		return forge.Repository{}, err
	}
	for _, repo := range f.Repos {
		if repo.Name == name {
			return repo, nil
		}
	}
	return forge.Repository{}, fmt.Errorf("%s: %w", name, forge.ErrRepositoryNotFound)
}

func (f *Fake) FileExists(_ context.Context, repo, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("FileExists", repo, path); err != nil {
		return false, err
	}
	files := f.Files[repo]
	if _, ok := files[path]; ok {
		return true, nil
	}
	// Directory probe: any stored file below path counts.
	prefix := strings.TrimSuffix(path, "/") + "/"
	for p := range files {
		if strings.HasPrefix(p, prefix) {
			return true, nil
		}
	}
	return false, nil
}

func (f *Fake) GetFileContent(_ context.Context, repo, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetFileContent", repo, path); err != nil {
		return "", err
	}
	if content, ok := f.Files[repo][path]; ok {
		return content, nil
	}
	return "", fmt.Errorf("%s/%s: %w", repo, path, forge.ErrNotFound)
}

func (f *Fake) ListEntries(_ context.Context, repo, path string) ([]forge.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListEntries", repo, path); err != nil {
		return nil, err
	}

	prefix := ""
	if path != "" {
		prefix = strings.TrimSuffix(path, "/") + "/"
	}

	seen := map[string]forge.Entry{}
	found := path == ""
	for p := range f.Files[repo] {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		found = true
		rest := strings.TrimPrefix(p, prefix)
		if rest == "" {
			continue
		}
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			name := rest[:idx]
			seen[name] = forge.Entry{Name: name, Path: prefix + name, Type: forge.EntryDir}
		} else {
			seen[rest] = forge.Entry{Name: rest, Path: p, Type: forge.EntryFile}
		}
	}
	if !found {
		return nil, fmt.Errorf("%s/%s: %w", repo, path, forge.ErrNotFound)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]forge.Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, seen[name])
	}
	return entries, nil
}

func (f *Fake) ListOpenPullRequests(_ context.Context, repo string) ([]forge.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListOpenPullRequests", repo, ""); err != nil {
		return nil, err
	}
	out := make([]forge.PullRequest, len(f.PRs[repo]))
	copy(out, f.PRs[repo])
	return out, nil
}

func (f *Fake) GetPullRequest(_ context.Context, repo string, number int) (forge.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetPullRequest", repo, ""); err != nil {
		return forge.PullRequest{}, err
	}
	for _, pr := range f.PRs[repo] {
		if pr.Number == number {
			return pr, nil
		}
	}
	return forge.PullRequest{}, fmt.Errorf("%s#%d: %w", repo, number, forge.ErrNotFound)
}

func (f *Fake) CommitCount(_ context.Context, repo string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CommitCount", repo, ""); err != nil {
		return 0, err
	}
	return f.Commits[repo], nil
}

func (f *Fake) BranchProtected(_ context.Context, repo, branch string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("BranchProtected", repo, branch); err != nil {
		return false, err
	}
	return f.Protections[repo+"/"+branch] != nil, nil
}

func (f *Fake) TopContributor(_ context.Context, repo string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("TopContributor", repo, ""); err != nil {
		return "", err
	}
	if login, ok := f.Contributors[repo]; ok {
		return login, nil
	}
	return "", fmt.Errorf("%s: %w", repo, forge.ErrNotFound)
}

func (f *Fake) TeamsForUser(_ context.Context, login string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("TeamsForUser", login, ""); err != nil {
		return nil, err
	}
	return f.Teams[login], nil
}

func (f *Fake) CreateBranch(_ context.Context, repo, branch, fromBranch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateBranch", repo, branch); err != nil {
		return err
	}
	f.CreatedBranches = append(f.CreatedBranches, BranchRecord{Repo: repo, Branch: branch, From: fromBranch})
	return nil
}

// CreateFile records the commit. Content lands on a feature branch, so the
// default-branch Files map stays untouched.
func (f *Fake) CreateFile(_ context.Context, repo, path, message, content, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateFile", repo, path); err != nil {
		return err
	}
	f.CreatedFiles = append(f.CreatedFiles, FileRecord{
		Repo: repo, Path: path, Message: message, Content: content, Branch: branch,
	})
	return nil
}

func (f *Fake) CreatePullRequest(_ context.Context, repo, title, body, head, base string) (forge.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreatePullRequest", repo, ""); err != nil {
		return forge.PullRequest{}, err
	}
	f.nextPR++
	pr := forge.PullRequest{
		Number: f.nextPR,
		Title:  title,
		Branch: head,
		Base:   base,
		URL:    fmt.Sprintf("https://forge.test/%s/%s/pull/%d", f.org, repo, f.nextPR),
	}
	f.CreatedPRs = append(f.CreatedPRs, pr)
	f.PRs[repo] = append(f.PRs[repo], pr)
	return pr, nil
}

func (f *Fake) CreateIssue(_ context.Context, repo, title, body string, labels []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateIssue", repo, ""); err != nil {
		return 0, err
	}
	number := len(f.CreatedIssues) + 1
	f.CreatedIssues = append(f.CreatedIssues, IssueRecord{
		Repo: repo, Title: title, Body: body, Labels: labels, Number: number,
	})
	return number, nil
}

func (f *Fake) MergePullRequest(_ context.Context, repo string, number int, method, commitTitle, commitMessage string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("MergePullRequest", repo, ""); err != nil {
		return false, err
	}
	f.Merged = append(f.Merged, MergeRecord{
		Repo: repo, Number: number, Method: method,
		CommitTitle: commitTitle, CommitMessage: commitMessage,
	})
	return true, nil
}

func (f *Fake) BranchProtection(_ context.Context, repo, branch string) (*forge.Protection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("BranchProtection", repo, branch); err != nil {
		return nil, err
	}
	return f.Protections[repo+"/"+branch], nil
}

func (f *Fake) RemoveBranchProtection(_ context.Context, repo, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("RemoveBranchProtection", repo, branch); err != nil {
		return err
	}
	delete(f.Protections, repo+"/"+branch)
	f.RemovedShields = append(f.RemovedShields, repo+"/"+branch)
	return nil
}

func (f *Fake) SetBranchProtection(_ context.Context, repo, branch string, protection *forge.Protection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SetBranchProtection", repo, branch); err != nil {
		return err
	}
	f.Protections[repo+"/"+branch] = protection
	f.AppliedShields = append(f.AppliedShields, ShieldRecord{Repo: repo, Branch: branch, Protection: protection})
	return nil
}
