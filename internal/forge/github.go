package forge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/stagehand/internal/config"
	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
)

// GitHubClient implements Client and Mutator against the GitHub REST API,
// for both github.com and enterprise installations.
type GitHubClient struct {
	org        string
	apiURL     string
	token      string
	httpClient *http.Client
}

var (
	_ Client  = (*GitHubClient)(nil)
	_ Mutator = (*GitHubClient)(nil)
)

// NewGitHubClient creates a client bound to the configured organization.
func NewGitHubClient(fc config.ForgeConfig) (*GitHubClient, error) {
	if fc.Type != config.ForgeGitHub {
		return nil, fnderrors.ValidationError(
			fmt.Sprintf("invalid forge type for GitHub client: %s", fc.Type)).Build()
	}
	if fc.Token == "" {
		return nil, fnderrors.AuthError("GitHub client requires a token").
			WithContext("org", fc.Org).
			Build()
	}

	apiURL := fc.APIURL
	if apiURL == "" {
		apiURL = "https://api.github.com"
	}

	return &GitHubClient{
		org:        fc.Org,
		apiURL:     apiURL,
		token:      fc.Token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Org returns the organization this client is bound to.
func (c *GitHubClient) Org() string { return c.org }

// githubRepo is the wire shape of a repository.
type githubRepo struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	Language      string    `json:"language"`
	Topics        []string  `json:"topics"`
	Stars         int       `json:"stargazers_count"`
	Forks         int       `json:"forks_count"`
	CreatedAt     time.Time `json:"created_at"`
	PushedAt      time.Time `json:"pushed_at"`
	Archived      bool      `json:"archived"`
	Private       bool      `json:"private"`
	Homepage      string    `json:"homepage"`
	DefaultBranch string    `json:"default_branch"`
	HTMLURL       string    `json:"html_url"`
}

func (g githubRepo) toRepository() Repository {
	return Repository{
		ID:            strconv.Itoa(g.ID),
		Name:          g.Name,
		FullName:      g.FullName,
		Description:   g.Description,
		Language:      g.Language,
		Topics:        g.Topics,
		Stars:         g.Stars,
		Forks:         g.Forks,
		CreatedAt:     g.CreatedAt,
		PushedAt:      g.PushedAt,
		Archived:      g.Archived,
		Private:       g.Private,
		Homepage:      g.Homepage,
		DefaultBranch: g.DefaultBranch,
		HTMLURL:       g.HTMLURL,
	}
}

// githubPull is the wire shape of a pull request.
type githubPull struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
	Head    struct {
		Ref string `json:"ref"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
}

func (g githubPull) toPullRequest() PullRequest {
	return PullRequest{
		Number: g.Number,
		Title:  g.Title,
		Branch: g.Head.Ref,
		Base:   g.Base.Ref,
		URL:    g.HTMLURL,
	}
}

// ListRepositories pages through all repositories of the organization,
// sorted by full name so enumeration order is stable between runs.
func (c *GitHubClient) ListRepositories(ctx context.Context) ([]Repository, error) {
	var repos []Repository
	for page := 1; ; page++ {
		query := url.Values{
			"per_page": {"100"},
			"page":     {strconv.Itoa(page)},
			"type":     {"all"},
			"sort":     {"full_name"},
		}
		req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/orgs/%s/repos", c.org), query, nil)
		if err != nil {
			return nil, err
		}

		var pageRepos []githubRepo
		if err := c.do(req, &pageRepos); err != nil {
			return nil, err
		}
		for _, gr := range pageRepos {
			repos = append(repos, gr.toRepository())
		}
		if len(pageRepos) < 100 {
			break
		}
	}
	return repos, nil
}

// GetRepository returns the metadata snapshot for a single repository.
func (c *GitHubClient) GetRepository(ctx context.Context, name string) (Repository, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s", c.org, name), nil, nil)
	if err != nil {
		return Repository{}, err
	}

	var gr githubRepo
	if err := c.do(req, &gr); err != nil {
		if IsNotFound(err) {
			return Repository{}, fmt.Errorf("%s/%s: %w", c.org, name, ErrRepositoryNotFound)
		}
		return Repository{}, err
	}
	return gr.toRepository(), nil
}

// FileExists probes the contents API; a 404 is a plain negative result.
func (c *GitHubClient) FileExists(ctx context.Context, repo, filePath string) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet,
		fmt.Sprintf("/repos/%s/%s/contents/%s", c.org, repo, filePath), nil, nil)
	if err != nil {
		return false, err
	}

	if err := c.do(req, nil); err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// githubContent is the wire shape of a contents-API file response.
type githubContent struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
	Name     string `json:"name"`
	Path     string `json:"path"`
}

// GetFileContent fetches and decodes a file from the default branch.
func (c *GitHubClient) GetFileContent(ctx context.Context, repo, filePath string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet,
		fmt.Sprintf("/repos/%s/%s/contents/%s", c.org, repo, filePath), nil, nil)
	if err != nil {
		return "", err
	}

	var content githubContent
	if err := c.do(req, &content); err != nil {
		return "", err
	}
	if content.Type != "" && content.Type != "file" {
		return "", fnderrors.ForgeError("path is not a file").
			WithContext("path", filePath).
			WithContext("type", content.Type).
			Build()
	}

	raw := strings.ReplaceAll(content.Content, "\n", "")
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", fnderrors.ForgeError("decoding file content").
			WithContext("path", filePath).
			Cause(err).
			Build()
	}
	return string(decoded), nil
}

// ListEntries lists the direct children of a directory ("" for the root).
func (c *GitHubClient) ListEntries(ctx context.Context, repo, dir string) ([]Entry, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/contents", c.org, repo)
	if dir != "" {
		endpoint = fmt.Sprintf("/repos/%s/%s/contents/%s", c.org, repo, dir)
	}
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}

	var listing []githubContent
	if err := c.do(req, &listing); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(listing))
	for _, item := range listing {
		entryType := EntryFile
		if item.Type == "dir" {
			entryType = EntryDir
		}
		entries = append(entries, Entry{Name: item.Name, Path: item.Path, Type: entryType})
	}
	return entries, nil
}

// ListOpenPullRequests pages through the open pull requests of a repository.
func (c *GitHubClient) ListOpenPullRequests(ctx context.Context, repo string) ([]PullRequest, error) {
	var prs []PullRequest
	for page := 1; ; page++ {
		query := url.Values{
			"state":    {"open"},
			"per_page": {"100"},
			"page":     {strconv.Itoa(page)},
		}
		req, err := c.newRequest(ctx, http.MethodGet,
			fmt.Sprintf("/repos/%s/%s/pulls", c.org, repo), query, nil)
		if err != nil {
			return nil, err
		}

		var pagePulls []githubPull
		if err := c.do(req, &pagePulls); err != nil {
			return nil, err
		}
		for _, gp := range pagePulls {
			prs = append(prs, gp.toPullRequest())
		}
		if len(pagePulls) < 100 {
			break
		}
	}
	return prs, nil
}

// GetPullRequest returns a single pull request by number.
func (c *GitHubClient) GetPullRequest(ctx context.Context, repo string, number int) (PullRequest, error) {
	req, err := c.newRequest(ctx, http.MethodGet,
		fmt.Sprintf("/repos/%s/%s/pulls/%d", c.org, repo, number), nil, nil)
	if err != nil {
		return PullRequest{}, err
	}

	var gp githubPull
	if err := c.do(req, &gp); err != nil {
		return PullRequest{}, err
	}
	return gp.toPullRequest(), nil
}

var lastPagePattern = regexp.MustCompile(`[?&]page=(\d+)>; rel="last"`)

// CommitCount reads the total number of commits from the pagination trailer
// of a single-commit listing. An empty repository reports zero.
func (c *GitHubClient) CommitCount(ctx context.Context, repo string) (int, error) {
	query := url.Values{"per_page": {"1"}}
	req, err := c.newRequest(ctx, http.MethodGet,
		fmt.Sprintf("/repos/%s/%s/commits", c.org, repo), query, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fnderrors.NetworkError("github request failed").
			WithContext("url", req.URL.String()).
			Cause(err).
			Build()
	}
	defer resp.Body.Close()

	// 409 means the repository has no commits yet.
	if resp.StatusCode == http.StatusConflict {
		return 0, nil
	}
	if resp.StatusCode >= 400 {
		return 0, c.apiError(resp)
	}

	if m := lastPagePattern.FindStringSubmatch(resp.Header.Get("Link")); m != nil {
		return strconv.Atoi(m[1])
	}

	// No Link header: everything fits on one page.
	var commits []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&commits); err != nil {
		return 0, fnderrors.ForgeError("decoding commit listing").Cause(err).Build()
	}
	return len(commits), nil
}

// BranchProtected reports whether branch protection is enabled; an
// unprotected branch is a plain negative result.
func (c *GitHubClient) BranchProtected(ctx context.Context, repo, branch string) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet,
		fmt.Sprintf("/repos/%s/%s/branches/%s/protection", c.org, repo, branch), nil, nil)
	if err != nil {
		return false, err
	}

	if err := c.do(req, nil); err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// TopContributor returns the login with the most commits.
func (c *GitHubClient) TopContributor(ctx context.Context, repo string) (string, error) {
	query := url.Values{"per_page": {"1"}}
	req, err := c.newRequest(ctx, http.MethodGet,
		fmt.Sprintf("/repos/%s/%s/contributors", c.org, repo), query, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fnderrors.NetworkError("github request failed").
			WithContext("url", req.URL.String()).
			Cause(err).
			Build()
	}
	defer resp.Body.Close()

	// 204 means the repository has no contributor statistics.
	if resp.StatusCode == http.StatusNoContent {
		return "", fmt.Errorf("%s: no contributors: %w", repo, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return "", c.apiError(resp)
	}

	var contributors []struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&contributors); err != nil {
		return "", fnderrors.ForgeError("decoding contributor listing").Cause(err).Build()
	}
	if len(contributors) == 0 {
		return "", fmt.Errorf("%s: no contributors: %w", repo, ErrNotFound)
	}
	return contributors[0].Login, nil
}

// githubTeam is the wire shape of an organization team.
type githubTeam struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// TeamsForUser resolves team membership by walking the organization's teams
// and checking each one. Missing membership is skipped, not an error.
func (c *GitHubClient) TeamsForUser(ctx context.Context, login string) ([]string, error) {
	var teams []githubTeam
	for page := 1; ; page++ {
		query := url.Values{
			"per_page": {"100"},
			"page":     {strconv.Itoa(page)},
		}
		req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/orgs/%s/teams", c.org), query, nil)
		if err != nil {
			return nil, err
		}

		var pageTeams []githubTeam
		if err := c.do(req, &pageTeams); err != nil {
			return nil, err
		}
		teams = append(teams, pageTeams...)
		if len(pageTeams) < 100 {
			break
		}
	}

	var names []string
	for _, team := range teams {
		req, err := c.newRequest(ctx, http.MethodGet,
			fmt.Sprintf("/orgs/%s/teams/%s/memberships/%s", c.org, team.Slug, login), nil, nil)
		if err != nil {
			return nil, err
		}

		var membership struct {
			State string `json:"state"`
		}
		if err := c.do(req, &membership); err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if membership.State == "active" {
			names = append(names, team.Name)
		}
	}
	return names, nil
}

// CreateBranch creates branch pointing at the current head of fromBranch.
func (c *GitHubClient) CreateBranch(ctx context.Context, repo, branch, fromBranch string) error {
	req, err := c.newRequest(ctx, http.MethodGet,
		fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s", c.org, repo, fromBranch), nil, nil)
	if err != nil {
		return err
	}

	var ref struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	if err := c.do(req, &ref); err != nil {
		return err
	}

	body := map[string]string{
		"ref": "refs/heads/" + branch,
		"sha": ref.Object.SHA,
	}
	req, err = c.newRequest(ctx, http.MethodPost,
		fmt.Sprintf("/repos/%s/%s/git/refs", c.org, repo), nil, body)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// CreateFile commits a new file to branch.
func (c *GitHubClient) CreateFile(ctx context.Context, repo, filePath, message, content, branch string) error {
	body := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
		"branch":  branch,
	}
	req, err := c.newRequest(ctx, http.MethodPut,
		fmt.Sprintf("/repos/%s/%s/contents/%s", c.org, repo, filePath), nil, body)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// CreatePullRequest opens a pull request from head into base.
func (c *GitHubClient) CreatePullRequest(ctx context.Context, repo, title, prBody, head, base string) (PullRequest, error) {
	body := map[string]string{
		"title": title,
		"body":  prBody,
		"head":  head,
		"base":  base,
	}
	req, err := c.newRequest(ctx, http.MethodPost,
		fmt.Sprintf("/repos/%s/%s/pulls", c.org, repo), nil, body)
	if err != nil {
		return PullRequest{}, err
	}

	var gp githubPull
	if err := c.do(req, &gp); err != nil {
		return PullRequest{}, err
	}
	return gp.toPullRequest(), nil
}

// CreateIssue opens an issue and returns its number.
func (c *GitHubClient) CreateIssue(ctx context.Context, repo, title, issueBody string, labels []string) (int, error) {
	body := map[string]any{
		"title": title,
		"body":  issueBody,
	}
	if len(labels) > 0 {
		body["labels"] = labels
	}
	req, err := c.newRequest(ctx, http.MethodPost,
		fmt.Sprintf("/repos/%s/%s/issues", c.org, repo), nil, body)
	if err != nil {
		return 0, err
	}

	var issue struct {
		Number int `json:"number"`
	}
	if err := c.do(req, &issue); err != nil {
		return 0, err
	}
	return issue.Number, nil
}

// MergePullRequest merges a pull request and reports whether GitHub
// confirmed the merge.
func (c *GitHubClient) MergePullRequest(ctx context.Context, repo string, number int, method, commitTitle, commitMessage string) (bool, error) {
	body := map[string]string{
		"merge_method":   method,
		"commit_title":   commitTitle,
		"commit_message": commitMessage,
	}
	req, err := c.newRequest(ctx, http.MethodPut,
		fmt.Sprintf("/repos/%s/%s/pulls/%d/merge", c.org, repo, number), nil, body)
	if err != nil {
		return false, err
	}

	var result struct {
		Merged  bool   `json:"merged"`
		Message string `json:"message"`
	}
	if err := c.do(req, &result); err != nil {
		return false, err
	}
	return result.Merged, nil
}

// githubProtection is the wire shape of branch-protection settings.
type githubProtection struct {
	RequiredStatusChecks *struct {
		Strict   bool     `json:"strict"`
		Contexts []string `json:"contexts"`
	} `json:"required_status_checks"`
	EnforceAdmins *struct {
		Enabled bool `json:"enabled"`
	} `json:"enforce_admins"`
	RequiredPullRequestReviews *struct {
		DismissStaleReviews     bool `json:"dismiss_stale_reviews"`
		RequireCodeOwnerReviews bool `json:"require_code_owner_reviews"`
	} `json:"required_pull_request_reviews"`
}

// BranchProtection returns the protection settings of branch, or nil when
// the branch is unprotected.
func (c *GitHubClient) BranchProtection(ctx context.Context, repo, branch string) (*Protection, error) {
	req, err := c.newRequest(ctx, http.MethodGet,
		fmt.Sprintf("/repos/%s/%s/branches/%s/protection", c.org, repo, branch), nil, nil)
	if err != nil {
		return nil, err
	}

	var gp githubProtection
	if err := c.do(req, &gp); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	protection := &Protection{}
	if gp.RequiredStatusChecks != nil {
		protection.Strict = gp.RequiredStatusChecks.Strict
		protection.Contexts = gp.RequiredStatusChecks.Contexts
	}
	if gp.EnforceAdmins != nil {
		protection.EnforceAdmins = gp.EnforceAdmins.Enabled
	}
	if gp.RequiredPullRequestReviews != nil {
		protection.DismissStaleReviews = gp.RequiredPullRequestReviews.DismissStaleReviews
		protection.RequireCodeOwnerReviews = gp.RequiredPullRequestReviews.RequireCodeOwnerReviews
	}
	return protection, nil
}

// RemoveBranchProtection lifts protection from branch.
func (c *GitHubClient) RemoveBranchProtection(ctx context.Context, repo, branch string) error {
	req, err := c.newRequest(ctx, http.MethodDelete,
		fmt.Sprintf("/repos/%s/%s/branches/%s/protection", c.org, repo, branch), nil, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// SetBranchProtection applies protection settings to branch.
func (c *GitHubClient) SetBranchProtection(ctx context.Context, repo, branch string, protection *Protection) error {
	contexts := protection.Contexts
	if contexts == nil {
		contexts = []string{}
	}
	body := map[string]any{
		"required_status_checks": map[string]any{
			"strict":   protection.Strict,
			"contexts": contexts,
		},
		"enforce_admins": protection.EnforceAdmins,
		"required_pull_request_reviews": map[string]any{
			"dismiss_stale_reviews":      protection.DismissStaleReviews,
			"require_code_owner_reviews": protection.RequireCodeOwnerReviews,
		},
		"restrictions": nil,
	}
	req, err := c.newRequest(ctx, http.MethodPut,
		fmt.Sprintf("/repos/%s/%s/branches/%s/protection", c.org, repo, branch), nil, body)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *GitHubClient) newRequest(ctx context.Context, method, endpoint string, query url.Values, body any) (*http.Request, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, err
	}
	u.Path = path.Join(u.Path, endpoint)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var req *http.Request
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		req, err = http.NewRequestWithContext(ctx, method, u.String(), strings.NewReader(string(jsonBody)))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		var err error
		req, err = http.NewRequestWithContext(ctx, method, u.String(), nil)
		if err != nil {
			return nil, err
		}
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "Stagehand/1.0")

	return req, nil
}

func (c *GitHubClient) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fnderrors.NetworkError("github request failed").
			WithContext("url", req.URL.String()).
			Cause(err).
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.apiError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fnderrors.ForgeError("decoding github response").
				WithContext("url", req.URL.String()).
				Cause(err).
				Build()
		}
	}
	return nil
}

func (c *GitHubClient) apiError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", resp.Request.Method, resp.Request.URL.Path, ErrNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fnderrors.AuthError("github rejected the request").
			WithContext("status", resp.StatusCode).
			WithContext("url", resp.Request.URL.String()).
			Build()
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fnderrors.ForgeError(fmt.Sprintf("github api error: %s", resp.Status)).
			WithContext("status", resp.StatusCode).
			WithContext("url", resp.Request.URL.String()).
			WithContext("body", strings.TrimSpace(string(body))).
			Build()
	}
}
