package onboard

import "encoding/json"

// AppPermissions lists the repository permissions the automation needs.
// Administration is required for the branch protection override.
type AppPermissions struct {
	Contents       string `json:"contents"`
	Metadata       string `json:"metadata"`
	PullRequests   string `json:"pull_requests"`
	Issues         string `json:"issues"`
	Administration string `json:"administration"`
}

// AppManifest is the GitHub App manifest for installing the automation.
type AppManifest struct {
	Name           string `json:"name"`
	URL            string `json:"url"`
	HookAttributes struct {
		URL string `json:"url"`
	} `json:"hook_attributes"`
	Permissions AppPermissions `json:"permissions"`
	Events      []string       `json:"events"`
}

// NewAppManifest builds the manifest for the given app name and webhook base
// URL.
func NewAppManifest(name, webhookURL string) AppManifest {
	manifest := AppManifest{
		Name: name,
		URL:  webhookURL,
		Permissions: AppPermissions{
			Contents:       "write",
			Metadata:       "read",
			PullRequests:   "write",
			Issues:         "write",
			Administration: "write",
		},
		Events: []string{"issues", "issue_comment", "pull_request"},
	}
	manifest.HookAttributes.URL = webhookURL + "/api/github/webhook"
	return manifest
}

// JSON renders the manifest as indented JSON.
func (m AppManifest) JSON() (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
