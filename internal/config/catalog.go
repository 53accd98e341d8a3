package config

// CatalogConfig tunes classification and scoring output.
type CatalogConfig struct {
	DefaultOwner   string   `yaml:"default_owner,omitempty"`
	ScoreThreshold int      `yaml:"score_threshold,omitempty"`
	ReportLimit    int      `yaml:"report_limit,omitempty"`
	Exclude        []string `yaml:"exclude,omitempty"`
}

// Excluded reports whether a repository name is configured to be skipped.
func (c CatalogConfig) Excluded(repo string) bool {
	for _, name := range c.Exclude {
		if name == repo {
			return true
		}
	}
	return false
}

// OnboardingConfig tunes the pull-request creation flow.
type OnboardingConfig struct {
	BranchPrefix string   `yaml:"branch_prefix,omitempty"`
	IssueLabels  []string `yaml:"issue_labels,omitempty"`
	Workers      int      `yaml:"workers,omitempty"`
}
