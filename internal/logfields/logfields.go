package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyOrg        = "org"
	KeyRepo       = "repository"
	KeyBranch     = "branch"
	KeyPRNumber   = "pr_number"
	KeyIssue      = "issue_number"
	KeyStage      = "stage"
	KeyForgeType  = "forge_type"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyStatus     = "status"
	KeyCount      = "count"
	KeyScore      = "score"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Org(o string) slog.Attr          { return slog.String(KeyOrg, o) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func PRNumber(n int) slog.Attr        { return slog.Int(KeyPRNumber, n) }
func IssueNumber(n int) slog.Attr     { return slog.Int(KeyIssue, n) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func ForgeType(t string) slog.Attr    { return slog.String(KeyForgeType, t) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Score(n int) slog.Attr           { return slog.Int(KeyScore, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
