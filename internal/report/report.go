// Package report assembles a collected diagnostic list into the stable,
// hashable envelope gating CI: canonical ordering, a content hash,
// a summary, and a schema version tag.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/tanzil7890/schemarefly/internal/config"
	"github.com/tanzil7890/schemarefly/internal/types"
)

// Version is the report envelope's schema version. Additive changes bump
// Minor; field removal/retype bumps Major.
type Version struct {
	Major int
	Minor int
}

// CurrentVersion is the schema version this assembler emits.
var CurrentVersion = Version{Major: 1, Minor: 0}

// Summary is the diagnostic/run-level rollup carried in every report.
type Summary struct {
	Total              int
	Errors             int
	Warnings           int
	Info               int
	ModelsChecked      int
	ContractsValidated int
}

// StateMetadata carries the optional state-comparison summary when
// a run was compared against a baseline manifest (--state), whether or not
// it was restricted to the modified closure.
type StateMetadata struct {
	Modified         []string
	New              []string
	Deleted          []string
	TotalBlastRadius int
}

// Report is the assembled, stable output value.
type Report struct {
	Version     Version
	RunID       string
	Timestamp   string // ISO-8601; excluded from the content hash
	ContentHash string // "sha256:<hex>"
	Summary     Summary
	Diagnostics []types.Diagnostic
	State       *StateMetadata
}

// Assemble resolves effective severities (registry default, then
// configuration override — overrides apply here, never at diagnostic
// creation), sorts diagnostics
// into canonical order, computes the summary and content hash, and
// produces the final Report. timestamp is an injected ISO-8601 string so
// callers control wall-clock dependence rather than this package reaching
// for time.Now().
func Assemble(diags []types.Diagnostic, cfg *config.Config, modelsChecked, contractsValidated int, state *StateMetadata, timestamp string) Report {
	resolved := make([]types.Diagnostic, len(diags))
	copy(resolved, diags)
	for i := range resolved {
		resolved[i].Severity = effectiveSeverity(resolved[i].Code, cfg)
	}
	types.SortCanonical(resolved)

	summary := Summary{ModelsChecked: modelsChecked, ContractsValidated: contractsValidated}
	for _, d := range resolved {
		summary.Total++
		switch d.Severity {
		case types.SeverityError:
			summary.Errors++
		case types.SeverityWarning:
			summary.Warnings++
		default:
			summary.Info++
		}
	}

	return Report{
		Version:     CurrentVersion,
		RunID:       uuid.NewString(),
		Timestamp:   timestamp,
		ContentHash: contentHash(resolved),
		Summary:     summary,
		Diagnostics: resolved,
		State:       state,
	}
}

func effectiveSeverity(code types.Code, cfg *config.Config) types.Severity {
	if cfg != nil {
		if sev, ok := cfg.SeverityOverride(code); ok {
			return sev
		}
	}
	if sev, ok := types.DefaultSeverity[code]; ok {
		return sev
	}
	return types.SeverityWarning
}

// contentHash is a SHA-256 digest over a canonical textual serialization
// of the ordered diagnostics, excluding the timestamp. Two runs over
// identical inputs — same ordering, same fields — produce identical
// hashes.
func contentHash(diags []types.Diagnostic) string {
	var sb strings.Builder
	for _, d := range diags {
		fmt.Fprintf(&sb, "%s\x1f%s\x1f%s\x1f%s\x1f%d\x1f%d\x1f%s\x1f%s\x1f%s\n",
			d.Code, d.Severity, d.Message, d.Location.File, d.Location.Line, d.Location.Column,
			d.Expected, d.Actual, strings.Join(d.Impact, ","))
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// ExitCode maps a report's resolved severities to the CLI's stable exit
// code contract: 0 if no Error remains after overrides, 1 otherwise.
// Bad-argument (2), I/O (3), and internal (4) codes are the caller's own
// concern, not this package's.
func ExitCode(r Report) int {
	if r.Summary.Errors > 0 {
		return 1
	}
	return 0
}

var (
	quotedRe  = regexp.MustCompile(`"[^"]*"`)
	keywordRe = regexp.MustCompile(`(?i)\b(column|table|schema|model)\s+([A-Za-z_][A-Za-z0-9_.]*)`)
)

// Redact replaces schema/table/column identifiers in a rendered message
// with a fixed placeholder, for logging under the redaction environment
// variable. Structured fields (Expected, Actual,
// Location, Impact) are untouched by this function — redaction applies
// only to text a human will read in a log line, never to the Diagnostic
// values serialized into the report itself.
func Redact(message string) string {
	out := quotedRe.ReplaceAllString(message, `"<redacted>"`)
	out = keywordRe.ReplaceAllString(out, "$1 <redacted>")
	return out
}
