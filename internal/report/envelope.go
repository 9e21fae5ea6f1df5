package report

import (
	"encoding/json"
	"fmt"

	"github.com/tanzil7890/schemarefly/internal/types"
)

// The wire envelope (schema version 1.x). Field order is fixed by the
// struct definitions below, so decoding a report and re-encoding it yields
// byte-identical output.

type wireVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

type wireSummary struct {
	Total              int `json:"total"`
	Errors             int `json:"errors"`
	Warnings           int `json:"warnings"`
	Info               int `json:"info"`
	ModelsChecked      int `json:"models_checked"`
	ContractsValidated int `json:"contracts_validated"`
}

type wireLocation struct {
	File   string `json:"file"`
	Line   *int   `json:"line,omitempty"`
	Column *int   `json:"column,omitempty"`
}

type wireDiagnostic struct {
	Code     string       `json:"code"`
	Severity string       `json:"severity"`
	Message  string       `json:"message"`
	Location wireLocation `json:"location"`
	Expected string       `json:"expected,omitempty"`
	Actual   string       `json:"actual,omitempty"`
	Impact   []string     `json:"impact"`
}

type wireState struct {
	Modified         []string `json:"modified"`
	New              []string `json:"new"`
	Deleted          []string `json:"deleted"`
	TotalBlastRadius int      `json:"total_blast_radius"`
}

type wireMetadata struct {
	RunID string     `json:"run_id,omitempty"`
	State *wireState `json:"state,omitempty"`
}

type wireReport struct {
	Version     wireVersion      `json:"version"`
	Timestamp   string           `json:"timestamp"`
	ContentHash string           `json:"content_hash"`
	Summary     wireSummary      `json:"summary"`
	Diagnostics []wireDiagnostic `json:"diagnostics"`
	Metadata    wireMetadata     `json:"metadata"`
}

// EncodeJSON serializes r into the stable report envelope. The output is
// deterministic for a given Report value apart from the run id carried in
// metadata; the content hash never covers timestamp or metadata.
func EncodeJSON(r Report) ([]byte, error) {
	w := wireReport{
		Version:     wireVersion{Major: r.Version.Major, Minor: r.Version.Minor},
		Timestamp:   r.Timestamp,
		ContentHash: r.ContentHash,
		Summary: wireSummary{
			Total:              r.Summary.Total,
			Errors:             r.Summary.Errors,
			Warnings:           r.Summary.Warnings,
			Info:               r.Summary.Info,
			ModelsChecked:      r.Summary.ModelsChecked,
			ContractsValidated: r.Summary.ContractsValidated,
		},
		Diagnostics: make([]wireDiagnostic, len(r.Diagnostics)),
		Metadata:    wireMetadata{RunID: r.RunID},
	}
	for i, d := range r.Diagnostics {
		wd := wireDiagnostic{
			Code:     string(d.Code),
			Severity: d.Severity.String(),
			Message:  d.Message,
			Location: wireLocation{File: d.Location.File},
			Expected: d.Expected,
			Actual:   d.Actual,
			Impact:   append([]string{}, d.Impact...),
		}
		if d.Location.HasPos {
			line, col := d.Location.Line, d.Location.Column
			wd.Location.Line = &line
			wd.Location.Column = &col
		}
		w.Diagnostics[i] = wd
	}
	if r.State != nil {
		w.Metadata.State = &wireState{
			Modified:         emptyIfNil(r.State.Modified),
			New:              emptyIfNil(r.State.New),
			Deleted:          emptyIfNil(r.State.Deleted),
			TotalBlastRadius: r.State.TotalBlastRadius,
		}
	}
	out, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("report: encode: %w", err)
	}
	return append(out, '\n'), nil
}

// DecodeJSON parses report envelope bytes back into a Report. Re-encoding
// the result reproduces the input byte for byte for any envelope this
// package produced.
func DecodeJSON(data []byte) (Report, error) {
	var w wireReport
	if err := json.Unmarshal(data, &w); err != nil {
		return Report{}, fmt.Errorf("report: decode: %w", err)
	}
	r := Report{
		Version:     Version{Major: w.Version.Major, Minor: w.Version.Minor},
		RunID:       w.Metadata.RunID,
		Timestamp:   w.Timestamp,
		ContentHash: w.ContentHash,
		Summary: Summary{
			Total:              w.Summary.Total,
			Errors:             w.Summary.Errors,
			Warnings:           w.Summary.Warnings,
			Info:               w.Summary.Info,
			ModelsChecked:      w.Summary.ModelsChecked,
			ContractsValidated: w.Summary.ContractsValidated,
		},
		Diagnostics: make([]types.Diagnostic, len(w.Diagnostics)),
	}
	for i, wd := range w.Diagnostics {
		d := types.Diagnostic{
			Code:     types.Code(wd.Code),
			Severity: parseSeverity(wd.Severity),
			Message:  wd.Message,
			Location: types.Location{File: wd.Location.File},
			Expected: wd.Expected,
			Actual:   wd.Actual,
			Impact:   append([]string{}, wd.Impact...),
		}
		if wd.Location.Line != nil {
			d.Location.Line = *wd.Location.Line
			d.Location.HasPos = true
		}
		if wd.Location.Column != nil {
			d.Location.Column = *wd.Location.Column
		}
		r.Diagnostics[i] = d
	}
	if w.Metadata.State != nil {
		r.State = &StateMetadata{
			Modified:         w.Metadata.State.Modified,
			New:              w.Metadata.State.New,
			Deleted:          w.Metadata.State.Deleted,
			TotalBlastRadius: w.Metadata.State.TotalBlastRadius,
		}
	}
	return r, nil
}

func parseSeverity(s string) types.Severity {
	switch s {
	case "error":
		return types.SeverityError
	case "warning":
		return types.SeverityWarning
	default:
		return types.SeverityInfo
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
