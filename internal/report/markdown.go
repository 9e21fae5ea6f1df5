package report

import (
	"fmt"
	"strings"
)

// EncodeMarkdown renders a human-readable companion report. It is advisory
// output for PR comments and the like; the JSON envelope remains the
// machine contract.
func EncodeMarkdown(r Report) []byte {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Contract check report\n\n")
	fmt.Fprintf(&sb, "- Generated: %s\n", r.Timestamp)
	fmt.Fprintf(&sb, "- Models checked: %d, contracts validated: %d\n", r.Summary.ModelsChecked, r.Summary.ContractsValidated)
	fmt.Fprintf(&sb, "- Errors: %d, warnings: %d, info: %d\n\n", r.Summary.Errors, r.Summary.Warnings, r.Summary.Info)

	if r.State != nil {
		fmt.Fprintf(&sb, "## State comparison\n\n")
		fmt.Fprintf(&sb, "- Modified: %s\n", listOrNone(r.State.Modified))
		fmt.Fprintf(&sb, "- New: %s\n", listOrNone(r.State.New))
		fmt.Fprintf(&sb, "- Deleted: %s\n", listOrNone(r.State.Deleted))
		fmt.Fprintf(&sb, "- Total blast radius: %d\n\n", r.State.TotalBlastRadius)
	}

	if len(r.Diagnostics) == 0 {
		sb.WriteString("No diagnostics.\n")
		return []byte(sb.String())
	}

	sb.WriteString("| Severity | Code | Location | Message |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, d := range r.Diagnostics {
		loc := d.Location.File
		if d.Location.HasPos {
			loc = fmt.Sprintf("%s:%d:%d", d.Location.File, d.Location.Line, d.Location.Column)
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", d.Severity, d.Code, loc, strings.ReplaceAll(d.Message, "|", "\\|"))
	}
	return []byte(sb.String())
}

func listOrNone(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}
