package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	title := r.Title
	if title == "" {
		title = "Event-Study Report"
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Control cohort: %d\n\n", r.ControlCohort))

	// Event-time coefficients
	sb.WriteString("## Event-Time Coefficients\n\n")
	if len(r.Effects) > 0 {
		sb.WriteString("| Relative Time | Parameter | Lower | Upper |\n")
		sb.WriteString("|---------------|-----------|-------|-------|\n")
		for _, e := range r.Effects {
			sb.WriteString(fmt.Sprintf("| %d | %.6f | %.6f | %.6f |\n",
				e.RelTime, e.Parameter, e.Lower, e.Upper))
		}
	} else {
		sb.WriteString("No coefficients estimated.\n")
	}
	sb.WriteString("\n")

	// Absorbed cells
	if len(r.DroppedCells) > 0 {
		sb.WriteString("## Absorbed Cells\n\n")
		sb.WriteString("The following cohort-time cells were collinear with the fixed effects and excluded:\n\n")
		for _, name := range r.DroppedCells {
			sb.WriteString(fmt.Sprintf("- %s\n", name))
		}
		sb.WriteString("\n")
	}

	// Cohort shares
	sb.WriteString("## Cohort Shares\n\n")
	if len(r.ShareRows) > 0 {
		sb.WriteString("| Relative Time | Cohort | Share |\n")
		sb.WriteString("|---------------|--------|-------|\n")
		for _, s := range r.ShareRows {
			sb.WriteString(fmt.Sprintf("| %d | %d | %.6f |\n", s.RelTime, s.Cohort, s.Share))
		}
	} else {
		sb.WriteString("No shares computed.\n")
	}
	sb.WriteString("\n")

	// Harvest summary
	if len(r.Harvest) > 0 {
		sb.WriteString("## Harvest Summary\n\n")
		sb.WriteString("| Day | State | Records | Pages | Digest |\n")
		sb.WriteString("|-----|-------|---------|-------|--------|\n")
		for _, h := range r.Harvest {
			digest := h.Digest
			if len(digest) > 12 {
				digest = digest[:12]
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %s |\n",
				h.Day, h.State, h.Records, h.Pages, digest))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
