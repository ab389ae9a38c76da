package reporting

import (
	"fmt"
	"strings"

	"uniswap-econ-lab/internal/domain"
)

// RenderEffectsCSV renders the event-time coefficient table as a CSV string.
// One row per non-reference relative time, ascending.
func RenderEffectsCSV(effects []domain.EventTimeEffect) string {
	var sb strings.Builder

	sb.WriteString("relative_time,parameter,lower,upper\n")

	for _, e := range effects {
		sb.WriteString(fmt.Sprintf("%d,%.10g,%.10g,%.10g\n",
			e.RelTime,
			e.Parameter,
			e.Lower,
			e.Upper,
		))
	}

	return sb.String()
}
