package report

import (
	"fmt"

	"github.com/theirongolddev/evmboard/internal/evm"
)

// Risk levels assigned in the risk register.
const (
	RiskHigh   = "High"
	RiskMedium = "Medium"
	RiskLow    = "Low"
	RiskNone   = "None"
)

// GeneralRecommendations close every briefing.
var GeneralRecommendations = []string{
	"Review delayed projects every reporting period.",
	"Rebalance resource allocation toward projects behind plan.",
	"Track actual costs against planned costs monthly.",
}

// below reports whether an index is known and under limit. A zero index
// means the ratio had no denominator yet.
func below(v, limit float64) bool {
	return v > 0 && v < limit
}

// Recommendations returns one action per problem found in details. When no
// project crosses a threshold the advice is to keep the current pace.
func Recommendations(details []evm.KPI, th evm.Thresholds) []string {
	var out []string
	for _, k := range details {
		if below(k.CPI, th.OnTrackCPI) {
			out = append(out, fmt.Sprintf("%s: cost overrun (CPI %.3f). Review spending and remaining commitments.", k.Project, k.CPI))
		}
		if below(k.SPI, th.OnTrackSPI) {
			out = append(out, fmt.Sprintf("%s: behind schedule (SPI %.3f, %.1f%% done vs %.1f%% planned). Prepare a recovery plan.",
				k.Project, k.SPI, k.ActualPercent, k.PlannedPercent))
		}
	}
	if len(out) == 0 {
		out = append(out, "All projects are within thresholds. Keep the current pace.")
	}
	return out
}

// RiskLevel grades a project by how many indices sit under the on-track
// thresholds.
func RiskLevel(k evm.KPI, th evm.Thresholds) string {
	n := 0
	if below(k.CPI, th.OnTrackCPI) {
		n++
	}
	if below(k.SPI, th.OnTrackSPI) {
		n++
	}
	switch {
	case n == 2:
		return RiskHigh
	case n == 1:
		return RiskMedium
	case below(k.CPI, th.AheadCPI) || below(k.SPI, th.AheadSPI):
		return RiskLow
	}
	return RiskNone
}

func riskRank(level string) int {
	switch level {
	case RiskHigh:
		return 0
	case RiskMedium:
		return 1
	case RiskLow:
		return 2
	}
	return 3
}

// progressBand labels completion for the executive summary.
func progressBand(completion float64) string {
	switch {
	case completion > 80:
		return "Advanced"
	case completion > 50:
		return "On Track"
	default:
		return "Needs Follow-up"
	}
}
