package model

import (
	"fmt"
	"strings"
)

// Status is the health label assigned to a project from its EVM indices.
type Status string

const (
	StatusAhead     Status = "Ahead"
	StatusOnTrack   Status = "On Track"
	StatusBehind    Status = "Behind"
	StatusCompleted Status = "Completed"
	StatusStopped   Status = "Stopped"
)

// Color returns the hex color used for the status in exports and the dashboard.
func (s Status) Color() string {
	switch s {
	case StatusAhead:
		return "#28a745"
	case StatusOnTrack:
		return "#17a2b8"
	case StatusBehind:
		return "#dc3545"
	case StatusCompleted:
		return "#6f42c1"
	case StatusStopped:
		return "#6c757d"
	}
	return "#6c757d"
}

// ParseStatus accepts a label case-insensitively; "" and "all" yield "".
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", " "))
	switch norm {
	case "", "all":
		return "", nil
	case "ahead":
		return StatusAhead, nil
	case "on track", "ontrack":
		return StatusOnTrack, nil
	case "behind":
		return StatusBehind, nil
	case "completed":
		return StatusCompleted, nil
	case "stopped":
		return StatusStopped, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Trend is the direction of a project's recent index history.
type Trend string

const (
	TrendImproving Trend = "Improving"
	TrendDeclining Trend = "Declining"
	TrendStable    Trend = "Stable"
)

// FlowType is the period granularity of cash-flow and timeline views.
type FlowType string

const (
	FlowDaily   FlowType = "daily"
	FlowWeekly  FlowType = "weekly"
	FlowMonthly FlowType = "monthly"
	FlowYearly  FlowType = "yearly"
)

// ParseFlowType parses a flow granularity name.
func ParseFlowType(s string) (FlowType, error) {
	switch FlowType(strings.ToLower(strings.TrimSpace(s))) {
	case FlowDaily:
		return FlowDaily, nil
	case FlowWeekly:
		return FlowWeekly, nil
	case FlowMonthly, "":
		return FlowMonthly, nil
	case FlowYearly:
		return FlowYearly, nil
	}
	return "", fmt.Errorf("unknown flow type %q (want daily, weekly, monthly or yearly)", s)
}

// FlowKind selects running totals or per-period amounts.
type FlowKind string

const (
	FlowCumulative FlowKind = "cumulative"
	FlowInterval   FlowKind = "interval"
)

// ParseFlowKind parses a flow kind name.
func ParseFlowKind(s string) (FlowKind, error) {
	switch FlowKind(strings.ToLower(strings.TrimSpace(s))) {
	case FlowCumulative, "":
		return FlowCumulative, nil
	case FlowInterval:
		return FlowInterval, nil
	}
	return "", fmt.Errorf("unknown flow kind %q (want cumulative or interval)", s)
}
