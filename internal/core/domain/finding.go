package domain

import "time"

type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

type FindingStatus string

const (
	StatusOpen       FindingStatus = "Open"
	StatusInProgress FindingStatus = "In Progress"
	StatusClosed     FindingStatus = "Closed"
)

// Finding is one audit-finding record as stored by the record store.
type Finding struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Recommendation string        `json:"recommendation,omitempty"`
	Severity       Severity      `json:"severity"`
	Status         FindingStatus `json:"status"`
	Department     string        `json:"department,omitempty"`
	ProjectType    string        `json:"project_type,omitempty"`
	Year           int           `json:"year,omitempty"`
	RiskScore      float64       `json:"risk_score"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func ParseSeverity(s string) (Severity, bool) {
	switch Severity(s) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return Severity(s), true
	}
	return "", false
}

func ParseStatus(s string) (FindingStatus, bool) {
	switch FindingStatus(s) {
	case StatusOpen, StatusInProgress, StatusClosed:
		return FindingStatus(s), true
	}
	return "", false
}
