package models

import "time"

// IssueStatus represents the state of an issue.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "open"
	IssueStatusInProgress IssueStatus = "in_progress"
	IssueStatusResolved   IssueStatus = "resolved"
	IssueStatusClosed     IssueStatus = "closed"
)

// DefaultStatus is applied when a create payload omits status.
const DefaultStatus = IssueStatusOpen

// Valid reports whether s is one of the closed set of statuses.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusOpen, IssueStatusInProgress, IssueStatusResolved, IssueStatusClosed:
		return true
	}
	return false
}

// IssuePriority represents the urgency of an issue.
type IssuePriority string

const (
	IssuePriorityLow      IssuePriority = "low"
	IssuePriorityMedium   IssuePriority = "medium"
	IssuePriorityHigh     IssuePriority = "high"
	IssuePriorityCritical IssuePriority = "critical"
)

// DefaultPriority is applied when a create payload omits priority.
const DefaultPriority = IssuePriorityMedium

// Valid reports whether p is one of the closed set of priorities.
func (p IssuePriority) Valid() bool {
	switch p {
	case IssuePriorityLow, IssuePriorityMedium, IssuePriorityHigh, IssuePriorityCritical:
		return true
	}
	return false
}

// Field length limits enforced at the validation boundary.
const (
	MaxTitleLen    = 200
	MaxReporterLen = 100
	MaxAssigneeLen = 100
)

// Issue represents a tracked issue. The store assigns ID and both
// timestamps on create and refreshes UpdatedAt on every mutation.
type Issue struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      IssueStatus   `json:"status"`
	Priority    IssuePriority `json:"priority"`
	Reporter    string        `json:"reporter"`
	Assignee    string        `json:"assignee"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
