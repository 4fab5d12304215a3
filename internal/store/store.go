package store

import (
	"context"
	"errors"

	"trk/internal/models"
)

// ErrNotFound is returned when an issue id does not resolve to a row.
// Callers should match it with errors.Is.
var ErrNotFound = errors.New("issue not found")

// IssueFilter specifies optional exact-match predicates for listing
// issues. Non-zero fields are combined with AND.
type IssueFilter struct {
	Status   models.IssueStatus
	Priority models.IssuePriority
	Assignee string
}

// Page specifies pagination for listing issues. Limit must be in
// [1, MaxLimit]; range checks happen at the validation boundary, not here.
type Page struct {
	Skip  int64
	Limit int64
}

// Pagination bounds for list operations.
const (
	DefaultLimit = 100
	MaxLimit     = 100
)

// Store defines the persistence interface for trk.
type Store interface {
	// CreateIssue persists the issue. The store assigns ID, CreatedAt,
	// and UpdatedAt; any caller-supplied values for them are ignored.
	CreateIssue(ctx context.Context, issue *models.Issue) error

	// GetIssue returns the issue for id, or ErrNotFound.
	GetIssue(ctx context.Context, id int64) (*models.Issue, error)

	// ListIssues returns one page of issues matching filter, ordered by
	// id ascending, plus the total match count ignoring pagination.
	ListIssues(ctx context.Context, filter IssueFilter, page Page) ([]*models.Issue, int64, error)

	// UpdateIssue writes every mutable field of the issue identified by
	// issue.ID and refreshes UpdatedAt. Returns ErrNotFound when the id
	// does not resolve. CreatedAt is never touched.
	UpdateIssue(ctx context.Context, issue *models.Issue) error

	// DeleteIssue removes the issue permanently, or returns ErrNotFound.
	DeleteIssue(ctx context.Context, id int64) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
