package api

import (
	"fmt"

	"trk/internal/models"
)

// FieldError describes a single invalid field in a request payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field-level failures. It is always detected
// before any store call is attempted.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%d fields)", len(e.Fields))
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// err returns the collected error, or nil if every field passed.
func (e *ValidationError) err() *ValidationError {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// CreateRequest is the payload for POST /issues/ and PUT /issues/{id}.
// Status and priority are optional and default to open/medium.
type CreateRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Status      models.IssueStatus   `json:"status"`
	Priority    models.IssuePriority `json:"priority"`
	Reporter    string               `json:"reporter"`
	Assignee    string               `json:"assignee"`
}

// Validate checks required fields, length limits, and enum membership.
func (r *CreateRequest) Validate() *ValidationError {
	ve := &ValidationError{}
	if r.Title == "" {
		ve.add("title", "title is required")
	} else if len(r.Title) > models.MaxTitleLen {
		ve.add("title", fmt.Sprintf("title must be at most %d characters", models.MaxTitleLen))
	}
	if r.Reporter == "" {
		ve.add("reporter", "reporter is required")
	} else if len(r.Reporter) > models.MaxReporterLen {
		ve.add("reporter", fmt.Sprintf("reporter must be at most %d characters", models.MaxReporterLen))
	}
	if len(r.Assignee) > models.MaxAssigneeLen {
		ve.add("assignee", fmt.Sprintf("assignee must be at most %d characters", models.MaxAssigneeLen))
	}
	if r.Status != "" && !r.Status.Valid() {
		ve.add("status", fmt.Sprintf("invalid status: %s", r.Status))
	}
	if r.Priority != "" && !r.Priority.Valid() {
		ve.add("priority", fmt.Sprintf("invalid priority: %s", r.Priority))
	}
	return ve.err()
}

// Issue builds a new Issue from the payload, applying enum defaults for
// omitted status/priority. ID and timestamps are left for the store.
func (r *CreateRequest) Issue() *models.Issue {
	issue := &models.Issue{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Reporter:    r.Reporter,
		Assignee:    r.Assignee,
	}
	if issue.Status == "" {
		issue.Status = models.DefaultStatus
	}
	if issue.Priority == "" {
		issue.Priority = models.DefaultPriority
	}
	return issue
}

// UpdateRequest is the payload for PATCH /issues/{id}. Every field is a
// pointer so a field omitted from the JSON body (nil) is distinguished
// from one explicitly set to its empty value.
type UpdateRequest struct {
	Title       *string               `json:"title"`
	Description *string               `json:"description"`
	Status      *models.IssueStatus   `json:"status"`
	Priority    *models.IssuePriority `json:"priority"`
	Reporter    *string               `json:"reporter"`
	Assignee    *string               `json:"assignee"`
}

// Validate checks only the fields that are present in the payload.
// Explicitly clearing a required field is rejected.
func (r *UpdateRequest) Validate() *ValidationError {
	ve := &ValidationError{}
	if r.Title != nil {
		if *r.Title == "" {
			ve.add("title", "title must not be empty")
		} else if len(*r.Title) > models.MaxTitleLen {
			ve.add("title", fmt.Sprintf("title must be at most %d characters", models.MaxTitleLen))
		}
	}
	if r.Reporter != nil {
		if *r.Reporter == "" {
			ve.add("reporter", "reporter must not be empty")
		} else if len(*r.Reporter) > models.MaxReporterLen {
			ve.add("reporter", fmt.Sprintf("reporter must be at most %d characters", models.MaxReporterLen))
		}
	}
	if r.Assignee != nil && len(*r.Assignee) > models.MaxAssigneeLen {
		ve.add("assignee", fmt.Sprintf("assignee must be at most %d characters", models.MaxAssigneeLen))
	}
	if r.Status != nil && !r.Status.Valid() {
		ve.add("status", fmt.Sprintf("invalid status: %s", *r.Status))
	}
	if r.Priority != nil && !r.Priority.Valid() {
		ve.add("priority", fmt.Sprintf("invalid priority: %s", *r.Priority))
	}
	return ve.err()
}

// Apply merges the provided fields onto the issue, leaving omitted
// fields untouched.
func (r *UpdateRequest) Apply(issue *models.Issue) {
	if r.Title != nil {
		issue.Title = *r.Title
	}
	if r.Description != nil {
		issue.Description = *r.Description
	}
	if r.Status != nil {
		issue.Status = *r.Status
	}
	if r.Priority != nil {
		issue.Priority = *r.Priority
	}
	if r.Reporter != nil {
		issue.Reporter = *r.Reporter
	}
	if r.Assignee != nil {
		issue.Assignee = *r.Assignee
	}
}

// ListResponse is the body for GET /issues/: one page plus the total
// match count ignoring pagination.
type ListResponse struct {
	Total  int64           `json:"total"`
	Count  int             `json:"count"`
	Issues []*models.Issue `json:"issues"`
}

// MessageResponse is the confirmation body for DELETE /issues/{id}.
type MessageResponse struct {
	Message string `json:"message"`
}
