package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"trk/internal/models"
	"trk/internal/store"
)

// parseID parses the {id} path value. A non-numeric id can never
// resolve to an issue, so it reports ok=false and a 404 is written.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("issue not found: %s", raw))
		return 0, false
	}
	return id, true
}

// writeStoreError maps store errors: ErrNotFound to 404, anything else
// to a 500 store fault.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) createIssue(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if ve := req.Validate(); ve != nil {
		writeValidationError(w, ve)
		return
	}

	issue := req.Issue()
	if err := s.store.CreateIssue(r.Context(), issue); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, issue)
}

func (s *Server) listIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ve := &ValidationError{}

	filter := store.IssueFilter{
		Status:   models.IssueStatus(q.Get("status")),
		Priority: models.IssuePriority(q.Get("priority")),
		Assignee: q.Get("assignee"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		ve.add("status", fmt.Sprintf("invalid status: %s", filter.Status))
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		ve.add("priority", fmt.Sprintf("invalid priority: %s", filter.Priority))
	}

	page := store.Page{Skip: 0, Limit: store.DefaultLimit}
	if raw := q.Get("skip"); raw != "" {
		skip, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || skip < 0 {
			ve.add("skip", "skip must be a non-negative integer")
		} else {
			page.Skip = skip
		}
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || limit < 1 || limit > store.MaxLimit {
			ve.add("limit", fmt.Sprintf("limit must be between 1 and %d", store.MaxLimit))
		} else {
			page.Limit = limit
		}
	}
	if ve := ve.err(); ve != nil {
		writeValidationError(w, ve)
		return
	}

	issues, total, err := s.store.ListIssues(r.Context(), filter, page)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if issues == nil {
		issues = []*models.Issue{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Total: total, Count: len(issues), Issues: issues})
}

func (s *Server) getIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	issue, err := s.store.GetIssue(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

// updateIssue handles PUT: the payload is CreateRequest-shaped and every
// mutable field is replaced from it. ID and CreatedAt never come from
// the payload.
func (s *Server) updateIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if ve := req.Validate(); ve != nil {
		writeValidationError(w, ve)
		return
	}

	issue, err := s.store.GetIssue(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	replacement := req.Issue()
	replacement.ID = issue.ID
	replacement.CreatedAt = issue.CreatedAt

	if err := s.store.UpdateIssue(r.Context(), replacement); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, replacement)
}

// partialUpdateIssue handles PATCH: only fields present in the payload
// are applied. An empty patch still succeeds and refreshes updated_at
// (touch semantics, matching the store's update behavior).
func (s *Server) partialUpdateIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if ve := req.Validate(); ve != nil {
		writeValidationError(w, ve)
		return
	}

	issue, err := s.store.GetIssue(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	req.Apply(issue)

	if err := s.store.UpdateIssue(r.Context(), issue); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) deleteIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteIssue(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("issue %d deleted", id)})
}
