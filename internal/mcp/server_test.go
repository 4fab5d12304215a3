package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trk/internal/api"
	"trk/internal/models"
	"trk/internal/store"
)

// ---------------------------------------------------------------------------
// Mock store
// ---------------------------------------------------------------------------

// mockStore implements store.Store in memory with error injection.
type mockStore struct {
	issues []*models.Issue
	nextID int64

	createErr error
	listErr   error
	updateErr error
	deleteErr error
}

var _ store.Store = (*mockStore)(nil)

func newMockStore() *mockStore {
	return &mockStore{nextID: 1}
}

func (m *mockStore) CreateIssue(ctx context.Context, issue *models.Issue) error {
	if m.createErr != nil {
		return m.createErr
	}
	issue.ID = m.nextID
	m.nextID++
	now := time.Now().UTC()
	issue.CreatedAt = now
	issue.UpdatedAt = now
	m.issues = append(m.issues, issue)
	return nil
}

func (m *mockStore) GetIssue(ctx context.Context, id int64) (*models.Issue, error) {
	for _, issue := range m.issues {
		if issue.ID == id {
			return issue, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", store.ErrNotFound, id)
}

func (m *mockStore) ListIssues(ctx context.Context, filter store.IssueFilter, page store.Page) ([]*models.Issue, int64, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var matched []*models.Issue
	for _, issue := range m.issues {
		if filter.Status != "" && issue.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && issue.Priority != filter.Priority {
			continue
		}
		if filter.Assignee != "" && issue.Assignee != filter.Assignee {
			continue
		}
		matched = append(matched, issue)
	}
	total := int64(len(matched))
	if page.Skip >= total {
		return nil, total, nil
	}
	matched = matched[page.Skip:]
	if page.Limit > 0 && int64(len(matched)) > page.Limit {
		matched = matched[:page.Limit]
	}
	return matched, total, nil
}

func (m *mockStore) UpdateIssue(ctx context.Context, issue *models.Issue) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	for i, existing := range m.issues {
		if existing.ID == issue.ID {
			issue.UpdatedAt = time.Now().UTC()
			m.issues[i] = issue
			return nil
		}
	}
	return fmt.Errorf("%w: %d", store.ErrNotFound, issue.ID)
}

func (m *mockStore) DeleteIssue(ctx context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for i, issue := range m.issues {
		if issue.ID == id {
			m.issues = append(m.issues[:i], m.issues[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %d", store.ErrNotFound, id)
}

func (m *mockStore) Migrate(ctx context.Context) error { return nil }
func (m *mockStore) Close() error                      { return nil }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestServer(t *testing.T) (*Server, *mockStore) {
	t.Helper()
	ms := newMockStore()
	srv := NewServer(ms)
	require.NotNil(t, srv)
	return srv, ms
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

// seedIssue adds an issue to the mock store and returns it.
func seedIssue(t *testing.T, ms *mockStore, title string, status models.IssueStatus, priority models.IssuePriority) *models.Issue {
	t.Helper()
	issue := &models.Issue{
		Title:    title,
		Status:   status,
		Priority: priority,
		Reporter: "alice",
	}
	require.NoError(t, ms.CreateIssue(context.Background(), issue))
	return issue
}

// ---------------------------------------------------------------------------
// Tests: server registration
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(t)
	mcpSrv := srv.MCPServer()
	require.NotNil(t, mcpSrv, "MCPServer() should return non-nil")
}

// ---------------------------------------------------------------------------
// Tests: trk_list_issues
// ---------------------------------------------------------------------------

func TestHandleListIssues_Empty(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleListIssues(context.Background(), callToolReq("trk_list_issues", map[string]any{}))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	var list api.ListResponse
	resultJSON(t, result, &list)
	assert.EqualValues(t, 0, list.Total)
	assert.Empty(t, list.Issues)
}

func TestHandleListIssues_FilterByStatus(t *testing.T) {
	srv, ms := newTestServer(t)

	seedIssue(t, ms, "open one", models.IssueStatusOpen, models.IssuePriorityMedium)
	seedIssue(t, ms, "open two", models.IssueStatusOpen, models.IssuePriorityHigh)
	seedIssue(t, ms, "closed", models.IssueStatusClosed, models.IssuePriorityMedium)

	req := callToolReq("trk_list_issues", map[string]any{"status": "open"})
	result, err := srv.handleListIssues(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var list api.ListResponse
	resultJSON(t, result, &list)
	assert.EqualValues(t, 2, list.Total)
	assert.Equal(t, 2, list.Count)
}

func TestHandleListIssues_InvalidStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	req := callToolReq("trk_list_issues", map[string]any{"status": "done"})
	result, err := srv.handleListIssues(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError, "should error on invalid status")
}

func TestHandleListIssues_Pagination(t *testing.T) {
	srv, ms := newTestServer(t)

	for i := 0; i < 5; i++ {
		seedIssue(t, ms, fmt.Sprintf("issue %d", i), models.IssueStatusOpen, models.IssuePriorityMedium)
	}

	req := callToolReq("trk_list_issues", map[string]any{"skip": 3, "limit": 10})
	result, err := srv.handleListIssues(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var list api.ListResponse
	resultJSON(t, result, &list)
	assert.EqualValues(t, 5, list.Total)
	assert.Equal(t, 2, list.Count)
}

func TestHandleListIssues_InvalidLimit(t *testing.T) {
	srv, _ := newTestServer(t)

	req := callToolReq("trk_list_issues", map[string]any{"limit": 0})
	result, err := srv.handleListIssues(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleListIssues_StoreError(t *testing.T) {
	srv, ms := newTestServer(t)
	ms.listErr = fmt.Errorf("disk on fire")

	result, err := srv.handleListIssues(context.Background(), callToolReq("trk_list_issues", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "disk on fire")
}

// ---------------------------------------------------------------------------
// Tests: trk_get_issue
// ---------------------------------------------------------------------------

func TestHandleGetIssue(t *testing.T) {
	srv, ms := newTestServer(t)
	seeded := seedIssue(t, ms, "find me", models.IssueStatusOpen, models.IssuePriorityHigh)

	req := callToolReq("trk_get_issue", map[string]any{"id": seeded.ID})
	result, err := srv.handleGetIssue(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var issue models.Issue
	resultJSON(t, result, &issue)
	assert.Equal(t, seeded.ID, issue.ID)
	assert.Equal(t, "find me", issue.Title)
}

func TestHandleGetIssue_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	req := callToolReq("trk_get_issue", map[string]any{"id": 999999})
	result, err := srv.handleGetIssue(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "999999")
}

func TestHandleGetIssue_MissingID(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleGetIssue(context.Background(), callToolReq("trk_get_issue", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// ---------------------------------------------------------------------------
// Tests: trk_create_issue
// ---------------------------------------------------------------------------

func TestHandleCreateIssue(t *testing.T) {
	srv, ms := newTestServer(t)

	req := callToolReq("trk_create_issue", map[string]any{
		"title":       "Implement caching",
		"description": "Add a caching layer",
		"priority":    "high",
		"reporter":    "alice",
		"assignee":    "bob",
	})
	result, err := srv.handleCreateIssue(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	require.Len(t, ms.issues, 1)
	created := ms.issues[0]
	assert.Equal(t, "Implement caching", created.Title)
	assert.Equal(t, models.IssuePriorityHigh, created.Priority)
	assert.Equal(t, models.IssueStatusOpen, created.Status, "status defaults to open")
	assert.Equal(t, "alice", created.Reporter)
	assert.Equal(t, "bob", created.Assignee)
}

func TestHandleCreateIssue_Defaults(t *testing.T) {
	srv, ms := newTestServer(t)

	req := callToolReq("trk_create_issue", map[string]any{
		"title":    "Quick fix",
		"reporter": "alice",
	})
	result, err := srv.handleCreateIssue(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	require.Len(t, ms.issues, 1)
	assert.Equal(t, models.IssueStatusOpen, ms.issues[0].Status)
	assert.Equal(t, models.IssuePriorityMedium, ms.issues[0].Priority)
}

func TestHandleCreateIssue_MissingTitle(t *testing.T) {
	srv, ms := newTestServer(t)

	req := callToolReq("trk_create_issue", map[string]any{"reporter": "alice"})
	result, err := srv.handleCreateIssue(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError, "should error when title is missing")
	assert.Contains(t, resultText(t, result), "title")
	assert.Empty(t, ms.issues, "nothing should be created")
}

func TestHandleCreateIssue_InvalidPriority(t *testing.T) {
	srv, _ := newTestServer(t)

	req := callToolReq("trk_create_issue", map[string]any{
		"title":    "x",
		"reporter": "alice",
		"priority": "urgent",
	})
	result, err := srv.handleCreateIssue(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleCreateIssue_StoreError(t *testing.T) {
	srv, ms := newTestServer(t)
	ms.createErr = fmt.Errorf("disk on fire")

	req := callToolReq("trk_create_issue", map[string]any{"title": "x", "reporter": "alice"})
	result, err := srv.handleCreateIssue(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// ---------------------------------------------------------------------------
// Tests: trk_update_issue
// ---------------------------------------------------------------------------

func TestHandleUpdateIssue_PartialPatch(t *testing.T) {
	srv, ms := newTestServer(t)
	seeded := seedIssue(t, ms, "keep title", models.IssueStatusOpen, models.IssuePriorityHigh)

	req := callToolReq("trk_update_issue", map[string]any{
		"id":     seeded.ID,
		"status": "resolved",
	})
	result, err := srv.handleUpdateIssue(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var issue models.Issue
	resultJSON(t, result, &issue)
	assert.Equal(t, models.IssueStatusResolved, issue.Status)
	assert.Equal(t, "keep title", issue.Title, "omitted fields keep stored values")
	assert.Equal(t, models.IssuePriorityHigh, issue.Priority)
}

func TestHandleUpdateIssue_IssueNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	req := callToolReq("trk_update_issue", map[string]any{"id": 999999, "status": "closed"})
	result, err := srv.handleUpdateIssue(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleUpdateIssue_MissingID(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleUpdateIssue(context.Background(), callToolReq("trk_update_issue", map[string]any{"status": "closed"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleUpdateIssue_ClearTitleRejected(t *testing.T) {
	srv, ms := newTestServer(t)
	seeded := seedIssue(t, ms, "keep", models.IssueStatusOpen, models.IssuePriorityMedium)

	req := callToolReq("trk_update_issue", map[string]any{"id": seeded.ID, "title": ""})
	result, err := srv.handleUpdateIssue(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "keep", ms.issues[0].Title)
}

// ---------------------------------------------------------------------------
// Tests: trk_delete_issue
// ---------------------------------------------------------------------------

func TestHandleDeleteIssue(t *testing.T) {
	srv, ms := newTestServer(t)
	seeded := seedIssue(t, ms, "doomed", models.IssueStatusOpen, models.IssuePriorityMedium)

	req := callToolReq("trk_delete_issue", map[string]any{"id": seeded.ID})
	result, err := srv.handleDeleteIssue(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var msg api.MessageResponse
	resultJSON(t, result, &msg)
	assert.Contains(t, msg.Message, "deleted")
	assert.Empty(t, ms.issues)
}

func TestHandleDeleteIssue_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	req := callToolReq("trk_delete_issue", map[string]any{"id": 999999})
	result, err := srv.handleDeleteIssue(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
