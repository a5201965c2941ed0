package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	gojira "github.com/andygrunwald/go-jira"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/joescharf/vibejira/internal/auth"
	"github.com/joescharf/vibejira/internal/jira"
	"github.com/joescharf/vibejira/internal/models"
	"github.com/joescharf/vibejira/internal/resolver"
	"github.com/joescharf/vibejira/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeFetcher struct {
	mu     sync.Mutex
	calls  []string
	issues map[string]*jira.Issue
	err    error
}

func (f *fakeFetcher) FetchIssue(_ context.Context, key string) (*jira.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)
	if f.err != nil {
		return nil, f.err
	}
	if issue, ok := f.issues[key]; ok {
		return issue, nil
	}
	return nil, &jira.Error{Kind: jira.KindHTTP, Message: "HTTP error occurred: 404 Not Found", StatusCode: http.StatusNotFound}
}

type testEnv struct {
	router  http.Handler
	store   *store.SQLStore
	fetcher *fakeFetcher
	user    *models.User
	token   string
	project *models.Project
	ticket  *models.Ticket
	comment *models.Comment
}

// setupTestServer seeds one user, one project, one ticket and one comment.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close() })

	authn := auth.NewAuthenticator(s, auth.NewBcryptHasher(bcrypt.MinCost), auth.NewTokenService("test-secret", time.Hour))
	hash, err := authn.HashPassword("testpassword123")
	require.NoError(t, err)
	u := &models.User{Username: "testuser", Email: "test@example.com", PasswordHash: hash}
	require.NoError(t, s.CreateUser(ctx, u))
	token, err := authn.Token(u)
	require.NoError(t, err)

	p := &models.Project{Name: "Test Project 1", JiraKey: "TP1"}
	require.NoError(t, s.CreateProject(ctx, p))
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tk := &models.Ticket{
		ProjectID: p.ID, JiraID: "TP1-1", Title: "Test Ticket 1", Status: "Open", Priority: "High",
		CreatedDate: ts, UpdatedDate: ts,
	}
	require.NoError(t, s.CreateTicket(ctx, tk))
	cm := &models.Comment{TicketID: tk.ID, Body: "This is a test comment."}
	require.NoError(t, s.CreateComment(ctx, cm, u))

	f := &fakeFetcher{issues: map[string]*jira.Issue{}}
	srv := NewServer(s, resolver.New(s, f), authn)

	return &testEnv{
		router: srv.Router(), store: s, fetcher: f, user: u, token: token,
		project: p, ticket: tk, comment: cm,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return e.doAs(t, "Token "+e.token, method, path, body)
}

func (e *testEnv) doAs(t *testing.T, authHeader, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func idStr(n int64) string { return strconv.FormatInt(n, 10) }

// --- Auth ---

func TestObtainToken(t *testing.T) {
	env := setupTestServer(t)

	w := env.doAs(t, "", "POST", "/api/api-token-auth/", map[string]string{"username": "testuser", "password": "testpassword123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode[map[string]string](t, w)["token"]
	require.NotEmpty(t, token)

	w = env.doAs(t, "Token "+token, "GET", "/api/projects/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestObtainToken_InvalidCredentials(t *testing.T) {
	env := setupTestServer(t)

	w := env.doAs(t, "", "POST", "/api/api-token-auth/", map[string]string{"username": "testuser", "password": "wrongpassword"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]any](t, w), "non_field_errors")

	w = env.doAs(t, "", "POST", "/api/api-token-auth/", map[string]string{"username": "testuser"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]any](t, w), "password")
}

func TestUnauthenticated(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name   string
		header string
		method string
		path   string
	}{
		{name: "no header on list", method: "GET", path: "/api/projects/"},
		{name: "no header on ticket retrieve", method: "GET", path: "/api/tickets/JIRA-NEW-1/"},
		{name: "garbage token", header: "Token garbage", method: "GET", path: "/api/tickets/"},
		{name: "unknown scheme", header: "Basic dGVzdDp0ZXN0", method: "GET", path: "/api/comments/"},
		{name: "no header on create", method: "POST", path: "/api/projects/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.doAs(t, tt.header, tt.method, tt.path, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
	assert.Empty(t, env.fetcher.calls, "fetcher must not run for unauthenticated requests")
}

func TestBearerScheme(t *testing.T) {
	env := setupTestServer(t)
	w := env.doAs(t, "Bearer "+env.token, "GET", "/api/projects", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDAndCORS(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "GET", "/api/projects/", nil)
	assert.Len(t, w.Header().Get("X-Request-ID"), 26)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = env.doAs(t, "", "OPTIONS", "/api/projects/", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

// --- Projects ---

func TestProjectList(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "GET", "/api/projects/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	projects := decode[[]models.Project](t, w)
	require.Len(t, projects, 1)
	assert.Equal(t, "Test Project 1", projects[0].Name)
	require.Len(t, projects[0].Tickets, 1)
	assert.Equal(t, "TP1-1", projects[0].Tickets[0].JiraID)
	assert.Len(t, projects[0].Tickets[0].Comments, 1)
}

func TestProjectCRUD(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/projects/", map[string]string{"name": "New Project Alpha", "jira_key": "NPA", "description": "A brand new project."})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Project](t, w)
	assert.NotZero(t, created.ID)
	assert.Empty(t, created.Tickets)

	w = env.do(t, "GET", "/api/projects/"+idStr(created.ID)+"/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "NPA", decode[models.Project](t, w).JiraKey)

	w = env.do(t, "PUT", "/api/projects/"+idStr(created.ID)+"/", map[string]string{"name": "Renamed", "jira_key": "NPA2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Project](t, w)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "NPA2", updated.JiraKey)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "A brand new project.", *updated.Description)

	w = env.do(t, "PATCH", "/api/projects/"+idStr(created.ID), map[string]string{"description": "Only description updated."})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	patched := decode[models.Project](t, w)
	assert.Equal(t, "Renamed", patched.Name)
	assert.Equal(t, "Only description updated.", *patched.Description)

	w = env.do(t, "DELETE", "/api/projects/"+idStr(created.ID)+"/", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, "GET", "/api/projects/"+idStr(created.ID)+"/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProjectValidation(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name      string
		method    string
		path      string
		body      any
		wantField string
	}{
		{name: "missing name", method: "POST", path: "/api/projects/", body: map[string]string{"jira_key": "INVKEY"}, wantField: "name"},
		{name: "blank name", method: "POST", path: "/api/projects/", body: map[string]string{"name": "", "jira_key": "INVKEY"}, wantField: "name"},
		{name: "duplicate jira key", method: "POST", path: "/api/projects/", body: map[string]string{"name": "Dup", "jira_key": "TP1"}, wantField: "jira_key"},
		{name: "put missing jira key", method: "PUT", path: "/api/projects/" + idStr(env.project.ID) + "/", body: map[string]string{"name": "x"}, wantField: "jira_key"},
		{name: "jira key too long", method: "POST", path: "/api/projects/", body: map[string]string{"name": "Long", "jira_key": strings.Repeat("K", 101)}, wantField: "jira_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode[map[string]any](t, w), tt.wantField)
		})
	}
}

func TestProjectNotFound(t *testing.T) {
	env := setupTestServer(t)

	for _, path := range []string{"/api/projects/99999/", "/api/projects/not-a-number/"} {
		w := env.do(t, "GET", path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

// --- Tickets ---

func TestTicketRetrieve_LocalHit(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "GET", "/api/tickets/TP1-1/", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode[models.Ticket](t, w)
	assert.Equal(t, "Test Ticket 1", got.Title)
	assert.Equal(t, env.project.ID, got.ProjectID)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "testuser", got.Comments[0].Author)
	assert.Empty(t, env.fetcher.calls)
}

func TestTicketRetrieve_RemoteCreate(t *testing.T) {
	env := setupTestServer(t)
	created := gojira.Time(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	updated := gojira.Time(time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC))
	summary := "Fetched from JIRA title"
	env.fetcher.issues["JIRA-XYZ-789"] = &jira.Issue{
		Key: "JIRA-XYZ-789",
		Fields: jira.IssueFields{
			Summary:     &summary,
			Description: json.RawMessage(`"Fetched description."`),
			Status:      &gojira.Status{Name: "In Progress"},
			Priority:    &gojira.Priority{Name: "High"},
			Project:     &gojira.Project{Key: "TP1", Name: "Test Project 1"},
			Assignee:    &gojira.User{DisplayName: "JIRA User Assignee"},
			Reporter:    &gojira.User{DisplayName: "JIRA User Reporter"},
			Created:     &created,
			Updated:     &updated,
		},
	}

	w := env.do(t, "GET", "/api/tickets/JIRA-XYZ-789/", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, []string{"JIRA-XYZ-789"}, env.fetcher.calls)

	got := decode[models.Ticket](t, w)
	assert.Equal(t, "Fetched from JIRA title", got.Title)
	assert.Equal(t, env.project.ID, got.ProjectID)
	assert.Empty(t, got.Comments)

	stored, err := env.store.GetTicketByJiraID(context.Background(), "JIRA-XYZ-789")
	require.NoError(t, err)
	assert.Equal(t, "Fetched from JIRA title", stored.Title)

	// The second read is a local hit.
	w = env.do(t, "GET", "/api/tickets/JIRA-XYZ-789/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, env.fetcher.calls, 1)
}

func TestTicketRetrieve_RemoteFailure(t *testing.T) {
	env := setupTestServer(t)
	env.fetcher.err = &jira.Error{Kind: jira.KindHTTP, Message: "JIRA API Error", StatusCode: http.StatusInternalServerError}

	w := env.do(t, "GET", "/api/tickets/JIRA-FAIL-000/", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, []string{"JIRA-FAIL-000"}, env.fetcher.calls)

	body := decode[map[string]string](t, w)
	assert.Equal(t, resolver.MsgFetchFailed, body["error"])
	assert.Contains(t, body["jira_error"], "JIRA API Error")
}

func TestTicketRetrieve_RemoteNotFound(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "GET", "/api/tickets/NOPE-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode[map[string]string](t, w), "jira_error")
}

func TestTicketRetrieve_ConnectionFailureDefaultsTo404(t *testing.T) {
	env := setupTestServer(t)
	env.fetcher.err = &jira.Error{Kind: jira.KindConnection, Message: "Error connecting to JIRA: connection refused"}

	w := env.do(t, "GET", "/api/tickets/DOWN-1/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["jira_error"], "Error connecting to JIRA")
}

func TestTicketRetrieve_MissingProjectKey(t *testing.T) {
	env := setupTestServer(t)
	summary := "orphan"
	env.fetcher.issues["ORPHAN-1"] = &jira.Issue{Key: "ORPHAN-1", Fields: jira.IssueFields{Summary: &summary}}

	w := env.do(t, "GET", "/api/tickets/ORPHAN-1/", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, resolver.MsgNoProjectKey, decode[map[string]string](t, w)["error"])

	_, err := env.store.GetTicketByJiraID(context.Background(), "ORPHAN-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTicketList(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	other := &models.Project{Name: "Project 2", JiraKey: "P2"}
	require.NoError(t, env.store.CreateProject(ctx, other))
	ts := time.Now().UTC()
	require.NoError(t, env.store.CreateTicket(ctx, &models.Ticket{
		ProjectID: other.ID, JiraID: "P2-1", Title: "Ticket 2", Status: "Open", Priority: "Low",
		CreatedDate: ts, UpdatedDate: ts,
	}))

	w := env.do(t, "GET", "/api/tickets/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Ticket](t, w), 2)

	w = env.do(t, "GET", "/api/tickets/?project="+idStr(other.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	filtered := decode[[]models.Ticket](t, w)
	require.Len(t, filtered, 1)
	assert.Equal(t, "P2-1", filtered[0].JiraID)

	w = env.do(t, "GET", "/api/tickets/?project=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTicketCreate(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/tickets/", map[string]any{
		"project":      env.project.ID,
		"jira_id":      "NTP1-1",
		"title":        "New Test Ticket 1",
		"status":       "Pending",
		"priority":     "Low",
		"created_date": "2024-02-01T00:00:00Z",
		"updated_date": "2024-02-01T00:00:00Z",
		"description":  "A new ticket for testing.",
		"due_date":     "2024-03-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	got := decode[models.Ticket](t, w)
	assert.Equal(t, "NTP1-1", got.JiraID)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2024-03-01", *got.DueDate)

	_, err := env.store.GetTicketByJiraID(context.Background(), "NTP1-1")
	assert.NoError(t, err)
}

func TestTicketCreate_Validation(t *testing.T) {
	env := setupTestServer(t)
	valid := func() map[string]any {
		return map[string]any{
			"project": env.project.ID, "jira_id": "INV-TKT-1", "title": "t", "status": "Open", "priority": "Medium",
			"created_date": "2024-01-01T00:00:00Z", "updated_date": "2024-01-01T00:00:00Z",
		}
	}

	tests := []struct {
		name      string
		mutate    func(map[string]any)
		wantField string
	}{
		{name: "missing title", mutate: func(m map[string]any) { delete(m, "title") }, wantField: "title"},
		{name: "missing created date", mutate: func(m map[string]any) { delete(m, "created_date") }, wantField: "created_date"},
		{name: "unknown project", mutate: func(m map[string]any) { m["project"] = env.project.ID + 999 }, wantField: "project"},
		{name: "duplicate jira id", mutate: func(m map[string]any) { m["jira_id"] = "TP1-1" }, wantField: "jira_id"},
		{name: "bad due date", mutate: func(m map[string]any) { m["due_date"] = "03/01/2024" }, wantField: "due_date"},
		{name: "project wrong type", mutate: func(m map[string]any) { m["project"] = "one" }, wantField: "project"},
		{name: "jira id too long", mutate: func(m map[string]any) { m["jira_id"] = strings.Repeat("J", 101) }, wantField: "jira_id"},
		{name: "status too long", mutate: func(m map[string]any) { m["status"] = strings.Repeat("s", 101) }, wantField: "status"},
		{name: "priority too long", mutate: func(m map[string]any) { m["priority"] = strings.Repeat("p", 101) }, wantField: "priority"},
		{name: "assignee too long", mutate: func(m map[string]any) { m["assignee"] = strings.Repeat("a", 256) }, wantField: "assignee"},
		{name: "reporter too long", mutate: func(m map[string]any) { m["reporter"] = strings.Repeat("r", 256) }, wantField: "reporter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := valid()
			tt.mutate(body)
			w := env.do(t, "POST", "/api/tickets/", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, decode[map[string]any](t, w), tt.wantField)
		})
	}
}

func TestFieldLengthsMatchSchema(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/projects/", map[string]string{"name": "Long", "jira_key": strings.Repeat("K", 100)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	project := decode[models.Project](t, w)

	w = env.do(t, "POST", "/api/tickets/", map[string]any{
		"project":      project.ID,
		"jira_id":      strings.Repeat("J", 100),
		"title":        strings.Repeat("t", 255),
		"status":       strings.Repeat("s", 100),
		"priority":     strings.Repeat("p", 100),
		"assignee":     strings.Repeat("a", 255),
		"reporter":     strings.Repeat("r", 255),
		"created_date": "2024-01-01T00:00:00Z",
		"updated_date": "2024-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestTicketFetchedFromJiraCanBePutBack(t *testing.T) {
	env := setupTestServer(t)
	summary := "Fetched from JIRA title"
	env.fetcher.issues["TP1-9"] = &jira.Issue{
		Key: "TP1-9",
		Fields: jira.IssueFields{
			Summary:  &summary,
			Status:   &gojira.Status{Name: strings.Repeat("s", 61)},
			Priority: &gojira.Priority{Name: "High"},
			Project:  &gojira.Project{Key: "TP1", Name: "Test Project 1"},
			Assignee: &gojira.User{DisplayName: strings.Repeat("a", 120)},
		},
	}

	w := env.do(t, "GET", "/api/tickets/TP1-9/", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	fetched := decode[map[string]any](t, w)
	delete(fetched, "comments")

	w = env.do(t, "PUT", "/api/tickets/"+idStr(int64(fetched["id"].(float64)))+"/", fetched)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[models.Ticket](t, w)
	assert.Equal(t, strings.Repeat("s", 61), got.Status)
}

func TestTicketPatchAndDeleteUseInternalID(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "PATCH", "/api/tickets/"+idStr(env.ticket.ID)+"/", map[string]string{"status": "In Progress"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[models.Ticket](t, w)
	assert.Equal(t, "In Progress", got.Status)
	assert.Equal(t, "Test Ticket 1", got.Title)

	// The JIRA key is not accepted on write routes.
	w = env.do(t, "PATCH", "/api/tickets/TP1-1/", map[string]string{"status": "Done"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "DELETE", "/api/tickets/"+idStr(env.ticket.ID)+"/", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := env.store.GetTicket(context.Background(), env.ticket.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	comments, err := env.store.ListComments(context.Background(), store.CommentListFilter{})
	require.NoError(t, err)
	assert.Empty(t, comments, "comments cascade with their ticket")
}

func TestTicketPut(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "PUT", "/api/tickets/"+idStr(env.ticket.ID), map[string]any{
		"project": env.project.ID, "jira_id": "TP1-1", "title": "Rewritten", "status": "Done", "priority": "Low",
		"created_date": "2024-01-01T00:00:00Z", "updated_date": "2024-05-01T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[models.Ticket](t, w)
	assert.Equal(t, "Rewritten", got.Title)
	assert.True(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).Equal(got.UpdatedDate))

	w = env.do(t, "PUT", "/api/tickets/"+idStr(env.ticket.ID), map[string]any{"title": "partial"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Comments ---

func TestCommentList_FilterByTicket(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	p2 := &models.Project{Name: "Project 2", JiraKey: "P2"}
	require.NoError(t, env.store.CreateProject(ctx, p2))
	ts := time.Now().UTC()
	t2 := &models.Ticket{ProjectID: p2.ID, JiraID: "P2-1", Title: "Ticket 2", Status: "Open", Priority: "Low", CreatedDate: ts, UpdatedDate: ts}
	require.NoError(t, env.store.CreateTicket(ctx, t2))
	require.NoError(t, env.store.CreateComment(ctx, &models.Comment{TicketID: t2.ID, Body: "Comment on another ticket"}, env.user))

	w := env.do(t, "GET", "/api/comments/?ticket="+idStr(env.ticket.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	comments := decode[[]models.Comment](t, w)
	require.Len(t, comments, 1)
	assert.Equal(t, "This is a test comment.", comments[0].Body)

	w = env.do(t, "GET", "/api/comments/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Comment](t, w), 2)
}

func TestCommentCreate_AuthorIsCaller(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/comments/", map[string]any{
		"ticket":       env.ticket.ID,
		"author":       "someone-else@example.com",
		"body":         "A newly created test comment.",
		"created_date": "2020-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	got := decode[models.Comment](t, w)
	assert.Equal(t, "testuser", got.Author)
	assert.Equal(t, "A newly created test comment.", got.Body)
	assert.WithinDuration(t, time.Now(), got.CreatedDate, time.Minute)

	comments, err := env.store.ListComments(context.Background(), store.CommentListFilter{})
	require.NoError(t, err)
	assert.Len(t, comments, 2)
}

func TestCommentCreate_Validation(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, "POST", "/api/comments/", map[string]any{"ticket": env.ticket.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]any](t, w), "body")

	w = env.do(t, "POST", "/api/comments/", map[string]any{"ticket": env.ticket.ID + 999, "body": "Comment for a ghost ticket."})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]any](t, w), "ticket")
}

func TestCommentUpdateAndDelete(t *testing.T) {
	env := setupTestServer(t)
	path := "/api/comments/" + idStr(env.comment.ID) + "/"

	w := env.do(t, "PATCH", path, map[string]any{"body": "edited", "ticket": 12345, "created_date": "2000-01-01T00:00:00Z"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[models.Comment](t, w)
	assert.Equal(t, "edited", got.Body)
	assert.Equal(t, env.ticket.ID, got.TicketID)
	assert.True(t, env.comment.CreatedDate.Equal(got.CreatedDate))

	w = env.do(t, "GET", path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "edited", decode[models.Comment](t, w).Body)

	w = env.do(t, "PUT", path, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "DELETE", path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, "GET", path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMalformedJSON(t *testing.T) {
	env := setupTestServer(t)

	req := httptest.NewRequest("POST", "/api/projects/", bytes.NewBufferString(`{"name":`))
	req.Header.Set("Authorization", "Token "+env.token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "JSON parse error")
}
