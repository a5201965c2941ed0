package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/vibejira/internal/auth"
	"github.com/joescharf/vibejira/internal/models"
)

// captureOutput redirects ui output into a buffer for the rest of the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	ui.Out = &buf
	ui.ErrOut = &buf
	return &buf
}

func seedProjectTicket(t *testing.T) (*models.Project, *models.Ticket) {
	t.Helper()
	s, err := getStore()
	require.NoError(t, err)
	ctx := context.Background()

	p := &models.Project{Name: "Test Project 1", JiraKey: "TP1"}
	require.NoError(t, s.CreateProject(ctx, p))
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tk := &models.Ticket{
		ProjectID: p.ID, JiraID: "TP1-1", Title: "Test Ticket 1", Status: "Open", Priority: "High",
		CreatedDate: ts, UpdatedDate: ts,
	}
	require.NoError(t, s.CreateTicket(ctx, tk))
	return p, tk
}

func TestMigrateRun(t *testing.T) {
	testEnv(t)
	buf := captureOutput(t)

	require.NoError(t, migrateRun())
	assert.Contains(t, buf.String(), "up to date")
	assert.NotNil(t, dataStore)
}

func TestUserCreateAndToken(t *testing.T) {
	testEnv(t)
	buf := captureOutput(t)
	ctx := context.Background()

	userPassword = "testpassword123"
	userEmail = "alice@example.com"
	t.Cleanup(func() { userPassword, userEmail = "", "" })

	require.NoError(t, userCreateRun(ctx, "alice"))
	assert.Contains(t, buf.String(), "Created user")

	err := userCreateRun(ctx, "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	buf.Reset()
	require.NoError(t, userTokenRun(ctx, "alice"))
	token := strings.TrimSpace(buf.String())
	require.NotEmpty(t, token)

	claims, err := auth.NewTokenService("test-secret", time.Hour).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)

	err = userTokenRun(ctx, "nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user not found")
}

func TestUserCreate_PromptsForPassword(t *testing.T) {
	testEnv(t)
	captureOutput(t)

	var prompted bool
	orig := readPasswordFunc
	readPasswordFunc = func() (string, error) {
		prompted = true
		return "from-terminal", nil
	}
	t.Cleanup(func() { readPasswordFunc = orig })

	require.NoError(t, userCreateRun(context.Background(), "bob"))
	assert.True(t, prompted)

	u, err := dataStore.GetUserByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.NoError(t, auth.NewBcryptHasher(0).Verify("from-terminal", u.PasswordHash))
}

func TestProjectListRun(t *testing.T) {
	testEnv(t)
	buf := captureOutput(t)

	require.NoError(t, projectListRun(context.Background()))
	assert.Contains(t, buf.String(), "No projects mirrored")

	seedProjectTicket(t)
	buf.Reset()
	require.NoError(t, projectListRun(context.Background()))
	out := buf.String()
	assert.Contains(t, out, "TP1")
	assert.Contains(t, out, "Test Project 1")
}

func TestTicketListRun(t *testing.T) {
	testEnv(t)
	buf := captureOutput(t)
	seedProjectTicket(t)

	require.NoError(t, ticketListRun(context.Background()))
	assert.Contains(t, buf.String(), "TP1-1")
	assert.Contains(t, buf.String(), "Test Ticket 1")

	ticketProject = "NOPE"
	t.Cleanup(func() { ticketProject = "" })
	err := ticketListRun(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project not found")
}

func TestTicketGetRun_Local(t *testing.T) {
	testEnv(t)
	buf := captureOutput(t)
	seedProjectTicket(t)

	require.NoError(t, ticketGetRun(context.Background(), "TP1-1"))
	out := buf.String()
	assert.Contains(t, out, "Test Ticket 1")
	assert.NotContains(t, out, "Fetched")
}

func TestTicketGetRun_FetchesFromJira(t *testing.T) {
	testEnv(t)
	buf := captureOutput(t)

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/rest/api/3/issue/NEW-7" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"key":"NEW-7","fields":{"summary":"Remote ticket","status":{"name":"To Do"},"project":{"key":"NEW","name":"New Project"}}}`))
	}))
	t.Cleanup(srv.Close)

	viper.Set("jira.base_url", srv.URL)
	viper.Set("jira.email", "bot@example.com")
	viper.Set("jira.token", "secret")

	ticketJSON = true
	t.Cleanup(func() { ticketJSON = false })

	require.NoError(t, ticketGetRun(context.Background(), "NEW-7"))
	assert.Equal(t, 1, calls)

	var got models.Ticket
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "NEW-7", got.JiraID)
	assert.Equal(t, "Remote ticket", got.Title)

	p, err := dataStore.GetProjectByJiraKey(context.Background(), "NEW")
	require.NoError(t, err)
	assert.Equal(t, "New Project", p.Name)

	err = ticketGetRun(context.Background(), "GONE-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to fetch ticket from JIRA.")
	assert.Contains(t, err.Error(), "(404)")
}

func TestVersionCmd(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, buf.String(), "vibejira "+buildVersion)
}

func TestReportError(t *testing.T) {
	testEnv(t)
	buf := captureOutput(t)

	reportError(errors.New("database is locked"))
	assert.Contains(t, buf.String(), "database is locked")

	ui = nil
	t.Cleanup(func() { ui = nil })
	assert.NotPanics(t, func() { reportError(errors.New("bad flag")) })
	assert.NotNil(t, ui)
}
