// Package jira fetches single issues from a JIRA Cloud REST v3 endpoint.
package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	gojira "github.com/andygrunwald/go-jira"
)

// DefaultTimeout bounds a single issue fetch when Config.Timeout is unset.
const DefaultTimeout = 10 * time.Second

// Config holds the connection settings of the remote issue tracker.
type Config struct {
	BaseURL string
	Email   string
	Token   string
	Timeout time.Duration
}

// Validate reports every missing setting in one error.
func (c Config) Validate() error {
	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, "base URL")
	}
	if c.Token == "" {
		missing = append(missing, "API token")
	}
	if c.Email == "" {
		missing = append(missing, "user email")
	}
	if len(missing) > 0 {
		return fmt.Errorf("JIRA %s not configured", strings.Join(missing, ", "))
	}
	return nil
}

// Issue is the subset of the JIRA issue representation that vibejira mirrors.
type Issue struct {
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// IssueFields holds the issue fields. Pointer fields are nil when JIRA
// omitted them or sent null.
type IssueFields struct {
	Summary     *string          `json:"summary"`
	Description json.RawMessage  `json:"description"`
	Status      *gojira.Status   `json:"status"`
	Priority    *gojira.Priority `json:"priority"`
	Project     *gojira.Project  `json:"project"`
	Assignee    *gojira.User     `json:"assignee"`
	Reporter    *gojira.User     `json:"reporter"`
	Created     *gojira.Time     `json:"created"`
	Updated     *gojira.Time     `json:"updated"`
	Duedate     *gojira.Date     `json:"duedate"`
}

// Fetcher fetches one issue by key or id.
type Fetcher interface {
	FetchIssue(ctx context.Context, issueKey string) (*Issue, error)
}

// Client performs authenticated single-issue lookups. It never retries.
type Client struct {
	cfg    Config
	jira   *gojira.Client
	cfgErr error
}

// NewClient builds a client from cfg. An invalid cfg does not fail here: every
// FetchIssue call reports it instead, without touching the network.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{cfg: cfg}
	if err := cfg.Validate(); err != nil {
		c.cfgErr = err
		return c
	}

	tp := gojira.BasicAuthTransport{
		Username: cfg.Email,
		Password: cfg.Token,
	}
	httpClient := tp.Client()
	httpClient.Timeout = cfg.Timeout

	jc, err := gojira.NewClient(httpClient, strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		c.cfgErr = fmt.Errorf("invalid JIRA base URL: %w", err)
		return c
	}
	c.jira = jc
	return c
}

// FetchIssue issues exactly one GET for issueKey. Every failure is an *Error.
func (c *Client) FetchIssue(ctx context.Context, issueKey string) (*Issue, error) {
	if c.cfgErr != nil {
		return nil, &Error{Kind: KindConfig, Message: c.cfgErr.Error()}
	}

	endpoint := "rest/api/3/issue/" + url.PathEscape(issueKey)
	req, err := c.jira.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{Kind: KindRequest, Message: fmt.Sprintf("An unexpected error occurred with the JIRA request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")

	var issue Issue
	resp, err := c.jira.Do(req, &issue)
	if err != nil {
		return nil, c.classify(req, resp, err)
	}
	slog.Debug("fetched issue from JIRA", "issue", issueKey, "status", resp.StatusCode)
	return &issue, nil
}

func (c *Client) classify(req *http.Request, resp *gojira.Response, err error) *Error {
	if resp != nil && resp.Response != nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		body := ""
		if resp.Body != nil {
			data, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			body = string(data)
		}
		return &Error{
			Kind: KindHTTP,
			Message: fmt.Sprintf("HTTP error occurred: %d %s for url: %s",
				resp.StatusCode, http.StatusText(resp.StatusCode), req.URL),
			StatusCode:   resp.StatusCode,
			ResponseText: body,
		}
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Kind: KindTimeout, Message: fmt.Sprintf("Request to JIRA timed out: %v", err)}
	case isConnectionError(err):
		return &Error{Kind: KindConnection, Message: fmt.Sprintf("Error connecting to JIRA: %v", err)}
	default:
		return &Error{Kind: KindRequest, Message: fmt.Sprintf("An unexpected error occurred with the JIRA request: %v", err)}
	}
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
