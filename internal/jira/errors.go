package jira

// ErrorKind classifies a failed fetch.
type ErrorKind string

const (
	KindConfig     ErrorKind = "config"
	KindHTTP       ErrorKind = "http"
	KindConnection ErrorKind = "connection"
	KindTimeout    ErrorKind = "timeout"
	KindRequest    ErrorKind = "request"
)

// Error is the single failure shape of FetchIssue. StatusCode and
// ResponseText are only set for KindHTTP.
type Error struct {
	Kind         ErrorKind
	Message      string
	StatusCode   int
	ResponseText string
}

func (e *Error) Error() string {
	return e.Message
}
