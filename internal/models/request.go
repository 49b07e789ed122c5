package models

import "net/http"

// ResponseCallback is invoked when a request dispatched through the engine
// completes successfully.
type ResponseCallback func(*Response)

// Request is an outgoing scraping request. Meta and Headers are mutated in
// place by profile injection before dispatch.
type Request struct {
	SessionID  string                 `json:"session_id"`
	Method     string                 `json:"method"`
	URL        string                 `json:"url"`
	Headers    http.Header            `json:"headers,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
	DontFilter bool                   `json:"dont_filter,omitempty"`
	Callback   ResponseCallback       `json:"-"`
}

// NewRequest creates a GET request for the given session with initialized
// header and meta maps.
func NewRequest(sessionID, url string) *Request {
	return &Request{
		SessionID: sessionID,
		Method:    http.MethodGet,
		URL:       url,
		Headers:   make(http.Header),
		Meta:      make(map[string]interface{}),
	}
}

// Response is the result of a dispatched request.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Request    *Request
}
