// API service for making HTTP requests to the songs backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunz/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the backend address used when none is configured.
const DefaultBaseURL = "http://localhost:8082"

// RequestIDHeader carries a per-request id for log correlation.
const RequestIDHeader = "X-Request-ID"

// NewHTTPClient builds a client with an overall request deadline.
//
// When source is non-nil every request is authorized through an [oauth2.Transport]; a source error aborts the
// request before it is sent.
func NewHTTPClient(timeout time.Duration, source oauth2.TokenSource) *http.Client {
	var transport http.RoundTripper = http.DefaultTransport
	if source != nil {
		transport = &oauth2.Transport{Source: source, Base: transport}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// APIService provides methods for making HTTP requests to the songs backend.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewAPIService creates a new API service instance for the backend at baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     log.New(io.Discard),
	}
}

// WithLogger sets the logger used for request tracing and returns the service.
func (a *APIService) WithLogger(l *log.Logger) *APIService {
	if l != nil {
		a.logger = l
	}
	return a
}

// BaseURL returns the backend address without a trailing slash.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Request describes a JSON call made through [APIService.Do].
type Request struct {
	Op     string // human label, e.g. "login"
	Method string
	Path   string
	Body   any
	Token  string // explicit bearer token; empty uses whatever the client's transport provides
}

// Do sends r and decodes a 2xx JSON response into out (which may be nil).
//
// Every failure is an [*APIError].
func (a *APIService) Do(ctx context.Context, r Request, out any) error {
	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return &APIError{Op: r.Op, Method: r.Method, Path: r.Path, Kind: KindUnexpected, Message: fallbackMessage(r.Op), Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, a.baseURL+r.Path, body)
	if err != nil {
		return &APIError{Op: r.Op, Method: r.Method, Path: r.Path, Kind: KindUnexpected, Message: fallbackMessage(r.Op), Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Token != "" {
		(&oauth2.Token{AccessToken: r.Token, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	resp, raw, err := a.send(req)
	if err != nil {
		return transportError(r, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := serverMessage(raw)
		if msg == "" {
			msg = fallbackMessage(r.Op)
		}
		return &APIError{
			Op:         r.Op,
			Method:     r.Method,
			Path:       r.Path,
			StatusCode: resp.StatusCode,
			Body:       raw,
			Message:    msg,
			Kind:       KindForStatus(resp.StatusCode),
		}
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &APIError{
				Op:         r.Op,
				Method:     r.Method,
				Path:       r.Path,
				StatusCode: resp.StatusCode,
				Body:       raw,
				Message:    fallbackMessage(r.Op),
				Kind:       KindDecode,
				Err:        fmt.Errorf("failed to decode response: %w", err),
			}
		}
	}
	return nil
}

// Get performs a GET request to the specified path and returns the raw response.
//
// Non-2xx statuses are returned as responses, not errors.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return a.raw(req)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return a.raw(req)
}

func (a *APIService) raw(req *http.Request) (*APIResponse, error) {
	resp, body, err := a.send(req)
	if err != nil {
		return nil, err
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// send stamps a request id, performs the request and reads the whole body.
func (a *APIService) send(req *http.Request) (*http.Response, []byte, error) {
	id := shared.GenerateID()
	req.Header.Set(RequestIDHeader, id)
	logger := a.logger.With("method", req.Method, "path", req.URL.Path, "request_id", id)

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		logger.Debug("request failed", "error", err)
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	logger.Debug("request complete", "status", resp.StatusCode, "elapsed", time.Since(start))
	return resp, body, nil
}

func transportError(r Request, err error) *APIError {
	kind := KindNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}

	msg := fallbackMessage(r.Op)
	if errors.Is(err, shared.ErrNotAuthenticated) {
		msg = "Not logged in"
	}
	return &APIError{Op: r.Op, Method: r.Method, Path: r.Path, Kind: kind, Message: msg, Err: err}
}

// Operation labels used in [Request.Op] and error messages.
const (
	OpLogin      = "login"
	OpRegister   = "register"
	OpWhoAmI     = "whoami"
	OpListSongs  = "list songs"
	OpGetSong    = "get song"
	OpCreateSong = "create song"
	OpUpdateSong = "update song"
	OpDeleteSong = "delete song"
)

func fallbackMessage(op string) string {
	switch op {
	case OpLogin:
		return "Login failed"
	case OpRegister:
		return "Registration failed"
	case OpWhoAmI:
		return "Failed to fetch user data"
	case OpListSongs:
		return "Failed to fetch songs"
	case OpGetSong:
		return "Failed to fetch song"
	case OpCreateSong:
		return "Failed to create song"
	case OpUpdateSong:
		return "Failed to update song"
	case OpDeleteSong:
		return "Failed to delete song"
	default:
		return "Request failed"
	}
}
