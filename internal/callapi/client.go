package callapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client issues authenticated requests against the remote call-control
// service. It attaches the static API key to every request and never retries
// internally; retry policy belongs to the caller.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type startCallRequest struct {
	To   string `json:"to"`
	From string `json:"from"`
}

type startCallResponse struct {
	CallConnectionID string `json:"callConnectionId"`
}

type stopCallRequest struct {
	CallConnectionID string `json:"callConnectionId"`
}

type transcriptResponse struct {
	Transcript []string `json:"transcript"`
}

// StartCall places an outbound call and returns the connection id the
// service issued for it.
func (c *Client) StartCall(ctx context.Context, to, from string) (string, error) {
	body, err := c.postJSON(ctx, "/call/start", startCallRequest{To: to, From: from})
	if err != nil {
		return "", err
	}

	var res startCallResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", &NetworkError{Op: "decode start response", Err: err}
	}
	if strings.TrimSpace(res.CallConnectionID) == "" {
		return "", &NetworkError{Op: "decode start response", Err: errMissingConnectionID}
	}
	return res.CallConnectionID, nil
}

// StopCall asks the service to hang up the given call. The success payload is
// opaque and discarded. Stopping an already-ended call may fail remotely; the
// caller decides whether that matters.
func (c *Client) StopCall(ctx context.Context, connectionID string) error {
	_, err := c.postJSON(ctx, "/call/stop", stopCallRequest{CallConnectionID: connectionID})
	return err
}

// FetchTranscript returns the full transcript accumulated so far, in speaking
// order. The service always returns the complete history, never a delta.
func (c *Client) FetchTranscript(ctx context.Context, connectionID string) ([]string, error) {
	endpoint := c.baseURL + "/call/transcript?callConnectionId=" + url.QueryEscape(connectionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &NetworkError{Op: "create transcript request", Err: err}
	}
	c.setHeaders(req)

	body, err := c.do(req, "fetch transcript")
	if err != nil {
		return nil, err
	}

	var res transcriptResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &NetworkError{Op: "decode transcript response", Err: err}
	}
	return res.Transcript, nil
}

// Health pings the service health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return &NetworkError{Op: "create health request", Err: err}
	}
	c.setHeaders(req)
	_, err = c.do(req, "health check")
	return err
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &NetworkError{Op: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, &NetworkError{Op: "create request", Err: err}
	}
	c.setHeaders(req)

	return c.do(req, "post "+path)
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	res, err := c.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, &NetworkError{Op: op + " read body", Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &RemoteError{Status: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}
