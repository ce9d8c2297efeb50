package httpapi

import (
	"bufio"
	"bytes"
	stdcontext "context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Paintersrp/protonctl/internal/api"
	"github.com/Paintersrp/protonctl/internal/probe"
)

// Client talks to a running control server.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the server listening on addr. addr may be a
// host:port pair or a full URL.
func NewClient(addr string) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + normalizeAddr(base)
	}
	return &Client{base: base, http: &http.Client{}}
}

// RemoteError is a non-2xx response from the server.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return e.Message
}

func (c *Client) Launch(ctx stdcontext.Context, req api.LaunchRequest) (*api.MessageResult, error) {
	var out api.MessageResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/launch", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Kill(ctx stdcontext.Context, req api.KillRequest) error {
	return c.do(ctx, http.MethodPost, "/api/v1/kill", req, nil)
}

func (c *Client) Status(ctx stdcontext.Context) (*api.StatusReport, error) {
	var out api.StatusReport
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Health(ctx stdcontext.Context) (*probe.Snapshot, error) {
	var out probe.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/v1/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Events subscribes to process-status notifications. The returned channel is
// closed when ctx ends or the stream breaks.
func (c *Client) Events(ctx stdcontext.Context) (<-chan api.StatusEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/v1/events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeRemoteError(resp)
	}
	out := make(chan api.StatusEvent, 16)
	go readEvents(ctx, resp.Body, out)
	return out, nil
}

func readEvents(ctx stdcontext.Context, body io.ReadCloser, out chan<- api.StatusEvent) {
	defer close(out)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	var eventType, data string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if eventType == ProcessStatusEvent && data != "" {
				var evt api.StatusEvent
				if err := json.Unmarshal([]byte(data), &evt); err == nil {
					select {
					case out <- evt:
					case <-ctx.Done():
						return
					}
				}
			}
			eventType, data = "", ""
			continue
		}
		if strings.HasPrefix(line, "event:") {
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		} else if strings.HasPrefix(line, "data:") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}

func (c *Client) do(ctx stdcontext.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel stdcontext.CancelFunc
		ctx, cancel = stdcontext.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeRemoteError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeRemoteError(resp *http.Response) error {
	var body errorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err := json.Unmarshal(data, &body); err != nil || body.Message == "" {
		return &RemoteError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	return &RemoteError{Status: resp.StatusCode, Code: body.Code, Message: body.Message}
}
