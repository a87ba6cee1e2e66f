package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	queue "github.com/corequeue/corequeue"
)

type httpRequestPayload struct {
	Method string            `json:"method"`
	URL    string            `json:"url"`
	Header map[string]string `json:"header"`
	Body   json.RawMessage   `json:"body"`
}

type httpRequestResult struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

// HTTPRequest issues the request described by the job's payload and
// treats any 2xx response as success. Non-2xx responses and transport
// errors both fail the attempt, letting the queue's own retry/backoff
// policy decide whether to try again.
func HTTPRequest(client *http.Client) queue.Handler {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return func(ctx context.Context, jc queue.JobContext) queue.Result {
		var p httpRequestPayload
		if err := json.Unmarshal(jc.Payload, &p); err != nil {
			return queue.Result{Success: false, Error: fmt.Sprintf("invalid payload: %v", err)}
		}
		method := p.Method
		if method == "" {
			method = http.MethodGet
		}

		req, err := http.NewRequestWithContext(ctx, method, p.URL, bytes.NewReader(p.Body))
		if err != nil {
			return queue.Result{Success: false, Error: fmt.Sprintf("build request: %v", err)}
		}
		for k, v := range p.Header {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return queue.Result{Success: false, Error: fmt.Sprintf("request failed: %v", err)}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return queue.Result{Success: false, Error: fmt.Sprintf("read response: %v", err)}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return queue.Result{Success: false, Error: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, body)}
		}

		output, _ := json.Marshal(httpRequestResult{StatusCode: resp.StatusCode, Body: string(body)})
		return queue.Result{Success: true, Output: output}
	}
}
