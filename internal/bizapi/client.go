package bizapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"priceops/gateway/internal/domain"
)

const DefaultCallTimeout = 120 * time.Second

// Client issues single-attempt calls against the business API and normalizes
// success, failure and timeout into a CallResult. Retry policy, if any,
// belongs to callers; currently nobody retries.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		timeout: timeout,
		http:    &http.Client{},
	}
}

// StartParser triggers one external data-gathering operation.
func (c *Client) StartParser(ctx context.Context, parser string) domain.CallResult {
	params := url.Values{}
	params.Set("parser", parser)
	return c.call(ctx, "/start_parser", params)
}

// StartTableProcess triggers one external data-reconciliation operation.
// Array arguments travel as a single JSON-encoded query parameter.
func (c *Client) StartTableProcess(ctx context.Context, method string, args []string) domain.CallResult {
	params := url.Values{}
	params.Set("method", method)
	if len(args) > 0 {
		encoded, err := json.Marshal(args)
		if err != nil {
			return domain.CallResult{Message: fmt.Sprintf("Error: encoding args for method %q: %v", method, err)}
		}
		params.Set("args", string(encoded))
	}
	return c.call(ctx, "/start_table_process", params)
}

// ParserLogs fetches the raw log text for a parser. The API returns it in
// the message field of a JSON body.
func (c *Client) ParserLogs(ctx context.Context, parser string) (string, error) {
	res := c.call(ctx, "/get_logs/parser="+url.PathEscape(parser), nil)
	if !res.Succeeded {
		return "", fmt.Errorf("fetching logs for %q: %s", parser, res.Message)
	}
	return res.Message, nil
}

// call performs one GET and classifies the response:
//   - 2xx JSON without status == "error": success, message field extracted
//   - 2xx non-JSON body: success, raw text as message
//   - 2xx JSON with status == "error": failure despite the transport success
//   - non-2xx: failure, message dug out of a JSON error body when possible
//   - transport error or timeout: failure with no status code at all
func (c *Client) call(ctx context.Context, path string, params url.Values) domain.CallResult {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	log.Printf("bizapi: GET %s", target)

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return domain.CallResult{Message: fmt.Sprintf("Error: building request: %v", err)}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			log.Printf("bizapi: timeout after %s for %s", c.timeout, target)
			return domain.CallResult{Message: fmt.Sprintf("Error: request timed out after %s", c.timeout)}
		}
		log.Printf("bizapi: request failed for %s: %v", target, err)
		return domain.CallResult{Message: fmt.Sprintf("Error: request failed: %v", err)}
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.CallResult{StatusCode: &status, Message: fmt.Sprintf("Error: reading response body: %v", err)}
	}

	if status < 200 || status >= 300 {
		log.Printf("bizapi: status %d from %s", status, target)
		return domain.CallResult{StatusCode: &status, Message: fmt.Sprintf("API Error %d: %s", status, errorMessage(body))}
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		// A 2xx with a non-JSON body is still a success.
		text := strings.TrimSpace(string(body))
		if text == "" {
			text = "OK"
		}
		return domain.CallResult{Succeeded: true, StatusCode: &status, Message: text}
	}
	if s, ok := parsed["status"].(string); ok && s == "error" {
		return domain.CallResult{StatusCode: &status, Message: messageField(parsed, body)}
	}
	return domain.CallResult{Succeeded: true, StatusCode: &status, Message: messageField(parsed, body)}
}

func messageField(parsed map[string]interface{}, raw []byte) string {
	if m, ok := parsed["message"].(string); ok && m != "" {
		return m
	}
	return strings.TrimSpace(string(raw))
}

func errorMessage(body []byte) string {
	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if m, ok := parsed["message"].(string); ok && m != "" {
			return m
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		text = "Unknown API error"
	}
	return text
}
