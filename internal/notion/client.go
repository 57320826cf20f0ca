package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the public Notion REST endpoint.
const DefaultBaseURL = "https://api.notion.com/v1"

// DefaultVersion is the Notion-Version header sent with every request.
const DefaultVersion = "2022-06-28"

const pageSize = 100

// Client talks to the Notion REST API.
type Client struct {
	baseURL    string
	token      string
	version    string
	httpClient *http.Client

	backoff func(attempt int) time.Duration
}

func NewClient(baseURL, token, version string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if version == "" {
		version = DefaultVersion
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		version: version,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		backoff: Backoff,
	}
}

// Page is the metadata of one database row.
type Page struct {
	ID             string
	Archived       bool
	LastEditedTime string
	URL            string
	Properties     json.RawMessage
}

// Block is one raw block record. Payload holds the object stored under the
// block's type key, e.g. block["paragraph"] for a paragraph.
type Block struct {
	ID          string
	Type        string
	HasChildren bool
	Payload     json.RawMessage
	Children    []Block
}

// QueryDatabase returns every page of the database matching filter. A nil
// filter matches all pages.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, filter json.RawMessage) ([]Page, error) {
	var pages []Page
	cursor := ""
	for {
		req := map[string]any{"page_size": pageSize}
		if len(filter) > 0 {
			req["filter"] = filter
		}
		if cursor != "" {
			req["start_cursor"] = cursor
		}
		body, err := c.do(ctx, http.MethodPost, "/databases/"+databaseID+"/query", req)
		if err != nil {
			return nil, fmt.Errorf("query database %s: %w", databaseID, err)
		}

		res := gjson.ParseBytes(body)
		for _, r := range res.Get("results").Array() {
			if r.Get("object").String() != "page" {
				continue
			}
			if !r.Get("id").Exists() || !r.Get("properties").Exists() {
				return nil, fmt.Errorf("query database %s: page record missing id or properties", databaseID)
			}
			pages = append(pages, Page{
				ID:             r.Get("id").String(),
				Archived:       r.Get("archived").Bool(),
				LastEditedTime: r.Get("last_edited_time").String(),
				URL:            r.Get("url").String(),
				Properties:     json.RawMessage(r.Get("properties").Raw),
			})
		}

		if !res.Get("has_more").Bool() {
			return pages, nil
		}
		cursor = res.Get("next_cursor").String()
	}
}

// ListBlockChildren returns the direct children of a block, following
// pagination. Children of the returned blocks are not fetched.
func (c *Client) ListBlockChildren(ctx context.Context, blockID string) ([]Block, error) {
	var blocks []Block
	cursor := ""
	for {
		q := url.Values{}
		q.Set("page_size", strconv.Itoa(pageSize))
		if cursor != "" {
			q.Set("start_cursor", cursor)
		}
		body, err := c.do(ctx, http.MethodGet, "/blocks/"+blockID+"/children?"+q.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("list children of %s: %w", blockID, err)
		}

		res := gjson.ParseBytes(body)
		for _, r := range res.Get("results").Array() {
			typ := r.Get("type").String()
			blocks = append(blocks, Block{
				ID:          r.Get("id").String(),
				Type:        typ,
				HasChildren: r.Get("has_children").Bool(),
				Payload:     json.RawMessage(r.Get(gjson.Escape(typ)).Raw),
			})
		}

		if !res.Get("has_more").Bool() {
			return blocks, nil
		}
		cursor = res.Get("next_cursor").String()
	}
}

// FetchBlockTree returns the children of blockID with every nested level
// resolved, depth first, preserving order.
func (c *Client) FetchBlockTree(ctx context.Context, blockID string) ([]Block, error) {
	blocks, err := c.ListBlockChildren(ctx, blockID)
	if err != nil {
		return nil, err
	}
	for i := range blocks {
		if !blocks[i].HasChildren {
			continue
		}
		children, err := c.FetchBlockTree(ctx, blocks[i].ID)
		if err != nil {
			return nil, err
		}
		blocks[i].Children = children
	}
	return blocks, nil
}

// do sends a request, retrying transient failures with backoff.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		body, err := c.doOnce(ctx, method, path, payload)
		if err == nil || !IsRetryable(err) {
			return body, err
		}
		lastErr = err
		if attempt == MaxRetries-1 {
			break
		}
		select {
		case <-time.After(c.backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Notion-Version", c.version)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("notion api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("notion api status %d: %s", resp.StatusCode, truncate(string(respBody), 1024))
	}
	return respBody, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
