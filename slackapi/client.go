// Package slackapi contains minimal helpers to interact with the Slack Web API
// for channel history, message posting, and file upload, using a bot token.
package slackapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultBaseURL = "https://slack.com/api"

// Client provides the minimal Slack Web API surface the digest needs.
// BaseURL and HTTPClient are overridable for tests.
type Client struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return defaultBaseURL
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Message is a single channel message. TS is Slack's "seconds.micros" timestamp string.
type Message struct {
	TS   string `json:"ts"`
	Text string `json:"text"`
}

// envelope is the common Slack response wrapper: ok=false carries a string error code.
type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (c *Client) decode(resp *http.Response, out interface{}) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack api status: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode slack response: %w", err)
	}
	return nil
}

// slackTS renders an instant in Slack's timestamp parameter format.
func slackTS(t time.Time) string {
	return fmt.Sprintf("%d.000000", t.Unix())
}

// History fetches messages posted in [oldest, latest] (inclusive bounds) for a channel.
// A single query is issued with the given limit; on a busy channel anything beyond the
// cap is silently truncated by the API. Messages without text are filtered out and the
// rest are returned in API order (newest first), not re-sorted.
func (c *Client) History(ctx context.Context, channel string, oldest, latest time.Time, limit int) ([]Message, error) {
	if channel == "" {
		return nil, fmt.Errorf("channel empty")
	}
	if limit <= 0 {
		limit = 100
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+"/conversations.history", nil)
	q := req.URL.Query()
	q.Set("channel", channel)
	q.Set("oldest", slackTS(oldest))
	q.Set("latest", slackTS(latest))
	q.Set("inclusive", "true")
	q.Set("limit", fmt.Sprintf("%d", limit))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack history request: %w", err)
	}
	var body struct {
		envelope
		Messages []Message `json:"messages"`
	}
	if err := c.decode(resp, &body); err != nil {
		return nil, err
	}
	if !body.OK {
		return nil, &APIError{Code: body.Error}
	}
	out := make([]Message, 0, len(body.Messages))
	for _, m := range body.Messages {
		if m.Text == "" {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Identity describes the authenticated bot, as reported by auth.test.
type Identity struct {
	User   string `json:"user"`
	UserID string `json:"user_id"`
	Team   string `json:"team"`
}

// AuthTest verifies the bot token and returns the bot identity.
func (c *Client) AuthTest(ctx context.Context) (*Identity, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+"/auth.test", nil)
	req.Header.Set("Authorization", "Bearer "+c.Token)
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack auth.test request: %w", err)
	}
	var body struct {
		envelope
		Identity
	}
	if err := c.decode(resp, &body); err != nil {
		return nil, err
	}
	if !body.OK {
		return nil, &APIError{Code: body.Error}
	}
	return &body.Identity, nil
}

// PostMessage posts a plain text message to a channel.
func (c *Client) PostMessage(ctx context.Context, channel, text string) error {
	payload, err := json.Marshal(map[string]string{"channel": channel, "text": text})
	if err != nil {
		return fmt.Errorf("marshal postMessage payload: %w", err)
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.base()+"/chat.postMessage", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.http().Do(req)
	if err != nil {
		return fmt.Errorf("slack postMessage request: %w", err)
	}
	var body envelope
	if err := c.decode(resp, &body); err != nil {
		return err
	}
	if !body.OK {
		return &APIError{Code: body.Error}
	}
	return nil
}

// UploadFile uploads a local file to a channel with a title and an initial comment.
// One multipart request covers upload and share.
func (c *Client) UploadFile(ctx context.Context, channel, path, title, comment string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open upload file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close upload file", slog.Any("err", err))
		}
	}()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"channels":        channel,
		"title":           title,
		"initial_comment": comment,
	} {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("write upload field %s: %w", k, err)
		}
	}
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create upload part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copy upload body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish upload body: %w", err)
	}

	u, _ := url.Parse(c.base() + "/files.upload")
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &buf)
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http().Do(req)
	if err != nil {
		return fmt.Errorf("slack upload request: %w", err)
	}
	var body envelope
	if err := c.decode(resp, &body); err != nil {
		return err
	}
	if !body.OK {
		return &APIError{Code: body.Error}
	}
	return nil
}
