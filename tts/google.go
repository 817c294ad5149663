// Package tts renders narration text to an MP3 file using the Google Translate
// text-to-speech endpoint. The endpoint caps input length per request, so long
// text is split at sentence boundaries and the MP3 responses are concatenated.
package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://translate.google.com"
	filePrefix     = "radio_summary_"
	fileExt        = ".mp3"

	// maxChunkRunes is the per-request input cap. Splitting happens at sentence
	// boundaries where possible, with a hard split for unbroken runs.
	maxChunkRunes = 180
)

// Renderer converts text to speech in a fixed language and writes the result
// under Dir. BaseURL and HTTPClient are overridable for tests.
type Renderer struct {
	BaseURL    string
	HTTPClient *http.Client
	Language   string
	Dir        string
}

func (r *Renderer) base() string {
	if r.BaseURL != "" {
		return strings.TrimRight(r.BaseURL, "/")
	}
	return defaultBaseURL
}

func (r *Renderer) http() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return http.DefaultClient
}

// Render synthesizes text and writes an MP3 named after the target day
// (radio_summary_YYYYMMDD.mp3) under Dir, returning the file path.
func (r *Renderer) Render(ctx context.Context, text string, day time.Time) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("render: empty text")
	}

	var audio []byte
	for _, chunk := range SplitChunks(text, maxChunkRunes) {
		b, err := r.fetchChunk(ctx, chunk)
		if err != nil {
			return "", err
		}
		audio = append(audio, b...)
	}

	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}
	path := filepath.Join(r.Dir, filePrefix+day.Format("20060102")+fileExt)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	slog.Info("audio file written", slog.String("path", path), slog.Int("bytes", len(audio)))
	return path, nil
}

func (r *Renderer) fetchChunk(ctx context.Context, chunk string) ([]byte, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, r.base()+"/translate_tts", nil)
	q := req.URL.Query()
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", r.Language)
	q.Set("q", chunk)
	req.URL.RawQuery = q.Encode()

	resp, err := r.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts status: %s", resp.Status)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tts response: %w", err)
	}
	return b, nil
}

// SplitChunks splits text into pieces of at most max runes, preferring Japanese
// and Latin sentence boundaries. Whitespace-only pieces are dropped.
func SplitChunks(text string, max int) []string {
	var chunks []string
	var cur []rune
	flush := func() {
		s := strings.TrimSpace(string(cur))
		if s != "" {
			chunks = append(chunks, s)
		}
		cur = cur[:0]
	}
	for _, r := range text {
		cur = append(cur, r)
		switch r {
		case '。', '！', '？', '.', '!', '?', '\n':
			if len(cur) >= max/2 {
				flush()
			}
		default:
			if len(cur) >= max {
				flush()
			}
		}
	}
	flush()
	return chunks
}
