package digest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeSource struct {
	msgs  []string
	err   error
	calls int
}

func (f *fakeSource) FetchMessages(ctx context.Context, channel string, w Window) ([]string, error) {
	f.calls++
	return f.msgs, f.err
}

type fakeSummarizer struct {
	out        string
	calls      int
	gotMsgs    []string
	gotDayWord string
}

func (f *fakeSummarizer) Summarize(ctx context.Context, messages []string, dayWord string) string {
	f.calls++
	f.gotMsgs = messages
	f.gotDayWord = dayWord
	return f.out
}

type fakeRenderer struct {
	path    string
	err     error
	calls   int
	gotText string
}

func (f *fakeRenderer) Render(ctx context.Context, text string, day time.Time) (string, error) {
	f.calls++
	f.gotText = text
	return f.path, f.err
}

type fakePublisher struct {
	textErr    error
	audioErr   error
	textCalls  int
	audioCalls int
	gotText    string
	gotPath    string
	gotTitle   string
	gotComment string
}

func (f *fakePublisher) PublishText(ctx context.Context, channel, text string) error {
	f.textCalls++
	f.gotText = text
	return f.textErr
}

func (f *fakePublisher) PublishAudio(ctx context.Context, channel, path, title, comment string) error {
	f.audioCalls++
	f.gotPath = path
	f.gotTitle = title
	f.gotComment = comment
	return f.audioErr
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
}

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "radio_summary_20250615.mp3")
	if err := os.WriteFile(path, []byte("mp3"), 0o644); err != nil {
		t.Fatalf("write temp audio: %v", err)
	}
	return path
}

func TestRunner_AudioPublish(t *testing.T) {
	summary := "おはようございます。バグ報告とミーティングの話題がありました。それでは良い一日を！"
	audioPath := writeTempAudio(t)

	src := &fakeSource{msgs: []string{"バグ報告", "ミーティングは月曜10時"}}
	sum := &fakeSummarizer{out: summary}
	ren := &fakeRenderer{path: audioPath}
	pub := &fakePublisher{}

	r := &Runner{
		Source: src, Summarizer: sum, Renderer: ren, Publisher: pub,
		Channel: "C123", Now: fixedNow,
	}
	out := r.Run(context.Background())

	if out.State != StateDone || !out.Published || out.Err != nil {
		t.Fatalf("outcome = %+v, want published Done", out)
	}
	if sum.gotDayWord != "今日" {
		t.Errorf("dayWord = %q, want 今日", sum.gotDayWord)
	}
	if ren.gotText != summary {
		t.Errorf("render input = %q, want the exact summary", ren.gotText)
	}
	if pub.audioCalls != 1 || pub.textCalls != 0 {
		t.Errorf("publish calls audio=%d text=%d, want 1/0", pub.audioCalls, pub.textCalls)
	}
	if pub.gotPath != audioPath {
		t.Errorf("published path = %q, want %q", pub.gotPath, audioPath)
	}
	if pub.gotTitle == "" {
		t.Error("upload title empty")
	}
	if !strings.Contains(pub.gotComment, "おはようございます") {
		t.Errorf("caption %q does not contain the summary prefix", pub.gotComment)
	}
	// Artifact is released after a successful publish.
	if _, err := os.Stat(audioPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("audio file still present after publish: %v", err)
	}
}

func TestRunner_EmptyStop(t *testing.T) {
	src := &fakeSource{}
	sum := &fakeSummarizer{out: "unused"}
	ren := &fakeRenderer{}
	pub := &fakePublisher{}

	r := &Runner{Source: src, Summarizer: sum, Renderer: ren, Publisher: pub, Channel: "C123", Now: fixedNow}
	out := r.Run(context.Background())

	if out.State != StateDone || !out.Empty {
		t.Fatalf("outcome = %+v, want empty Done", out)
	}
	if sum.calls != 0 || ren.calls != 0 || pub.textCalls != 0 || pub.audioCalls != 0 {
		t.Errorf("downstream stages called on empty batch: summarize=%d render=%d text=%d audio=%d",
			sum.calls, ren.calls, pub.textCalls, pub.audioCalls)
	}
}

func TestRunner_FetchHardErrorAborts(t *testing.T) {
	src := &fakeSource{err: errors.New("fetch history (auth): slack api error: invalid_auth")}
	pub := &fakePublisher{}

	r := &Runner{Source: src, Summarizer: &fakeSummarizer{}, Renderer: &fakeRenderer{}, Publisher: pub,
		Channel: "C123", Now: fixedNow}
	out := r.Run(context.Background())

	if out.State != StateAborted || out.Err == nil {
		t.Fatalf("outcome = %+v, want Aborted with error", out)
	}
	if pub.textCalls != 0 || pub.audioCalls != 0 {
		t.Error("publish attempted after aborted fetch")
	}
}

func TestRunner_RenderFailureDegradesToText(t *testing.T) {
	summary := "おはようございます。まとめです。それでは良い一日を！"
	src := &fakeSource{msgs: []string{"hello"}}
	ren := &fakeRenderer{err: errors.New("tts status: 500 Internal Server Error")}
	pub := &fakePublisher{}

	r := &Runner{Source: src, Summarizer: &fakeSummarizer{out: summary}, Renderer: ren, Publisher: pub,
		Channel: "C123", Now: fixedNow}
	out := r.Run(context.Background())

	if out.State != StateDone || !out.Published {
		t.Fatalf("outcome = %+v, want published Done", out)
	}
	if pub.audioCalls != 0 {
		t.Error("publishAudio called after render failure")
	}
	if pub.textCalls != 1 || pub.gotText != summary {
		t.Errorf("publishText calls=%d text=%q, want the summary posted once", pub.textCalls, pub.gotText)
	}
}

func TestRunner_TextOnlySkipsRender(t *testing.T) {
	src := &fakeSource{msgs: []string{"hello"}}
	ren := &fakeRenderer{path: "unused.mp3"}
	pub := &fakePublisher{}

	r := &Runner{Source: src, Summarizer: &fakeSummarizer{out: "まとめ"}, Renderer: ren, Publisher: pub,
		Channel: "C123", TextOnly: true, Now: fixedNow}
	out := r.Run(context.Background())

	if !out.Published {
		t.Fatalf("outcome = %+v, want published", out)
	}
	if ren.calls != 0 {
		t.Error("renderer called in text-only mode")
	}
	if pub.textCalls != 1 || pub.audioCalls != 0 {
		t.Errorf("publish calls text=%d audio=%d, want 1/0", pub.textCalls, pub.audioCalls)
	}
}

func TestRunner_PublishFailureIsSurfacedNotRetried(t *testing.T) {
	audioPath := writeTempAudio(t)
	pub := &fakePublisher{audioErr: errors.New("slack api error: not_in_channel")}

	r := &Runner{
		Source:     &fakeSource{msgs: []string{"hello"}},
		Summarizer: &fakeSummarizer{out: "まとめ"},
		Renderer:   &fakeRenderer{path: audioPath},
		Publisher:  pub,
		Channel:    "C123", Now: fixedNow,
	}
	out := r.Run(context.Background())

	if out.State != StateDone || out.Published || out.Err == nil {
		t.Fatalf("outcome = %+v, want Done with publish error", out)
	}
	if pub.audioCalls != 1 {
		t.Errorf("publishAudio calls = %d, want exactly 1 (no retry)", pub.audioCalls)
	}
	// Artifact is retained when the publish fails.
	if _, err := os.Stat(audioPath); err != nil {
		t.Errorf("audio file removed despite publish failure: %v", err)
	}
}

func TestRunner_KeepAudio(t *testing.T) {
	audioPath := writeTempAudio(t)
	r := &Runner{
		Source:     &fakeSource{msgs: []string{"hello"}},
		Summarizer: &fakeSummarizer{out: "まとめ"},
		Renderer:   &fakeRenderer{path: audioPath},
		Publisher:  &fakePublisher{},
		Channel:    "C123", KeepAudio: true, Now: fixedNow,
	}
	if out := r.Run(context.Background()); !out.Published {
		t.Fatalf("outcome = %+v, want published", out)
	}
	if _, err := os.Stat(audioPath); err != nil {
		t.Errorf("audio file removed despite KeepAudio: %v", err)
	}
}

func TestCaptionTruncation(t *testing.T) {
	long := strings.Repeat("長", 300)
	got := caption(long)
	if !strings.HasPrefix(got, uploadCommentPrefix) {
		t.Fatalf("caption missing lead: %q", got[:20])
	}
	body := strings.TrimPrefix(got, uploadCommentPrefix)
	if body != strings.Repeat("長", captionPreviewRunes)+"..." {
		t.Errorf("caption body = %d runes, want %d-rune preview plus ellipsis", len([]rune(body)), captionPreviewRunes)
	}

	short := "短いまとめ"
	if got := caption(short); got != uploadCommentPrefix+short+"..." {
		t.Errorf("caption(short) = %q", got)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateFetching, "fetching"},
		{StateEmptyStop, "empty_stop"},
		{StateSummarizing, "summarizing"},
		{StateRendering, "rendering"},
		{StatePublishing, "publishing"},
		{StateDone, "done"},
		{StateAborted, "aborted"},
		{State(999), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
