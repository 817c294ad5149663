package main

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/onnwee/radio-digest/testutil"
)

func clearDigestEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SLACK_BOT_TOKEN", "CHANNEL_ID", "SLACK_API_URL", "OPENAI_API_KEY", "OPENAI_MODEL",
		"TTS_LANG", "DATA_DIR", "KEEP_AUDIO", "PERSONA_FILE", "HTTP_TIMEOUT", "DIGEST_FORCE",
		"PUSHGATEWAY_URL", "OTEL_EXPORTER_OTLP_ENDPOINT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestRealMain_ConfigInvalidReturns(t *testing.T) {
	clearDigestEnv(t)

	// Must return through deferred cleanup rather than exiting the process.
	if code := realMain(nil); code != 1 {
		t.Errorf("realMain() = %d, want 1 for missing slack env", code)
	}
}

func TestRealMain_PositiveDayOffsetRejected(t *testing.T) {
	clearDigestEnv(t)
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("CHANNEL_ID", "C123")

	if code := realMain([]string{"-day-offset", "1"}); code != 1 {
		t.Errorf("realMain(-day-offset 1) = %d, want 1", code)
	}
}

func TestRealMain_CheckFlag(t *testing.T) {
	clearDigestEnv(t)
	server := testutil.NewMockSlackServer(t)
	server.Handlers["/auth.test"] = func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": true, "user": "radiobot", "user_id": "U1", "team": "eng",
		})
	}
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("CHANNEL_ID", "C123")
	t.Setenv("SLACK_API_URL", server.URL)
	t.Setenv("DATA_DIR", t.TempDir())

	if code := realMain([]string{"-check"}); code != 0 {
		t.Errorf("realMain(-check) = %d, want 0", code)
	}

	server.MockAPIError("/auth.test", "invalid_auth")
	if code := realMain([]string{"-check"}); code != 1 {
		t.Errorf("realMain(-check) with invalid auth = %d, want 1", code)
	}
}

func TestRealMain_TextOnlyRun(t *testing.T) {
	clearDigestEnv(t)
	server := testutil.NewMockSlackServer(t)
	server.MockHistoryResponse([]map[string]string{
		{"ts": "1750000000.000100", "text": "バグ報告"},
	})
	var posted bool
	server.Handlers["/chat.postMessage"] = func(w http.ResponseWriter, r *http.Request) {
		posted = true
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
	}
	dataDir := t.TempDir()
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("CHANNEL_ID", "C123")
	t.Setenv("SLACK_API_URL", server.URL)
	t.Setenv("DATA_DIR", dataDir)

	// No OPENAI_API_KEY: the run publishes the fixed fallback as text.
	if code := realMain([]string{"-text-only"}); code != 0 {
		t.Fatalf("realMain(-text-only) = %d, want 0", code)
	}
	if !posted {
		t.Error("chat.postMessage never called")
	}

	// The published day is marked, so a second trigger exits 0 without posting.
	markers, err := filepath.Glob(filepath.Join(dataDir, "digest_C123_*.done"))
	if err != nil || len(markers) != 1 {
		t.Fatalf("run markers = %v (err %v), want exactly one", markers, err)
	}
	posted = false
	if code := realMain([]string{"-text-only"}); code != 0 {
		t.Errorf("second realMain(-text-only) = %d, want 0", code)
	}
	if posted {
		t.Error("duplicate run published again despite marker")
	}
}

func TestRealMain_BadFlag(t *testing.T) {
	clearDigestEnv(t)
	if code := realMain([]string{"-no-such-flag"}); code != 2 {
		t.Errorf("realMain(bad flag) = %d, want 2", code)
	}
}
