// Command radio-digest runs the daily channel radio digest once.
// It:
//   - Loads configuration and initializes structured logging.
//   - Fetches the target day's Slack channel messages.
//   - Summarizes them into a radio-style narration via OpenAI (with fixed
//     fallbacks when no key is configured or the call fails).
//   - Renders the narration to an MP3 and uploads it to the channel, degrading
//     to a text-only post if rendering fails.
//
// Exit code is 0 when the run completes (including "nothing to report" and a
// reported publish failure) and 1 when configuration is invalid or the run
// aborts on a hard fetch error.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/onnwee/radio-digest/config"
	"github.com/onnwee/radio-digest/digest"
	"github.com/onnwee/radio-digest/slackapi"
	"github.com/onnwee/radio-digest/summarize"
	"github.com/onnwee/radio-digest/telemetry"
	"github.com/onnwee/radio-digest/tts"
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain runs the digest and returns the process exit code. It returns
// instead of exiting so deferred cleanup (tracer shutdown, metrics push,
// signal release) runs on every exit path.
func realMain(args []string) int {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	fs := flag.NewFlagSet("radio-digest", flag.ContinueOnError)
	dayOffset := fs.Int("day-offset", 0, "day to digest: 0 today, -1 yesterday")
	textOnly := fs.Bool("text-only", false, "skip audio rendering and post the summary as text")
	check := fs.Bool("check", false, "verify the Slack credential (auth.test) and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	initLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		return 1
	}
	if err := cfg.ValidatePublishReady(); err != nil {
		slog.Error("config invalid", slog.Any("err", err))
		return 1
	}
	if *dayOffset > 0 {
		slog.Error("day-offset must be 0 or negative", slog.Int("day_offset", *dayOffset))
		return 1
	}

	telemetry.Init()
	shutdown, err := telemetry.InitTracing("radio-digest", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		return 1
	}
	// Shutdown flushes buffered spans; a one-shot run exits well before the
	// batcher's export interval, so skipping it would drop every span.
	defer shutdown()
	defer func() {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		telemetry.PushMetrics(pushCtx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	slack := &slackapi.Client{Token: cfg.SlackBotToken, BaseURL: cfg.SlackAPIURL, HTTPClient: httpClient}

	if *check {
		return runAuthCheck(ctx, slack)
	}

	persona, err := config.LoadPersona(cfg.PersonaFile)
	if err != nil {
		slog.Error("persona load failed", slog.Any("err", err))
		return 1
	}

	runner := &digest.Runner{
		Source:     &digest.SlackSource{Client: slack},
		Summarizer: summarize.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, persona),
		Renderer: &tts.Renderer{
			HTTPClient: httpClient,
			Language:   cfg.TTSLanguage,
			Dir:        cfg.DataDir,
		},
		Publisher: &digest.SlackPublisher{Client: slack},
		Channel:   cfg.ChannelID,
		DayOffset: *dayOffset,
		TextOnly:  *textOnly,
		KeepAudio: cfg.KeepAudio,
	}

	return run(ctx, cfg, runner, *dayOffset)
}

// run guards the pipeline with the per-day marker and maps the outcome to an exit code.
func run(ctx context.Context, cfg *config.Config, runner *digest.Runner, dayOffset int) int {
	log := telemetry.LoggerWithCorr(ctx)

	var marker *digest.RunMarker
	if cfg.Force {
		log.Warn("DIGEST_FORCE set, skipping duplicate-run check")
	} else {
		day := digest.WindowFor(dayOffset, time.Now()).Day()
		m, err := digest.AcquireRunMarker(cfg.DataDir, cfg.ChannelID, day)
		if errors.Is(err, digest.ErrAlreadyPublished) {
			log.Info("digest already published for this day, exiting",
				slog.String("channel", cfg.ChannelID), slog.Time("day", day))
			return 0
		}
		if err != nil {
			log.Error("run marker failed", slog.Any("err", err))
			return 1
		}
		marker = m
	}

	outcome := runner.Run(ctx)

	// The marker only persists once something was actually published, so an
	// aborted or empty run can be retried for the same day.
	if marker != nil && !outcome.Published {
		if err := marker.Release(); err != nil {
			log.Warn("run marker release failed", slog.Any("err", err))
		}
	}

	switch {
	case outcome.State == digest.StateAborted:
		return 1
	case outcome.Err != nil:
		log.Error("run completed with publish failure", slog.Any("err", outcome.Err))
		return 0
	case outcome.Empty:
		log.Info("run completed: nothing to report")
		return 0
	default:
		log.Info("run completed", slog.Bool("audio", outcome.AudioPath != ""))
		return 0
	}
}

// runAuthCheck calls auth.test and reports the bot identity.
func runAuthCheck(ctx context.Context, slack *slackapi.Client) int {
	ident, err := slack.AuthTest(ctx)
	if err != nil {
		slog.Error("slack auth check failed",
			slog.String("class", slackapi.ClassifyError(err).String()),
			slog.Any("err", err))
		return 1
	}
	slog.Info("slack auth ok",
		slog.String("user", ident.User),
		slog.String("user_id", ident.UserID),
		slog.String("team", ident.Team))
	return 0
}

// initLogging configures slog (level + format). Defaults: level=info, format=text.
func initLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
}
