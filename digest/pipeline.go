package digest

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/onnwee/radio-digest/telemetry"
)

// MessageSource returns a day's message texts. An empty batch with a nil error
// means there is genuinely nothing to report; an error means the run cannot proceed.
type MessageSource interface {
	FetchMessages(ctx context.Context, channel string, w Window) ([]string, error)
}

// Summarizer produces the narration. It never fails: fallbacks replace errors.
type Summarizer interface {
	Summarize(ctx context.Context, messages []string, dayWord string) string
}

// Renderer converts the narration to an audio file and returns its path.
type Renderer interface {
	Render(ctx context.Context, text string, day time.Time) (string, error)
}

// Publisher posts the result back to the channel.
type Publisher interface {
	PublishText(ctx context.Context, channel, text string) error
	PublishAudio(ctx context.Context, channel, path, title, comment string) error
}

// State is the pipeline's position in a run.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateEmptyStop
	StateSummarizing
	StateRendering
	StatePublishing
	StateDone
	StateAborted
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateEmptyStop:
		return "empty_stop"
	case StateSummarizing:
		return "summarizing"
	case StateRendering:
		return "rendering"
	case StatePublishing:
		return "publishing"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of a run. State is StateDone or StateAborted.
// A failed final publish still counts as Done; Err carries what went wrong.
type Outcome struct {
	State     State
	Empty     bool
	Summary   string
	AudioPath string
	Published bool
	Err       error
}

// Slack upload strings for the audio digest post.
const (
	uploadTitle         = "📻 今日のラジオまとめ"
	uploadCommentPrefix = "🎧 今日の投稿をラジオ風にまとめました！\n\n要約:\n"
	captionPreviewRunes = 200
)

// Runner drives one digest run through the pipeline. Execution is strictly
// linear; each run is a fresh invocation with no shared state.
//
// Failure policy: a hard fetch error aborts the run before anything is
// published. Summarization failures are absorbed inside the Summarizer as
// fallback text. A render failure downgrades the run to a text-only publish.
// The final publish result is surfaced but never retried.
type Runner struct {
	Source     MessageSource
	Summarizer Summarizer
	Renderer   Renderer
	Publisher  Publisher

	Channel   string
	DayOffset int

	// TextOnly skips audio rendering and posts the narration as text.
	TextOnly bool
	// KeepAudio retains the rendered file after a successful publish.
	KeepAudio bool

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run executes the pipeline once and returns the terminal outcome.
func (r *Runner) Run(ctx context.Context) Outcome {
	log := telemetry.LoggerWithCorr(ctx)
	runStart := time.Now()
	defer func() {
		if telemetry.RunDuration != nil {
			telemetry.RunDuration.Observe(time.Since(runStart).Seconds())
		}
	}()
	telemetry.Inc(telemetry.RunsStarted)

	window := WindowFor(r.DayOffset, r.now())
	log.Info("state transition", slog.String("from", StateIdle.String()), slog.String("to", StateFetching.String()),
		slog.Time("window_start", window.Start), slog.Time("window_end", window.End))

	var messages []string
	var err error
	telemetry.TimeFunc(telemetry.FetchDuration, func() {
		fctx, span := telemetry.StartSpan(ctx, "digest", "fetch")
		messages, err = r.Source.FetchMessages(fctx, r.Channel, window)
		span.End()
	})
	if err != nil {
		log.Error("fetch failed, aborting run", slog.Any("err", err))
		telemetry.Inc(telemetry.RunsAborted)
		return Outcome{State: StateAborted, Err: err}
	}
	telemetry.SetMessagesFetched(len(messages))

	if len(messages) == 0 {
		log.Info("state transition", slog.String("from", StateFetching.String()), slog.String("to", StateEmptyStop.String()))
		log.Info("nothing to report for the window")
		telemetry.Inc(telemetry.RunsEmpty)
		return Outcome{State: StateDone, Empty: true}
	}
	log.Info("messages fetched", slog.Int("count", len(messages)))

	log.Info("state transition", slog.String("from", StateFetching.String()), slog.String("to", StateSummarizing.String()))
	var summary string
	telemetry.TimeFunc(telemetry.SummarizeDuration, func() {
		sctx, span := telemetry.StartSpan(ctx, "digest", "summarize")
		summary = r.Summarizer.Summarize(sctx, messages, DayWord(r.DayOffset))
		span.End()
	})
	log.Info("summary ready", slog.Int("chars", len([]rune(summary))))

	var audioPath string
	prev := StateSummarizing
	if r.TextOnly {
		log.Info("text-only mode, skipping audio render")
	} else {
		prev = StateRendering
		log.Info("state transition", slog.String("from", StateSummarizing.String()), slog.String("to", StateRendering.String()))
		var renderErr error
		telemetry.TimeFunc(telemetry.RenderDuration, func() {
			rctx, span := telemetry.StartSpan(ctx, "digest", "render")
			audioPath, renderErr = r.Renderer.Render(rctx, summary, window.Day())
			span.End()
		})
		if renderErr != nil {
			// Render failure must not kill the run: publish the narration as text instead.
			log.Warn("audio render failed, degrading to text-only publish", slog.Any("err", renderErr))
			telemetry.Inc(telemetry.RenderFailures)
			audioPath = ""
		}
	}

	log.Info("state transition", slog.String("from", prev.String()), slog.String("to", StatePublishing.String()))
	var pubErr error
	telemetry.TimeFunc(telemetry.PublishDuration, func() {
		pctx, span := telemetry.StartSpan(ctx, "digest", "publish")
		defer span.End()
		if audioPath != "" {
			pubErr = r.Publisher.PublishAudio(pctx, r.Channel, audioPath, uploadTitle, caption(summary))
		} else {
			pubErr = r.Publisher.PublishText(pctx, r.Channel, summary)
		}
	})

	out := Outcome{State: StateDone, Summary: summary, AudioPath: audioPath}
	if pubErr != nil {
		log.Error("publish failed", slog.Any("err", pubErr))
		telemetry.Inc(telemetry.PublishesFailed)
		out.Err = pubErr
	} else {
		log.Info("digest published", slog.Bool("audio", audioPath != ""))
		telemetry.Inc(telemetry.PublishesSucceeded)
		out.Published = true
		r.cleanupAudio(log, audioPath)
	}
	log.Info("state transition", slog.String("from", StatePublishing.String()), slog.String("to", StateDone.String()))
	return out
}

// cleanupAudio releases the rendered file once it has been published.
// The file is kept on publish failure so an operator can inspect or repost it.
func (r *Runner) cleanupAudio(log *slog.Logger, path string) {
	if path == "" || r.KeepAudio {
		return
	}
	if err := os.Remove(path); err != nil {
		log.Warn("failed to remove audio file", slog.String("path", path), slog.Any("err", err))
		return
	}
	log.Info("audio file removed", slog.String("path", path))
}

// caption builds the upload comment: a fixed lead plus a preview of the summary.
func caption(summary string) string {
	runes := []rune(summary)
	if len(runes) > captionPreviewRunes {
		runes = runes[:captionPreviewRunes]
	}
	return uploadCommentPrefix + string(runes) + "..."
}
