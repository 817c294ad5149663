package digest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/onnwee/radio-digest/slackapi"
	"github.com/onnwee/radio-digest/telemetry"
)

// historyLimit caps the single history query. Messages beyond the cap on a
// busy channel are truncated by the API; known limitation, no pagination loop.
const historyLimit = 100

// SlackSource fetches a day's messages from a Slack channel.
type SlackSource struct {
	Client *slackapi.Client
}

// FetchMessages returns the text of every non-empty message in the window.
// A missing channel or a channel the bot is not a member of yields an empty
// batch (the run can stop gracefully); auth, transport, and unclassified API
// failures are returned as hard errors.
func (s *SlackSource) FetchMessages(ctx context.Context, channel string, w Window) ([]string, error) {
	msgs, err := s.Client.History(ctx, channel, w.Start, w.End, historyLimit)
	if err != nil {
		switch class := slackapi.ClassifyError(err); class {
		case slackapi.ErrorClassChannelNotFound, slackapi.ErrorClassNotInChannel:
			telemetry.LoggerWithCorr(ctx).Warn("channel history unavailable, treating as empty",
				slog.String("channel", channel),
				slog.String("class", class.String()),
				slog.Any("err", err))
			return nil, nil
		default:
			return nil, fmt.Errorf("fetch history (%s): %w", class, err)
		}
	}
	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		texts = append(texts, m.Text)
	}
	return texts, nil
}
