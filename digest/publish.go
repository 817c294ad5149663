package digest

import (
	"context"

	"github.com/onnwee/radio-digest/slackapi"
)

// SlackPublisher posts the digest back to the channel, as a text message or as
// an uploaded audio file with a title and caption. One network call each, no retry.
type SlackPublisher struct {
	Client *slackapi.Client
}

func (p *SlackPublisher) PublishText(ctx context.Context, channel, text string) error {
	return p.Client.PostMessage(ctx, channel, text)
}

func (p *SlackPublisher) PublishAudio(ctx context.Context, channel, path, title, comment string) error {
	return p.Client.UploadFile(ctx, channel, path, title, comment)
}
