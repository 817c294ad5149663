// Package summarize turns a day's channel messages into a short radio-style
// narration using the OpenAI chat completion API. Summarization never hard-fails:
// when there is nothing to summarize, no API key is configured, or the API call
// fails, a fixed fallback sentence is returned instead.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/onnwee/radio-digest/config"
	"github.com/onnwee/radio-digest/telemetry"
)

// Fixed fallback narrations. These are published as-is when generation cannot run.
const (
	FallbackNoPosts      = "今日は特に投稿がありませんでした。"
	FallbackNoCredential = "OpenAI API キーが設定されていないため、要約を生成できません。"
	FallbackFailed       = "申し訳ございません。要約の生成中にエラーが発生しました。"
)

const (
	maxTokens   = 500
	temperature = 0.7
)

// ChatCompleter is the slice of the OpenAI client the summarizer uses.
// *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Summarizer generates the narration. A nil Client means no credential is
// configured and every call returns FallbackNoCredential.
type Summarizer struct {
	Client  ChatCompleter
	Model   string
	Persona config.Persona
}

// New builds a Summarizer. An empty apiKey yields a credential-less summarizer
// that only ever returns the fixed fallback.
func New(apiKey, model string, persona config.Persona) *Summarizer {
	s := &Summarizer{Model: model, Persona: persona}
	if apiKey != "" {
		s.Client = openai.NewClient(apiKey)
	}
	return s
}

// Summarize condenses messages into a single narration string. dayWord names the
// target day in the prompt (今日 or 昨日). The returned string is always publishable;
// API failures degrade to FallbackFailed rather than propagating.
func (s *Summarizer) Summarize(ctx context.Context, messages []string, dayWord string) string {
	if len(messages) == 0 {
		return FallbackNoPosts
	}
	if s.Client == nil {
		slog.Warn("summarization skipped: no OpenAI API key configured")
		telemetry.Inc(telemetry.SummaryFallbacks)
		return FallbackNoCredential
	}

	resp, err := s.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: s.buildPrompt(messages, dayWord)},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		slog.Error("openai completion failed", slog.Any("err", err))
		telemetry.Inc(telemetry.SummaryFallbacks)
		return FallbackFailed
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		slog.Error("openai completion returned no content")
		telemetry.Inc(telemetry.SummaryFallbacks)
		return FallbackFailed
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

func (s *Summarizer) buildPrompt(messages []string, dayWord string) string {
	return fmt.Sprintf(`あなたは人気ラジオDJです。以下のSlackチャンネルの%sの投稿内容を、%sラジオ番組風に要約してください。

投稿内容:
%s

要約のポイント:
- ラジオDJ風の明るい口調で
- 重要な情報は漏らさずに
- 聞き手が興味を持つような構成で
- 日本語で自然な話し言葉で
- 「%s」で始めて、「%s」で終わる

要約:
`, dayWord, s.Persona.Tone, strings.Join(messages, "\n"), s.Persona.Opening, s.Persona.Closing)
}
