// Package gemini calls the Gemini API for speech recognition and summarization.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/ovthemoon/AutoMeetingNote/internal/meeterr"
	"github.com/ovthemoon/AutoMeetingNote/internal/resilience"
	"github.com/ovthemoon/AutoMeetingNote/internal/trace"
	"github.com/ovthemoon/AutoMeetingNote/internal/transcribe"
)

// noSpeechMarker is what the model is told to emit for silent audio.
const noSpeechMarker = "[NO_SPEECH]"

const recognizeInstruction = "다음 오디오를 %s 언어로 그대로 받아쓰기해주세요. 받아쓴 텍스트만 출력하고 설명은 붙이지 마세요. 음성이 없으면 %s 만 출력해주세요."

// Client is a Gemini API client with key rotation on quota exhaustion.
// It implements transcribe.Recognizer and summarize.Condenser.
type Client struct {
	model   string
	breaker *resilience.Breaker
	retry   resilience.RetryConfig

	mu      sync.Mutex
	keys    []string
	current int
}

// New creates a client. At least one API key is required.
func New(keys []string, model string) (*Client, error) {
	if len(keys) == 0 {
		return nil, meeterr.New(meeterr.CodeInvalidRequest, "at least one Gemini API key required")
	}
	return &Client{
		model:   model,
		keys:    keys,
		breaker: resilience.New(resilience.DefaultConfig()),
		retry:   resilience.ModelRetryConfig(),
	}, nil
}

// Recognize transcribes a WAV clip. Returns transcribe.ErrNoSpeech for
// silent audio so callers can skip the segment.
func (c *Client) Recognize(ctx context.Context, wav []byte, language string) (string, error) {
	instruction := fmt.Sprintf(recognizeInstruction, language, noSpeechMarker)
	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(wav, "audio/wav"),
		genai.NewPartFromText(instruction),
	}, genai.RoleUser)

	text, err := c.generateWithRetry(ctx, []*genai.Content{content})
	if err != nil {
		return "", err
	}
	return recognizeOutput(text)
}

// Condense sends instruction plus text to the model and returns its output.
func (c *Client) Condense(ctx context.Context, instruction, text string) (string, error) {
	prompt := instruction + "\n\n" + text
	out, err := c.generateWithRetry(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return condenseOutput(out)
}

// recognizeOutput maps the model's transcription output. Both the explicit
// marker and an empty reply mean the clip had no usable speech.
func recognizeOutput(text string) (string, error) {
	if isNoSpeech(text) {
		return "", transcribe.ErrNoSpeech
	}
	return text, nil
}

// condenseOutput rejects an empty condensation. Unlike recognition, an
// empty reply here is a service fault, not a meaningful answer.
func condenseOutput(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", meeterr.New(meeterr.CodeUnavailable, "empty response from Gemini")
	}
	return text, nil
}

func (c *Client) generateWithRetry(ctx context.Context, contents []*genai.Content) (string, error) {
	ctx, span := trace.StartSpan(ctx, "gemini.generate")
	defer span.End()
	span.SetAttr("model", c.model)

	return resilience.ExecuteWithResult(c.breaker, func() (string, error) {
		var out string
		err := resilience.Retry(ctx, c.retry, func() error {
			var genErr error
			out, genErr = c.generate(ctx, contents)
			return genErr
		})
		return out, err
	})
}

// generate tries each configured key once, rotating on quota errors.
func (c *Client) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	attempts := c.keyCount()
	var lastErr error

	for range attempts {
		key, idx := c.currentKey()

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			lastErr = meeterr.Wrap(err, meeterr.CodeUnavailable, "create Gemini client")
			c.rotateKey()
			continue
		}

		result, err := client.Models.GenerateContent(ctx, c.model, contents, nil)
		if err != nil {
			if isQuotaError(err) {
				trace.Logger(ctx).Warn("Gemini key rate limited, rotating", "key_index", idx)
				lastErr = meeterr.Wrap(err, meeterr.CodeRateLimited, "Gemini quota exhausted")
				c.rotateKey()
				continue
			}
			return "", meeterr.Wrap(err, meeterr.CodeUnavailable, "generate content")
		}

		// Empty output is not an error here; each call path decides what
		// an empty reply means.
		return extractText(result), nil
	}

	return "", meeterr.Wrap(lastErr, meeterr.CodeRateLimited, "all Gemini API keys exhausted")
}

func (c *Client) keyCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

func (c *Client) currentKey() (string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keys[c.current], c.current
}

func (c *Client) rotateKey() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = (c.current + 1) % len(c.keys)
}

// isQuotaError matches the error shapes the Gemini API uses for rate limits.
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func isNoSpeech(text string) bool {
	t := strings.TrimSpace(text)
	return t == "" || strings.Contains(t, noSpeechMarker)
}

func extractText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
