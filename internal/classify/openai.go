package classify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/lectern-ai/lectern/internal/deck"
)

// Compile-time assertion that OpenAI satisfies the Classifier interface.
var _ Classifier = (*OpenAI)(nil)

const systemPrompt = `You classify a student's spoken question during a slide lecture.
Answer with exactly one label and nothing else:
slide_related - about the slide currently being narrated
general_concept - broader than the slide but answerable from general knowledge
external - needs web research or sources beyond the lecture
visual_request - asks for an image, diagram, animation or video`

// OpenAI implements [Classifier] with a constrained single-label chat
// completion.
type OpenAI struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the classifier.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for [OpenAI].
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// NewOpenAI constructs an OpenAI-backed classifier.
func NewOpenAI(apiKey, model string, opts ...Option) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("classify: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("classify: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &OpenAI{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Classify implements [Classifier].
func (o *OpenAI) Classify(ctx context.Context, transcript string, slide deck.Slide) (Category, error) {
	user := fmt.Sprintf("Current slide: %s\nSlide script: %s\n\nStudent said: %s",
		slide.Title, slide.Script, transcript)

	resp, err := o.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(user),
		},
		Temperature:         param.NewOpt(0.0),
		MaxCompletionTokens: param.NewOpt(int64(8)),
	})
	if err != nil {
		return "", fmt.Errorf("classify: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("classify: empty choices in response")
	}

	return Normalize(resp.Choices[0].Message.Content), nil
}

// Normalize maps a raw model label to a [Category]. The "visual" substring
// check runs first: it is the documented tie-break for questions that fit
// more than one label.
func Normalize(label string) Category {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.Contains(l, "visual"):
		return VisualRequest
	case strings.Contains(l, "external"):
		return External
	case strings.Contains(l, "general"):
		return GeneralConcept
	default:
		return SlideRelated
	}
}
