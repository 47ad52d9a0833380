package visual

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// Compile-time assertion that GenAI satisfies the Generator interface.
var _ Generator = (*GenAI)(nil)

const (
	defaultImageModel = "imagen-3.0-generate-002"
	defaultVideoModel = "veo-2.0-generate-001"

	// videoPollInterval is how often the pending video operation is polled.
	videoPollInterval = 5 * time.Second
)

// GenAIOption is a functional option for configuring a [GenAI] generator.
type GenAIOption func(*GenAI)

// WithImageModel overrides the Imagen model used for image requests.
func WithImageModel(model string) GenAIOption {
	return func(g *GenAI) { g.imageModel = model }
}

// WithVideoModel overrides the Veo model used for video requests.
func WithVideoModel(model string) GenAIOption {
	return func(g *GenAI) { g.videoModel = model }
}

// GenAI implements [Generator] on Google's generative media models: Imagen
// for images and Veo for video.
type GenAI struct {
	client     *genai.Client
	imageModel string
	videoModel string
}

// NewGenAI creates a generator using the Gemini API backend.
func NewGenAI(ctx context.Context, apiKey string, opts ...GenAIOption) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("visual: apiKey must not be empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("visual: create client: %w", err)
	}

	g := &GenAI{
		client:     client,
		imageModel: defaultImageModel,
		videoModel: defaultVideoModel,
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// Generate implements [Generator].
func (g *GenAI) Generate(ctx context.Context, prompt string, kind Kind) (Media, error) {
	switch kind {
	case KindImage:
		return g.generateImage(ctx, prompt)
	case KindVideo:
		return g.generateVideo(ctx, prompt)
	default:
		return Media{}, fmt.Errorf("visual: unknown kind %q", kind)
	}
}

func (g *GenAI) generateImage(ctx context.Context, prompt string) (Media, error) {
	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return Media{}, fmt.Errorf("visual: generate image: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return Media{}, fmt.Errorf("visual: no image in response")
	}

	img := resp.GeneratedImages[0].Image
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	url := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(img.ImageBytes))
	return Media{URL: url, Kind: KindImage}, nil
}

func (g *GenAI) generateVideo(ctx context.Context, prompt string) (Media, error) {
	op, err := g.client.Models.GenerateVideos(ctx, g.videoModel, prompt, nil, nil)
	if err != nil {
		return Media{}, fmt.Errorf("visual: generate video: %w", err)
	}

	// Veo runs as a long-running operation; poll until it resolves or the
	// caller gives up via ctx.
	for !op.Done {
		select {
		case <-ctx.Done():
			return Media{}, fmt.Errorf("visual: video generation: %w", ctx.Err())
		case <-time.After(videoPollInterval):
		}
		op, err = g.client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return Media{}, fmt.Errorf("visual: poll video operation: %w", err)
		}
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		return Media{}, fmt.Errorf("visual: no video in response")
	}
	return Media{URL: op.Response.GeneratedVideos[0].Video.URI, Kind: KindVideo}, nil
}
