package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

// Part is one content item of a model invocation: either text or an
// inline image. Exactly one of Text or Data is set.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

// Generator is the language-model dependency of the field extractor.
// The production implementation is GeminiClient; tests substitute a
// deterministic fake.
type Generator interface {
	Generate(ctx context.Context, instruction string, parts []Part) (string, error)
}

type GeminiClient struct {
	apiKey      string
	modelName   string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
	client      *genai.Client
	tier        string
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func NewGeminiClient(apiKey, modelName, tier string) (*GeminiClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	// Configure rate limits based on tier
	limits := getRateLimits(tier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), limits.RPM/10)

	return &GeminiClient{
		apiKey:      apiKey,
		modelName:   modelName,
		breaker:     breaker,
		rateLimiter: rateLimiter,
		client:      client,
		tier:        tier,
	}, nil
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "free":
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

// Generate performs one model invocation and returns the raw response
// text. The instruction becomes the system message; parts become the
// single user message, in order. The model is asked for JSON output
// but callers must still treat the response as untrusted text.
func (gc *GeminiClient) Generate(ctx context.Context, instruction string, parts []Part) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_content")
	defer span.End()

	textParts, imageParts := 0, 0
	for _, p := range parts {
		if len(p.Data) > 0 {
			imageParts++
		} else {
			textParts++
		}
	}
	span.SetAttributes(
		attribute.Int("gemini.text_parts", textParts),
		attribute.Int("gemini.image_parts", imageParts),
		attribute.String("gemini.model", gc.modelName),
	)

	// Rate limiter wait
	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.modelName)
		model.SetTemperature(0.1)
		model.ResponseMIMEType = "application/json"
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(instruction)},
		}

		genaiParts := make([]genai.Part, 0, len(parts))
		for _, p := range parts {
			if len(p.Data) > 0 {
				genaiParts = append(genaiParts, genai.ImageData(imageFormat(p.MIMEType), p.Data))
			} else {
				genaiParts = append(genaiParts, genai.Text(p.Text))
			}
		}

		resp, err := model.GenerateContent(ctx, genaiParts...)
		if err != nil {
			return nil, err
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return nil, errors.New("empty response from gemini")
		}

		var sb strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if textPart, ok := part.(genai.Text); ok {
				sb.WriteString(string(textPart))
			}
		}
		return sb.String(), nil
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	return result.(string), nil
}

// Close releases the underlying API client.
func (gc *GeminiClient) Close() error {
	return gc.client.Close()
}

// imageFormat maps a MIME type to the bare format name the genai SDK
// expects for inline image data.
func imageFormat(mimeType string) string {
	format := strings.TrimPrefix(mimeType, "image/")
	if idx := strings.Index(format, ";"); idx >= 0 {
		format = format[:idx]
	}
	if format == "" || strings.Contains(format, "/") {
		return "png"
	}
	return format
}
