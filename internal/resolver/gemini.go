package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiResolver implements Resolver using Google's Gemini API. It is the
// production collaborator; tests substitute a deterministic stub.
type GeminiResolver struct {
	client *genai.Client
	model  string
}

// NewGeminiResolver creates a Gemini-backed resolver.
func NewGeminiResolver(ctx context.Context, apiKey string, modelName string) (*GeminiResolver, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiResolver{client: client, model: modelName}, nil
}

func (r *GeminiResolver) Name() string {
	return "gemini"
}

// Close releases the underlying API client.
func (r *GeminiResolver) Close() error {
	return r.client.Close()
}

func (r *GeminiResolver) ResolveStep(ctx context.Context, req StepRequest) (Proposal, error) {
	model := r.client.GenerativeModel(r.model)
	resp, err := model.GenerateContent(ctx, genai.Text(buildStepPrompt(req)))
	if err != nil {
		return Proposal{}, fmt.Errorf("gemini generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Proposal{}, ErrNoProposal
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	text := stripCodeFence(sb.String())
	if strings.TrimSpace(text) == "" {
		return Proposal{}, ErrNoProposal
	}
	return Proposal{Replacement: text}, nil
}

func buildStepPrompt(req StepRequest) string {
	var sb strings.Builder
	sb.WriteString("Role: Code translator. Task: Translate one Python fragment to TypeScript.\n\n")
	sb.WriteString("The fragment below could not be translated deterministically. ")
	sb.WriteString("Produce ONLY the TypeScript replacement statements, no prose, no code fences.\n")
	sb.WriteString("The replacement must be syntactically complete on its own.\n\n")
	fmt.Fprintf(&sb, "Original Python:\n%s\n\n", req.OriginalText)
	if len(req.Advice) > 0 {
		sb.WriteString("Translator notes:\n")
		for _, a := range req.Advice {
			fmt.Fprintf(&sb, "- %s\n", a)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Emitted TypeScript before the gap:\n%s\n\n", req.Before)
	fmt.Fprintf(&sb, "Emitted TypeScript after the gap:\n%s\n", req.After)
	return sb.String()
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```typescript")
	s = strings.TrimPrefix(s, "```ts")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
