package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"homework-grader/api/internal/grading"
	"homework-grader/api/internal/util"
)

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// Generate sends one generateContent call and returns the first text part.
// An empty string means the model answered without text.
func (e *Engine) Generate(ctx context.Context, in grading.Request) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY is empty: %w", grading.ErrNoCredential)
	}

	img, err := base64.StdEncoding.DecodeString(in.ImageB64)
	if err != nil {
		return "", fmt.Errorf("gemini grade: bad base64: %w", err)
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = e.Model
	}
	m := cl.GenerativeModel(model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: in.ResponseMIME,
		ResponseSchema:   in.Schema,
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(in.SystemInstruction)},
	}

	parts := []genai.Part{
		genai.Blob{MIMEType: util.PickMIME(in.ImageMIME, "", img), Data: img},
		genai.Text(in.Prompt),
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini grade: %w", err)
	}
	return strings.TrimSpace(firstText(resp)), nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
