// Package ai turns plant reports into short operational summaries with Gemini
package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const systemInstruction = `You are the production assistant of a cashew processing plant.
Summarize the data you are given for the plant manager in at most six short bullet points.
Mention yields, shortfalls against the previous stage, low stock and anything unusual.
Use kilograms and the stage names exactly as given. Do not invent figures.`

// GeminiSummarizer generates summaries with Google's Gemini API
type GeminiSummarizer struct {
	client *genai.Client
	model  string
}

// NewGeminiSummarizer creates a summarizer for the given model
func NewGeminiSummarizer(ctx context.Context, apiKey, model string) (*GeminiSummarizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiSummarizer{client: client, model: model}, nil
}

// Model returns the model name in use
func (g *GeminiSummarizer) Model() string {
	return g.model
}

// Summarize sends prompt to the model and returns the text answer
func (g *GeminiSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	temperature := float32(0.2)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       &temperature,
		MaxOutputTokens:   768,
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty summary")
	}
	return text, nil
}
