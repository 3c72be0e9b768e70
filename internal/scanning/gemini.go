package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Recognizer interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Recognizer instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	// transcription should be as literal as the model allows
	model.SetTemperature(0)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// Name returns "gemini"
func (g *Gemini) Name() string {
	return "gemini"
}

// Recognize transcribes the slip image
func (g *Gemini) Recognize(ctx context.Context, imageData []byte, contentType string, progress ProgressFunc) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	reporter := NewProgressReporter(progress)
	reporter.Report(ProgressStarted)

	finalImageData, err := PrepareImage(imageData, contentType)
	if err != nil {
		return "", err
	}
	reporter.Report(ProgressPrepared)

	// genai.ImageData expects just the format suffix, and PrepareImage always yields PNG
	parts := []genai.Part{
		genai.ImageData("png", finalImageData),
		genai.Text(transcriptionPrompt),
	}

	reporter.Report(ProgressSent)
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	reporter.Done()
	return cleanTranscript(responseText.String()), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
