package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Classifier interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	labels []string
}

// NewGemini creates a new Gemini classifier that chooses among labels
func NewGemini(apiKey string, modelName string, labels []string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
		labels: labels,
	}, nil
}

// Classify asks the model to pick a label for the image
func (g *Gemini) Classify(ctx context.Context, image []byte, contentType string, latitude, longitude float64) (*Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	jpegData, err := NormalizeJPEG(image, contentType)
	if err != nil {
		return nil, &Error{Kind: KindInput, Err: err}
	}

	// genai.ImageData takes the format suffix, not the MIME type
	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData("jpeg", jpegData),
		genai.Text(classificationPrompt(g.labels, latitude, longitude)),
	)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("generating content: %w", err)}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &Error{Kind: KindDecode, Err: errors.New("no response from gemini")}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	return decodeModelReply(text.String())
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
