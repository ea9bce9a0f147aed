package inference

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/snapcal/snapcal/internal/core/domain"
)

// Client talks to the remote multimodal inference service over its
// chat-completions surface. One Complete call is one network attempt;
// retry and fallback live in the executor and the chain.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		// The outer per-attempt deadline is authoritative; this is a
		// backstop for callers that pass an unbounded context.
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the image to one candidate model and returns its raw
// text output.
func (c *Client) Complete(ctx context.Context, model string, req domain.ExtractionRequest) (string, error) {
	payload := chatRequest{
		Model: model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: extractionPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL(req)}},
			},
		}},
	}

	var response chatResponse
	if err := c.postJSON(ctx, "/v1/chat/completions", payload, &response, "completion"); err != nil {
		return "", err
	}
	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Message.Content) == "" {
		return "", domain.WrapError(domain.ErrMalformedResponse, "completion", errors.New("invalid response format: missing choices[0].message.content"))
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func dataURL(req domain.ExtractionRequest) string {
	return "data:" + mimeTypeFor(req.Filename) + ";base64," + req.ImageBase64
}

func mimeTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
