// Package vision extracts phone numbers from images via an external
// vision-capable chat model.
//
// The client submits a fixed instruction prompt plus the image (as a URL or
// a data URI) and parses the model's comma-separated reply into canonical
// numbers. A blank reply means "no numbers found" and is not an error.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

const maxReplyTokens = 300

// prompt is the fixed extraction instruction sent with every image.
const prompt = `You are an assistant specialized in extracting phone numbers from images.
Analyze the provided image and return ALL phone numbers found in it.

Requirements:
1. Include the country code for each number (like +972XXXXXXXX).
2. Return only numbers, no words, sentences, or extra characters.
3. Separate multiple numbers with commas.
4. Ignore formatting like spaces, dashes, or parentheses — normalize numbers to digits only with country code.

Output example:
+4174239324,+4175551234`

// Credentials supplies the API key and selected model per request, so a key
// or model changed in settings takes effect without restarting the client.
type Credentials interface {
	APIKey(ctx context.Context) (string, error)
	Model(ctx context.Context) (string, error)
}

// Client talks to the chat-completions endpoint.
type Client struct {
	endpoint string
	creds    Credentials
	client   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the chat-completions URL (tests, proxies).
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// New creates a Client reading credentials from creds on each call.
func New(creds Credentials, opts ...Option) *Client {
	c := &Client{
		endpoint: defaultEndpoint,
		creds:    creds,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Extract sends imageRef (a public URL or a data URI) to the model and
// returns the numbers it found. An empty reply yields an empty slice and a
// nil error; the caller decides how to present "none found".
func (c *Client) Extract(ctx context.Context, imageRef string) ([]string, error) {
	apiKey, err := c.creds.APIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("vision: read credential: %w", err)
	}
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	model, err := c.creds.Model(ctx)
	if err != nil {
		return nil, fmt.Errorf("vision: read model: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}

	payload := chatRequest{
		Model: model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: imageRef}},
			},
		}},
		MaxTokens: maxReplyTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("vision: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vision: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, classifyStatus(resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: decode response: %v", ErrExtraction, err)
	}

	if parsed.Error != nil {
		sentinel := classifyAPIError(parsed.Error.Code+" "+parsed.Error.Type, parsed.Error.Message)
		return nil, fmt.Errorf("%w: %s", sentinel, parsed.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(resp.StatusCode)
	}

	if len(parsed.Choices) == 0 {
		return []string{}, nil
	}
	return parseReply(parsed.Choices[0].Message.Content), nil
}

// parseReply splits the model reply on commas and trims whitespace.
// Blank replies mean no numbers were found.
func parseReply(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}
	}
	parts := strings.Split(text, ",")
	numbers := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			numbers = append(numbers, p)
		}
	}
	return numbers
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

func classifyStatus(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: http %d", ErrAuth, code)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: http %d", ErrRateLimit, code)
	}
	return fmt.Errorf("%w: http %d", ErrExtraction, code)
}
