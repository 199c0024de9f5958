package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com"
	defaultAPIVersion = "v1beta"
	defaultModel      = "gemini-3-pro-image-preview"
	defaultMimeType   = "image/png"
)

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		model:      model,
		httpClient: opts.HTTPClient,
		logger:     logger,
	}
}

// GenerateImage asks the model for a text+image answer to prompt and
// returns the first inline image of the first candidate. The prompt is
// sent as given; surrounding whitespace only matters for the empty check.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	if strings.TrimSpace(prompt) == "" {
		return Image{}, ErrEmptyPrompt
	}

	req := generateContentRequest{
		Contents: []Content{
			{Role: "user", Parts: []Part{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	resp, err := c.generateContent(ctx, req)
	if err != nil {
		return Image{}, err
	}

	img, err := ExtractImage(resp)
	if err != nil {
		return Image{}, err
	}

	c.logger.Debug("image extracted", "mime_type", img.MimeType, "bytes", len(img.Data))
	return img, nil
}

func (c *Client) generateContent(ctx context.Context, payload generateContentRequest) (GenerateContentResponse, error) {
	if c.httpClient == nil {
		return GenerateContentResponse{}, errors.New("http client is nil")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return GenerateContentResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return GenerateContentResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	c.logger.Debug("gemini request", "model", c.model, "url", url, "bytes", len(body))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return GenerateContentResponse{}, newTransportError(err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return GenerateContentResponse{}, newTransportError(fmt.Errorf("read response: %w", err))
	}

	c.logger.Debug("gemini response", "status", httpResp.StatusCode, "bytes", len(rawBody))

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return GenerateContentResponse{}, &APIError{
			StatusCode: httpResp.StatusCode,
			Status:     httpResp.Status,
			Body:       rawBody,
		}
	}

	var decoded GenerateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return GenerateContentResponse{}, &ResponseError{Err: err}
	}
	return decoded, nil
}

// ExtractImage decodes the first part of the first candidate that carries
// inline data. Parts after it are not inspected.
func ExtractImage(resp GenerateContentResponse) (Image, error) {
	if len(resp.Candidates) == 0 {
		return Image{}, ErrNoCandidates
	}

	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData == nil {
			continue
		}

		if p.InlineData.Data == "" {
			return Image{}, ErrEmptyImageData
		}

		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return Image{}, &DecodeError{Err: err}
		}

		mimeType := strings.TrimSpace(p.InlineData.MimeType)
		if mimeType == "" {
			mimeType = defaultMimeType
		}
		return Image{Data: data, MimeType: mimeType}, nil
	}

	return Image{}, ErrNoImageData
}
