package nanobanana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"buyershow-server/modules/common/httpclient"
	"buyershow-server/modules/common/model"
)

// The provider reports no usage for image output; this is the fixed
// per-image output token cost used for accounting.
const GeneratedImageOutputTokens = 1290

// Prepended to the prompt whenever a scene image rides along.
const scenePreamble = "User uploaded scene image. Please integrate the described product into this scene naturally. "

// Config - generation client settings
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	ProxyURL       string
	MaxRetries     int
	RetryBaseDelay time.Duration
	RequestTimeout time.Duration
}

// Client - resilient Gemini generateContent caller. When a proxy is
// configured, up to MaxRetries attempts go through it, then exactly one
// final attempt goes direct.
type Client struct {
	cfg          Config
	proxyClient  *http.Client
	directClient *http.Client
}

// NewClient - build the client and its transports
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash-image-preview"
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	directClient, err := httpclient.New(httpclient.Options{Timeout: cfg.RequestTimeout + 30*time.Second})
	if err != nil {
		return nil, err
	}

	client := &Client{cfg: cfg, directClient: directClient}
	if cfg.ProxyURL != "" {
		proxyClient, err := httpclient.New(httpclient.Options{
			ProxyURL: cfg.ProxyURL,
			Timeout:  cfg.RequestTimeout + 30*time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build proxy transport: %w", err)
		}
		client.proxyClient = proxyClient
	}

	log.Printf("✅ [NanoBanana] Client initialized - model: %s, proxy: %v, retries: %d",
		cfg.Model, client.proxyClient != nil, cfg.MaxRetries)
	return client, nil
}

// GenerateImage - one logical generation. Provider and transport failures
// come back as Success=false with a coded error; the error return is
// reserved for broken inputs.
func (c *Client) GenerateImage(ctx context.Context, req *GenerateRequest) *GenerateResponse {
	payload, err := json.Marshal(c.buildPayload(req))
	if err != nil {
		return failure(model.ErrCodeInvalidRequest, fmt.Sprintf("failed to encode request: %v", err))
	}

	log.Printf("🎨 [NanoBanana] Generating image - prompt: %d chars, scene: %v, product: %v, temp: %.2f",
		len(req.Prompt), req.SceneImage != nil, req.ProductImage != nil, req.Temperature)

	primary := c.directClient
	viaProxy := false
	if c.proxyClient != nil {
		primary = c.proxyClient
		viaProxy = true
	}

	var last *GenerateResponse
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		resp, retryable := c.doAttempt(ctx, primary, payload)
		if resp.Success || !retryable {
			return resp
		}
		last = resp
		log.Printf("⚠️ [NanoBanana] Attempt %d/%d failed (%s): %s",
			attempt, c.cfg.MaxRetries, resp.Error.Code, resp.Error.Message)

		if attempt < c.cfg.MaxRetries {
			if err := sleepContext(ctx, time.Duration(attempt)*c.cfg.RetryBaseDelay); err != nil {
				return failure(model.ErrCodeGenerationFailed, "generation cancelled")
			}
		}
	}

	if viaProxy {
		log.Printf("🔁 [NanoBanana] Proxy attempts exhausted, trying direct connection")
		resp, _ := c.doAttempt(ctx, c.directClient, payload)
		return resp
	}
	return last
}

// TestConnection - cheap provider reachability probe
func (c *Client) TestConnection(ctx context.Context) bool {
	resp := c.GenerateImage(ctx, &GenerateRequest{
		Prompt:          "A simple test image of a banana",
		Temperature:     0.1,
		MaxOutputTokens: 1024,
	})
	if !resp.Success {
		log.Printf("❌ [NanoBanana] Connection test failed: %s", resp.Error.Message)
	}
	return resp.Success
}

// buildPayload - wire request with text first, then scene, then product
func (c *Client) buildPayload(req *GenerateRequest) generateContentRequest {
	text := req.Prompt
	if req.SceneImage != nil {
		text = scenePreamble + req.Prompt
	}

	parts := []part{{Text: text}}
	if req.SceneImage != nil {
		parts = append(parts, part{InlineData: &blob{
			MimeType: req.SceneImage.MimeType,
			Data:     base64.StdEncoding.EncodeToString(req.SceneImage.Data),
		}})
	}
	if req.ProductImage != nil {
		parts = append(parts, part{InlineData: &blob{
			MimeType: req.ProductImage.MimeType,
			Data:     base64.StdEncoding.EncodeToString(req.ProductImage.Data),
		}})
	}

	return generateContentRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: &generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxOutputTokens,
		},
	}
}

// doAttempt - one HTTP call with its own deadline. retryable=false means
// the failure will not change on a repeat call.
func (c *Client) doAttempt(ctx context.Context, client *http.Client, payload []byte) (*GenerateResponse, bool) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return failure(model.ErrCodeGenerationFailed, fmt.Sprintf("failed to create request: %v", err)), false
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return failure(model.ErrCodeGenerationFailed, fmt.Sprintf("request failed: %v", err)), true
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, httpResp.Body)
		code, message := classifyStatus(httpResp.StatusCode)
		return failure(code, message), true
	}

	var parsed generateContentResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return failure(model.ErrCodeGenerationFailed, fmt.Sprintf("failed to parse response: %v", err)), false
	}

	for _, candidate := range parsed.Candidates {
		for _, p := range candidate.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			if !strings.HasPrefix(p.InlineData.MimeType, "image/") {
				continue
			}

			promptTokens := 0
			if parsed.UsageMetadata != nil {
				promptTokens = parsed.UsageMetadata.PromptTokenCount
			}

			log.Printf("✅ [NanoBanana] Image generated: %d base64 chars (%s)",
				len(p.InlineData.Data), p.InlineData.MimeType)
			return &GenerateResponse{
				Success:     true,
				ImageBase64: p.InlineData.Data,
				MimeType:    p.InlineData.MimeType,
				Usage: &Usage{
					PromptTokens: promptTokens,
					OutputTokens: GeneratedImageOutputTokens,
					TotalTokens:  promptTokens + GeneratedImageOutputTokens,
				},
			}, false
		}
	}

	return failure(model.ErrCodeGenerationFailed, "no image data found in response"), false
}

// classifyStatus - HTTP status to client-facing error taxonomy
func classifyStatus(status int) (string, string) {
	switch {
	case status == http.StatusUnauthorized:
		return model.ErrCodeInvalidAPIKey, "Invalid or missing API key"
	case status == http.StatusTooManyRequests:
		return model.ErrCodeRateLimit, "API rate limit exceeded"
	case status == http.StatusBadRequest:
		return model.ErrCodeInvalidRequest, "Invalid request parameters"
	case status >= 500:
		return model.ErrCodeAPIError, fmt.Sprintf("API server error (status %d)", status)
	default:
		return model.ErrCodeGenerationFailed, fmt.Sprintf("generation failed (status %d)", status)
	}
}

func failure(code, message string) *GenerateResponse {
	return &GenerateResponse{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message},
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
