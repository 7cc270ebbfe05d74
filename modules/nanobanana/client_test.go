package nanobanana

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"buyershow-server/modules/common/model"
)

const successBody = `{
	"candidates": [{"content": {"parts": [
		{"text": "here you go"},
		{"inlineData": {"mimeType": "image/png", "data": "aW1hZ2U="}}
	]}}],
	"usageMetadata": {"promptTokenCount": 42, "totalTokenCount": 42}
}`

func newTestClient(t *testing.T, baseURL, proxyURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		APIKey:         "test-key",
		BaseURL:        baseURL,
		ProxyURL:       proxyURL,
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
		RequestTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestGenerateImageSuccess(t *testing.T) {
	var gotAuth string
	var gotRaw string
	var gotBody generateContentRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		gotRaw = string(body)
		json.Unmarshal(body, &gotBody)
		w.Write([]byte(successBody))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "")
	resp := client.GenerateImage(context.Background(), &GenerateRequest{
		Prompt:       "a tumbler on a desk",
		SceneImage:   &ImageInput{Data: []byte("scene"), MimeType: "image/jpeg"},
		ProductImage: &ImageInput{Data: []byte("product"), MimeType: "image/png"},
		Temperature:  0.7,
	})

	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp.Error)
	}
	if resp.ImageBase64 != "aW1hZ2U=" || resp.MimeType != "image/png" {
		t.Errorf("image = %q (%s)", resp.ImageBase64, resp.MimeType)
	}
	if resp.Usage == nil || resp.Usage.OutputTokens != GeneratedImageOutputTokens {
		t.Errorf("usage = %+v, want output tokens %d", resp.Usage, GeneratedImageOutputTokens)
	}
	if resp.Usage.TotalTokens != 42+GeneratedImageOutputTokens {
		t.Errorf("total tokens = %d", resp.Usage.TotalTokens)
	}
	if gotAuth != "test-key" {
		t.Errorf("api key header = %q", gotAuth)
	}

	parts := gotBody.Contents[0].Parts
	if len(parts) != 3 {
		t.Fatalf("parts = %d, want text + scene + product", len(parts))
	}
	if !strings.HasPrefix(parts[0].Text, "User uploaded scene image.") {
		t.Errorf("scene preamble missing: %q", parts[0].Text)
	}
	if parts[1].InlineData.MimeType != "image/jpeg" || parts[2].InlineData.MimeType != "image/png" {
		t.Error("scene/product inline parts out of order")
	}

	// The provider contract is camelCase; check the bytes on the wire, not
	// a round trip through our own structs.
	if !strings.Contains(gotRaw, `"inlineData"`) || !strings.Contains(gotRaw, `"mimeType"`) {
		t.Errorf("wire body missing camelCase image fields: %s", gotRaw)
	}
	if strings.Contains(gotRaw, `"inline_data"`) || strings.Contains(gotRaw, `"mime_type"`) {
		t.Errorf("wire body carries snake_case image fields: %s", gotRaw)
	}
}

func TestGenerateImageSkipsNonImageInlineData(t *testing.T) {
	t.Run("image part after a non-image part wins", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candidates":[{"content":{"parts":[
				{"inlineData":{"mimeType":"application/octet-stream","data":"Zm9v"}},
				{"inlineData":{"mimeType":"image/webp","data":"aW1hZ2U="}}
			]}}]}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, "")
		resp := client.GenerateImage(context.Background(), &GenerateRequest{Prompt: "x"})
		if !resp.Success {
			t.Fatalf("expected success, got %+v", resp.Error)
		}
		if resp.MimeType != "image/webp" || resp.ImageBase64 != "aW1hZ2U=" {
			t.Errorf("picked %q (%s), want the image part", resp.ImageBase64, resp.MimeType)
		}
	})

	t.Run("only non-image data fails without retrying", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.Write([]byte(`{"candidates":[{"content":{"parts":[
				{"inlineData":{"mimeType":"application/json","data":"e30="}}
			]}}]}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, "")
		resp := client.GenerateImage(context.Background(), &GenerateRequest{Prompt: "x"})
		if resp.Success {
			t.Fatal("expected failure")
		}
		if resp.Error.Code != model.ErrCodeGenerationFailed {
			t.Errorf("code = %s", resp.Error.Code)
		}
		if got := attempts.Load(); got != 1 {
			t.Errorf("attempts = %d, want 1", got)
		}
	})
}

func TestGenerateImageNoPreambleWithoutScene(t *testing.T) {
	var gotBody generateContentRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.Write([]byte(successBody))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "")
	client.GenerateImage(context.Background(), &GenerateRequest{Prompt: "a tumbler on a desk"})

	if gotBody.Contents[0].Parts[0].Text != "a tumbler on a desk" {
		t.Errorf("prompt altered: %q", gotBody.Contents[0].Parts[0].Text)
	}
}

func TestGenerateImageStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		code   string
	}{
		{http.StatusUnauthorized, model.ErrCodeInvalidAPIKey},
		{http.StatusTooManyRequests, model.ErrCodeRateLimit},
		{http.StatusBadRequest, model.ErrCodeInvalidRequest},
		{http.StatusInternalServerError, model.ErrCodeAPIError},
		{http.StatusBadGateway, model.ErrCodeAPIError},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, "")
			resp := client.GenerateImage(context.Background(), &GenerateRequest{Prompt: "x"})
			if resp.Success {
				t.Fatal("expected failure")
			}
			if resp.Error.Code != tc.code {
				t.Errorf("status %d mapped to %s, want %s", tc.status, resp.Error.Code, tc.code)
			}
		})
	}
}

func TestGenerateImageRetryBudget(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "")
	resp := client.GenerateImage(context.Background(), &GenerateRequest{Prompt: "x"})

	if resp.Success {
		t.Fatal("expected failure")
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want exactly MaxRetries without proxy", got)
	}
}

func TestGenerateImageNoImagePartDoesNotRetry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"sorry, words only"}]}}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "")
	resp := client.GenerateImage(context.Background(), &GenerateRequest{Prompt: "x"})

	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.Error.Code != model.ErrCodeGenerationFailed {
		t.Errorf("code = %s", resp.Error.Code)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 for a non-retryable failure", got)
	}
}

func TestGenerateImageProxyFallback(t *testing.T) {
	t.Run("direct attempt succeeds after proxy exhaustion", func(t *testing.T) {
		var proxyAttempts, directAttempts atomic.Int32

		direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			directAttempts.Add(1)
			w.Write([]byte(successBody))
		}))
		defer direct.Close()

		proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			proxyAttempts.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer proxy.Close()

		client := newTestClient(t, direct.URL, proxy.URL)
		resp := client.GenerateImage(context.Background(), &GenerateRequest{Prompt: "x"})

		if !resp.Success {
			t.Fatalf("expected direct fallback to succeed, got %+v", resp.Error)
		}
		if got := proxyAttempts.Load(); got != 3 {
			t.Errorf("proxy attempts = %d, want 3", got)
		}
		if got := directAttempts.Load(); got != 1 {
			t.Errorf("direct attempts = %d, want exactly 1", got)
		}
	})

	t.Run("direct failure ends the call", func(t *testing.T) {
		var proxyAttempts, directAttempts atomic.Int32

		direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			directAttempts.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer direct.Close()

		proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			proxyAttempts.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer proxy.Close()

		client := newTestClient(t, direct.URL, proxy.URL)
		resp := client.GenerateImage(context.Background(), &GenerateRequest{Prompt: "x"})

		if resp.Success {
			t.Fatal("expected failure")
		}
		if resp.Error.Code != model.ErrCodeRateLimit {
			t.Errorf("code = %s, want the direct attempt's classification", resp.Error.Code)
		}
		if total := proxyAttempts.Load() + directAttempts.Load(); total != 4 {
			t.Errorf("total attempts = %d, want MaxRetries+1", total)
		}
	})
}

func TestGenerateImageTimeoutCountsAsAttempt(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(successBody))
	}))
	defer server.Close()

	client, err := NewClient(Config{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
		RequestTimeout: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	resp := client.GenerateImage(context.Background(), &GenerateRequest{Prompt: "x"})
	if resp.Success {
		t.Fatal("expected timeout failure")
	}
	if resp.Error.Code != model.ErrCodeGenerationFailed {
		t.Errorf("code = %s", resp.Error.Code)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}
