package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
)

// Files - file bytes in, public URL out. Paths are bucket-relative.
type Files interface {
	Store(ctx context.Context, path string, data []byte, mimeType string) (string, error)
	Fetch(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	PublicURL(path string) string
	PathFromURL(url string) (string, bool)
}

// SupabaseFiles - Supabase Storage over its raw object REST API
type SupabaseFiles struct {
	supabaseURL string
	serviceKey  string
	baseURL     string
	bucket      string
	httpClient  *http.Client
}

// NewSupabaseFiles - storage client for the attachments bucket
func NewSupabaseFiles(supabaseURL, serviceKey, storageBaseURL string) *SupabaseFiles {
	return &SupabaseFiles{
		supabaseURL: supabaseURL,
		serviceKey:  serviceKey,
		baseURL:     strings.TrimSuffix(storageBaseURL, "/") + "/",
		bucket:      "attachments",
		httpClient:  &http.Client{},
	}
}

// Store - upload bytes and return the public URL
func (f *SupabaseFiles) Store(ctx context.Context, path string, data []byte, mimeType string) (string, error) {
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", f.supabaseURL, f.bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.serviceKey)
	req.Header.Set("Content-Type", mimeType)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	log.Printf("📤 [Storage] Uploaded %s (%d bytes)", path, len(data))
	return f.PublicURL(path), nil
}

// Fetch - download bytes by bucket-relative path
func (f *SupabaseFiles) Fetch(ctx context.Context, path string) ([]byte, error) {
	fullURL := f.PublicURL(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}

	log.Printf("📥 [Storage] Downloaded %s (%d bytes)", path, len(data))
	return data, nil
}

// Delete - remove an object
func (f *SupabaseFiles) Delete(ctx context.Context, path string) error {
	deleteURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", f.supabaseURL, f.bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.serviceKey)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// PublicURL - public URL for a stored path
func (f *SupabaseFiles) PublicURL(path string) string {
	return f.baseURL + path
}

// PathFromURL - bucket-relative path for one of our public URLs, ok=false otherwise
func (f *SupabaseFiles) PathFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, f.baseURL) {
		return "", false
	}
	return strings.TrimPrefix(url, f.baseURL), true
}

// MemoryFiles - in-process Files for development and tests
type MemoryFiles struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemoryFiles - empty in-memory file store
func NewMemoryFiles() *MemoryFiles {
	return &MemoryFiles{files: make(map[string][]byte)}
}

func (f *MemoryFiles) Store(ctx context.Context, path string, data []byte, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	clone := make([]byte, len(data))
	copy(clone, data)
	f.files[path] = clone
	return f.PublicURL(path), nil
}

func (f *MemoryFiles) Fetch(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	clone := make([]byte, len(data))
	copy(clone, data)
	return clone, nil
}

func (f *MemoryFiles) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.files[path]; !ok {
		return fmt.Errorf("file not found: %s", path)
	}
	delete(f.files, path)
	return nil
}

func (f *MemoryFiles) PublicURL(path string) string {
	return "memory://" + path
}

func (f *MemoryFiles) PathFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, "memory://") {
		return "", false
	}
	return strings.TrimPrefix(url, "memory://"), true
}
