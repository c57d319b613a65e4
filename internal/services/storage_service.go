package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// FileUpload is an attachment payload handed to the storage layer.
type FileUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// StoredFile describes a successfully stored blob.
type StoredFile struct {
	URL  string
	Path string
	Size int64
}

// UploadLimits gates one upload category.
type UploadLimits struct {
	MaxBytes     int64
	ContentTypes []string
}

// ChatMediaContentTypes lists the formats accepted as chat attachments.
var ChatMediaContentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"video/mp4",
	"video/webm",
	"video/quicktime",
}

// EvidenceContentTypes lists the formats accepted as task evidence.
var EvidenceContentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
}

func (l UploadLimits) allows(contentType string) bool {
	normalized := strings.ToLower(strings.TrimSpace(contentType))
	for _, allowed := range l.ContentTypes {
		if normalized == allowed {
			return true
		}
	}
	return false
}

type StorageService interface {
	Upload(ctx context.Context, folder string, upload FileUpload, limits UploadLimits) (*StoredFile, error)
	DeleteFile(ctx context.Context, fileURL string) error
	// DeleteFiles removes the given object paths best-effort and returns the
	// paths it could not remove. Absent objects count as removed.
	DeleteFiles(ctx context.Context, paths []string) []string
	// GetSignedURL exchanges a stored object URL for a short-lived signed URL.
	GetSignedURL(ctx context.Context, fileURL string) (string, error)
	PathFromURL(fileURL string) (string, error)
}

// SupabaseStorageService talks to one bucket of the Supabase Storage API.
type SupabaseStorageService struct {
	baseURL    string
	bucket     string
	serviceKey string
	httpClient *http.Client
}

func NewSupabaseStorageService(baseURL, bucket, serviceKey string) *SupabaseStorageService {
	return &SupabaseStorageService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		bucket:     bucket,
		serviceKey: serviceKey,
		httpClient: http.DefaultClient,
	}
}

func (s *SupabaseStorageService) Upload(
	ctx context.Context,
	folder string,
	upload FileUpload,
	limits UploadLimits,
) (*StoredFile, error) {
	size := int64(len(upload.Content))
	if limits.MaxBytes > 0 && size > limits.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrPayloadTooLarge, size, limits.MaxBytes)
	}
	if len(limits.ContentTypes) > 0 && !limits.allows(upload.ContentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, upload.ContentType)
	}

	objectPath := path.Join(strings.Trim(folder, "/"), upload.Filename)
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, objectPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(upload.Content))
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Content-Type", upload.ContentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: upload file: %v", ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w: upload file: status %d: %s",
			ErrStorageUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return &StoredFile{
		URL:  fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, objectPath),
		Path: objectPath,
		Size: size,
	}, nil
}

func (s *SupabaseStorageService) DeleteFile(ctx context.Context, fileURL string) error {
	objectPath, err := s.PathFromURL(fileURL)
	if err != nil {
		return err
	}
	return s.deletePath(ctx, objectPath)
}

func (s *SupabaseStorageService) DeleteFiles(ctx context.Context, paths []string) []string {
	failed := make([]string, 0)
	for _, objectPath := range paths {
		if err := s.deletePath(ctx, objectPath); err != nil {
			failed = append(failed, objectPath)
		}
	}
	return failed
}

func (s *SupabaseStorageService) deletePath(ctx context.Context, objectPath string) error {
	deleteURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, objectPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: delete file: %v", ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	// Deleting an already-deleted object is a no-op so retention re-runs
	// make forward progress.
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: delete file: status %d: %s",
			ErrStorageUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

func (s *SupabaseStorageService) GetSignedURL(ctx context.Context, fileURL string) (string, error) {
	objectPath, err := s.PathFromURL(fileURL)
	if err != nil {
		return "", err
	}

	signURL := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", s.baseURL, s.bucket, objectPath)
	payload := map[string]int{"expiresIn": 3600}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal signed url payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build signed url request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: get signed url: %v", ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%w: get signed url: status %d: %s",
			ErrStorageUnavailable, resp.StatusCode, strings.TrimSpace(string(responseBody)))
	}

	var response struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode signed url response: %w", err)
	}
	if response.SignedURL == "" {
		return "", fmt.Errorf("signed url missing from response")
	}

	return fmt.Sprintf("%s/storage/v1%s", s.baseURL, response.SignedURL), nil
}

// PathFromURL recovers the object path inside the configured bucket from a
// public or direct object URL.
func (s *SupabaseStorageService) PathFromURL(fileURL string) (string, error) {
	parsed, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("parse file url: %w", err)
	}

	publicPrefix := "/storage/v1/object/public/" + s.bucket + "/"
	objectPrefix := "/storage/v1/object/" + s.bucket + "/"

	switch {
	case strings.HasPrefix(parsed.Path, publicPrefix):
		return strings.TrimPrefix(parsed.Path, publicPrefix), nil
	case strings.HasPrefix(parsed.Path, objectPrefix):
		return strings.TrimPrefix(parsed.Path, objectPrefix), nil
	default:
		return "", fmt.Errorf("file url does not belong to configured bucket")
	}
}
