package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSupabaseUploadRejectsOversizedPayload(t *testing.T) {
	service := NewSupabaseStorageService("https://example.supabase.co", "chat-uploads", "key")

	_, err := service.Upload(context.Background(), "chat-media/7", FileUpload{
		Filename:    "clip.mp4",
		ContentType: "video/mp4",
		Content:     make([]byte, 12<<20),
	}, UploadLimits{MaxBytes: 10 << 20, ContentTypes: ChatMediaContentTypes})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestSupabaseUploadRejectsDisallowedContentType(t *testing.T) {
	service := NewSupabaseStorageService("https://example.supabase.co", "task-evidence", "key")

	_, err := service.Upload(context.Background(), "emp-1/3", FileUpload{
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		Content:     []byte("pdf"),
	}, UploadLimits{MaxBytes: 5 << 20, ContentTypes: EvidenceContentTypes})
	if !errors.Is(err, ErrUnsupportedMediaType) {
		t.Fatalf("expected ErrUnsupportedMediaType, got %v", err)
	}
}

func TestSupabaseUploadStoresObjectAndBuildsPublicURL(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewSupabaseStorageService(server.URL, "chat-uploads", "service-key")

	stored, err := service.Upload(context.Background(), "chat-media/7", FileUpload{
		Filename:    "pic.jpg",
		ContentType: "image/jpeg",
		Content:     []byte("jpeg-bytes"),
	}, UploadLimits{MaxBytes: 10 << 20, ContentTypes: ChatMediaContentTypes})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if gotPath != "/storage/v1/object/chat-uploads/chat-media/7/pic.jpg" {
		t.Fatalf("unexpected upload path: %q", gotPath)
	}
	if gotAuth != "Bearer service-key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotContentType != "image/jpeg" {
		t.Fatalf("unexpected content type: %q", gotContentType)
	}
	if stored.Path != "chat-media/7/pic.jpg" {
		t.Fatalf("unexpected object path: %q", stored.Path)
	}
	if !strings.HasSuffix(stored.URL, "/storage/v1/object/public/chat-uploads/chat-media/7/pic.jpg") {
		t.Fatalf("unexpected public url: %q", stored.URL)
	}
	if stored.Size != int64(len("jpeg-bytes")) {
		t.Fatalf("unexpected size: %d", stored.Size)
	}
}

func TestSupabaseUploadSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bucket missing", http.StatusBadRequest)
	}))
	defer server.Close()

	service := NewSupabaseStorageService(server.URL, "chat-uploads", "key")

	_, err := service.Upload(context.Background(), "chat-media/7", FileUpload{
		Filename:    "pic.jpg",
		ContentType: "image/jpeg",
		Content:     []byte("x"),
	}, UploadLimits{})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestSupabaseDeleteFilesTreatsMissingObjectsAsRemoved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "gone.jpg") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if strings.HasSuffix(r.URL.Path, "stuck.jpg") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewSupabaseStorageService(server.URL, "chat-uploads", "key")

	failed := service.DeleteFiles(context.Background(), []string{
		"chat-media/7/gone.jpg",
		"chat-media/7/stuck.jpg",
		"chat-media/7/ok.jpg",
	})
	if len(failed) != 1 || failed[0] != "chat-media/7/stuck.jpg" {
		t.Fatalf("expected only the failing path back, got %v", failed)
	}
}

func TestSupabaseGetSignedURLSignsStoredObject(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"signedURL":"/object/sign/task-evidence/emp-1/9/evidence.jpg?token=abc"}`))
	}))
	defer server.Close()

	service := NewSupabaseStorageService(server.URL, "task-evidence", "service-key")

	signedURL, err := service.GetSignedURL(context.Background(),
		server.URL+"/storage/v1/object/public/task-evidence/emp-1/9/evidence.jpg")
	if err != nil {
		t.Fatalf("GetSignedURL: %v", err)
	}

	if gotPath != "/storage/v1/object/sign/task-evidence/emp-1/9/evidence.jpg" {
		t.Fatalf("unexpected sign path: %q", gotPath)
	}
	if gotAuth != "Bearer service-key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	want := server.URL + "/storage/v1/object/sign/task-evidence/emp-1/9/evidence.jpg?token=abc"
	if signedURL != want {
		t.Fatalf("unexpected signed url: %q, want %q", signedURL, want)
	}
}

func TestPathFromURLRecognizesBucketURLs(t *testing.T) {
	service := NewSupabaseStorageService("https://example.supabase.co", "chat-uploads", "key")

	got, err := service.PathFromURL("https://example.supabase.co/storage/v1/object/public/chat-uploads/chat-media/7/pic.jpg")
	if err != nil {
		t.Fatalf("PathFromURL: %v", err)
	}
	if got != "chat-media/7/pic.jpg" {
		t.Fatalf("unexpected path: %q", got)
	}

	if _, err := service.PathFromURL("https://example.supabase.co/storage/v1/object/public/other-bucket/x.jpg"); err == nil {
		t.Fatalf("expected error for foreign bucket")
	}
}
