package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"smart-pantry/internal/apiclient"
)

type mockLoader struct {
	calls int
	err   error
}

func (m *mockLoader) LoadItems(ctx context.Context) ([]string, error) {
	m.calls++
	return nil, m.err
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, x%h, color.RGBA{R: 200, G: 80, B: 20, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"Landscape", 3200, 1600, 1600, 800},
		{"Portrait", 1000, 4000, 400, 1600},
		{"Square", 2000, 2000, 1600, 1600},
		{"Rounded", 3000, 1999, 1600, 1066},
		{"AlreadySmall", 1200, 900, 1200, 900},
		{"ExactlyMax", 1600, 300, 1600, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := ScaledSize(tt.w, tt.h, MaxEdge)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantW, tt.wantH, w, h)
			}
		})
	}
}

func TestDownsampleLeavesSmallImages(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	if got := Downsample(img, MaxEdge); got != image.Image(img) {
		t.Error("Expected small image to be returned unchanged")
	}
}

func TestUploadPhoto(t *testing.T) {
	var gotW, gotH int
	var gotFilename, gotPartType, gotUserID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/upload_photo" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotUserID = r.Header.Get("X-User-ID")

		file, header, err := r.FormFile("photo")
		if err != nil {
			t.Errorf("Expected photo part: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotFilename = header.Filename
		gotPartType = header.Header.Get("Content-Type")

		cfg, err := jpeg.DecodeConfig(file)
		if err != nil {
			t.Errorf("Expected JPEG payload: %v", err)
		}
		gotW, gotH = cfg.Width, cfg.Height

		fmt.Fprint(w, `{"success": true, "message": "Added 2 items", "items": ["tomato", "basil"], "total_items": 5}`)
	}))
	defer server.Close()

	api, _ := apiclient.New(server.URL, identity("u-9"))
	loader := &mockLoader{}
	client := NewClient(api, loader)

	items, err := client.UploadPhoto(context.Background(), encodePNG(t, 3200, 1600))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !slices.Equal(items, []string{"tomato", "basil"}) {
		t.Errorf("Expected server items, got %v", items)
	}
	if gotW != 1600 || gotH != 800 {
		t.Errorf("Expected 1600x800 upload, got %dx%d", gotW, gotH)
	}
	if gotFilename != "photo.jpg" || gotPartType != "image/jpeg" {
		t.Errorf("Unexpected part metadata: filename=%s type=%s", gotFilename, gotPartType)
	}
	if gotUserID != "u-9" {
		t.Errorf("Expected X-User-ID 'u-9', got '%s'", gotUserID)
	}
	if loader.calls != 1 {
		t.Errorf("Expected one pantry reload, got %d", loader.calls)
	}
}

func TestUploadPhotoInvalidImage(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	api, _ := apiclient.New(server.URL, nil)
	loader := &mockLoader{}
	client := NewClient(api, loader)

	for _, data := range [][]byte{nil, []byte("definitely not an image")} {
		_, err := client.UploadPhoto(context.Background(), data)
		if !IsInvalidImage(err) {
			t.Errorf("Expected ErrInvalidImage, got %v", err)
		}
	}
	if requests != 0 || loader.calls != 0 {
		t.Errorf("Expected no network activity, got %d requests, %d reloads", requests, loader.calls)
	}
}

func TestUploadPhotoServerFailure(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"NoFood", http.StatusInternalServerError, `{"success": false, "error": "No food items detected"}`, "No food items detected"},
		{"MalformedSuccess", http.StatusOK, `<html>`, "invalid response from server"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			api, _ := apiclient.New(server.URL, nil)
			loader := &mockLoader{}
			client := NewClient(api, loader)

			_, err := client.UploadPhoto(context.Background(), encodePNG(t, 40, 30))
			if !errors.Is(err, apiclient.ErrInvalidResponse) {
				t.Fatalf("Expected ErrInvalidResponse, got %v", err)
			}
			if apiclient.UserMessage(err) != tt.wantMsg {
				t.Errorf("Expected '%s', got '%s'", tt.wantMsg, apiclient.UserMessage(err))
			}
			if loader.calls != 0 {
				t.Errorf("Expected no reload on failure, got %d", loader.calls)
			}
		})
	}
}

type identity string

func (i identity) UserID() (string, bool) { return string(i), i != "" }
