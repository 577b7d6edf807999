// Package ingest uploads pantry photos for server-side food detection.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"smart-pantry/internal/apiclient"
)

const (
	uploadPath = "/api/upload_photo"

	// MaxEdge is the longest edge, in pixels, of an uploaded photo.
	MaxEdge = 1600
	// Quality is the JPEG quality used for uploads.
	Quality = 70
)

// Loader refreshes the pantry after a successful upload.
type Loader interface {
	LoadItems(ctx context.Context) ([]string, error)
}

// UploadResponse is the upload_photo success body.
type UploadResponse struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Items      []string `json:"items"`
	TotalItems int      `json:"total_items"`
}

// Client uploads photos and triggers a pantry reload.
type Client struct {
	api    *apiclient.Client
	pantry Loader
}

// NewClient creates a new ingestion client.
func NewClient(api *apiclient.Client, pantry Loader) *Client {
	return &Client{api: api, pantry: pantry}
}

// UploadPhoto prepares imageData for upload, posts it and returns the items
// the server detected. The pantry is reloaded before returning.
func (c *Client) UploadPhoto(ctx context.Context, imageData []byte) ([]string, error) {
	jpegData, err := PrepareJPEG(imageData)
	if err != nil {
		return nil, err
	}

	body, contentType, err := multipartBody(jpegData)
	if err != nil {
		return nil, err
	}

	req, err := c.api.NewRequest(ctx, http.MethodPost, uploadPath, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.api.Do("ingest.upload", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiclient.NewStatusError(resp, apiclient.ErrInvalidResponse, "")
	}

	var result UploadResponse
	if err := apiclient.DecodeJSON(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to read upload result: %w", err)
	}
	if result.Items == nil {
		result.Items = []string{}
	}

	if _, err := c.pantry.LoadItems(ctx); err != nil {
		return nil, fmt.Errorf("failed to reload pantry after upload: %w", err)
	}
	return result.Items, nil
}

// PrepareJPEG decodes data, shrinks it to MaxEdge and re-encodes it as JPEG.
func PrepareJPEG(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", apiclient.ErrInvalidImage)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apiclient.ErrInvalidImage, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Downsample(img, MaxEdge), &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("%w: %v", apiclient.ErrInvalidImage, err)
	}
	return buf.Bytes(), nil
}

// Downsample returns img unchanged when its longest edge is at most maxEdge.
// Otherwise it returns a copy whose longest edge is exactly maxEdge, with the
// other edge scaled proportionally and rounded.
func Downsample(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}

	nw, nh := ScaledSize(w, h, maxEdge)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// ScaledSize computes the target dimensions for Downsample.
func ScaledSize(w, h, maxEdge int) (int, int) {
	if w <= maxEdge && h <= maxEdge {
		return w, h
	}
	if w >= h {
		scaled := int(math.Round(float64(h) * float64(maxEdge) / float64(w)))
		return maxEdge, max(scaled, 1)
	}
	scaled := int(math.Round(float64(w) * float64(maxEdge) / float64(h)))
	return max(scaled, 1), maxEdge
}

func multipartBody(jpegData []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="photo"; filename="photo.jpg"`)
	header.Set("Content-Type", "image/jpeg")

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(jpegData); err != nil {
		return nil, "", fmt.Errorf("failed to write multipart part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// IsInvalidImage reports whether err came from local image preparation.
func IsInvalidImage(err error) bool {
	return errors.Is(err, apiclient.ErrInvalidImage)
}
