// Package export renders an ebook's activity sequence into a printable PDF.
package export

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxImageBytes caps a single activity image download.
const maxImageBytes = 20 << 20 // 20 MiB

// ImageFetcher downloads activity images, optionally through a resizing
// proxy so oversized originals don't blow up export time.
type ImageFetcher struct {
	client *http.Client

	// proxyURL is a printf-style template; %s receives the escaped
	// image URL. Empty means fetch the image directly.
	proxyURL string
}

// NewImageFetcher creates a fetcher with the given proxy template and
// per-request timeout.
func NewImageFetcher(proxyURL string, timeout time.Duration) *ImageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ImageFetcher{
		client:   &http.Client{Timeout: timeout},
		proxyURL: proxyURL,
	}
}

// Fetch downloads one image and returns its bytes and fpdf image type.
func (f *ImageFetcher) Fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	fetchURL := imageURL
	if f.proxyURL != "" {
		fetchURL = fmt.Sprintf(f.proxyURL, url.QueryEscape(imageURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build image request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch image %s: unexpected status %d", imageURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image %s: %w", imageURL, err)
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image %s exceeds %d bytes", imageURL, maxImageBytes)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("image %s is empty", imageURL)
	}

	imageType, err := imageType(resp.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, "", fmt.Errorf("image %s: %w", imageURL, err)
	}

	return data, imageType, nil
}

// imageType maps a content type (or sniffed bytes) to an fpdf image type.
func imageType(contentType string, data []byte) (string, error) {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	// Strip parameters like "; charset=..."
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}

	switch strings.TrimSpace(contentType) {
	case "image/png":
		return "PNG", nil
	case "image/jpeg", "image/jpg":
		return "JPG", nil
	case "image/gif":
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported image type %q", contentType)
	}
}
