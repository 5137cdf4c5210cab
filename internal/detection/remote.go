package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// RemoteDetector sends shelf photos to an external inference service.
//
// The service receives a multipart POST with the PNG-encoded image in the
// "file" field and answers with:
//
//	{"detections": [{"x":..,"y":..,"width":..,"height":..,"confidence":..,"label":..,"sku":..}]}
//
// "class" is accepted as an alias for "label".
type RemoteDetector struct {
	URL string

	// HealthURL is probed by CheckHealth. When empty, /health on the host
	// of URL is used.
	HealthURL string

	Client *http.Client
}

// NewRemoteDetector creates a detector for the inference endpoint at url.
func NewRemoteDetector(url string) *RemoteDetector {
	return &RemoteDetector{
		URL:    url,
		Client: &http.Client{Timeout: 60 * time.Second},
	}
}

type remoteDetection struct {
	Detection
	Class string `json:"class"`
}

// Detect uploads img and decodes the service's detections. A non-200 answer
// is returned as an error; the detector never retries.
func (r *RemoteDetector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "shelf.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := png.Encode(part, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Detections []remoteDetection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	dets := make([]Detection, len(result.Detections))
	for i, rd := range result.Detections {
		dets[i] = rd.Detection
		if dets[i].Label == "" {
			dets[i].Label = rd.Class
		}
	}
	return dets, nil
}

// CheckHealth probes the service's health endpoint.
func (r *RemoteDetector) CheckHealth(ctx context.Context) error {
	healthURL, err := r.healthURL()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

// healthURL returns HealthURL, or /health on the scheme and host of URL.
func (r *RemoteDetector) healthURL() (string, error) {
	if r.HealthURL != "" {
		return r.HealthURL, nil
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", fmt.Errorf("invalid inference URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid inference URL %q: scheme and host required", r.URL)
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/health"}).String(), nil
}
