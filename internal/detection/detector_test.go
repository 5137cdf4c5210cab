package detection

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ironsheep/planogram-mcp/internal/geometry"
)

// createTestImage creates a solid color test image
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createBoxImage draws a filled dark box on a white background
func createBoxImage(width, height int, box image.Rectangle) *image.RGBA {
	img := createTestImage(width, height, color.White)
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			img.Set(x, y, color.Black)
		}
	}
	return img
}

func TestSimulatedDetector(t *testing.T) {
	img := createTestImage(1000, 800, color.White)
	d := NewSimulatedDetector(42)

	dets, err := d.Detect(context.Background(), img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(dets) != len(mockProducts) {
		t.Fatalf("detections: got %d, want %d", len(dets), len(mockProducts))
	}

	for i, det := range dets {
		if det.Confidence < 0.95 || det.Confidence >= 1.0 {
			t.Errorf("detection %d confidence: got %v, want [0.95,1.0)", i, det.Confidence)
		}
		if len(det.Mask) != 4 {
			t.Errorf("detection %d mask: got %d points, want 4", i, len(det.Mask))
		}
		if det.Label == "" {
			t.Errorf("detection %d has no label", i)
		}
	}

	// Band-Aid: x 0.5, w 0.1, h 0.07 on the 0.85 baseline.
	last := dets[len(dets)-1]
	want := geometry.Box{X: 500, Y: 0.85*800 - 56, Width: 100, Height: 56}
	got := last.Box()
	if !approxBox(got, want) {
		t.Errorf("Band-Aid box: got %+v, want %+v", got, want)
	}
}

func approxBox(a, b geometry.Box) bool {
	const eps = 1e-6
	return abs(a.X-b.X) < eps && abs(a.Y-b.Y) < eps && abs(a.Width-b.Width) < eps && abs(a.Height-b.Height) < eps
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestSimulatedDetector_Deterministic(t *testing.T) {
	img := createTestImage(400, 300, color.White)

	a, _ := NewSimulatedDetector(7).Detect(context.Background(), img)
	b, _ := NewSimulatedDetector(7).Detect(context.Background(), img)

	for i := range a {
		if a[i].Confidence != b[i].Confidence {
			t.Fatalf("detection %d confidence differs: %v vs %v", i, a[i].Confidence, b[i].Confidence)
		}
	}
}

func TestSimulatedDetector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSimulatedDetector(1).Detect(ctx, createTestImage(10, 10, color.White))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error: got %v, want context.Canceled", err)
	}
}

func TestEdgeDetector_FindsBox(t *testing.T) {
	rect := image.Rect(40, 50, 160, 150)
	img := createBoxImage(200, 200, rect)

	dets, err := NewEdgeDetector().Detect(context.Background(), img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(dets) == 0 {
		t.Fatal("expected at least one detection")
	}

	want := geometry.Box{X: 40, Y: 50, Width: 120, Height: 100}
	if iou := geometry.IoU(dets[0].Box(), want); iou < 0.8 {
		t.Errorf("largest detection %+v has IoU %v with the drawn box, want >= 0.8", dets[0].Box(), iou)
	}
	if dets[0].Confidence <= 0 || dets[0].Confidence > 1 {
		t.Errorf("confidence: got %v, want (0,1]", dets[0].Confidence)
	}
}

func TestEdgeDetector_BlankImage(t *testing.T) {
	dets, err := NewEdgeDetector().Detect(context.Background(), createTestImage(100, 100, color.White))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(dets) != 0 {
		t.Errorf("blank image: got %d detections, want 0", len(dets))
	}
}

func TestRemoteDetector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s, want POST", r.Method)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file field: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"detections": []map[string]interface{}{
				{"x": 1, "y": 2, "width": 30, "height": 40, "confidence": 0.91, "label": "Cola", "sku": "A1"},
				{"x": 100, "y": 2, "width": 30, "height": 40, "confidence": 0.8, "class": "Chips"},
			},
		})
	}))
	defer srv.Close()

	dets, err := NewRemoteDetector(srv.URL).Detect(context.Background(), createTestImage(50, 50, color.White))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(dets) != 2 {
		t.Fatalf("detections: got %d, want 2", len(dets))
	}
	if dets[0].SKU != "A1" || dets[0].Label != "Cola" || dets[0].Width != 30 {
		t.Errorf("first detection: got %+v", dets[0])
	}
	if dets[1].Label != "Chips" {
		t.Errorf("class alias: got label %q, want Chips", dets[1].Label)
	}
}

func TestRemoteDetector_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewRemoteDetector(srv.URL).Detect(context.Background(), createTestImage(5, 5, color.White)); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestRemoteDetector_CheckHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health", "/v1/ready":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	tests := []struct {
		name      string
		url       string
		healthURL string
		wantErr   bool
	}{
		{"service root", srv.URL, "", false},
		{"predict path probes host health", srv.URL + "/predict", "", false},
		{"nested predict path", srv.URL + "/models/shelf/predict/", "", false},
		{"explicit health url", srv.URL + "/predict", srv.URL + "/v1/ready", false},
		{"explicit health url missing", srv.URL + "/predict", srv.URL + "/predict/health", true},
		{"no host", "/predict", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewRemoteDetector(tt.url)
			d.HealthURL = tt.healthURL
			err := d.CheckHealth(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckHealth: got %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type stubLabeler struct {
	text  string
	calls int
}

func (s *stubLabeler) ReadLabel(img image.Image, box geometry.Box) (string, error) {
	s.calls++
	return s.text, nil
}

func TestLabel(t *testing.T) {
	dets := []Detection{
		{X: 0, Y: 0, Width: 10, Height: 10, Label: "Known"},
		{X: 20, Y: 0, Width: 10, Height: 10},
	}
	labeler := &stubLabeler{text: "  Cola 330ml\n"}

	got, err := Label(context.Background(), createTestImage(40, 20, color.White), dets, labeler)
	if err != nil {
		t.Fatalf("Label failed: %v", err)
	}
	if labeler.calls != 1 {
		t.Errorf("labeler calls: got %d, want 1", labeler.calls)
	}
	if got[0].Label != "Known" || got[1].Label != "Cola 330ml" {
		t.Errorf("labels: got %q, %q", got[0].Label, got[1].Label)
	}
	if dets[1].Label != "" {
		t.Error("Label modified its input")
	}
}
