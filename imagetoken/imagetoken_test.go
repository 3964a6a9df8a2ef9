package imagetoken

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"testing"
)

func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestCalculateGeometry(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		w, h   int
		detail string
		want   int
	}{
		{"low detail short-circuits", "gpt-4o", 1, 1, "low", 85},
		{"single tile", "gpt-4o", 512, 512, "high", 255},
		{"wide image four tiles", "gpt-4o", 2048, 512, "high", 765},
		{"square downscaled to 768", "gpt-4o", 1024, 1024, "auto", 765},
		{"empty detail treated as high", "gpt-4o", 512, 512, "", 255},
		{"mini override low", "gpt-4o-mini", 1, 1, "low", 2833},
		{"mini override single tile", "gpt-4o-mini", 512, 512, "high", 8500},
		{"gemini flat", "gemini-1.5-pro", 4096, 4096, "high", 255},
		{"claude flat", "claude-3-opus", 4096, 4096, "low", 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(tt.model, ImageRef{URL: pngDataURI(t, tt.w, tt.h), Detail: tt.detail})
			if err != nil {
				t.Fatalf("Calculate: %v", err)
			}
			if got != tt.want {
				t.Errorf("Calculate(%s, %dx%d, %q) = %d, want %d", tt.model, tt.w, tt.h, tt.detail, got, tt.want)
			}
		})
	}
}

func TestCalculateEmptyURLCostsNothing(t *testing.T) {
	got, err := Calculate("gpt-4o", ImageRef{})
	if err != nil || got != 0 {
		t.Errorf("Calculate with no URL = (%d, %v), want (0, nil)", got, err)
	}
}

func TestCalculateUndecodablePayloadErrors(t *testing.T) {
	if _, err := Calculate("gpt-4o", ImageRef{URL: "data:image/png;base64,%%%not-base64%%%"}); err == nil {
		t.Error("expected an error for an undecodable payload")
	}
}
