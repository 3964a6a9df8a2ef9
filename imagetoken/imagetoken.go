// Package imagetoken computes a deterministic token cost for an image
// attachment, independent of any vendor SDK.
package imagetoken

import (
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseTokens = 85
	defaultTileTokens = 170

	gptmOMiniBaseTokens = 2833
	gptmOMiniTileTokens = 5667
)

// FetchTimeout bounds a remote image fetch, per the suggested 60s ceiling.
var FetchTimeout = 60 * time.Second

// ImageRef is the minimal description of an image attachment: either an
// http(s) URL or a base64 (optionally data-URI-prefixed) payload, plus the
// vendor detail hint ("low", "high", "auto", or empty).
type ImageRef struct {
	URL    string
	Detail string
}

// Calculate returns the token cost of img under modelID's geometry rules.
// Fetch/decode failures are returned as an error; callers should swallow
// them and continue with zero image tokens rather than abort the request.
func Calculate(modelID string, img ImageRef) (int, error) {
	if img.URL == "" {
		return 0, nil
	}

	base, tile := defaultBaseTokens, defaultTileTokens
	if strings.Contains(modelID, "gpt-4o-mini") {
		base, tile = gptmOMiniBaseTokens, gptmOMiniTileTokens
	}

	if strings.Contains(modelID, "gemini") || strings.Contains(modelID, "claude") {
		return 3 * base, nil
	}

	detail := img.Detail
	if detail == "low" {
		return base, nil
	}
	if detail == "auto" || detail == "" {
		detail = "high"
	}

	w, h, err := decodeDimensions(img.URL)
	if err != nil {
		return 0, fmt.Errorf("imagetoken: decode %q: %w", img.URL, err)
	}

	short, other := w, h
	scale := 1.0
	if h < short {
		short, other = h, w
	}
	if short > 768 {
		scale = float64(short) / 768
		short = 768
	}
	other = int(math.Ceil(float64(other) / scale))

	tiles := math.Ceil(float64(short)/512) * math.Ceil(float64(other)/512)

	return int(math.Ceil(tiles*float64(tile) + float64(base))), nil
}

// decodeDimensions fetches (if a URL) or decodes (if a base64/data-URI
// payload) the image and returns its pixel width and height.
func decodeDimensions(url string) (width, height int, err error) {
	var r io.Reader

	if strings.HasPrefix(url, "http") {
		client := &http.Client{Timeout: FetchTimeout}
		resp, err := client.Get(url) //nolint:gosec // image URL is supplied by the caller's own request
		if err != nil {
			return 0, 0, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return 0, 0, fmt.Errorf("imagetoken: fetch %s: status %d", url, resp.StatusCode)
		}
		r = resp.Body
	} else {
		payload := url
		if idx := strings.Index(payload, ","); idx != -1 {
			payload = payload[idx+1:]
		}
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return 0, 0, err
		}
		r = strings.NewReader(string(decoded))
	}

	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
