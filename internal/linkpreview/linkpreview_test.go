package linkpreview

import (
	"strings"
	"testing"
)

func TestParseMeta(t *testing.T) {
	page := `<html><head>
		<title>Fallback Title</title>
		<meta property="og:title" content="OG Title">
		<meta property="og:description" content="A description">
		<meta property="og:image" content="https://example.com/img.png">
		<meta property="og:site_name" content="Example">
	</head><body></body></html>`

	preview := parseMeta(strings.NewReader(page))

	if preview.Title != "OG Title" {
		t.Errorf("Title = %q, want %q", preview.Title, "OG Title")
	}
	if preview.Description != "A description" {
		t.Errorf("Description = %q", preview.Description)
	}
	if preview.ImageURL != "https://example.com/img.png" {
		t.Errorf("ImageURL = %q", preview.ImageURL)
	}
	if preview.SiteName != "Example" {
		t.Errorf("SiteName = %q", preview.SiteName)
	}
}

func TestParseMetaTitleFallback(t *testing.T) {
	page := `<html><head><title> Plain Title </title></head><body></body></html>`

	preview := parseMeta(strings.NewReader(page))
	if preview.Title != "Plain Title" {
		t.Errorf("Title = %q, want %q", preview.Title, "Plain Title")
	}
}

func TestParseMetaMalformed(t *testing.T) {
	preview := parseMeta(strings.NewReader("<<<not html"))
	if preview == nil {
		t.Fatal("parseMeta returned nil for malformed input")
	}
}
