package db

import (
	"database/sql"
	"testing"

	"github.com/huddlehq/huddle/internal/models"
)

func TestConversionUpdates(t *testing.T) {
	att := &models.Attachment{
		ID:    4,
		R2Key: "a@x.com/1000_clip.mov",
		R2URL: "/api/images/4",
	}

	updates := conversionUpdates(att, "a@x.com/1000_clip.mp4", "https://bucket/a@x.com/1000_clip.mp4", "")
	if updates["original_key"] != "a@x.com/1000_clip.mov" {
		t.Errorf("original_key = %v, want pre-conversion key", updates["original_key"])
	}
	if updates["original_url"] != "/api/images/4" {
		t.Errorf("original_url = %v, want pre-conversion url", updates["original_url"])
	}
	if updates["r2_key"] != "a@x.com/1000_clip.mp4" {
		t.Errorf("r2_key = %v, want converted key", updates["r2_key"])
	}
	if _, ok := updates["thumbnail_url"]; ok {
		t.Error("thumbnail_url set without a thumbnail")
	}

	updates = conversionUpdates(att, "k", "u", "https://bucket/thumb.jpg")
	if updates["thumbnail_url"] != "https://bucket/thumb.jpg" {
		t.Errorf("thumbnail_url = %v, want the thumbnail", updates["thumbnail_url"])
	}
}

func TestRevertUpdates(t *testing.T) {
	tests := []struct {
		name string
		att  models.Attachment
		want map[string]interface{}
	}{
		{
			name: "originals recorded restore exactly",
			att: models.Attachment{
				R2Key:        "a@x.com/1000_clip.mp4",
				R2URL:        "https://bucket/a@x.com/1000_clip.mp4",
				OriginalKey:  sql.NullString{String: "a@x.com/1000_clip.mov", Valid: true},
				OriginalURL:  sql.NullString{String: "/api/images/4", Valid: true},
				ThumbnailURL: sql.NullString{String: "https://bucket/thumb.jpg", Valid: true},
			},
			want: map[string]interface{}{
				"r2_key":       "a@x.com/1000_clip.mov",
				"r2_url":       "/api/images/4",
				"original_key": sql.NullString{},
				"original_url": sql.NullString{},
			},
		},
		{
			name: "no originals is a no-op",
			att: models.Attachment{
				R2Key: "a@x.com/1000_clip.mov",
				R2URL: "/api/images/4",
			},
			want: nil,
		},
		{
			name: "half-recorded originals is a no-op",
			att: models.Attachment{
				R2Key:       "a@x.com/1000_clip.mp4",
				OriginalKey: sql.NullString{String: "a@x.com/1000_clip.mov", Valid: true},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := revertUpdates(&tt.att)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("revertUpdates = %v, want no-op", got)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("revertUpdates has %d columns, want %d: %v", len(got), len(tt.want), got)
			}
			for col, want := range tt.want {
				if got[col] != want {
					t.Errorf("revertUpdates[%q] = %v, want %v", col, got[col], want)
				}
			}
			// The revert never touches the thumbnail.
			if _, ok := got["thumbnail_url"]; ok {
				t.Error("revertUpdates touched thumbnail_url")
			}
		})
	}
}

func TestConversionRoundTrip(t *testing.T) {
	att := models.Attachment{
		R2Key: "a@x.com/1000_clip.mov",
		R2URL: "/api/images/4",
	}

	applied := conversionUpdates(&att, "a@x.com/1000_clip.mp4", "https://bucket/a@x.com/1000_clip.mp4", "")
	converted := models.Attachment{
		R2Key:       applied["r2_key"].(string),
		R2URL:       applied["r2_url"].(string),
		OriginalKey: sql.NullString{String: applied["original_key"].(string), Valid: true},
		OriginalURL: sql.NullString{String: applied["original_url"].(string), Valid: true},
	}

	reverted := revertUpdates(&converted)
	if reverted["r2_key"] != att.R2Key || reverted["r2_url"] != att.R2URL {
		t.Errorf("revert after conversion = %v/%v, want %v/%v",
			reverted["r2_key"], reverted["r2_url"], att.R2Key, att.R2URL)
	}
}
