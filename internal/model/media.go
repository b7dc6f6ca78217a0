package model

import (
	"fmt"
	"strings"
)

// MediaKind tags a media blob.
type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"

	// MediaAudio is read from older records but never produced by new writes.
	MediaAudio MediaKind = "audio"
)

// ParseMediaKind accepts the three known kinds, case-insensitively.
func ParseMediaKind(s string) (MediaKind, error) {
	switch k := MediaKind(strings.ToLower(strings.TrimSpace(s))); k {
	case MediaPhoto, MediaVideo, MediaAudio:
		return k, nil
	default:
		return "", fmt.Errorf("unknown media kind %q (expected photo|video)", s)
	}
}

// Legacy reports whether the kind is kept only for backward reads.
func (k MediaKind) Legacy() bool {
	return k == MediaAudio
}

// Writable reports whether new media of this kind may be captured.
func (k MediaKind) Writable() bool {
	return k == MediaPhoto || k == MediaVideo
}

// MediaCounts tallies media by kind across a page, yarn media included.
type MediaCounts struct {
	Photo int `json:"photo" yaml:"photo" expr:"photo"`
	Video int `json:"video" yaml:"video" expr:"video"`
	Audio int `json:"audio,omitempty" yaml:"audio,omitempty" expr:"audio"`
}

// Add counts one entry.
func (c *MediaCounts) Add(m MediaEntry) {
	switch m.Kind {
	case MediaPhoto:
		c.Photo++
	case MediaVideo:
		c.Video++
	case MediaAudio:
		c.Audio++
	}
}

// CountMedia tallies every media entry reachable from the page.
func CountMedia(p Page) MediaCounts {
	var c MediaCounts
	for _, list := range [][]MediaEntry{p.Problems, p.Products} {
		for _, m := range list {
			c.Add(m)
		}
	}
	for _, yarns := range [][]YarnEntry{p.WarpYarns, p.WeftYarns} {
		for _, y := range yarns {
			for _, m := range y.Media {
				c.Add(m)
			}
		}
	}
	return c
}
