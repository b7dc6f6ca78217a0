package testutil

import (
	"time"

	"github.com/roach88/jacquard/internal/model"
)

// pngMagic prefixes fake image blobs so they look like encoded PNG data.
var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Image returns a small fake encoded image whose payload is tag.
func Image(tag string) []byte {
	out := make([]byte, 0, len(pngMagic)+len(tag))
	out = append(out, pngMagic...)
	return append(out, tag...)
}

// Photo returns a photo media entry captured at DefaultEpoch.
func Photo(tag string) model.MediaEntry {
	return model.MediaEntry{Kind: model.MediaPhoto, Data: Image(tag), CapturedAt: DefaultEpoch}
}

// Video returns a video media entry captured at DefaultEpoch.
func Video(tag string) model.MediaEntry {
	return model.MediaEntry{
		Kind:       model.MediaVideo,
		Data:       []byte("video:" + tag),
		CapturedAt: DefaultEpoch.Add(time.Minute),
	}
}

// Page returns a fully populated page: an EP image, one warp and one weft
// yarn (the warp yarn with a photo), a density, one problem and one product.
func Page(tag string) model.Page {
	return model.Page{
		EPImage: Image("ep-" + tag),
		WarpYarns: []model.YarnEntry{
			{Text: "warp " + tag, Media: []model.MediaEntry{Photo("warp-" + tag)}},
		},
		WeftYarns: []model.YarnEntry{
			{Text: "weft " + tag, Media: []model.MediaEntry{}},
		},
		ActualDensity: "48",
		Problems:      []model.MediaEntry{Photo("problem-" + tag)},
		Products:      []model.MediaEntry{Video("product-" + tag)},
	}
}

// Record returns an unsaved record with one page per tag.
func Record(name string, project *model.ID, tags ...string) model.Record {
	pages := make([]model.Page, len(tags))
	for i, tag := range tags {
		pages[i] = Page(tag)
	}
	return model.Record{Name: name, ProjectID: project, Pages: pages}
}
