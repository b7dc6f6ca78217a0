package model

// Clone helpers copy every slice level so the copy can be mutated freely.
// Blob bytes (EPImage, MediaEntry.Data) are shared: captured blobs are
// immutable and are never re-encoded.

// ClonePages deep-copies a page list. A nil list stays nil.
func ClonePages(pages []Page) []Page {
	if pages == nil {
		return nil
	}
	out := make([]Page, len(pages))
	for i, p := range pages {
		out[i] = ClonePage(p)
	}
	return out
}

// ClonePage deep-copies one page.
func ClonePage(p Page) Page {
	return Page{
		EPImage:       p.EPImage,
		WarpYarns:     CloneYarns(p.WarpYarns),
		WeftYarns:     CloneYarns(p.WeftYarns),
		ActualDensity: p.ActualDensity,
		Problems:      CloneMedia(p.Problems),
		Products:      CloneMedia(p.Products),
	}
}

// CloneYarns deep-copies a yarn list.
func CloneYarns(yarns []YarnEntry) []YarnEntry {
	if yarns == nil {
		return nil
	}
	out := make([]YarnEntry, len(yarns))
	for i, y := range yarns {
		out[i] = YarnEntry{Text: y.Text, Media: CloneMedia(y.Media)}
	}
	return out
}

// CloneMedia copies a media list; entry blobs are shared.
func CloneMedia(media []MediaEntry) []MediaEntry {
	if media == nil {
		return nil
	}
	out := make([]MediaEntry, len(media))
	copy(out, media)
	return out
}

// CloneRecord deep-copies a record, including its project reference.
func CloneRecord(r Record) Record {
	out := r
	if r.ProjectID != nil {
		out.ProjectID = Ref(*r.ProjectID)
	}
	out.Pages = ClonePages(r.Pages)
	return out
}
