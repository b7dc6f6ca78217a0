package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/roach88/jacquard/internal/model"
)

// Pages are stored as one CBOR document per record. CBOR keeps EP images
// and media as byte strings instead of base64 text.
var (
	pageEncoder = newPageEncoder()
	pageDecoder = newPageDecoder()
)

func newPageEncoder() cbor.EncMode {
	em, err := cbor.EncOptions{
		Time:    cbor.TimeRFC3339Nano,
		TimeTag: cbor.EncTagRequired,
		Sort:    cbor.SortCanonical,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

func newPageDecoder() cbor.DecMode {
	dm, err := cbor.DecOptions{
		TimeTag: cbor.DecTagOptional,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}

func encodePages(pages []model.Page) ([]byte, error) {
	if pages == nil {
		pages = []model.Page{}
	}
	data, err := pageEncoder.Marshal(pages)
	if err != nil {
		return nil, fmt.Errorf("encode pages: %w", err)
	}
	return data, nil
}

func decodePages(data []byte) ([]model.Page, error) {
	pages := []model.Page{}
	if len(data) == 0 {
		return pages, nil
	}
	if err := pageDecoder.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("decode pages: %w", err)
	}
	return pages, nil
}
