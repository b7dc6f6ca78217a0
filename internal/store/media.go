package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/jacquard/internal/model"
)

const mediaCollection = "media"

// LegacyMedia returns the stand-alone media rows attached to a record.
//
// Current records embed media in their pages; this table is only read so
// that stores written by older clients keep their attachments visible.
// Rows with an unknown type are skipped.
func (s *Store) LegacyMedia(ctx context.Context, recordID model.ID) (media []model.MediaEntry, err error) {
	defer s.metrics.observe(mediaCollection, "query_recordId", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT type, data, captured_at FROM media
		WHERE record_id = ?
		ORDER BY id ASC
	`, int64(recordID))
	if err != nil {
		return nil, fmt.Errorf("query legacy media: %w", err)
	}
	defer rows.Close()

	media = []model.MediaEntry{}
	for rows.Next() {
		var (
			kind       string
			data       []byte
			capturedAt int64
		)
		if err := rows.Scan(&kind, &data, &capturedAt); err != nil {
			return nil, fmt.Errorf("scan legacy media: %w", err)
		}
		k, err := model.ParseMediaKind(kind)
		if err != nil {
			s.log.Warn().Int64("record", int64(recordID)).Str("type", kind).Msg("skipping legacy media of unknown type")
			continue
		}
		media = append(media, model.MediaEntry{Kind: k, Data: data, CapturedAt: fromMillis(capturedAt)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy media: %w", err)
	}
	return media, nil
}
