package data

import (
	"strings"

	"github.com/studyhive/steward/src/suggestions"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SuggestionMirror persists suggestion records to MySQL. The mirror is
// advisory: the in-memory store stays authoritative while the process runs,
// and writes are last-write-wins with no transactional guarantee.
type SuggestionMirror struct {
	db *gorm.DB
}

func NewSuggestionMirror(db *gorm.DB) *SuggestionMirror {
	return &SuggestionMirror{db: db}
}

func (m *SuggestionMirror) LoadAll() ([]*suggestions.Record, error) {
	var rows []SuggestionRow
	if err := m.db.Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]*suggestions.Record, 0, len(rows))
	for i := range rows {
		records = append(records, rowToRecord(&rows[i]))
	}
	return records, nil
}

func (m *SuggestionMirror) Save(rec *suggestions.Record) error {
	row := recordToRow(rec)
	return m.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}

func (m *SuggestionMirror) SaveAll(recs []*suggestions.Record) error {
	if len(recs) == 0 {
		return nil
	}
	return m.db.Transaction(func(tx *gorm.DB) error {
		for _, rec := range recs {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(recordToRow(rec)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func recordToRow(rec *suggestions.Record) *SuggestionRow {
	return &SuggestionRow{
		ID:              rec.ID,
		AuthorID:        rec.AuthorID,
		AuthorName:      rec.AuthorName,
		Body:            rec.Text,
		Status:          string(rec.Status),
		RejectionReason: rec.RejectionReason,
		DiscussionRef:   rec.DiscussionRef,
		ChannelID:       rec.MessageRef.ChannelID,
		MessageID:       rec.MessageRef.MessageID,
		Upvoters:        joinSet(rec.Upvotes),
		Downvoters:      joinSet(rec.Downvotes),
		ContentHash:     rec.ContentHash,
		CreatedAt:       rec.CreatedAt,
	}
}

func rowToRecord(row *SuggestionRow) *suggestions.Record {
	return &suggestions.Record{
		ID:              row.ID,
		AuthorID:        row.AuthorID,
		AuthorName:      row.AuthorName,
		Text:            row.Body,
		CreatedAt:       row.CreatedAt,
		Status:          suggestions.Status(row.Status),
		RejectionReason: row.RejectionReason,
		DiscussionRef:   row.DiscussionRef,
		Upvotes:         splitSet(row.Upvoters),
		Downvotes:       splitSet(row.Downvoters),
		MessageRef: suggestions.MessageRef{
			ChannelID: row.ChannelID,
			MessageID: row.MessageID,
		},
		ContentHash: row.ContentHash,
	}
}

func joinSet(set map[string]struct{}) string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return strings.Join(ids, ",")
}

func splitSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, id := range strings.Split(s, ",") {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}
