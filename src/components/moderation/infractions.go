package moderation

import (
	"time"

	"github.com/studyhive/steward/src/data"
	"gorm.io/gorm"
)

// Ledger is the per-member infraction counter. Each warning is one row; the
// count drives the warn → mute → soft-ban escalation.
type Ledger struct {
	db      *gorm.DB
	guildID string
}

func NewLedger(db *gorm.DB, guildID string) *Ledger {
	return &Ledger{db: db, guildID: guildID}
}

// Warn records an infraction and returns the member's new total.
func (l *Ledger) Warn(userID, reason, issuedBy string) (int, error) {
	row := data.Infraction{
		GuildID:   l.guildID,
		UserID:    userID,
		Reason:    reason,
		IssuedBy:  issuedBy,
		CreatedAt: time.Now(),
	}
	if err := l.db.Create(&row).Error; err != nil {
		return 0, err
	}
	return l.Count(userID)
}

// Count returns the member's infraction total.
func (l *Ledger) Count(userID string) (int, error) {
	var count int64
	err := l.db.Model(&data.Infraction{}).
		Where("guild_id = ? AND user_id = ?", l.guildID, userID).
		Count(&count).Error
	return int(count), err
}

// History lists the member's infractions, oldest first.
func (l *Ledger) History(userID string) ([]data.Infraction, error) {
	var rows []data.Infraction
	err := l.db.Where("guild_id = ? AND user_id = ?", l.guildID, userID).
		Order("created_at asc").
		Find(&rows).Error
	return rows, err
}

// Clear removes every infraction for the member.
func (l *Ledger) Clear(userID string) error {
	return l.db.Where("guild_id = ? AND user_id = ?", l.guildID, userID).
		Delete(&data.Infraction{}).Error
}
