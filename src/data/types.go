package data

import "time"

// Settings
type Setting struct {
	ID    uint8  `gorm:"primaryKey"`
	Name  string `gorm:"size:32;not null"`
	Value string `gorm:"size:256;not null"`
}

// Suggestions (durable mirror of the in-memory store; last write wins)
type SuggestionRow struct {
	ID              uint64 `gorm:"primaryKey"`
	AuthorID        string `gorm:"size:64;not null;index"`
	AuthorName      string `gorm:"size:128"`
	Body            string `gorm:"type:text;not null"`
	Status          string `gorm:"size:16;not null;index"`
	RejectionReason string `gorm:"size:512"`
	DiscussionRef   string `gorm:"size:64"`
	ChannelID       string `gorm:"size:64"`
	MessageID       string `gorm:"size:64"`
	Upvoters        string `gorm:"type:text"`
	Downvoters      string `gorm:"type:text"`
	ContentHash     uint64 `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Infractions (one row per warning issued)
type Infraction struct {
	ID        uint64 `gorm:"primaryKey"`
	GuildID   string `gorm:"size:64;index:idx_guild_user"`
	UserID    string `gorm:"size:64;index:idx_guild_user"`
	Reason    string `gorm:"size:512;not null"`
	IssuedBy  string `gorm:"size:64"`
	CreatedAt time.Time
}

// Member presence status (status board)
type MemberStatus struct {
	UserID    string `gorm:"primaryKey;size:64"`
	GuildID   string `gorm:"size:64;index"`
	Status    string `gorm:"size:16;not null"`
	UpdatedAt time.Time
}
