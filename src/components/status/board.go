package status

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/studyhive/steward/src/data"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Key is a presence status selectable by members.
type Key string

const (
	KeyStudying Key = "srn"
	KeyFree     Key = "f"
	KeyBusy     Key = "dl"
	KeySleeping Key = "s"
	KeyBreak    Key = "b"
)

// boardOrder fixes the category order on the live board.
var boardOrder = []Key{KeyStudying, KeyFree, KeyBusy, KeySleeping, KeyBreak}

var boardLabels = map[Key]string{
	KeyStudying: "✅ STUDYING",
	KeyFree:     "🟡 FREE",
	KeyBusy:     "🟣 OTHER WORK",
	KeySleeping: "🔴 SLEEPING",
	KeyBreak:    "🔵 ON BREAK",
}

// mentionReplies is sent when someone pings a member who set a do-not-disturb
// style status. Free has no reply on purpose.
var mentionReplies = map[Key]string{
	KeyStudying: "📚 | **%s** is studying. Let them focus. ✨",
	KeyBreak:    "☕ | **%s** is on a short break. ☕",
	KeyBusy:     "🛠️ | **%s** is busy with something else. 🕒",
	KeySleeping: "😴 | **%s** is sleeping. 🌙",
}

// Board tracks per-member presence and keeps the live status embed current.
// The in-memory map is authoritative; rows are mirrored to MySQL so the
// board survives restarts.
type Board struct {
	mu        sync.Mutex
	statuses  map[string]Key
	channelID string
	guildID   string
	messageID string
	db        *gorm.DB
}

func NewBoard(db *gorm.DB, guildID, channelID string) *Board {
	b := &Board{
		statuses:  make(map[string]Key),
		channelID: channelID,
		guildID:   guildID,
		db:        db,
	}
	b.restore()
	return b
}

func (b *Board) restore() {
	if b.db == nil {
		return
	}
	var rows []data.MemberStatus
	if err := b.db.Where("guild_id = ?", b.guildID).Find(&rows).Error; err != nil {
		return
	}
	for _, row := range rows {
		b.statuses[row.UserID] = Key(row.Status)
	}
}

// Set records a member's status and returns whether it changed.
func (b *Board) Set(userID string, key Key) {
	b.mu.Lock()
	b.statuses[userID] = key
	b.mu.Unlock()

	if b.db != nil {
		row := data.MemberStatus{UserID: userID, GuildID: b.guildID, Status: string(key), UpdatedAt: time.Now()}
		b.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row)
	}
}

// Clear removes a member's status; ok is false when none was set.
func (b *Board) Clear(userID string) bool {
	b.mu.Lock()
	_, ok := b.statuses[userID]
	delete(b.statuses, userID)
	b.mu.Unlock()

	if ok && b.db != nil {
		b.db.Delete(&data.MemberStatus{}, "user_id = ?", userID)
	}
	return ok
}

// Get returns the member's current status.
func (b *Board) Get(userID string) (Key, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key, ok := b.statuses[userID]
	return key, ok
}

// MentionReply returns the auto-reply for pinging userID, if their status
// warrants one.
func (b *Board) MentionReply(userID, displayName string) (string, bool) {
	key, ok := b.Get(userID)
	if !ok {
		return "", false
	}
	tmpl, ok := mentionReplies[key]
	if !ok {
		return "", false
	}
	return fmt.Sprintf(tmpl, displayName), true
}

// Publish renders the live board, editing the existing board message when
// one exists and posting a fresh one otherwise.
func (b *Board) Publish(s *discordgo.Session) {
	if b.channelID == "" {
		return
	}

	embed := b.buildEmbed()

	b.mu.Lock()
	messageID := b.messageID
	b.mu.Unlock()

	if messageID != "" {
		if _, err := s.ChannelMessageEditEmbed(b.channelID, messageID, embed); err == nil {
			return
		}
	}

	msg, err := s.ChannelMessageSendEmbed(b.channelID, embed)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.messageID = msg.ID
	b.mu.Unlock()
}

func (b *Board) buildEmbed() *discordgo.MessageEmbed {
	b.mu.Lock()
	byKey := make(map[Key][]string)
	for userID, key := range b.statuses {
		byKey[key] = append(byKey[key], fmt.Sprintf("<@%s>", userID))
	}
	b.mu.Unlock()

	embed := &discordgo.MessageEmbed{
		Title:       "📊 Live Status Board",
		Description: "Current activity of all members",
		Color:       0x5865f2,
	}
	for _, key := range boardOrder {
		users := byKey[key]
		display := "*No members*"
		if len(users) > 0 {
			display = strings.Join(users, "\n")
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s — %d", boardLabels[key], len(users)),
			Value: display,
		})
	}
	return embed
}
