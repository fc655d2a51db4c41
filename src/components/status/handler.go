package status

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

var commandConfirmations = map[Key]string{
	KeyStudying: "📚 | **%s** is now studying.",
	KeyFree:     "✅ | **%s** is now free!",
	KeyBusy:     "🛠️ | **%s** is busy right now.",
	KeySleeping: "😴 | **%s** is sleeping.",
	KeyBreak:    "☕ | **%s** is taking a short break.",
}

// Handler owns the status commands and the mention auto-replies.
type Handler struct {
	board *Board
}

func NewHandler(board *Board) *Handler {
	return &Handler{board: board}
}

func (h *Handler) Board() *Board { return h.board }

// HandleMessage processes the status commands and, for ordinary messages,
// replies on behalf of mentioned members who set a busy status.
func (h *Handler) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	if strings.HasPrefix(m.Content, "!") {
		h.handleCommand(s, m)
		return
	}

	for _, user := range m.Mentions {
		reply, ok := h.board.MentionReply(user.ID, displayName(user))
		if !ok {
			continue
		}
		msg, err := s.ChannelMessageSend(m.ChannelID, reply)
		if err != nil {
			continue
		}
		time.AfterFunc(5*time.Second, func() {
			_ = s.ChannelMessageDelete(m.ChannelID, msg.ID)
		})
	}
}

func (h *Handler) handleCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	cmd := strings.Fields(m.Content)[0]
	name := displayName(m.Author)

	switch cmd {
	case "!srn", "!f", "!dl", "!s", "!b":
		key := Key(strings.TrimPrefix(cmd, "!"))
		h.board.Set(m.Author.ID, key)
		h.ack(s, m, fmt.Sprintf(commandConfirmations[key], name))
		h.board.Publish(s)

	case "!cs":
		if h.board.Clear(m.Author.ID) {
			h.ack(s, m, fmt.Sprintf("🧹 | **%s** status cleared.", name))
			h.board.Publish(s)
		} else {
			h.ack(s, m, "ℹ️ | You don't have any status set.")
		}

	case "!status":
		h.board.Publish(s)
		h.ack(s, m, "📊 | Status board updated.")
	}
}

func (h *Handler) ack(s *discordgo.Session, m *discordgo.MessageCreate, content string) {
	if err := s.MessageReactionAdd(m.ChannelID, m.ID, "✅"); err != nil {
		log.Printf("status: reaction failed: %v", err)
	}
	msg, err := s.ChannelMessageSend(m.ChannelID, content)
	if err != nil {
		return
	}
	time.AfterFunc(5*time.Second, func() {
		_ = s.ChannelMessageDelete(m.ChannelID, msg.ID)
		_ = s.ChannelMessageDelete(m.ChannelID, m.ID)
	})
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
