package moderation

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/studyhive/steward/src/discord"
)

// Mod ladder levels. Each level includes everything below it.
const (
	levelNone = iota
	levelTrialMod
	levelMod
	levelHeadMod
)

// Config wires the moderation component.
type Config struct {
	GuildID        string
	HeadModRoleID  string
	ModRoleID      string
	TrialModRoleID string
	MuteRoleID     string
	BanRoleID      string
	BannedWords    []string
	Ledger         *Ledger
}

// Handler owns the message filters and the tiered moderation commands.
type Handler struct {
	cfg    Config
	ledger *Ledger
	words  []string
}

var mentionOnlyRe = regexp.MustCompile(`^(\s|<@!?\d+>)+$`)

func NewHandler(cfg Config) *Handler {
	words := make([]string, 0, len(cfg.BannedWords))
	for _, w := range cfg.BannedWords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			words = append(words, w)
		}
	}
	return &Handler{cfg: cfg, ledger: cfg.Ledger, words: words}
}

// HandleMessage runs the content filters on every message and dispatches the
// moderation commands.
func (h *Handler) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	if strings.HasPrefix(m.Content, "!") {
		h.handleCommand(s, m)
		return
	}

	h.runFilters(s, m)
}

func (h *Handler) runFilters(s *discordgo.Session, m *discordgo.MessageCreate) {
	lower := strings.ToLower(m.Content)

	for _, word := range h.words {
		if strings.Contains(lower, word) {
			if err := s.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
				log.Printf("moderation: delete filtered message: %v", err)
			}
			h.escalate(s, m.ChannelID, m.Author.ID, "Use of banned word.")
			return
		}
	}

	if len(m.Mentions) > 0 && mentionOnlyRe.MatchString(m.Content) {
		h.escalate(s, m.ChannelID, m.Author.ID, "Ghost ping")
	}

	if len(m.Mentions) >= 5 {
		h.escalate(s, m.ChannelID, m.Author.ID, "Mass mentions")
	}

	if strings.Contains(lower, "discord.gg/") {
		h.escalate(s, m.ChannelID, m.Author.ID, "Invite link posting")
	}
}

// escalate applies the linear punishment ladder: first warning is verbal,
// the second mutes, the third and beyond apply the soft-ban role.
func (h *Handler) escalate(s *discordgo.Session, channelID, userID, reason string) {
	count, err := h.ledger.Warn(userID, reason, "steward")
	if err != nil {
		log.Printf("moderation: record infraction for %s: %v", userID, err)
		return
	}

	switch {
	case count == 1:
		s.ChannelMessageSend(channelID, fmt.Sprintf("⚠️ | <@%s> has been warned. Reason: %s", userID, reason))
	case count == 2:
		h.applyRole(s, userID, h.cfg.MuteRoleID, "mute")
		s.ChannelMessageSend(channelID, fmt.Sprintf("🔇 | <@%s> has been muted after 2 warnings.", userID))
	default:
		h.applyRole(s, userID, h.cfg.BanRoleID, "soft-ban")
		s.ChannelMessageSend(channelID, fmt.Sprintf("🚫 | <@%s> received a soft ban (role applied).", userID))
	}
}

func (h *Handler) applyRole(s *discordgo.Session, userID, roleID, what string) {
	if roleID == "" {
		log.Printf("moderation: no %s role configured", what)
		return
	}
	if err := s.GuildMemberRoleAdd(h.cfg.GuildID, userID, roleID); err != nil {
		log.Printf("moderation: apply %s role to %s: %v", what, userID, err)
	}
}

func (h *Handler) handleCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	fields := strings.Fields(m.Content)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "!warn":
		if !h.requireLevel(s, m, levelTrialMod, "trial mod") {
			return
		}
		userID, rest := parseUserArg(args)
		if userID == "" {
			return
		}
		reason := "No reason provided"
		if rest != "" {
			reason = rest
		}
		h.escalate(s, m.ChannelID, userID, reason)

	case "!history":
		if !h.requireLevel(s, m, levelTrialMod, "trial mod") {
			return
		}
		userID, _ := parseUserArg(args)
		if userID == "" {
			return
		}
		rows, err := h.ledger.History(userID)
		if err != nil || len(rows) == 0 {
			s.ChannelMessageSend(m.ChannelID, "✅ | No warnings.")
			return
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "📜 | <@%s> warning history:\n", userID)
		for _, row := range rows {
			fmt.Fprintf(&sb, "- %s\n", row.Reason)
		}
		s.ChannelMessageSend(m.ChannelID, sb.String())

	case "!delwarn":
		if !h.requireLevel(s, m, levelMod, "mod") {
			return
		}
		userID, _ := parseUserArg(args)
		if userID == "" {
			return
		}
		if err := h.ledger.Clear(userID); err != nil {
			log.Printf("moderation: clear warnings for %s: %v", userID, err)
			return
		}
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("🧹 | Cleared warnings for <@%s>.", userID))

	case "!mute":
		if !h.requireLevel(s, m, levelTrialMod, "trial mod") {
			return
		}
		userID, _ := parseUserArg(args)
		if userID == "" {
			return
		}
		h.applyRole(s, userID, h.cfg.MuteRoleID, "mute")
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("🔇 | <@%s> muted.", userID))

	case "!unmute":
		if !h.requireLevel(s, m, levelMod, "mod") {
			return
		}
		userID, _ := parseUserArg(args)
		if userID == "" || h.cfg.MuteRoleID == "" {
			return
		}
		if err := s.GuildMemberRoleRemove(h.cfg.GuildID, userID, h.cfg.MuteRoleID); err == nil {
			s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("🔊 | <@%s> unmuted.", userID))
		}

	case "!timeout":
		if !h.requireLevel(s, m, levelTrialMod, "trial mod") {
			return
		}
		userID, rest := parseUserArg(args)
		if userID == "" {
			return
		}
		seconds := 300
		if rest != "" {
			if n, err := strconv.Atoi(strings.Fields(rest)[0]); err == nil && n > 0 {
				seconds = n
			}
		}
		until := time.Now().Add(time.Duration(seconds) * time.Second)
		if err := s.GuildMemberTimeout(h.cfg.GuildID, userID, &until); err != nil {
			log.Printf("moderation: timeout %s: %v", userID, err)
			return
		}
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("⏱️ | <@%s> has been timed out.", userID))

	case "!untimeout":
		if !h.requireLevel(s, m, levelMod, "mod") {
			return
		}
		userID, _ := parseUserArg(args)
		if userID == "" {
			return
		}
		if err := s.GuildMemberTimeout(h.cfg.GuildID, userID, nil); err == nil {
			s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("⏱️ | <@%s> timeout lifted.", userID))
		}

	case "!kick":
		if !h.requireLevel(s, m, levelMod, "mod") {
			return
		}
		userID, rest := parseUserArg(args)
		if userID == "" {
			return
		}
		reason := "No reason provided"
		if rest != "" {
			reason = rest
		}
		if err := s.GuildMemberDeleteWithReason(h.cfg.GuildID, userID, reason); err != nil {
			log.Printf("moderation: kick %s: %v", userID, err)
			return
		}
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("👢 | Kicked <@%s> for: %s", userID, reason))

	case "!ban":
		if !h.requireLevel(s, m, levelHeadMod, "head mod") {
			return
		}
		userID, _ := parseUserArg(args)
		if userID == "" {
			return
		}
		h.applyRole(s, userID, h.cfg.BanRoleID, "soft-ban")
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("🚫 | Soft banned <@%s> (role applied).", userID))

	case "!lock":
		if !h.requireLevel(s, m, levelHeadMod, "head mod") {
			return
		}
		err := s.ChannelPermissionSet(m.ChannelID, h.cfg.GuildID, discordgo.PermissionOverwriteTypeRole,
			0, discordgo.PermissionSendMessages)
		if err == nil {
			s.ChannelMessageSend(m.ChannelID, "🔒 | Channel locked.")
		}

	case "!unlock":
		if !h.requireLevel(s, m, levelHeadMod, "head mod") {
			return
		}
		err := s.ChannelPermissionSet(m.ChannelID, h.cfg.GuildID, discordgo.PermissionOverwriteTypeRole,
			discordgo.PermissionSendMessages, 0)
		if err == nil {
			s.ChannelMessageSend(m.ChannelID, "🔓 | Channel unlocked.")
		}

	case "!purge":
		if !h.requireLevel(s, m, levelMod, "mod") {
			return
		}
		amount := 10
		if len(args) > 0 {
			if n, err := strconv.Atoi(args[0]); err == nil && n > 0 && n <= 100 {
				amount = n
			}
		}
		msgs, err := s.ChannelMessages(m.ChannelID, amount+1, "", "", "")
		if err != nil {
			return
		}
		ids := make([]string, 0, len(msgs))
		for _, msg := range msgs {
			ids = append(ids, msg.ID)
		}
		if err := s.ChannelMessagesBulkDelete(m.ChannelID, ids); err != nil {
			log.Printf("moderation: purge: %v", err)
			return
		}
		note, err := s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("🧹 | Cleared %d messages.", amount))
		if err == nil {
			time.AfterFunc(5*time.Second, func() { _ = s.ChannelMessageDelete(m.ChannelID, note.ID) })
		}

	case "!modhelp":
		s.ChannelMessageSendEmbed(m.ChannelID, h.helpEmbed())
	}
}

func (h *Handler) helpEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "🛡️ Moderation System Guide",
		Color: 0xf1c40f,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Trial Mod", Value: "✅ `!warn`, `!history`, `!timeout`, `!mute`"},
			{Name: "Mod", Value: "✅ All Trial Mod commands + `!kick`, `!untimeout`, `!delwarn`, `!purge`, `!unmute`"},
			{Name: "Head Mod", Value: "✅ All Mod commands + `!ban`, `!lock`, `!unlock`"},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Use commands responsibly. Unauthorized use will trigger warnings.",
		},
	}
}

func (h *Handler) level(member *discordgo.Member) int {
	switch {
	case discord.HasAnyRole(member, h.cfg.HeadModRoleID):
		return levelHeadMod
	case discord.HasAnyRole(member, h.cfg.ModRoleID):
		return levelMod
	case discord.HasAnyRole(member, h.cfg.TrialModRoleID):
		return levelTrialMod
	}
	return levelNone
}

func (h *Handler) requireLevel(s *discordgo.Session, m *discordgo.MessageCreate, required int, label string) bool {
	if m.Member != nil && h.level(m.Member) >= required {
		return true
	}
	h.unauthorizedDM(s, m.Author.ID, label)
	return false
}

func (h *Handler) unauthorizedDM(s *discordgo.Session, userID, attemptedLevel string) {
	dm, err := s.UserChannelCreate(userID)
	if err != nil {
		return
	}
	msg := fmt.Sprintf("⚠️ **Notice:** You attempted to use `%s` level moderation commands which are not permitted for your role.\n"+
		"Please only use commands within your role permissions.\nMisuse may result in demotion or warning.\n\n"+
		"Refer to `!modhelp` for your access.", attemptedLevel)
	_, _ = s.ChannelMessageSend(dm.ID, msg)
}

var userMentionRe = regexp.MustCompile(`^<@!?(\d+)>$`)

// parseUserArg extracts a member from the first argument (mention or raw id)
// and returns the remaining arguments joined.
func parseUserArg(args []string) (userID, rest string) {
	if len(args) == 0 {
		return "", ""
	}
	if m := userMentionRe.FindStringSubmatch(args[0]); m != nil {
		userID = m[1]
	} else if _, err := strconv.ParseUint(args[0], 10, 64); err == nil {
		userID = args[0]
	} else {
		return "", ""
	}
	return userID, strings.Join(args[1:], " ")
}
