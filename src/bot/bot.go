package bot

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"github.com/studyhive/steward/src/components/moderation"
	"github.com/studyhive/steward/src/components/status"
	"github.com/studyhive/steward/src/components/suggest"
	"github.com/studyhive/steward/src/config"
	"github.com/studyhive/steward/src/data"
	"github.com/studyhive/steward/src/discord"
	"github.com/studyhive/steward/src/suggestions"
	"gorm.io/gorm"
)

// Bot assembles the Discord session, the suggestion engine and the sibling
// components (status board, moderation) behind it.
type Bot struct {
	session *discordgo.Session
	cfg     config.Config

	engine            *suggestions.Engine
	suggestHandler    *suggest.Handler
	statusHandler     *status.Handler
	moderationHandler *moderation.Handler
}

func New(cfg config.Config, db *gorm.DB, rdb *redis.Client) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}

	b := &Bot{session: dg, cfg: cfg}
	b.initializeComponents(db, rdb)
	b.registerHandlers()

	dg.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers

	return b, nil
}

func (b *Bot) initializeComponents(db *gorm.DB, rdb *redis.Client) {
	staffRoles := append([]string{}, b.cfg.StaffRoleIDs...)
	if b.cfg.DesignerRoleID != "" {
		staffRoles = append(staffRoles, b.cfg.DesignerRoleID)
	}

	b.engine = suggestions.NewEngine(suggestions.Config{
		Roles:       b.cfg.Roles(),
		Renderer:    discord.NewRenderer(b.session, b.cfg.SuggestChannelID),
		Notifier:    discord.NewNotifier(b.session, b.cfg.AuditChannelID, rdb),
		Provisioner: discord.NewProvisioner(b.session, b.cfg.GuildID, staffRoles),
		Mirror:      data.NewSuggestionMirror(db),
	})

	b.suggestHandler = suggest.NewHandler(b.engine)

	b.statusHandler = status.NewHandler(status.NewBoard(db, b.cfg.GuildID, b.cfg.StatusChannelID))

	b.moderationHandler = moderation.NewHandler(moderation.Config{
		GuildID:        b.cfg.GuildID,
		HeadModRoleID:  b.cfg.HeadModRoleID,
		ModRoleID:      b.cfg.ModRoleID,
		TrialModRoleID: b.cfg.TrialModRoleID,
		MuteRoleID:     b.cfg.MuteRoleID,
		BanRoleID:      b.cfg.BanRoleID,
		BannedWords:    b.cfg.BannedWords,
		Ledger:         moderation.NewLedger(db, b.cfg.GuildID),
	})
}

func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleReady)
	b.session.AddHandler(b.suggestHandler.HandleMessage)
	b.session.AddHandler(b.suggestHandler.HandleInteraction)
	b.session.AddHandler(b.statusHandler.HandleMessage)
	b.session.AddHandler(b.moderationHandler.HandleMessage)
}

func (b *Bot) Start() error {
	return b.session.Open()
}

func (b *Bot) Stop() {
	b.engine.Flush()
	if err := b.session.Close(); err != nil {
		log.Printf("bot: session close: %v", err)
	}
}

// Engine exposes the suggestion engine for the web surface.
func (b *Bot) Engine() *suggestions.Engine { return b.engine }

func (b *Bot) handleReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("bot: logged in as %s (%d suggestions loaded)", event.User.Username, b.engine.Store().Len())
	b.statusHandler.Board().Publish(s)
}
