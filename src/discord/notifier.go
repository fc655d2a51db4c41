package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/studyhive/steward/src/data"
	"github.com/studyhive/steward/src/suggestions"
)

// Notifier delivers adjudication outcomes to suggestion authors by DM and
// mirrors an audit trail to the staff audit channel and the redis audit
// stream. Every delivery is best-effort; the engine logs failures and moves
// on.
type Notifier struct {
	session        *discordgo.Session
	auditChannelID string
	rdb            *redis.Client
}

func NewNotifier(session *discordgo.Session, auditChannelID string, rdb *redis.Client) *Notifier {
	return &Notifier{session: session, auditChannelID: auditChannelID, rdb: rdb}
}

func (n *Notifier) NotifyAuthor(rec *suggestions.Record) error {
	dm, err := n.session.UserChannelCreate(rec.AuthorID)
	if err != nil {
		return fmt.Errorf("open dm: %w", err)
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Your suggestion #%d was %s", rec.ID, statusVerb(rec.Status)),
		Description: rec.Text,
		Color:       statusColor(rec.Status),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if rec.Status == suggestions.StatusRejected && rec.RejectionReason != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Reason", Value: rec.RejectionReason,
		})
	}
	if rec.Status == suggestions.StatusImplemented && rec.DiscussionRef != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Discussion", Value: fmt.Sprintf("<#%s>", rec.DiscussionRef),
		})
	}

	_, err = n.session.ChannelMessageSendEmbed(dm.ID, embed)
	return err
}

func (n *Notifier) LogAudit(rec *suggestions.Record, actor suggestions.Caller, action, reason string) error {
	entryID := uuid.NewString()

	if n.rdb != nil {
		err := data.PublishAudit(context.Background(), n.rdb, map[string]interface{}{
			"entry":      entryID,
			"suggestion": rec.ID,
			"actor":      actor.ID,
			"action":     action,
			"reason":     reason,
			"time":       time.Now().Unix(),
		})
		if err != nil {
			return fmt.Errorf("publish audit: %w", err)
		}
	}

	if n.auditChannelID == "" {
		return nil
	}

	desc := fmt.Sprintf("<@%s> marked suggestion **#%d** as **%s**", actor.ID, rec.ID, action)
	if reason != "" {
		desc += fmt.Sprintf("\nReason: %s", reason)
	}
	_, err := n.session.ChannelMessageSendEmbed(n.auditChannelID, &discordgo.MessageEmbed{
		Title:       "Suggestion adjudicated",
		Description: desc,
		Color:       statusColor(rec.Status),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Audit " + entryID},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
	return err
}

func statusVerb(status suggestions.Status) string {
	switch status {
	case suggestions.StatusApproved:
		return "approved"
	case suggestions.StatusRejected:
		return "rejected"
	case suggestions.StatusImplemented:
		return "implemented"
	}
	return "updated"
}
