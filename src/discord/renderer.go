package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/studyhive/steward/src/suggestions"
)

const (
	colorPending     = 0x0099ff
	colorApproved    = 0x00ff00
	colorRejected    = 0xff4444
	colorImplemented = 0x9b59b6
)

// Renderer publishes suggestion embeds to the suggestion channel and keeps
// them current as votes and adjudications land.
type Renderer struct {
	session   *discordgo.Session
	channelID string
}

func NewRenderer(session *discordgo.Session, channelID string) *Renderer {
	return &Renderer{session: session, channelID: channelID}
}

func (r *Renderer) Publish(rec *suggestions.Record) (suggestions.MessageRef, error) {
	msg, err := r.session.ChannelMessageSendComplex(r.channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{buildEmbed(rec)},
		Components: buildComponents(rec),
	})
	if err != nil {
		return suggestions.MessageRef{}, err
	}
	return suggestions.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}, nil
}

func (r *Renderer) Update(rec *suggestions.Record) error {
	if rec.MessageRef.IsZero() {
		return fmt.Errorf("suggestion #%d has no rendered message", rec.ID)
	}
	embeds := []*discordgo.MessageEmbed{buildEmbed(rec)}
	components := buildComponents(rec)
	_, err := r.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    rec.MessageRef.ChannelID,
		ID:         rec.MessageRef.MessageID,
		Embeds:     &embeds,
		Components: &components,
	})
	return err
}

func buildEmbed(rec *suggestions.Record) *discordgo.MessageEmbed {
	tally := rec.Tally()

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Suggestion #%d", rec.ID),
		Description: rec.Text,
		Color:       statusColor(rec.Status),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Status", Value: statusLabel(rec.Status), Inline: true},
			{Name: "Votes", Value: fmt.Sprintf("👍 %d  ·  👎 %d", tally.Up, tally.Down), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Submitted by %s", rec.AuthorName),
		},
		Timestamp: rec.CreatedAt.Format(time.RFC3339),
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
	return embed
}

// Vote buttons stay active in every status (votes remain legal after
// adjudication); adjudication buttons stay rendered but the engine rejects
// redundant transitions, so clicking them after adjudication is a no-op.
func buildComponents(rec *suggestions.Record) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Upvote",
				Style:    discordgo.SecondaryButton,
				Emoji:    &discordgo.ComponentEmoji{Name: "👍"},
				CustomID: SuggestionCustomID(ActionUpvote, rec.ID),
			},
			discordgo.Button{
				Label:    "Downvote",
				Style:    discordgo.SecondaryButton,
				Emoji:    &discordgo.ComponentEmoji{Name: "👎"},
				CustomID: SuggestionCustomID(ActionDownvote, rec.ID),
			},
		}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Approve",
				Style:    discordgo.SuccessButton,
				CustomID: SuggestionCustomID(ActionApprove, rec.ID),
			},
			discordgo.Button{
				Label:    "Reject",
				Style:    discordgo.DangerButton,
				CustomID: SuggestionCustomID(ActionReject, rec.ID),
			},
			discordgo.Button{
				Label:    "Implement",
				Style:    discordgo.PrimaryButton,
				CustomID: SuggestionCustomID(ActionImplement, rec.ID),
			},
		}},
	}
}

func statusColor(status suggestions.Status) int {
	switch status {
	case suggestions.StatusApproved:
		return colorApproved
	case suggestions.StatusRejected:
		return colorRejected
	case suggestions.StatusImplemented:
		return colorImplemented
	}
	return colorPending
}

func statusLabel(status suggestions.Status) string {
	switch status {
	case suggestions.StatusApproved:
		return "✅ Approved"
	case suggestions.StatusRejected:
		return "❌ Rejected"
	case suggestions.StatusImplemented:
		return "🛠️ Implemented"
	}
	return "🕐 Pending"
}
