package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/studyhive/steward/src/suggestions"
)

// Provisioner creates the discussion channel for an implemented suggestion.
// The channel is private: visible to the author, the staff roles and the
// designer role, hidden from everyone else.
type Provisioner struct {
	session    *discordgo.Session
	guildID    string
	staffRoles []string
}

func NewProvisioner(session *discordgo.Session, guildID string, staffRoles []string) *Provisioner {
	return &Provisioner{session: session, guildID: guildID, staffRoles: staffRoles}
}

func (p *Provisioner) ProvisionDiscussion(rec *suggestions.Record) (string, error) {
	allow := int64(discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory)

	overwrites := []*discordgo.PermissionOverwrite{
		{ID: p.guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: int64(discordgo.PermissionViewChannel)},
		{ID: rec.AuthorID, Type: discordgo.PermissionOverwriteTypeMember, Allow: allow},
	}
	for _, roleID := range p.staffRoles {
		if roleID == "" {
			continue
		}
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: roleID, Type: discordgo.PermissionOverwriteTypeRole, Allow: allow,
		})
	}

	ch, err := p.session.GuildChannelCreateComplex(p.guildID, discordgo.GuildChannelCreateData{
		Name:                 fmt.Sprintf("suggestion-%d", rec.ID),
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                fmt.Sprintf("Implementation discussion for suggestion #%d", rec.ID),
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return "", fmt.Errorf("create discussion channel: %w", err)
	}
	return ch.ID, nil
}
