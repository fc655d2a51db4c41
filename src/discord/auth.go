package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/studyhive/steward/src/suggestions"
)

func HasAnyRole(member *discordgo.Member, roleIDs ...string) bool {
	for _, want := range roleIDs {
		if want == "" {
			continue
		}
		for _, role := range member.Roles {
			if role == want {
				return true
			}
		}
	}
	return false
}

// CallerFromMember builds the engine caller for an inbound event. The role
// set is taken from the event payload, never cached, so role changes between
// events are always observed.
func CallerFromMember(member *discordgo.Member, userID string) suggestions.Caller {
	caller := suggestions.Caller{ID: userID, Roles: member.Roles}
	if member.User != nil {
		caller.Name = member.User.Username
		if member.User.GlobalName != "" {
			caller.Name = member.User.GlobalName
		}
	}
	caller.Admin = member.Permissions&discordgo.PermissionAdministrator != 0
	return caller
}
