package config

import (
	"log"
	"os"
	"strings"

	"github.com/studyhive/steward/src/data"
	"github.com/studyhive/steward/src/suggestions"
	"gorm.io/gorm"
)

type Config struct {
	Token   string
	GuildID string

	SuggestChannelID string
	StatusChannelID  string
	AuditChannelID   string

	StaffRoleIDs   []string
	VoterRoleIDs   []string
	DesignerRoleID string

	HeadModRoleID  string
	ModRoleID      string
	TrialModRoleID string
	MuteRoleID     string
	BanRoleID      string

	BannedWords []string

	RedisURL  string
	HTTPAddr  string
	JWTSecret string
}

// Load reads configuration from the settings table with env fallbacks,
// following the same precedence the rest of the deployment uses.
func Load(db *gorm.DB) Config {
	if err := data.LoadSettings(db); err != nil {
		log.Printf("config: failed to load settings: %v", err)
	}

	return Config{
		Token:   setting("discord_token", "DISCORD_TOKEN", ""),
		GuildID: setting("guild_id", "GUILD_ID", ""),

		SuggestChannelID: setting("suggest_channel_id", "SUGGEST_CHANNEL_ID", ""),
		StatusChannelID:  setting("status_channel_id", "STATUS_CHANNEL_ID", ""),
		AuditChannelID:   setting("audit_channel_id", "AUDIT_CHANNEL_ID", ""),

		StaffRoleIDs:   splitList(setting("staff_role_ids", "STAFF_ROLE_IDS", "")),
		VoterRoleIDs:   splitList(setting("voter_role_ids", "VOTER_ROLE_IDS", "")),
		DesignerRoleID: setting("designer_role_id", "DESIGNER_ROLE_ID", ""),

		HeadModRoleID:  setting("headmod_role_id", "HEADMOD_ROLE_ID", ""),
		ModRoleID:      setting("mod_role_id", "MOD_ROLE_ID", ""),
		TrialModRoleID: setting("trialmod_role_id", "TRIALMOD_ROLE_ID", ""),
		MuteRoleID:     setting("mute_role_id", "MUTE_ROLE_ID", ""),
		BanRoleID:      setting("ban_role_id", "BAN_ROLE_ID", ""),

		BannedWords: splitList(setting("banned_words", "BANNED_WORDS", "")),

		RedisURL:  getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		HTTPAddr:  setting("http_addr", "HTTP_ADDR", ":8090"),
		JWTSecret: setting("jwt_secret", "JWT_SECRET", ""),
	}
}

// Roles builds the injected role configuration for the permission oracle.
func (c Config) Roles() suggestions.RoleConfig {
	return suggestions.RoleConfig{
		StaffRoleIDs:   toSet(c.StaffRoleIDs),
		VoterRoleIDs:   toSet(c.VoterRoleIDs),
		DesignerRoleID: c.DesignerRoleID,
	}
}

func setting(name, envKey, def string) string {
	val := data.GetSetting(name)
	if val == "" {
		val = os.Getenv(envKey)
	}
	if val == "" {
		val = def
	}
	return val
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func toSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, v := range list {
		set[v] = struct{}{}
	}
	return set
}
