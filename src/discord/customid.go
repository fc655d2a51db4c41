package discord

import (
	"fmt"
	"strconv"
	"strings"
)

// Component custom IDs carry (action, record id) so a single handler can
// dispatch every suggestion button instead of registering one callback per
// button per record.
const customIDPrefix = "suggest"

// Actions encoded into suggestion component custom IDs.
const (
	ActionUpvote    = "up"
	ActionDownvote  = "down"
	ActionApprove   = "approve"
	ActionReject    = "reject"
	ActionImplement = "implement"
)

// SuggestionCustomID encodes a suggestion control identifier.
func SuggestionCustomID(action string, id uint64) string {
	return fmt.Sprintf("%s:%s:%d", customIDPrefix, action, id)
}

// ParseSuggestionCustomID decodes a control identifier. ok is false for
// custom IDs owned by other components.
func ParseSuggestionCustomID(customID string) (action string, id uint64, ok bool) {
	parts := strings.Split(customID, ":")
	if len(parts) != 3 || parts[0] != customIDPrefix {
		return "", 0, false
	}
	id, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil || id == 0 {
		return "", 0, false
	}
	switch parts[1] {
	case ActionUpvote, ActionDownvote, ActionApprove, ActionReject, ActionImplement:
		return parts[1], id, true
	}
	return "", 0, false
}
