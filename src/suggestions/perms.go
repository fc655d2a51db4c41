package suggestions

// RoleConfig enumerates the role IDs that gate suggestion actions. It is
// built once at startup and never mutated afterwards, so the oracle methods
// are safe to call from any goroutine.
type RoleConfig struct {
	// StaffRoleIDs may approve and reject suggestions.
	StaffRoleIDs map[string]struct{}
	// VoterRoleIDs, when non-empty, restricts voting to holders of at least
	// one listed role. Empty means every member may vote.
	VoterRoleIDs map[string]struct{}
	// DesignerRoleID may mark suggestions implemented and provision the
	// discussion thread for them.
	DesignerRoleID string
}

// Oracle answers permission questions from a caller's role set. Role sets
// are supplied fresh with every event; nothing is cached here.
type Oracle struct {
	roles RoleConfig
}

func NewOracle(roles RoleConfig) *Oracle {
	return &Oracle{roles: roles}
}

// CanVote reports whether callerID holding callerRoles may vote on rec.
// Authors never vote on their own suggestions.
func (o *Oracle) CanVote(callerID string, callerRoles []string, rec *Record) bool {
	if callerID == rec.AuthorID {
		return false
	}
	if len(o.roles.VoterRoleIDs) == 0 {
		return true
	}
	for _, r := range callerRoles {
		if _, ok := o.roles.VoterRoleIDs[r]; ok {
			return true
		}
	}
	return false
}

// CanAdjudicate reports whether the caller may approve or reject.
func (o *Oracle) CanAdjudicate(callerRoles []string, admin bool) bool {
	if admin {
		return true
	}
	for _, r := range callerRoles {
		if _, ok := o.roles.StaffRoleIDs[r]; ok {
			return true
		}
		if r != "" && r == o.roles.DesignerRoleID {
			return true
		}
	}
	return false
}

// CanProvisionDiscussion reports whether the caller may mark a suggestion
// implemented, which provisions a discussion thread.
func (o *Oracle) CanProvisionDiscussion(callerRoles []string, admin bool) bool {
	if admin {
		return true
	}
	for _, r := range callerRoles {
		if r != "" && r == o.roles.DesignerRoleID {
			return true
		}
	}
	return false
}
