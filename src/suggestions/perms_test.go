package suggestions

import "testing"

func TestCanVote(t *testing.T) {
	rec := &Record{AuthorID: "author"}

	tests := []struct {
		name     string
		voters   map[string]struct{}
		callerID string
		roles    []string
		want     bool
	}{
		{name: "open voting", callerID: "someone", want: true},
		{name: "author never votes", callerID: "author", want: false},
		{name: "allowlist holder", voters: map[string]struct{}{"member": {}}, callerID: "someone", roles: []string{"member", "other"}, want: true},
		{name: "allowlist non-holder", voters: map[string]struct{}{"member": {}}, callerID: "someone", roles: []string{"other"}, want: false},
		{name: "allowlist author", voters: map[string]struct{}{"member": {}}, callerID: "author", roles: []string{"member"}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			oracle := NewOracle(RoleConfig{VoterRoleIDs: tc.voters})
			if got := oracle.CanVote(tc.callerID, tc.roles, rec); got != tc.want {
				t.Fatalf("CanVote = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanAdjudicate(t *testing.T) {
	oracle := NewOracle(RoleConfig{
		StaffRoleIDs:   map[string]struct{}{"staff": {}},
		DesignerRoleID: "designer",
	})

	tests := []struct {
		name  string
		roles []string
		admin bool
		want  bool
	}{
		{name: "staff role", roles: []string{"staff"}, want: true},
		{name: "designer role", roles: []string{"designer"}, want: true},
		{name: "admin capability", admin: true, want: true},
		{name: "plain member", roles: []string{"member"}, want: false},
		{name: "no roles", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := oracle.CanAdjudicate(tc.roles, tc.admin); got != tc.want {
				t.Fatalf("CanAdjudicate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanProvisionDiscussion(t *testing.T) {
	oracle := NewOracle(RoleConfig{
		StaffRoleIDs:   map[string]struct{}{"staff": {}},
		DesignerRoleID: "designer",
	})

	if oracle.CanProvisionDiscussion([]string{"staff"}, false) {
		t.Fatal("staff without designer role must not provision")
	}
	if !oracle.CanProvisionDiscussion([]string{"designer"}, false) {
		t.Fatal("designer must provision")
	}
	if !oracle.CanProvisionDiscussion(nil, true) {
		t.Fatal("admin capability must provision")
	}
}

func TestEmptyDesignerRoleNeverMatches(t *testing.T) {
	oracle := NewOracle(RoleConfig{})
	if oracle.CanProvisionDiscussion([]string{""}, false) {
		t.Fatal("empty role id must not match an unset designer role")
	}
}
