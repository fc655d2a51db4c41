package suggestions

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

type fakeRenderer struct {
	published int
	updated   int
	failAll   bool
}

func (f *fakeRenderer) Publish(rec *Record) (MessageRef, error) {
	f.published++
	if f.failAll {
		return MessageRef{}, errors.New("discord down")
	}
	return MessageRef{ChannelID: "chan", MessageID: fmt.Sprintf("msg-%d", rec.ID)}, nil
}

func (f *fakeRenderer) Update(rec *Record) error {
	f.updated++
	if f.failAll {
		return errors.New("discord down")
	}
	return nil
}

type fakeNotifier struct {
	authorNotices []Status
	auditEntries  []string
	lastReason    string
}

func (f *fakeNotifier) NotifyAuthor(rec *Record) error {
	f.authorNotices = append(f.authorNotices, rec.Status)
	f.lastReason = rec.RejectionReason
	return nil
}

func (f *fakeNotifier) LogAudit(rec *Record, actor Caller, action, reason string) error {
	f.auditEntries = append(f.auditEntries, fmt.Sprintf("%d/%s/%s", rec.ID, actor.ID, action))
	return nil
}

type fakeProvisioner struct {
	fail  bool
	calls int
}

func (f *fakeProvisioner) ProvisionDiscussion(rec *Record) (string, error) {
	f.calls++
	if f.fail {
		return "", errors.New("no channel slots")
	}
	return fmt.Sprintf("disc-%d", rec.ID), nil
}

func testRoles() RoleConfig {
	return RoleConfig{
		StaffRoleIDs:   map[string]struct{}{"staff": {}},
		DesignerRoleID: "designer",
	}
}

func newTestEngine(t *testing.T) (*Engine, *fakeRenderer, *fakeNotifier, *fakeProvisioner) {
	t.Helper()
	renderer := &fakeRenderer{}
	notifier := &fakeNotifier{}
	provisioner := &fakeProvisioner{}
	engine := NewEngine(Config{
		Roles:       testRoles(),
		Renderer:    renderer,
		Notifier:    notifier,
		Provisioner: provisioner,
	})
	return engine, renderer, notifier, provisioner
}

var (
	author   = Caller{ID: "author", Name: "Alice"}
	voter    = Caller{ID: "voter", Name: "Bob"}
	staff    = Caller{ID: "staff-user", Name: "Carol", Roles: []string{"staff"}}
	designer = Caller{ID: "designer-user", Name: "Dana", Roles: []string{"designer"}}
)

func TestSubmitCreatesPendingRecord(t *testing.T) {
	engine, renderer, _, _ := newTestEngine(t)

	rec, err := engine.Submit(author, "Add weekly trivia night")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.ID != 1 {
		t.Fatalf("expected id 1, got %d", rec.ID)
	}
	if rec.Status != StatusPending {
		t.Fatalf("expected pending, got %s", rec.Status)
	}
	if renderer.published != 1 {
		t.Fatalf("expected one publish, got %d", renderer.published)
	}
	if rec.MessageRef.IsZero() {
		t.Fatal("expected a message reference after publish")
	}

	second, _ := engine.Submit(voter, "Another idea entirely")
	if second.ID != 2 {
		t.Fatalf("expected monotonic id 2, got %d", second.ID)
	}
}

func TestSubmitSurvivesPublishFailure(t *testing.T) {
	engine, renderer, _, _ := newTestEngine(t)
	renderer.failAll = true

	rec, err := engine.Submit(author, "Add weekly trivia night")
	if err != nil {
		t.Fatalf("submit should not fail on publish error: %v", err)
	}
	if !rec.MessageRef.IsZero() {
		t.Fatal("expected no message reference when publish fails")
	}
	if got, err := engine.Store().Get(rec.ID); err != nil || got.Status != StatusPending {
		t.Fatalf("record should exist and stay pending, got %v / %v", got, err)
	}
}

func TestVoteToggleRetracts(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	rec, _ := engine.Submit(author, "Add weekly trivia night")

	out, err := engine.ApplyVote(rec.ID, voter, VoteUp)
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if out.Retracted || out.Tally.Up != 1 || out.Tally.Down != 0 {
		t.Fatalf("unexpected outcome %+v", out)
	}

	out, err = engine.ApplyVote(rec.ID, voter, VoteUp)
	if err != nil {
		t.Fatalf("second vote: %v", err)
	}
	if !out.Retracted || out.Tally.Up != 0 || out.Tally.Down != 0 {
		t.Fatalf("expected retraction back to zero, got %+v", out)
	}
}

func TestVoteSupersedesOppositeDirection(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	rec, _ := engine.Submit(author, "Add weekly trivia night")

	if _, err := engine.ApplyVote(rec.ID, voter, VoteUp); err != nil {
		t.Fatalf("up vote: %v", err)
	}
	out, err := engine.ApplyVote(rec.ID, voter, VoteDown)
	if err != nil {
		t.Fatalf("down vote: %v", err)
	}
	if out.Tally.Up != 0 || out.Tally.Down != 1 {
		t.Fatalf("expected supersession to {0,1}, got %+v", out.Tally)
	}

	got, _ := engine.Store().Get(rec.ID)
	if _, inUp := got.Upvotes[voter.ID]; inUp {
		t.Fatal("voter must not remain in upvotes")
	}
	if _, inDown := got.Downvotes[voter.ID]; !inDown {
		t.Fatal("voter must be in downvotes")
	}
}

func TestVoteInvariants(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	rec, _ := engine.Submit(author, "Add weekly trivia night")

	voters := []Caller{voter, staff, designer}
	kinds := []VoteKind{VoteUp, VoteDown, VoteUp, VoteUp, VoteDown}
	for _, v := range voters {
		for _, k := range kinds {
			if _, err := engine.ApplyVote(rec.ID, v, k); err != nil {
				t.Fatalf("vote by %s: %v", v.ID, err)
			}
			got, _ := engine.Store().Get(rec.ID)
			for id := range got.Upvotes {
				if _, both := got.Downvotes[id]; both {
					t.Fatalf("%s present in both sets", id)
				}
				if id == got.AuthorID {
					t.Fatal("author present in upvotes")
				}
			}
			for id := range got.Downvotes {
				if id == got.AuthorID {
					t.Fatal("author present in downvotes")
				}
			}
		}
	}
}

func TestSelfVoteRejected(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	rec, _ := engine.Submit(author, "Add weekly trivia night")

	if _, err := engine.ApplyVote(rec.ID, author, VoteUp); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	got, _ := engine.Store().Get(rec.ID)
	if len(got.Upvotes) != 0 {
		t.Fatal("self vote must not mutate the ledger")
	}
}

func TestVoterAllowlist(t *testing.T) {
	roles := testRoles()
	roles.VoterRoleIDs = map[string]struct{}{"member": {}}
	engine := NewEngine(Config{Roles: roles, Renderer: &fakeRenderer{}, Notifier: &fakeNotifier{}, Provisioner: &fakeProvisioner{}})
	rec, _ := engine.Submit(author, "Add weekly trivia night")

	if _, err := engine.ApplyVote(rec.ID, voter, VoteUp); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("roleless voter should be rejected, got %v", err)
	}

	allowed := Caller{ID: "member-user", Roles: []string{"member"}}
	if _, err := engine.ApplyVote(rec.ID, allowed, VoteUp); err != nil {
		t.Fatalf("allowlisted voter: %v", err)
	}
}

func TestVotingRemainsLegalAfterAdjudication(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	rec, _ := engine.Submit(author, "Add weekly trivia night")

	if _, err := engine.Adjudicate(rec.ID, staff, StatusApproved, ""); err != nil {
		t.Fatalf("adjudicate: %v", err)
	}
	out, err := engine.ApplyVote(rec.ID, voter, VoteUp)
	if err != nil {
		t.Fatalf("post-adjudication vote should stay legal: %v", err)
	}
	if out.Tally.Up != 1 {
		t.Fatalf("expected tally up 1, got %+v", out.Tally)
	}
}

func TestAdjudicateApproveOnce(t *testing.T) {
	engine, _, notifier, _ := newTestEngine(t)
	rec, _ := engine.Submit(author, "Add weekly trivia night")

	got, err := engine.Adjudicate(rec.ID, staff, StatusApproved, "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != StatusApproved {
		t.Fatalf("expected approved, got %s", got.Status)
	}
	if len(notifier.authorNotices) != 1 || notifier.authorNotices[0] != StatusApproved {
		t.Fatalf("expected exactly one author notice, got %v", notifier.authorNotices)
	}
	if len(notifier.auditEntries) != 1 {
		t.Fatalf("expected exactly one audit entry, got %v", notifier.auditEntries)
	}

	for _, target := range []Status{StatusApproved, StatusRejected, StatusImplemented} {
		if _, err := engine.Adjudicate(rec.ID, designer, target, ""); !errors.Is(err, ErrAlreadyInStatus) {
			t.Fatalf("retry to %s: expected ErrAlreadyInStatus, got %v", target, err)
		}
	}
	if len(notifier.authorNotices) != 1 {
		t.Fatal("redundant transitions must not renotify")
	}
	final, _ := engine.Store().Get(rec.ID)
	if final.Status != StatusApproved {
		t.Fatalf("status changed by redundant transition: %s", final.Status)
	}
}

func TestAdjudicateUnauthorizedLeavesRecordUnchanged(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	rec, _ := engine.Submit(author, "Add weekly trivia night")
	engine.ApplyVote(rec.ID, voter, VoteUp)

	before, _ := engine.Store().Get(rec.ID)

	if _, err := engine.Adjudicate(rec.ID, voter, StatusRejected, "nope"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	after, _ := engine.Store().Get(rec.ID)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("record mutated by unauthorized adjudication:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestRejectAttachesReasonVerbatim(t *testing.T) {
	engine, _, notifier, _ := newTestEngine(t)
	rec, _ := engine.Submit(author, "Add weekly trivia night")

	got, err := engine.Adjudicate(rec.ID, staff, StatusRejected, "Duplicate of #4")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.RejectionReason != "Duplicate of #4" {
		t.Fatalf("expected verbatim reason, got %q", got.RejectionReason)
	}
	if notifier.lastReason != "Duplicate of #4" {
		t.Fatalf("author notice missing reason, got %q", notifier.lastReason)
	}

	rec2, _ := engine.Submit(author, "Second idea without reason")
	got2, err := engine.Adjudicate(rec2.ID, staff, StatusRejected, "")
	if err != nil {
		t.Fatalf("reject without reason: %v", err)
	}
	if got2.RejectionReason != "" {
		t.Fatalf("expected no default reason text, got %q", got2.RejectionReason)
	}
}

func TestImplementRequiresDesigner(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	rec, _ := engine.Submit(author, "Add weekly trivia night")

	if _, err := engine.Adjudicate(rec.ID, staff, StatusImplemented, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("staff without designer role: expected ErrUnauthorized, got %v", err)
	}

	got, err := engine.Adjudicate(rec.ID, designer, StatusImplemented, "")
	if err != nil {
		t.Fatalf("implement: %v", err)
	}
	if got.DiscussionRef != "disc-1" {
		t.Fatalf("expected discussion ref, got %q", got.DiscussionRef)
	}
}

func TestAdminCapabilityAdjudicates(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	rec, _ := engine.Submit(author, "Add weekly trivia night")

	admin := Caller{ID: "admin", Admin: true}
	if _, err := engine.Adjudicate(rec.ID, admin, StatusImplemented, ""); err != nil {
		t.Fatalf("admin implement: %v", err)
	}
}

func TestProvisionFailureLeavesPending(t *testing.T) {
	engine, _, notifier, provisioner := newTestEngine(t)
	provisioner.fail = true
	rec, _ := engine.Submit(author, "Add weekly trivia night")

	_, err := engine.Adjudicate(rec.ID, designer, StatusImplemented, "")
	if !errors.Is(err, ErrExternalFailure) {
		t.Fatalf("expected ErrExternalFailure, got %v", err)
	}

	got, _ := engine.Store().Get(rec.ID)
	if got.Status != StatusPending {
		t.Fatalf("failed provisioning must leave record pending, got %s", got.Status)
	}
	if got.DiscussionRef != "" {
		t.Fatalf("discussion ref must stay unset, got %q", got.DiscussionRef)
	}
	if len(notifier.authorNotices) != 0 {
		t.Fatal("no notification may fire for a blocked transition")
	}

	// The precondition failure is retryable once the collaborator recovers.
	provisioner.fail = false
	if _, err := engine.Adjudicate(rec.ID, designer, StatusImplemented, ""); err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
}

func TestAdjudicateByMessage(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	rec, _ := engine.Submit(author, "Add weekly trivia night")

	got, err := engine.AdjudicateByMessage(rec.MessageRef, staff, StatusApproved, "")
	if err != nil {
		t.Fatalf("adjudicate by message: %v", err)
	}
	if got.ID != rec.ID || got.Status != StatusApproved {
		t.Fatalf("unexpected record %+v", got)
	}

	if _, err := engine.AdjudicateByMessage(rec.MessageRef, staff, StatusRejected, ""); !errors.Is(err, ErrNotPending) {
		t.Fatalf("reference path on adjudicated record: expected ErrNotPending, got %v", err)
	}

	unknown := MessageRef{ChannelID: "chan", MessageID: "missing"}
	if _, err := engine.AdjudicateByMessage(unknown, staff, StatusApproved, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown reference: expected ErrNotFound, got %v", err)
	}
}

func TestAdjudicateUnknownRecord(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	if _, err := engine.Adjudicate(99, staff, StatusApproved, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Full walkthrough: submit, non-staff vote, self-vote rejection, staff
// rejection with reason, further adjudication no-ops, voting still open.
func TestLifecycleScenario(t *testing.T) {
	engine, renderer, notifier, _ := newTestEngine(t)

	rec, err := engine.Submit(author, "Add weekly trivia night")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.ID != 1 || rec.Status != StatusPending {
		t.Fatalf("unexpected record %+v", rec)
	}

	out, err := engine.ApplyVote(rec.ID, voter, VoteUp)
	if err != nil || out.Tally.Up != 1 || out.Tally.Down != 0 {
		t.Fatalf("vote outcome %+v err %v", out, err)
	}

	if _, err := engine.ApplyVote(rec.ID, author, VoteUp); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("self vote: expected ErrUnauthorized, got %v", err)
	}

	got, err := engine.Adjudicate(rec.ID, staff, StatusRejected, "Duplicate of #4")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != StatusRejected || got.RejectionReason != "Duplicate of #4" {
		t.Fatalf("unexpected rejection state %+v", got)
	}
	if notifier.lastReason != "Duplicate of #4" {
		t.Fatalf("author notification missing reason, got %q", notifier.lastReason)
	}

	if _, err := engine.Adjudicate(rec.ID, staff, StatusApproved, ""); !errors.Is(err, ErrAlreadyInStatus) {
		t.Fatalf("expected ErrAlreadyInStatus, got %v", err)
	}

	if _, err := engine.ApplyVote(rec.ID, staff, VoteDown); err != nil {
		t.Fatalf("vote after rejection should remain legal: %v", err)
	}

	if renderer.updated == 0 {
		t.Fatal("mutations must trigger re-renders")
	}
}
