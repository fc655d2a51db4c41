package suggest

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/studyhive/steward/src/suggestions"
)

func TestOutcomeMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{suggestions.ErrUnauthorized, "permission"},
		{suggestions.ErrAlreadyInStatus, "already"},
		{suggestions.ErrNotPending, "no longer pending"},
		{suggestions.ErrNotFound, "find"},
		{fmt.Errorf("%w: provision discussion: boom", suggestions.ErrExternalFailure), "Nothing was changed"},
		{errors.New("mystery"), "went wrong"},
	}

	for _, tc := range tests {
		got := outcomeMessage(tc.err)
		if !strings.Contains(got, tc.want) {
			t.Fatalf("outcomeMessage(%v) = %q, want substring %q", tc.err, got, tc.want)
		}
	}
}

func TestMessageLinkParsing(t *testing.T) {
	link := "https://discord.com/channels/111/222/333"
	m := messageLinkRe.FindStringSubmatch(link)
	if m == nil || m[1] != "222" || m[2] != "333" {
		t.Fatalf("unexpected match %v", m)
	}
	if messageLinkRe.FindStringSubmatch("https://example.com/channels/1/2/3") != nil {
		t.Fatal("non-discord link must not match")
	}
}

func TestCheckSubmissionValidatesBeforeConsumingSlot(t *testing.T) {
	h := NewHandler(nil)

	if _, rejection := h.checkSubmission("u1", "short"); rejection == "" {
		t.Fatal("too-short submission must be rejected")
	}
	if _, rejection := h.checkSubmission("u1", strings.Repeat("x", maxLength+1)); rejection == "" {
		t.Fatal("too-long submission must be rejected")
	}

	// Malformed attempts must not burn the rate-limit window.
	text, rejection := h.checkSubmission("u1", "  Add weekly trivia night  ")
	if rejection != "" {
		t.Fatalf("valid submission rejected: %q", rejection)
	}
	if text != "Add weekly trivia night" {
		t.Fatalf("unexpected sanitized text %q", text)
	}

	if _, rejection := h.checkSubmission("u1", "Another perfectly valid idea"); !strings.Contains(rejection, "wait") {
		t.Fatalf("second accepted submission should hit the rate limit, got %q", rejection)
	}
}

func TestRateLimiterCleanupPrunesStaleEntries(t *testing.T) {
	rl := NewRateLimiter(50 * time.Millisecond)
	rl.users["stale"] = time.Now().Add(-time.Second)
	rl.users["fresh"] = time.Now()

	rl.Cleanup()

	if _, ok := rl.users["stale"]; ok {
		t.Fatal("stale entry should be pruned")
	}
	if _, ok := rl.users["fresh"]; !ok {
		t.Fatal("fresh entry should be kept")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(50 * time.Millisecond)

	if !rl.CanUse("u1") {
		t.Fatal("first use must pass")
	}
	if rl.CanUse("u1") {
		t.Fatal("immediate reuse must be limited")
	}
	if rl.TimeUntilNext("u1") <= 0 {
		t.Fatal("expected a positive wait")
	}
	if !rl.CanUse("u2") {
		t.Fatal("other users are independent")
	}

	time.Sleep(60 * time.Millisecond)
	if !rl.CanUse("u1") {
		t.Fatal("use after the window must pass")
	}
}
