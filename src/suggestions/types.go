package suggestions

import (
	"errors"
	"strings"
	"time"

	"github.com/OneOfOne/xxhash"
)

// Status is the adjudication state of a suggestion.
type Status string

const (
	StatusPending     Status = "Pending"
	StatusApproved    Status = "Approved"
	StatusRejected    Status = "Rejected"
	StatusImplemented Status = "Implemented"
)

// ValidStatus reports whether s is one of the four known statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusImplemented:
		return true
	}
	return false
}

// VoteKind is the direction of a vote.
type VoteKind string

const (
	VoteUp   VoteKind = "up"
	VoteDown VoteKind = "down"
)

// Sentinel errors reported synchronously to callers. None of them leave a
// record mutated.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrAlreadyInStatus = errors.New("already adjudicated")
	ErrNotPending      = errors.New("suggestion is not pending")
	ErrNotFound        = errors.New("suggestion not found")
	ErrExternalFailure = errors.New("external service failure")
)

// MessageRef identifies the rendered embed for a record.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// IsZero reports whether no message has been attached yet.
func (r MessageRef) IsZero() bool { return r.ChannelID == "" && r.MessageID == "" }

// Record is a single suggestion and its full mutable state. Records are
// retained forever; there is deliberately no deletion path.
type Record struct {
	ID         uint64
	AuthorID   string
	AuthorName string
	Text       string
	CreatedAt  time.Time

	Status          Status
	RejectionReason string
	DiscussionRef   string

	Upvotes   map[string]struct{}
	Downvotes map[string]struct{}

	MessageRef  MessageRef
	ContentHash uint64
}

// Tally is the current vote count of a record.
type Tally struct {
	Up   int
	Down int
}

// Tally returns the current vote counts.
func (r *Record) Tally() Tally {
	return Tally{Up: len(r.Upvotes), Down: len(r.Downvotes)}
}

// Clone returns a deep copy safe to use outside the store lock.
func (r *Record) Clone() *Record {
	c := *r
	c.Upvotes = make(map[string]struct{}, len(r.Upvotes))
	for v := range r.Upvotes {
		c.Upvotes[v] = struct{}{}
	}
	c.Downvotes = make(map[string]struct{}, len(r.Downvotes))
	for v := range r.Downvotes {
		c.Downvotes[v] = struct{}{}
	}
	return &c
}

// ContentHash hashes normalized suggestion text for duplicate detection.
func ContentHash(text string) uint64 {
	norm := strings.ToLower(strings.Join(strings.Fields(text), " "))
	return xxhash.ChecksumString64(norm)
}
