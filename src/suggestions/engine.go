package suggestions

import (
	"fmt"
	"log"
	"sync"
)

// Caller is the identity performing an inbound event, with the role set the
// platform delivered for that event. Role sets are never cached; every event
// carries a fresh one.
type Caller struct {
	ID    string
	Name  string
	Roles []string
	Admin bool
}

// Renderer publishes and refreshes the user-facing representation of a
// record. Update failures are non-fatal; the engine attempts the call once
// per mutation and logs failures.
type Renderer interface {
	Publish(rec *Record) (MessageRef, error)
	Update(rec *Record) error
}

// Notifier delivers status-change messages to the author and audit entries
// to staff. Both are fire-and-forget.
type Notifier interface {
	NotifyAuthor(rec *Record) error
	LogAudit(rec *Record, actor Caller, action, reason string) error
}

// Provisioner creates a discussion space for an implemented suggestion,
// scoped to the author and the staff roles.
type Provisioner interface {
	ProvisionDiscussion(rec *Record) (string, error)
}

// Mirror is the optional durable copy of the store. Last write wins; the
// in-memory store stays authoritative while the process runs.
type Mirror interface {
	LoadAll() ([]*Record, error)
	Save(rec *Record) error
	SaveAll(recs []*Record) error
}

// VoteOutcome reports the result of a vote event.
type VoteOutcome struct {
	Tally     Tally
	Changed   bool
	Retracted bool
}

// Engine owns the suggestion lifecycle: intake, the concurrent vote ledger
// and the staff adjudication state machine, plus the side effects each
// transition fires.
type Engine struct {
	store  *Store
	oracle *Oracle

	renderer    Renderer
	notifier    Notifier
	provisioner Provisioner
	mirror      Mirror

	// adjMu serializes adjudications so that discussion provisioning for
	// Implemented cannot interleave with a racing adjudication between the
	// precondition check and the commit. Votes are not held up by it.
	adjMu sync.Mutex
}

// Config carries the engine's collaborators. Mirror may be nil.
type Config struct {
	Roles       RoleConfig
	Renderer    Renderer
	Notifier    Notifier
	Provisioner Provisioner
	Mirror      Mirror
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{
		store:       NewStore(),
		oracle:      NewOracle(cfg.Roles),
		renderer:    cfg.Renderer,
		notifier:    cfg.Notifier,
		provisioner: cfg.Provisioner,
		mirror:      cfg.Mirror,
	}
	if e.mirror != nil {
		records, err := e.mirror.LoadAll()
		if err != nil {
			log.Printf("suggestions: mirror load failed, starting empty: %v", err)
		} else if len(records) > 0 {
			e.store.Restore(records)
			log.Printf("suggestions: restored %d records from mirror", len(records))
		}
	}
	return e
}

// Store exposes read access for the status surface.
func (e *Engine) Store() *Store { return e.store }

// Submit creates a pending record for the caller's text and publishes its
// rendered message. The record is committed before any outbound call, so a
// publish failure leaves a valid record without a message reference.
func (e *Engine) Submit(caller Caller, text string) (*Record, error) {
	if dup, ok := e.store.FindDuplicate(text); ok {
		log.Printf("suggestions: submission by %s matches existing suggestion #%d", caller.ID, dup)
	}

	rec := e.store.Create(caller.ID, caller.Name, text)

	ref, err := e.renderer.Publish(rec)
	if err != nil {
		log.Printf("suggestions: publish for #%d failed: %v", rec.ID, err)
	} else if err := e.store.AttachMessage(rec.ID, ref); err == nil {
		rec.MessageRef = ref
	}

	e.save(rec)
	return rec, nil
}

// ApplyVote applies a toggle vote: a repeated same-direction vote retracts,
// an opposite-direction vote supersedes. Voting stays legal in every status,
// matching the source behavior; whether terminal records should freeze their
// tally is a pending product decision.
func (e *Engine) ApplyVote(id uint64, caller Caller, kind VoteKind) (VoteOutcome, error) {
	var out VoteOutcome

	rec, err := e.store.mutate(id, func(rec *Record) error {
		if !e.oracle.CanVote(caller.ID, caller.Roles, rec) {
			return ErrUnauthorized
		}

		same, opposite := rec.Upvotes, rec.Downvotes
		if kind == VoteDown {
			same, opposite = rec.Downvotes, rec.Upvotes
		}

		if _, voted := same[caller.ID]; voted {
			delete(same, caller.ID)
			out.Retracted = true
		} else {
			same[caller.ID] = struct{}{}
			delete(opposite, caller.ID)
		}
		out.Changed = true
		return nil
	})
	if err != nil {
		return VoteOutcome{}, err
	}

	out.Tally = rec.Tally()
	e.save(rec)
	if err := e.renderer.Update(rec); err != nil {
		log.Printf("suggestions: render update for #%d failed: %v", rec.ID, err)
	}
	return out, nil
}

// Adjudicate moves a pending record to target. Approved, Rejected and
// Implemented are all terminal for adjudication; a redundant request is a
// safe no-op reported as ErrAlreadyInStatus.
func (e *Engine) Adjudicate(id uint64, caller Caller, target Status, reason string) (*Record, error) {
	e.adjMu.Lock()
	defer e.adjMu.Unlock()
	return e.adjudicateLocked(id, caller, target, reason)
}

// AdjudicateByMessage resolves the record through its rendered message
// reference. This path is stricter than Adjudicate: it only accepts records
// still pending and reports ErrNotPending otherwise.
func (e *Engine) AdjudicateByMessage(ref MessageRef, caller Caller, target Status, reason string) (*Record, error) {
	e.adjMu.Lock()
	defer e.adjMu.Unlock()

	rec, err := e.store.GetByMessage(ref)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusPending {
		return nil, ErrNotPending
	}
	return e.adjudicateLocked(rec.ID, caller, target, reason)
}

func (e *Engine) adjudicateLocked(id uint64, caller Caller, target Status, reason string) (*Record, error) {
	if !ValidStatus(target) || target == StatusPending {
		return nil, fmt.Errorf("invalid adjudication target %q", target)
	}

	if target == StatusImplemented {
		if !e.oracle.CanProvisionDiscussion(caller.Roles, caller.Admin) {
			return nil, ErrUnauthorized
		}
	} else if !e.oracle.CanAdjudicate(caller.Roles, caller.Admin) {
		return nil, ErrUnauthorized
	}

	rec, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusPending {
		return nil, ErrAlreadyInStatus
	}

	// Provisioning is a strict precondition for Implemented: nothing has
	// been committed yet, so a failure simply leaves the record pending.
	discussionRef := ""
	if target == StatusImplemented {
		if e.provisioner == nil {
			return nil, fmt.Errorf("%w: no discussion provisioner configured", ErrExternalFailure)
		}
		discussionRef, err = e.provisioner.ProvisionDiscussion(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: provision discussion: %v", ErrExternalFailure, err)
		}
	}

	rec, err = e.store.mutate(id, func(rec *Record) error {
		if rec.Status != StatusPending {
			return ErrAlreadyInStatus
		}
		rec.Status = target
		if target == StatusRejected {
			rec.RejectionReason = reason
		}
		if target == StatusImplemented {
			rec.DiscussionRef = discussionRef
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The status commit above is authoritative. Everything below is
	// best-effort and never rolls it back.
	e.save(rec)
	if err := e.renderer.Update(rec); err != nil {
		log.Printf("suggestions: render update for #%d failed: %v", rec.ID, err)
	}
	if err := e.notifier.NotifyAuthor(rec); err != nil {
		log.Printf("suggestions: author notification for #%d failed: %v", rec.ID, err)
	}
	if err := e.notifier.LogAudit(rec, caller, string(target), reason); err != nil {
		log.Printf("suggestions: audit log for #%d failed: %v", rec.ID, err)
	}

	log.Printf("suggestions: #%d adjudicated %s by %s", rec.ID, target, caller.ID)
	return rec, nil
}

// Flush writes every record to the mirror, typically at shutdown.
func (e *Engine) Flush() {
	if e.mirror == nil {
		return
	}
	if err := e.mirror.SaveAll(e.store.Snapshot()); err != nil {
		log.Printf("suggestions: mirror flush failed: %v", err)
	}
}

func (e *Engine) save(rec *Record) {
	if e.mirror == nil {
		return
	}
	if err := e.mirror.Save(rec); err != nil {
		log.Printf("suggestions: mirror save for #%d failed: %v", rec.ID, err)
	}
}
