package suggest

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/microcosm-cc/bluemonday"
	"github.com/studyhive/steward/src/discord"
	"github.com/studyhive/steward/src/suggestions"
)

const (
	submitCommand = "!suggest"
	minLength     = 10
	maxLength     = 1000
)

var messageLinkRe = regexp.MustCompile(`discord\.com/channels/\d+/(\d+)/(\d+)`)

// Handler owns the suggestion intake command and every suggestion button.
type Handler struct {
	engine      *suggestions.Engine
	rateLimiter *RateLimiter
	sanitizer   *bluemonday.Policy
}

func NewHandler(engine *suggestions.Engine) *Handler {
	h := &Handler{
		engine:      engine,
		rateLimiter: NewRateLimiter(2 * time.Minute),
		sanitizer:   bluemonday.StrictPolicy(),
	}
	h.rateLimiter.StartCleanup(10 * time.Minute)
	return h
}

// HandleMessage processes !suggest submissions and the text adjudication
// commands (!approve / !reject / !implement).
func (h *Handler) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Member == nil {
		return
	}

	switch {
	case strings.HasPrefix(m.Content, submitCommand+" "):
		h.handleSubmit(s, m)
	case strings.HasPrefix(m.Content, "!approve "):
		h.handleAdjudicateCommand(s, m, suggestions.StatusApproved)
	case strings.HasPrefix(m.Content, "!reject "):
		h.handleAdjudicateCommand(s, m, suggestions.StatusRejected)
	case strings.HasPrefix(m.Content, "!implement "):
		h.handleAdjudicateCommand(s, m, suggestions.StatusImplemented)
	}
}

func (h *Handler) handleSubmit(s *discordgo.Session, m *discordgo.MessageCreate) {
	raw := strings.TrimPrefix(m.Content, submitCommand)
	text, rejection := h.checkSubmission(m.Author.ID, raw)
	if rejection != "" {
		replyAndDelete(s, m.ChannelID, m.ID, rejection)
		return
	}

	caller := callerFromMessage(m)
	rec, err := h.engine.Submit(caller, text)
	if err != nil {
		log.Printf("suggest: submit by %s failed: %v", m.Author.ID, err)
		replyAndDelete(s, m.ChannelID, m.ID, "Failed to submit your suggestion. Please try again.")
		return
	}

	replyAndDelete(s, m.ChannelID, m.ID,
		fmt.Sprintf("💡 | Suggestion **#%d** submitted. Others can now vote on it.", rec.ID))
}

// checkSubmission sanitizes and validates the submitted text, returning a
// rejection message when the submission cannot proceed. Validation runs
// before the rate limiter so a malformed submission does not consume the
// submitter's slot.
func (h *Handler) checkSubmission(userID, raw string) (text, rejection string) {
	text = h.sanitizer.Sanitize(strings.TrimSpace(raw))

	length := utf8.RuneCountInString(text)
	if length < minLength || length > maxLength {
		return "", fmt.Sprintf("Suggestions must be between %d and %d characters.", minLength, maxLength)
	}

	if !h.rateLimiter.CanUse(userID) {
		wait := h.rateLimiter.TimeUntilNext(userID)
		return "", fmt.Sprintf("Please wait %d seconds before suggesting again.", int(wait.Seconds()))
	}

	return text, ""
}

// handleAdjudicateCommand accepts either a numeric suggestion id or a copied
// message link. Message links go through the stricter reference path, which
// only acts on records still pending.
func (h *Handler) handleAdjudicateCommand(s *discordgo.Session, m *discordgo.MessageCreate, target suggestions.Status) {
	parts := strings.SplitN(m.Content, " ", 3)
	if len(parts) < 2 {
		return
	}
	refArg := parts[1]
	reason := ""
	if len(parts) == 3 {
		reason = strings.TrimSpace(parts[2])
	}

	caller := callerFromMessage(m)

	var rec *suggestions.Record
	var err error
	if link := messageLinkRe.FindStringSubmatch(refArg); link != nil {
		ref := suggestions.MessageRef{ChannelID: link[1], MessageID: link[2]}
		rec, err = h.engine.AdjudicateByMessage(ref, caller, target, reason)
	} else if id, perr := strconv.ParseUint(refArg, 10, 64); perr == nil {
		rec, err = h.engine.Adjudicate(id, caller, target, reason)
	} else {
		replyAndDelete(s, m.ChannelID, m.ID, "Give me a suggestion number or a message link.")
		return
	}

	if err != nil {
		replyAndDelete(s, m.ChannelID, m.ID, outcomeMessage(err))
		return
	}
	replyAndDelete(s, m.ChannelID, m.ID,
		fmt.Sprintf("Suggestion **#%d** marked %s.", rec.ID, strings.ToLower(string(target))))
}

// HandleInteraction dispatches suggestion buttons and the reject-reason
// modal through the engine's typed operations, keyed by (action, record id)
// parsed from the component custom ID.
func (h *Handler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		h.handleComponent(s, i)
	case discordgo.InteractionModalSubmit:
		h.handleRejectModal(s, i)
	}
}

func (h *Handler) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	action, id, ok := discord.ParseSuggestionCustomID(i.MessageComponentData().CustomID)
	if !ok || i.Member == nil || i.Member.User == nil {
		return
	}

	caller := discord.CallerFromMember(i.Member, i.Member.User.ID)

	switch action {
	case discord.ActionUpvote, discord.ActionDownvote:
		kind := suggestions.VoteUp
		if action == discord.ActionDownvote {
			kind = suggestions.VoteDown
		}
		out, err := h.engine.ApplyVote(id, caller, kind)
		if err != nil {
			respondEphemeral(s, i, voteErrorMessage(err, caller, id, h.engine))
			return
		}
		if out.Retracted {
			respondEphemeral(s, i, fmt.Sprintf("Vote retracted. Now 👍 %d · 👎 %d.", out.Tally.Up, out.Tally.Down))
		} else {
			respondEphemeral(s, i, fmt.Sprintf("Vote recorded. Now 👍 %d · 👎 %d.", out.Tally.Up, out.Tally.Down))
		}

	case discord.ActionApprove:
		h.adjudicateFromButton(s, i, caller, id, suggestions.StatusApproved)

	case discord.ActionImplement:
		h.adjudicateFromButton(s, i, caller, id, suggestions.StatusImplemented)

	case discord.ActionReject:
		// Reasons are optional and arrive through a modal so staff can
		// attach one without a separate command.
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseModal,
			Data: &discordgo.InteractionResponseData{
				CustomID: discord.SuggestionCustomID("rejectmodal", id),
				Title:    fmt.Sprintf("Reject suggestion #%d", id),
				Components: []discordgo.MessageComponent{
					discordgo.ActionsRow{Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    "reason",
							Label:       "Reason (optional)",
							Style:       discordgo.TextInputParagraph,
							Required:    false,
							MaxLength:   500,
							Placeholder: "Why is this suggestion being rejected?",
						},
					}},
				},
			},
		})
		if err != nil {
			log.Printf("suggest: reject modal for #%d failed: %v", id, err)
		}
	}
}

func (h *Handler) adjudicateFromButton(s *discordgo.Session, i *discordgo.InteractionCreate, caller suggestions.Caller, id uint64, target suggestions.Status) {
	rec, err := h.engine.Adjudicate(id, caller, target, "")
	if err != nil {
		respondEphemeral(s, i, outcomeMessage(err))
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("Suggestion **#%d** marked %s.", rec.ID, strings.ToLower(string(target))))
}

func (h *Handler) handleRejectModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	parts := strings.Split(data.CustomID, ":")
	if len(parts) != 3 || parts[0] != "suggest" || parts[1] != "rejectmodal" {
		return
	}
	id, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil || i.Member == nil || i.Member.User == nil {
		return
	}

	reason := ""
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionsRow.Components {
			if input, ok := comp.(*discordgo.TextInput); ok && input.CustomID == "reason" {
				reason = strings.TrimSpace(input.Value)
			}
		}
	}

	caller := discord.CallerFromMember(i.Member, i.Member.User.ID)
	rec, err := h.engine.Adjudicate(id, caller, suggestions.StatusRejected, reason)
	if err != nil {
		respondEphemeral(s, i, outcomeMessage(err))
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("Suggestion **#%d** rejected.", rec.ID))
}

// outcomeMessage maps the engine's error taxonomy to the short human
// messages shown to callers.
func outcomeMessage(err error) string {
	switch {
	case errors.Is(err, suggestions.ErrUnauthorized):
		return "You don't have permission to do that."
	case errors.Is(err, suggestions.ErrAlreadyInStatus):
		return "This suggestion has already been adjudicated."
	case errors.Is(err, suggestions.ErrNotPending):
		return "That suggestion is no longer pending."
	case errors.Is(err, suggestions.ErrNotFound):
		return "I couldn't find that suggestion."
	case errors.Is(err, suggestions.ErrExternalFailure):
		return "Couldn't set up the discussion channel. Nothing was changed — please try again."
	}
	return "Something went wrong. Please try again."
}

func voteErrorMessage(err error, caller suggestions.Caller, id uint64, engine *suggestions.Engine) string {
	if errors.Is(err, suggestions.ErrUnauthorized) {
		if rec, gerr := engine.Store().Get(id); gerr == nil && rec.AuthorID == caller.ID {
			return "You can't vote on your own suggestion."
		}
		return "You don't have permission to vote on suggestions."
	}
	return outcomeMessage(err)
}

func callerFromMessage(m *discordgo.MessageCreate) suggestions.Caller {
	name := m.Author.Username
	if m.Author.GlobalName != "" {
		name = m.Author.GlobalName
	}
	return suggestions.Caller{
		ID:    m.Author.ID,
		Name:  name,
		Roles: m.Member.Roles,
		Admin: false,
	}
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("suggest: interaction response failed: %v", err)
	}
}

func replyAndDelete(s *discordgo.Session, channelID, commandMessageID, content string) {
	msg, err := s.ChannelMessageSend(channelID, content)
	if err != nil {
		log.Printf("suggest: reply failed: %v", err)
		return
	}
	time.AfterFunc(5*time.Second, func() {
		_ = s.ChannelMessageDelete(channelID, msg.ID)
		_ = s.ChannelMessageDelete(channelID, commandMessageID)
	})
}
