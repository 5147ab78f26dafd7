// Package enrich drafts support replies, broadcasts, and welcome
// messages through an optional external text-generation service. Every
// call has a deterministic local fallback and a hard timeout: an
// enrichment failure is absorbed, never surfaced, and never blocks a
// lifecycle operation.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Tone selects the register of a drafted broadcast.
type Tone string

const (
	ToneUrgent Tone = "urgent"
	ToneCasual Tone = "casual"
	ToneFormal Tone = "formal"
)

// Service drafts operator-facing text. Implementations must never
// return an error: when the upstream is unavailable the deterministic
// fallback text is substituted.
type Service interface {
	// SuggestReply drafts a short support reply acknowledging the user's message.
	SuggestReply(ctx context.Context, userMessage string) string
	// DraftBroadcast drafts an announcement about the topic in the given tone.
	DraftBroadcast(ctx context.Context, topic string, tone Tone) string
	// DraftWelcome drafts a welcome message for a newly approved user.
	DraftWelcome(ctx context.Context, username string) string
}

// Fallback is the deterministic Service used when no upstream is
// configured. Its outputs are also the substitutes on upstream failure.
type Fallback struct{}

// SuggestReply returns the canned acknowledgement.
func (Fallback) SuggestReply(context.Context, string) string {
	return "Thank you for your message. An admin will review it shortly."
}

// DraftBroadcast returns a plain announcement of the topic.
func (Fallback) DraftBroadcast(_ context.Context, topic string, _ Tone) string {
	return fmt.Sprintf("Announcement: %s", topic)
}

// DraftWelcome returns a plain welcome for the username.
func (Fallback) DraftWelcome(_ context.Context, username string) string {
	return fmt.Sprintf("Welcome %s! We are excited to have you. Please wait for your unique access code.", username)
}

// Completer is the upstream text-generation contract. The control plane
// does not care which provider sits behind it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client is a Service backed by a Completer, with the Fallback standing
// in whenever the upstream errors, times out, or returns empty text.
type Client struct {
	completer Completer
	fallback  Fallback
	timeout   time.Duration
	log       zerolog.Logger
}

// NewClient wraps a completer with fallback behavior and a per-call timeout.
func NewClient(completer Completer, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		completer: completer,
		timeout:   timeout,
		log:       log.With().Str("component", "enrich").Logger(),
	}
}

func (c *Client) complete(ctx context.Context, prompt, fallback string) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		c.log.Debug().Err(err).Msg("enrichment call failed, using fallback")
		return fallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback
	}
	return text
}

// SuggestReply drafts a concise acknowledgement of the user's message.
func (c *Client) SuggestReply(ctx context.Context, userMessage string) string {
	prompt := fmt.Sprintf(
		"You are a support bot for a VPN service. A user said: %q. Draft a polite, professional, and concise response (max 1 sentence) acknowledging the issue.",
		userMessage,
	)
	return c.complete(ctx, prompt, c.fallback.SuggestReply(ctx, userMessage))
}

// DraftBroadcast drafts an announcement for all users.
func (c *Client) DraftBroadcast(ctx context.Context, topic string, tone Tone) string {
	prompt := fmt.Sprintf(
		"Write a short, engaging announcement message (under 300 characters) for users of the GhostLayer network. Topic: %s. Tone: %s. Use plain text.",
		topic, tone,
	)
	return c.complete(ctx, prompt, c.fallback.DraftBroadcast(ctx, topic, tone))
}

// DraftWelcome drafts a welcome message for a newly approved user.
func (c *Client) DraftWelcome(ctx context.Context, username string) string {
	prompt := fmt.Sprintf(
		"Generate a short, mysterious but welcoming message for a new user named %q joining an exclusive private network called GhostLayer. Keep it under 200 characters.",
		username,
	)
	return c.complete(ctx, prompt, c.fallback.DraftWelcome(ctx, username))
}
