package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/threadwarden/threadwarden/internal/common/config"
	apperrors "github.com/threadwarden/threadwarden/internal/common/errors"
	"github.com/threadwarden/threadwarden/internal/common/logger"
	"github.com/threadwarden/threadwarden/internal/forum"
	"github.com/threadwarden/threadwarden/internal/watchdog"
)

// Interactions routes Discord component and command interactions to the
// watchdog service.
type Interactions struct {
	service *watchdog.Service
	cfg     config.DiscordConfig
	logger  *logger.Logger
}

// NewInteractions creates the interaction router.
func NewInteractions(svc *watchdog.Service, cfg config.DiscordConfig, log *logger.Logger) *Interactions {
	return &Interactions{
		service: svc,
		cfg:     cfg,
		logger:  log.WithFields(zap.String("component", "interactions")),
	}
}

// Register attaches the router to the session.
func (h *Interactions) Register(session *discordgo.Session) {
	session.AddHandler(h.handle)
}

func (h *Interactions) handle(session *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		if i.MessageComponentData().CustomID == ContinueButtonID {
			h.handleContinue(ctx, session, i)
		}
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		switch data.Name {
		case commandResolve:
			h.handleResolve(ctx, session, i)
		case commandExclude:
			h.handleExclude(ctx, session, i)
		case commandSweep:
			h.handleSweep(ctx, session, i)
		}
	}
}

func (h *Interactions) handleContinue(ctx context.Context, session *discordgo.Session, i *discordgo.InteractionCreate) {
	thread, err := h.fetchThread(session, i.ChannelID)
	if err != nil {
		h.logger.Error("failed to fetch thread for continue", zap.Error(err))
		h.respond(session, i, "Something went wrong, try again later.")
		return
	}

	err = h.service.Continue(ctx, *thread, interactionUserID(i))
	switch {
	case apperrors.IsPermissionDenied(err):
		h.respond(session, i, "Only the thread owner can continue this thread.")
	case apperrors.IsNotFound(err):
		h.respond(session, i, "This thread is not scheduled for closure.")
	case err != nil:
		h.logger.WithThreadID(thread.ID).Error("continue failed", zap.Error(err))
		h.respond(session, i, "Something went wrong, try again later.")
	default:
		h.respond(session, i, "Thread kept open. It stays eligible for future inactivity checks.")
	}
}

func (h *Interactions) handleResolve(ctx context.Context, session *discordgo.Session, i *discordgo.InteractionCreate) {
	thread, err := h.fetchThread(session, i.ChannelID)
	if err != nil {
		h.logger.Error("failed to fetch thread for resolve", zap.Error(err))
		h.respond(session, i, "Something went wrong, try again later.")
		return
	}

	err = h.service.MarkResolved(ctx, *thread, interactionUserID(i))
	switch {
	case apperrors.IsPermissionDenied(err):
		h.respond(session, i, "Only the thread owner can mark this thread as resolved.")
	case err != nil:
		h.logger.WithThreadID(thread.ID).Error("resolve failed", zap.Error(err))
		h.respond(session, i, "Something went wrong, try again later.")
	default:
		h.respond(session, i, "Thread marked as resolved and archived.")
	}
}

func (h *Interactions) handleExclude(ctx context.Context, session *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.isAdmin(i) {
		h.respond(session, i, "You need the watchdog admin role to manage exclusions.")
		return
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}
	sub := options[0]

	switch sub.Name {
	case "add", "remove":
		if len(sub.Options) == 0 {
			h.respond(session, i, "A channel or thread id is required.")
			return
		}
		id := sub.Options[0].StringValue()
		var err error
		if sub.Name == "add" {
			err = h.service.Exclusions().Add(ctx, id)
		} else {
			err = h.service.Exclusions().Remove(ctx, id)
		}
		if err != nil {
			h.logger.Error("exclusion update failed", zap.String("id", id), zap.Error(err))
			h.respond(session, i, "Failed to update exclusions, try again later.")
			return
		}
		h.respond(session, i, fmt.Sprintf("Exclusion %s updated: `%s`", sub.Name, id))

	case "list":
		ids := h.service.Exclusions().List(ctx)
		if len(ids) == 0 {
			h.respond(session, i, "No exclusions configured.")
			return
		}
		msg := "Excluded channels and threads:\n"
		for _, id := range ids {
			msg += fmt.Sprintf("- `%s`\n", id)
		}
		h.respond(session, i, msg)
	}
}

func (h *Interactions) handleSweep(ctx context.Context, session *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.isAdmin(i) {
		h.respond(session, i, "You need the watchdog admin role to trigger a sweep.")
		return
	}

	// Acknowledge first: a sweep over a large forum exceeds the 3 second
	// interaction deadline.
	if err := session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		h.logger.Error("failed to defer sweep response", zap.Error(err))
		return
	}

	result, err := h.service.ManualSweep(ctx)
	content := fmt.Sprintf("Sweep complete: %d processed, %d notified, %d auto-archived, %d errors.",
		result.Processed, result.Notified, result.AutoArchived, result.Errors)
	if err != nil {
		h.logger.Error("manual sweep failed", zap.Error(err))
		content = "Sweep failed, check the logs."
	}

	if _, err := session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}); err != nil {
		h.logger.Error("failed to send sweep followup", zap.Error(err))
	}
}

func (h *Interactions) fetchThread(session *discordgo.Session, channelID string) (*forum.Thread, error) {
	channel, err := session.Channel(channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel %s: %w", channelID, err)
	}
	thread := threadFromChannel(channel)
	return &thread, nil
}

// isAdmin reports whether the invoking member carries the configured admin
// role. With no role configured the admin commands are open; permission
// scoping is then expected to come from Discord's own command permissions.
func (h *Interactions) isAdmin(i *discordgo.InteractionCreate) bool {
	if h.cfg.AdminRoleID == "" {
		return true
	}
	if i.Member == nil {
		return false
	}
	for _, role := range i.Member.Roles {
		if role == h.cfg.AdminRoleID {
			return true
		}
	}
	return false
}

func (h *Interactions) respond(session *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		h.logger.Error("failed to respond to interaction", zap.Error(err))
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
