// Package discord adapts a discordgo session to the forum.Client interface
// and hosts the interaction handlers for the watchdog's buttons and commands.
package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/threadwarden/threadwarden/internal/common/config"
	"github.com/threadwarden/threadwarden/internal/common/logger"
	"github.com/threadwarden/threadwarden/internal/forum"
)

// ContinueButtonID is the custom id of the keep-open button attached to
// inactivity notifications.
const ContinueButtonID = "watchdog:continue"

// Client implements forum.Client over a discordgo session.
type Client struct {
	session *discordgo.Session
	cfg     config.DiscordConfig
	logger  *logger.Logger
}

var _ forum.Client = (*Client)(nil)

// NewClient wraps an open discordgo session.
func NewClient(session *discordgo.Session, cfg config.DiscordConfig, log *logger.Logger) *Client {
	return &Client{
		session: session,
		cfg:     cfg,
		logger:  log.WithFields(zap.String("component", "discord")),
	}
}

// ListActiveThreads returns the non-archived threads under channelID. Discord
// only exposes active threads per guild, so the result is filtered by parent.
func (c *Client) ListActiveThreads(ctx context.Context, channelID string) ([]forum.Thread, error) {
	list, err := c.session.GuildThreadsActive(c.cfg.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list active guild threads: %w", err)
	}

	var threads []forum.Thread
	for _, channel := range list.Threads {
		if channel.ParentID != channelID {
			continue
		}
		threads = append(threads, threadFromChannel(channel))
	}
	return threads, nil
}

// LastActivityAt returns the timestamp of the newest message in the thread.
// Threads whose starter message was deleted fall back to the thread's own
// creation time, derived from its snowflake.
func (c *Client) LastActivityAt(ctx context.Context, threadID string) (time.Time, error) {
	messages, err := c.session.ChannelMessages(threadID, 1, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		if isUnknownChannel(err) {
			return time.Time{}, forum.ErrThreadNotFound
		}
		return time.Time{}, fmt.Errorf("failed to fetch latest message: %w", err)
	}
	if len(messages) > 0 {
		return messages[0].Timestamp, nil
	}

	created, err := discordgo.SnowflakeTimestamp(threadID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to derive thread creation time: %w", err)
	}
	return created, nil
}

// SendNotification posts the inactivity prompt with the keep-open button.
func (c *Client) SendNotification(ctx context.Context, n forum.Notification) error {
	content := fmt.Sprintf(
		"<@%s> This thread has had no activity for %s. It will be closed in 24 hours unless you continue it or mark it as resolved.",
		n.OwnerID, forum.HumanizeDuration(n.InactiveFor))

	_, err := c.session.ChannelMessageSendComplex(n.ThreadID, &discordgo.MessageSend{
		Content: content,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Continue thread",
						Style:    discordgo.PrimaryButton,
						CustomID: ContinueButtonID,
					},
				},
			},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send inactivity notification: %w", err)
	}
	return nil
}

// SendMessage posts a plain message into the thread.
func (c *Client) SendMessage(ctx context.Context, threadID, content string) error {
	if _, err := c.session.ChannelMessageSend(threadID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// ApplyTags replaces the thread's applied tag set.
func (c *Client) ApplyTags(ctx context.Context, threadID string, tagIDs []string) error {
	if _, err := c.session.ChannelEditComplex(threadID, &discordgo.ChannelEdit{
		AppliedTags: &tagIDs,
	}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to edit thread tags: %w", err)
	}
	return nil
}

// ArchiveThread archives the thread.
func (c *Client) ArchiveThread(ctx context.Context, threadID string) error {
	archived := true
	if _, err := c.session.ChannelEditComplex(threadID, &discordgo.ChannelEdit{
		Archived: &archived,
	}, discordgo.WithContext(ctx)); err != nil {
		if isUnknownChannel(err) {
			return forum.ErrThreadNotFound
		}
		return fmt.Errorf("failed to archive thread: %w", err)
	}
	return nil
}

// ResolveMember resolves a guild member, mapping Discord's unknown-member
// error family to forum.ErrMemberGone.
func (c *Client) ResolveMember(ctx context.Context, userID string) (*forum.Member, error) {
	member, err := c.session.GuildMember(c.cfg.GuildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if isUnknownMember(err) {
			return nil, forum.ErrMemberGone
		}
		return nil, fmt.Errorf("failed to resolve guild member: %w", err)
	}
	return &forum.Member{ID: userID, RoleIDs: member.Roles}, nil
}

func threadFromChannel(channel *discordgo.Channel) forum.Thread {
	thread := forum.Thread{
		ID:              channel.ID,
		ParentChannelID: channel.ParentID,
		OwnerID:         channel.OwnerID,
		Name:            channel.Name,
		AppliedTags:     channel.AppliedTags,
	}
	if channel.ThreadMetadata != nil {
		thread.Archived = channel.ThreadMetadata.Archived
	}
	return thread
}

func isUnknownMember(err error) bool {
	return hasErrCode(err, discordgo.ErrCodeUnknownMember) || hasErrCode(err, discordgo.ErrCodeUnknownUser)
}

func isUnknownChannel(err error) bool {
	return hasErrCode(err, discordgo.ErrCodeUnknownChannel)
}

func hasErrCode(err error, code int) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		return restErr.Message.Code == code
	}
	return false
}
