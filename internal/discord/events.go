package discord

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/threadwarden/threadwarden/internal/common/config"
	"github.com/threadwarden/threadwarden/internal/common/logger"
	"github.com/threadwarden/threadwarden/internal/watchdog"
)

// GatewayEvents clears watchdog state when threads reach a terminal state
// outside the watchdog: a moderator archiving or deleting a thread, or the
// resolved tag being applied by hand.
type GatewayEvents struct {
	service *watchdog.Service
	cfg     config.DiscordConfig
	logger  *logger.Logger
}

// NewGatewayEvents creates the gateway event handler.
func NewGatewayEvents(svc *watchdog.Service, cfg config.DiscordConfig, log *logger.Logger) *GatewayEvents {
	return &GatewayEvents{
		service: svc,
		cfg:     cfg,
		logger:  log.WithFields(zap.String("component", "gateway-events")),
	}
}

// Register attaches the handlers to the session.
func (g *GatewayEvents) Register(session *discordgo.Session) {
	session.AddHandler(g.onThreadUpdate)
	session.AddHandler(g.onThreadDelete)
}

func (g *GatewayEvents) onThreadUpdate(_ *discordgo.Session, t *discordgo.ThreadUpdate) {
	if t.ParentID != g.cfg.ForumChannelID {
		return
	}

	thread := threadFromChannel(t.Channel)
	if thread.Archived || (g.cfg.ResolvedTagID != "" && thread.HasTag(g.cfg.ResolvedTagID)) {
		g.service.MarkThreadAsHandled(thread.ID)
		g.logger.WithThreadID(thread.ID).Debug("cleared pending closure after external transition")
	}
}

func (g *GatewayEvents) onThreadDelete(_ *discordgo.Session, t *discordgo.ThreadDelete) {
	if t.ParentID != g.cfg.ForumChannelID {
		return
	}
	g.service.MarkThreadAsHandled(t.ID)
	g.logger.WithThreadID(t.ID).Debug("cleared pending closure after thread deletion")
}
