package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/threadwarden/threadwarden/internal/common/config"
	"github.com/threadwarden/threadwarden/internal/common/logger"
	"github.com/threadwarden/threadwarden/internal/watchdog"
)

func TestThreadFromChannel(t *testing.T) {
	channel := &discordgo.Channel{
		ID:          "thread-1",
		ParentID:    "forum-1",
		OwnerID:     "owner-1",
		Name:        "how do I frobnicate",
		AppliedTags: []string{"tag-a"},
		ThreadMetadata: &discordgo.ThreadMetadata{
			Archived: true,
		},
	}

	thread := threadFromChannel(channel)
	if thread.ID != "thread-1" || thread.ParentChannelID != "forum-1" || thread.OwnerID != "owner-1" {
		t.Fatalf("unexpected mapping: %+v", thread)
	}
	if !thread.Archived {
		t.Error("expected archived flag carried over")
	}
	if !thread.HasTag("tag-a") {
		t.Error("expected applied tags carried over")
	}

	// Threads fetched outside the active list can lack metadata.
	channel.ThreadMetadata = nil
	if threadFromChannel(channel).Archived {
		t.Error("missing metadata must not read as archived")
	}
}

func TestHasErrCode(t *testing.T) {
	err := &discordgo.RESTError{
		Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMember},
	}
	if !isUnknownMember(err) {
		t.Error("expected unknown member code recognized")
	}
	if isUnknownChannel(err) {
		t.Error("unknown member must not read as unknown channel")
	}

	if isUnknownMember(&discordgo.RESTError{}) {
		t.Error("RESTError without a message must not match")
	}
}

func TestIsAdmin(t *testing.T) {
	h := NewInteractions(&watchdog.Service{}, config.DiscordConfig{AdminRoleID: "role-admin"}, logger.Default())

	interaction := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Member: &discordgo.Member{Roles: []string{"role-x", "role-admin"}},
		},
	}
	if !h.isAdmin(interaction) {
		t.Error("expected member with admin role accepted")
	}

	interaction.Member.Roles = []string{"role-x"}
	if h.isAdmin(interaction) {
		t.Error("expected member without admin role rejected")
	}

	// No configured role leaves gating to Discord command permissions.
	open := NewInteractions(&watchdog.Service{}, config.DiscordConfig{}, logger.Default())
	if !open.isAdmin(interaction) {
		t.Error("expected open access with no admin role configured")
	}
}

func TestInteractionUserID(t *testing.T) {
	fromGuild := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Member: &discordgo.Member{User: &discordgo.User{ID: "u1"}},
		},
	}
	if got := interactionUserID(fromGuild); got != "u1" {
		t.Errorf("expected u1, got %q", got)
	}

	fromDM := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "u2"}},
	}
	if got := interactionUserID(fromDM); got != "u2" {
		t.Errorf("expected u2, got %q", got)
	}

	if got := interactionUserID(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
}

func TestCommandDefinitions(t *testing.T) {
	defs := commandDefinitions()
	names := make(map[string]bool, len(defs))
	for _, def := range defs {
		names[def.Name] = true
	}
	for _, want := range []string{commandResolve, commandExclude, commandSweep} {
		if !names[want] {
			t.Errorf("missing command %q", want)
		}
	}
}
