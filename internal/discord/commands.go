package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	commandResolve = "resolve"
	commandExclude = "exclude"
	commandSweep   = "sweep"
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        commandResolve,
			Description: "Mark this thread as resolved and archive it",
		},
		{
			Name:        commandExclude,
			Description: "Manage channels and threads the inactivity watchdog skips",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Exclude a channel or thread from inactivity scanning",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "id",
							Description: "Channel or thread id",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Re-enable inactivity scanning for a channel or thread",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "id",
							Description: "Channel or thread id",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List current exclusions",
				},
			},
		},
		{
			Name:        commandSweep,
			Description: "Run an inactivity pass now",
		},
	}
}

// RegisterCommands overwrites the guild's application commands with the
// watchdog command set.
func RegisterCommands(session *discordgo.Session, guildID string) error {
	appID := session.State.User.ID
	if _, err := session.ApplicationCommandBulkOverwrite(appID, guildID, commandDefinitions()); err != nil {
		return fmt.Errorf("failed to register application commands: %w", err)
	}
	return nil
}
