package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"voice-greeter/internal/core/domain"
	"voice-greeter/internal/core/services/operator"

	"github.com/bwmarrin/discordgo"
)

const (
	maxChoices     = 25
	maxChoiceChars = 100
)

// GetApplicationCommands builds the command definitions. Guild and clip
// choices are capped at Discord's limit of 25.
func GetApplicationCommands(guilds []domain.GuildRecord, clips []string) []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        operator.CommandPing,
			Description: "Check that the bot is alive",
		},
		{
			Name:        operator.CommandStatus,
			Description: "Show active voice sessions",
		},
		{
			Name:        operator.CommandUnmute,
			Description: "Unmute the bot on every server where it is muted",
		},
		{
			Name:        operator.CommandPlay,
			Description: "Play a clip from the common library",
			Options: []*discordgo.ApplicationCommandOption{
				stringOption(operator.OptionServerID, "Server to play on", guildChoices(guilds)),
				stringOption(operator.OptionFile, "Clip to play", clipChoices(clips)),
			},
		},
	}
}

func stringOption(name, description string, choices []*discordgo.ApplicationCommandOptionChoice) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Choices:     choices,
	}
}

func guildChoices(guilds []domain.GuildRecord) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, min(len(guilds), maxChoices))
	for _, g := range guilds {
		if len(choices) == maxChoices {
			break
		}
		name := g.Name
		if name == "" {
			name = g.ID
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(name, maxChoiceChars),
			Value: g.ID,
		})
	}
	return choices
}

func clipChoices(clips []string) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, min(len(clips), maxChoices))
	for _, clip := range clips {
		if len(choices) == maxChoices {
			break
		}
		// the value must round-trip exactly, so long names cannot be offered
		if utf8.RuneCountInString(clip) > maxChoiceChars {
			slog.Warn("Clip name too long to offer as a choice", "file", clip)
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  clip,
			Value: clip,
		})
	}
	return choices
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// Publisher uploads the global command set, replacing whatever was there.
type Publisher struct {
	session CommandSession
	source  ChoiceSource
	appID   func() string
}

func NewPublisher(session CommandSession, source ChoiceSource, appID func() string) *Publisher {
	return &Publisher{session: session, source: source, appID: appID}
}

func (p *Publisher) Publish(ctx context.Context) error {
	appID := p.appID()
	if appID == "" {
		return errors.New("application id not known yet")
	}

	guilds, err := p.source.ReadRegistry()
	if err != nil {
		return fmt.Errorf("read registry: %w", err)
	}

	cmds := GetApplicationCommands(guilds, p.source.ListCommonClips())
	registered, err := p.session.ApplicationCommandBulkOverwrite(appID, "", cmds, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("publish commands: %w", err)
	}

	slog.Info("Published commands", "count", len(registered), "guilds", len(guilds))
	return nil
}
