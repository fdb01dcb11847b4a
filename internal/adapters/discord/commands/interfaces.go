package commands

import (
	"context"

	"voice-greeter/internal/core/domain"

	"github.com/bwmarrin/discordgo"
)

type DiscordSession interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type CommandSession interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Dispatcher runs operator commands by name.
type Dispatcher interface {
	Authorized(userID string) bool
	Dispatch(ctx context.Context, req domain.CommandRequest) (string, error)
	Commands() []string
}

// ChoiceSource provides the values offered as command option choices.
type ChoiceSource interface {
	ReadRegistry() ([]domain.GuildRecord, error)
	ListCommonClips() []string
}
