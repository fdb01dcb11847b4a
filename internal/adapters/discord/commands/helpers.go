package commands

import (
	"errors"

	"voice-greeter/internal/core/domain"

	"github.com/bwmarrin/discordgo"
)

func respond(s DiscordSession, i *discordgo.InteractionCreate, msg string, ephemeral bool) error {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}

	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   flags,
		},
	})
}

// deferReply acknowledges the interaction so the final answer can be sent
// later with editReply.
func deferReply(s DiscordSession, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

func editReply(s DiscordSession, i *discordgo.InteractionCreate, msg string) error {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &msg,
	})
	return err
}

// isStaleInteraction reports whether Discord rejected a reply because the
// interaction token is no longer valid.
func isStaleInteraction(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Message == nil {
		return false
	}
	return restErr.Message.Code == discordgo.ErrCodeUnknownInteraction
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

func toRequest(i *discordgo.InteractionCreate) domain.CommandRequest {
	data := i.ApplicationCommandData()

	opts := make(map[string]string, len(data.Options))
	for _, opt := range data.Options {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			opts[opt.Name] = opt.StringValue()
		}
	}

	return domain.CommandRequest{
		Name:    data.Name,
		UserID:  interactionUserID(i),
		Options: opts,
	}
}
