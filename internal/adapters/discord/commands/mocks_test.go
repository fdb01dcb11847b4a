package commands

import (
	"context"
	"net/http"

	"voice-greeter/internal/core/domain"

	"github.com/bwmarrin/discordgo"
)

type mockDiscordSession struct {
	interactionRespondFunc func(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse) error
	interactionEditFunc    func(interaction *discordgo.Interaction, edit *discordgo.WebhookEdit) error

	responses []*discordgo.InteractionResponse
	edits     []string

	lastInteractionResponse *discordgo.InteractionResponse
}

func (m *mockDiscordSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, opts ...discordgo.RequestOption) error {
	m.lastInteractionResponse = resp
	m.responses = append(m.responses, resp)
	if m.interactionRespondFunc != nil {
		return m.interactionRespondFunc(interaction, resp)
	}
	return nil
}

func (m *mockDiscordSession) InteractionResponseEdit(interaction *discordgo.Interaction, edit *discordgo.WebhookEdit, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
	if edit.Content != nil {
		m.edits = append(m.edits, *edit.Content)
	}
	if m.interactionEditFunc != nil {
		if err := m.interactionEditFunc(interaction, edit); err != nil {
			return nil, err
		}
	}
	return &discordgo.Message{}, nil
}

type mockDispatcher struct {
	operatorID   string
	dispatchFunc func(ctx context.Context, req domain.CommandRequest) (string, error)
	requests     []domain.CommandRequest
}

func (m *mockDispatcher) Authorized(userID string) bool { return userID == m.operatorID }

func (m *mockDispatcher) Dispatch(ctx context.Context, req domain.CommandRequest) (string, error) {
	m.requests = append(m.requests, req)
	if m.dispatchFunc != nil {
		return m.dispatchFunc(ctx, req)
	}
	return "ok", nil
}

func (m *mockDispatcher) Commands() []string { return []string{"ping", "play"} }

type mockCommandSession struct {
	bulkOverwriteFunc func(appID, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error)

	lastAppID    string
	lastGuildID  string
	lastCommands []*discordgo.ApplicationCommand
}

func (m *mockCommandSession) ApplicationCommandBulkOverwrite(appID, guildID string, cmds []*discordgo.ApplicationCommand, opts ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	m.lastAppID = appID
	m.lastGuildID = guildID
	m.lastCommands = cmds
	if m.bulkOverwriteFunc != nil {
		return m.bulkOverwriteFunc(appID, guildID, cmds)
	}
	return cmds, nil
}

type mockChoiceSource struct {
	records []domain.GuildRecord
	err     error
	clips   []string
}

func (m *mockChoiceSource) ReadRegistry() ([]domain.GuildRecord, error) { return m.records, m.err }
func (m *mockChoiceSource) ListCommonClips() []string                   { return m.clips }

func staleInteractionError() error {
	return &discordgo.RESTError{
		Response:     &http.Response{Status: "404 Not Found", StatusCode: http.StatusNotFound},
		ResponseBody: []byte(`{"message": "Unknown interaction", "code": 10062}`),
		Message:      &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownInteraction, Message: "Unknown interaction"},
	}
}

func makeCommandInteraction(name, userID string, opts map[string]string) *discordgo.InteractionCreate {
	var options []*discordgo.ApplicationCommandInteractionDataOption
	for k, v := range opts {
		options = append(options, &discordgo.ApplicationCommandInteractionDataOption{
			Name:  k,
			Type:  discordgo.ApplicationCommandOptionString,
			Value: v,
		})
	}
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: "guild-1",
			Member:  &discordgo.Member{User: &discordgo.User{ID: userID}},
			Data:    discordgo.ApplicationCommandInteractionData{Name: name, Options: options},
		},
	}
}
