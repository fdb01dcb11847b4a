package commands

import (
	"log/slog"

	"voice-greeter/internal/formatting"

	"github.com/bwmarrin/discordgo"
)

type Authorizer interface {
	Authorized(userID string) bool
}

// WithOperator answers anyone but the operator with an immediate denial.
func WithOperator(auth Authorizer, next CommandHandler) CommandHandler {
	return func(s DiscordSession, i *discordgo.InteractionCreate) {
		userID := interactionUserID(i)
		if !auth.Authorized(userID) {
			slog.Warn("Denied command", "user_id", userID, "command", i.ApplicationCommandData().Name)
			if err := respond(s, i, formatting.MsgDenied, true); err != nil {
				logReplyError("denial", err)
			}
			return
		}
		next(s, i)
	}
}

func logReplyError(stage string, err error) {
	if isStaleInteraction(err) {
		slog.Warn("Interaction expired, abandoning reply", "stage", stage)
		return
	}
	slog.Error("Failed to reply to interaction", "stage", stage, "error", err)
}
