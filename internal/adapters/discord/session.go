package discord

import (
	"log/slog"

	"voice-greeter/internal/config"

	"github.com/bwmarrin/discordgo"
)

// Intents covers guild membership and voice states. Message content is never
// read.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

func NewSession(cfg *config.Config) (*discordgo.Session, error) {
	discord, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		slog.Error("Failed to create discord session", "error", err)
		return nil, err
	}

	discord.Identify.Intents = Intents
	discord.StateEnabled = true
	discord.State.TrackVoice = true
	discord.State.TrackChannels = true
	discord.State.TrackMembers = true

	return discord, nil
}
