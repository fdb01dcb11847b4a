package ports

import (
	"context"

	"voice-greeter/internal/core/domain"
)

type LibraryStore interface {
	EnsureLayout() error
	ReadRegistry() ([]domain.GuildRecord, error)
	WriteRegistry(records []domain.GuildRecord) error
	AppendGuild(record domain.GuildRecord) error

	EnsureGuildDir(record domain.GuildRecord) error
	FindGuildDir(guildID string) (string, bool)
	DefaultDir() string
	CommonDir() string
	ListLibraryDirs() ([]string, error)
	RemoveDir(name string) error

	ListAudioFiles(dir string) []string
	ListCommonClips() []string
	PickRandom(dir string) (string, bool)
}

// GuildDirectory answers questions about guilds the bot currently belongs to.
type GuildDirectory interface {
	// Guilds includes guilds in an outage, marked Unavailable.
	Guilds() []domain.GuildRecord
	Guild(guildID string) (domain.GuildRecord, bool)
	VoiceChannel(guildID, channelID string) (domain.VoiceChannel, error)
	VoiceChannels(guildID string) ([]domain.VoiceChannel, error)
	// SelfVoiceMuted reports whether the bot sits in a voice channel of the
	// guild while server-muted.
	SelfVoiceMuted(guildID string) bool
	SetSelfMute(ctx context.Context, guildID string, mute bool) error
}

// VoiceConnection is one joined voice channel.
type VoiceConnection interface {
	// Play starts streaming the file and returns a channel that receives
	// exactly one value when playback ends: nil on natural end, the failure
	// otherwise. Cancelling ctx stops playback.
	Play(ctx context.Context, path string) <-chan error
	Close() error
}

type VoiceTransport interface {
	Connect(ctx context.Context, guildID, channelID string) (VoiceConnection, error)
}

// CommandPublisher re-uploads command definitions so choice lists follow the
// registry and clip library.
type CommandPublisher interface {
	Publish(ctx context.Context) error
}

type SessionController interface {
	Start(ctx context.Context, channel domain.VoiceChannel, path string, trigger domain.Trigger) (domain.SessionInfo, error)
	Has(guildID string) bool
	List() []domain.SessionInfo
}
