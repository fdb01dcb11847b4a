package autoplay

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"voice-greeter/internal/core/domain"
	"voice-greeter/internal/core/ports"
)

// Readiness flips once the startup reconciliation has finished.
type Readiness struct {
	ready atomic.Bool
}

func (r *Readiness) MarkReady()  { r.ready.Store(true) }
func (r *Readiness) Ready() bool { return r.ready.Load() }

// Trigger greets a lone member joining an empty voice channel.
type Trigger struct {
	readiness *Readiness
	guilds    ports.GuildDirectory
	library   ports.LibraryStore
	sessions  ports.SessionController
}

func NewTrigger(readiness *Readiness, guilds ports.GuildDirectory, library ports.LibraryStore, sessions ports.SessionController) *Trigger {
	return &Trigger{
		readiness: readiness,
		guilds:    guilds,
		library:   library,
		sessions:  sessions,
	}
}

func (t *Trigger) HandleTransition(ctx context.Context, ev domain.VoiceTransition) {
	if !t.readiness.Ready() {
		return
	}
	if ev.Bot || ev.FromChannelID != "" || ev.ToChannelID == "" {
		return
	}

	channel, err := t.guilds.VoiceChannel(ev.GuildID, ev.ToChannelID)
	if err != nil {
		slog.Warn("Failed to inspect voice channel", "guild_id", ev.GuildID, "channel_id", ev.ToChannelID, "error", err)
		return
	}

	if !isSoleHuman(channel, ev.UserID) {
		return
	}

	if t.sessions.Has(ev.GuildID) {
		return
	}

	path, ok := t.pickGreeting(ev.GuildID)
	if !ok {
		slog.Debug("No greeting clip available", "guild_id", ev.GuildID)
		return
	}

	if _, err := t.sessions.Start(ctx, channel, path, domain.TriggerAuto); err != nil {
		slog.Error("Failed to start greeting", "guild_id", ev.GuildID, "channel_id", channel.ID, "error", err)
	}
}

// pickGreeting chooses a clip from the guild folder, falling back to the
// shared default folder.
func (t *Trigger) pickGreeting(guildID string) (string, bool) {
	if dir, ok := t.library.FindGuildDir(guildID); ok {
		if name, ok := t.library.PickRandom(dir); ok {
			return filepath.Join(dir, name), true
		}
	}

	dir := t.library.DefaultDir()
	if name, ok := t.library.PickRandom(dir); ok {
		return filepath.Join(dir, name), true
	}
	return "", false
}

func isSoleHuman(channel domain.VoiceChannel, userID string) bool {
	var humans []string
	for _, o := range channel.Occupants {
		if !o.Bot {
			humans = append(humans, o.UserID)
		}
	}
	return len(humans) == 1 && humans[0] == userID
}
