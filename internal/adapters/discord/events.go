package discord

import (
	"context"
	"log/slog"
	"time"

	"voice-greeter/internal/core/domain"
	"voice-greeter/internal/core/ports"
	"voice-greeter/internal/core/services/library"

	"github.com/bwmarrin/discordgo"
)

type GuildSync interface {
	Reconcile(ctx context.Context, live []domain.GuildRecord) (library.Result, error)
	AddGuild(ctx context.Context, g domain.GuildRecord) error
	RemoveGuild(ctx context.Context, guildID string) error
}

type TransitionHandler interface {
	HandleTransition(ctx context.Context, ev domain.VoiceTransition)
}

type SessionEnder interface {
	End(guildID string)
}

type Readiness interface {
	MarkReady()
	Ready() bool
}

// Handlers turns gateway events into library and voice operations.
type Handlers struct {
	directory ports.GuildDirectory
	sync      GuildSync
	trigger   TransitionHandler
	sessions  SessionEnder
	readiness Readiness
	gate      *startupGate
}

func NewHandlers(directory ports.GuildDirectory, sync GuildSync, trigger TransitionHandler, sessions SessionEnder, readiness Readiness, startupTimeout time.Duration) *Handlers {
	h := &Handlers{
		directory: directory,
		sync:      sync,
		trigger:   trigger,
		sessions:  sessions,
		readiness: readiness,
	}
	h.gate = newStartupGate(startupTimeout, h.startupReconcile)
	return h
}

func (h *Handlers) Register(s *discordgo.Session) {
	s.AddHandler(h.Ready)
	s.AddHandler(h.GuildCreate)
	s.AddHandler(h.GuildDelete)
	s.AddHandler(h.VoiceStateUpdate)
}

func (h *Handlers) Ready(s *discordgo.Session, r *discordgo.Ready) {
	username := ""
	if r.User != nil {
		username = r.User.Username
	}
	slog.Info("Voice greeter is online!", "user", username, "guilds", len(r.Guilds))

	ids := make([]string, 0, len(r.Guilds))
	for _, g := range r.Guilds {
		ids = append(ids, g.ID)
	}
	h.gate.Arm(ids)
}

func (h *Handlers) GuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	if h.gate.Arrive(g.ID) {
		slog.Debug("Guild delivered during startup", "guild_id", g.ID, "waiting", h.gate.Waiting())
		return
	}

	slog.Info("Joined guild", "guild_id", g.ID, "guild_name", g.Name)
	if err := h.sync.AddGuild(context.Background(), domain.GuildRecord{ID: g.ID, Name: g.Name}); err != nil {
		slog.Error("Failed to register guild", "guild_id", g.ID, "error", err)
	}
}

func (h *Handlers) GuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Guild == nil {
		return
	}
	// outage, not a removal
	if g.Unavailable {
		slog.Warn("Guild became unavailable", "guild_id", g.ID)
		return
	}

	slog.Info("Left guild", "guild_id", g.ID)
	h.sessions.End(g.ID)
	if err := h.sync.RemoveGuild(context.Background(), g.ID); err != nil {
		slog.Error("Failed to unregister guild", "guild_id", g.ID, "error", err)
	}
}

func (h *Handlers) VoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.VoiceState == nil {
		return
	}
	ev := toTransition(v)
	if s != nil && s.State != nil && s.State.User != nil && v.UserID == s.State.User.ID {
		ev.Bot = true
	}
	h.trigger.HandleTransition(context.Background(), ev)
}

func (h *Handlers) startupReconcile() {
	live := h.directory.Guilds()
	res, err := h.sync.Reconcile(context.Background(), live)
	if err != nil {
		slog.Error("Startup reconciliation had failures", "failures", res.Failures, "error", err)
	}

	if !h.readiness.Ready() {
		h.readiness.MarkReady()
		slog.Info("Startup complete, greeting enabled", "guilds", len(live))
	}
}

func toTransition(v *discordgo.VoiceStateUpdate) domain.VoiceTransition {
	ev := domain.VoiceTransition{
		GuildID:     v.GuildID,
		UserID:      v.UserID,
		ToChannelID: v.ChannelID,
	}
	if v.BeforeUpdate != nil {
		ev.FromChannelID = v.BeforeUpdate.ChannelID
	}
	if v.Member != nil && v.Member.User != nil {
		ev.Bot = v.Member.User.Bot
	}
	return ev
}
