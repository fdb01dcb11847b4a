package operator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"voice-greeter/internal/adapters/metrics"
	"voice-greeter/internal/core/domain"
	"voice-greeter/internal/core/ports"
	"voice-greeter/internal/formatting"
)

const (
	CommandPing   = "ping"
	CommandStatus = "status"
	CommandUnmute = "unmute"
	CommandPlay   = "play"

	OptionServerID = "server_id"
	OptionFile     = "file"
)

var (
	ErrNoGuild   = errors.New("no guild available")
	ErrNoFile    = errors.New("no file available")
	ErrNoChannel = errors.New("no occupied voice channel")
)

// Handler runs one command and returns the reply text.
type Handler func(ctx context.Context, req domain.CommandRequest) (string, error)

// Dispatcher routes operator commands by name.
type Dispatcher struct {
	operatorID string
	guilds     ports.GuildDirectory
	library    ports.LibraryStore
	sessions   ports.SessionController
	handlers   map[string]Handler
}

func NewDispatcher(operatorID string, guilds ports.GuildDirectory, library ports.LibraryStore, sessions ports.SessionController) *Dispatcher {
	d := &Dispatcher{
		operatorID: operatorID,
		guilds:     guilds,
		library:    library,
		sessions:   sessions,
	}
	d.handlers = map[string]Handler{
		CommandPing:   d.ping,
		CommandStatus: d.status,
		CommandUnmute: d.unmute,
		CommandPlay:   d.play,
	}
	return d
}

func (d *Dispatcher) Authorized(userID string) bool {
	return userID != "" && userID == d.operatorID
}

// Commands returns the names of every registered command.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dispatch authorizes and runs req. Resolution failures are turned into
// their user-facing reply; any other error is returned as is.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.CommandRequest) (string, error) {
	if !d.Authorized(req.UserID) {
		slog.Warn("Rejected command from non-operator", "command", req.Name, "user_id", req.UserID)
		metrics.OperatorCommands.WithLabelValues(req.Name, "denied").Inc()
		return formatting.MsgDenied, nil
	}

	handler, ok := d.handlers[req.Name]
	if !ok {
		slog.Warn("Unknown command", "command", req.Name)
		metrics.OperatorCommands.WithLabelValues(req.Name, "unknown").Inc()
		return formatting.MsgUnknown, nil
	}

	reply, err := handler(ctx, req)
	switch {
	case err == nil:
		metrics.OperatorCommands.WithLabelValues(req.Name, "success").Inc()
		return reply, nil
	case errors.Is(err, ErrNoGuild):
		reply = formatting.MsgNoGuild
	case errors.Is(err, ErrNoFile):
		reply = formatting.MsgNoFile
	case errors.Is(err, ErrNoChannel):
		reply = formatting.MsgNoChannel
	default:
		metrics.OperatorCommands.WithLabelValues(req.Name, "error").Inc()
		return "", err
	}

	slog.Info("Command could not be resolved", "command", req.Name, "reason", err)
	metrics.OperatorCommands.WithLabelValues(req.Name, "rejected").Inc()
	return reply, nil
}

func (d *Dispatcher) ping(ctx context.Context, req domain.CommandRequest) (string, error) {
	return formatting.MsgPong, nil
}

func (d *Dispatcher) status(ctx context.Context, req domain.CommandRequest) (string, error) {
	sessions := d.sessions.List()
	rows := make([]formatting.SessionRow, 0, len(sessions))
	for _, s := range sessions {
		row := formatting.SessionRow{Session: s}
		if g, ok := d.guilds.Guild(s.GuildID); ok {
			row.GuildName = g.Name
		}
		rows = append(rows, row)
	}
	return formatting.MsgStatus(rows), nil
}

func (d *Dispatcher) unmute(ctx context.Context, req domain.CommandRequest) (string, error) {
	count := 0
	for _, g := range d.guilds.Guilds() {
		if g.Unavailable || !d.guilds.SelfVoiceMuted(g.ID) {
			continue
		}
		if err := d.guilds.SetSelfMute(ctx, g.ID, false); err != nil {
			slog.Error("Failed to unmute", "guild_id", g.ID, "error", err)
			continue
		}
		slog.Info("Unmuted", "guild_id", g.ID, "guild_name", g.Name)
		count++
	}
	return formatting.MsgUnmuted(count), nil
}

func (d *Dispatcher) play(ctx context.Context, req domain.CommandRequest) (string, error) {
	guild, err := d.resolveGuild(req.Option(OptionServerID))
	if err != nil {
		return "", err
	}

	file, err := d.resolveFile(req.Option(OptionFile))
	if err != nil {
		return "", err
	}

	channel, err := d.resolveChannel(guild.ID)
	if err != nil {
		return "", err
	}

	if _, err := d.sessions.Start(ctx, channel, filepath.Join(d.library.CommonDir(), file), domain.TriggerManual); err != nil {
		return "", err
	}

	name := guild.Name
	if name == "" {
		name = guild.ID
	}
	return formatting.MsgPlaying(name, channel.Name, file), nil
}

// resolveGuild picks the explicit guild when the bot is in it, otherwise the
// first registry entry. The chosen guild must be one the bot belongs to.
func (d *Dispatcher) resolveGuild(id string) (domain.GuildRecord, error) {
	if id != "" {
		if g, ok := d.guilds.Guild(id); ok {
			return g, nil
		}
		slog.Info("Requested guild not available, using first registered guild", "guild_id", id)
	}

	records, err := d.library.ReadRegistry()
	if err != nil {
		return domain.GuildRecord{}, fmt.Errorf("read registry: %w", err)
	}
	if len(records) == 0 {
		return domain.GuildRecord{}, ErrNoGuild
	}

	g, ok := d.guilds.Guild(records[0].ID)
	if !ok {
		return domain.GuildRecord{}, fmt.Errorf("%w: %s", ErrNoGuild, records[0].ID)
	}
	return g, nil
}

// resolveFile picks the named common clip, or the first one available.
func (d *Dispatcher) resolveFile(name string) (string, error) {
	clips := d.library.ListCommonClips()
	if name == "" {
		if len(clips) == 0 {
			return "", ErrNoFile
		}
		return clips[0], nil
	}

	if !slices.Contains(clips, name) {
		return "", fmt.Errorf("%w: %s", ErrNoFile, name)
	}
	return name, nil
}

// resolveChannel returns the voice channel with the most non-bot occupants.
// Ties keep the first channel seen.
func (d *Dispatcher) resolveChannel(guildID string) (domain.VoiceChannel, error) {
	channels, err := d.guilds.VoiceChannels(guildID)
	if err != nil {
		return domain.VoiceChannel{}, fmt.Errorf("list voice channels: %w", err)
	}

	var best domain.VoiceChannel
	bestCount := 0
	for _, c := range channels {
		if n := c.HumanCount(); n > bestCount {
			best, bestCount = c, n
		}
	}
	if bestCount == 0 {
		return domain.VoiceChannel{}, ErrNoChannel
	}
	return best, nil
}
