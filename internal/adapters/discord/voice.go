package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"voice-greeter/internal/adapters/audio"
	"voice-greeter/internal/core/ports"

	"github.com/bwmarrin/discordgo"
)

const readyPollInterval = 20 * time.Millisecond

type VoiceJoiner interface {
	ChannelVoiceJoin(gID, cID string, mute, deaf bool) (*discordgo.VoiceConnection, error)
}

type Player interface {
	Play(ctx context.Context, path string, sink audio.Sink) error
}

// link is the part of a discordgo voice connection the transport drives.
type link interface {
	Ready() bool
	Speaking(speaking bool) error
	Frames() chan<- []byte
	Disconnect() error
}

type discordLink struct {
	vc *discordgo.VoiceConnection
}

func (l discordLink) Ready() bool {
	l.vc.RLock()
	defer l.vc.RUnlock()
	return l.vc.Ready
}

func (l discordLink) Speaking(speaking bool) error { return l.vc.Speaking(speaking) }
func (l discordLink) Frames() chan<- []byte        { return l.vc.OpusSend }
func (l discordLink) Disconnect() error            { return l.vc.Disconnect() }

// Transport joins voice channels through the gateway session.
type Transport struct {
	join   func(guildID, channelID string) (link, error)
	player Player
}

func NewTransport(joiner VoiceJoiner, player Player) *Transport {
	return &Transport{
		join: func(guildID, channelID string) (link, error) {
			// deafened: the bot never listens
			vc, err := joiner.ChannelVoiceJoin(guildID, channelID, false, true)
			if err != nil {
				return nil, err
			}
			return discordLink{vc: vc}, nil
		},
		player: player,
	}
}

type joinResult struct {
	link link
	err  error
}

// Connect joins the channel. If ctx ends first the late connection is
// released as soon as it arrives.
func (t *Transport) Connect(ctx context.Context, guildID, channelID string) (ports.VoiceConnection, error) {
	done := make(chan joinResult, 1)
	go func() {
		l, err := t.join(guildID, channelID)
		done <- joinResult{link: l, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("voice join: %w", r.err)
		}
		return newConnection(guildID, r.link, t.player), nil
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil {
				if err := r.link.Disconnect(); err != nil {
					slog.Warn("Failed to release late voice connection", "guild_id", guildID, "error", err)
				}
			}
		}()
		return nil, fmt.Errorf("voice join: %w", ctx.Err())
	}
}

// connection plays files over one joined channel. It is also the audio sink.
type connection struct {
	guildID   string
	link      link
	player    Player
	closeOnce sync.Once
	closeErr  error
}

func newConnection(guildID string, l link, player Player) *connection {
	return &connection{guildID: guildID, link: l, player: player}
}

func (c *connection) Play(ctx context.Context, path string) <-chan error {
	finished := make(chan error, 1)
	go func() {
		finished <- c.player.Play(ctx, path, c)
	}()
	return finished
}

func (c *connection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.link.Disconnect()
	})
	return c.closeErr
}

// WaitReady blocks while the voice connection is not ready.
func (c *connection) WaitReady(ctx context.Context) error {
	if c.link.Ready() {
		return nil
	}

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if c.link.Ready() {
				return nil
			}
		}
	}
}

func (c *connection) Speaking(speaking bool) error {
	return c.link.Speaking(speaking)
}

// Send hands a frame to the connection, pausing while it is not ready.
func (c *connection) Send(ctx context.Context, frame []byte) error {
	if err := c.WaitReady(ctx); err != nil {
		return err
	}

	select {
	case c.link.Frames() <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
