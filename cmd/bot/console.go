package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Console reads operator commands typed on standard input.
type Console struct {
	in        io.Reader
	publisher Publisher
	sessions  Sessions
}

func NewConsole(in io.Reader, publisher Publisher, sessions Sessions) *Console {
	return &Console{in: in, publisher: publisher, sessions: sessions}
}

// stdinIsTerminal reports whether an operator can type into the process.
func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Run handles lines until the input ends or ctx is cancelled.
func (c *Console) Run(ctx context.Context) {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		c.Handle(ctx, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("Console input closed", "error", err)
	}
}

func (c *Console) Handle(ctx context.Context, line string) {
	cmd := strings.ToLower(strings.TrimSpace(line))
	switch cmd {
	case "":
		return
	case "reload":
		slog.Info("Reloading commands")
		if err := c.publisher.Publish(ctx); err != nil {
			slog.Error("Failed to reload commands", "error", err)
			return
		}
		slog.Info("Commands reloaded")
	case "status":
		sessions := c.sessions.List()
		slog.Info("Active sessions", "count", len(sessions))
		for _, s := range sessions {
			slog.Info("Session",
				"session_id", s.ID,
				"guild_id", s.GuildID,
				"channel_id", s.ChannelID,
				"file", s.CurrentFile,
				"trigger", s.Trigger,
			)
		}
	case "help":
		slog.Info("Console commands: reload, status, help")
	default:
		slog.Warn("Unknown console command", "input", cmd)
	}
}
