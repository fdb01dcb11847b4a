package commands

import (
	"context"
	"log/slog"

	"voice-greeter/internal/formatting"

	"github.com/bwmarrin/discordgo"
)

// Deferred acknowledges the interaction right away, runs the command, then
// edits the acknowledgement with the result.
func Deferred(d Dispatcher) CommandHandler {
	return func(s DiscordSession, i *discordgo.InteractionCreate) {
		if err := deferReply(s, i); err != nil {
			logReplyError("defer", err)
			return
		}

		req := toRequest(i)
		reply, err := d.Dispatch(context.Background(), req)
		if err != nil {
			slog.Error("Command failed", "command", req.Name, "error", err)
			reply = formatting.MsgCommandFailed
		}

		if err := editReply(s, i, reply); err != nil {
			logReplyError("edit", err)
		}
	}
}

// RegisterDispatcher routes every command the dispatcher knows through the
// operator check and the deferred reply flow.
func RegisterDispatcher(r *Router, d Dispatcher) {
	for _, name := range d.Commands() {
		r.Register(name, WithOperator(d, Deferred(d)))
	}
}
