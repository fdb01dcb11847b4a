package formatting

import (
	"fmt"
	"strings"

	"voice-greeter/internal/core/domain"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	MsgDenied        = "You are not allowed to use this bot."
	MsgPong          = "Pong! The bot is online."
	MsgNoSessions    = "No active voice sessions."
	MsgNoGuild       = "No server available to play in."
	MsgNoFile        = "No audio file available in the common library."
	MsgNoChannel     = "No occupied voice channel found on that server."
	MsgCommandFailed = "Something went wrong while running that command."
	MsgUnknown       = "Unknown command."
)

// SessionRow pairs a session snapshot with a display name for its guild.
type SessionRow struct {
	GuildName string
	Session   domain.SessionInfo
}

// MsgStatus renders active sessions as a monospace table.
func MsgStatus(rows []SessionRow) string {
	if len(rows) == 0 {
		return MsgNoSessions
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Server", "Channel", "File", "Trigger"})
	for _, r := range rows {
		name := r.GuildName
		if name == "" {
			name = r.Session.GuildID
		}
		tw.AppendRow(table.Row{name, r.Session.ChannelID, r.Session.CurrentFile, string(r.Session.Trigger)})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active sessions: %d\n", len(rows))
	b.WriteString("```\n")
	b.WriteString(tw.Render())
	b.WriteString("\n```")
	return b.String()
}

func MsgUnmuted(count int) string {
	if count == 1 {
		return "Unmuted on 1 server."
	}
	return fmt.Sprintf("Unmuted on %d servers.", count)
}

func MsgPlaying(guildName, channelName, file string) string {
	return fmt.Sprintf("Playing **%s** in %s on %s.", file, channelName, guildName)
}
