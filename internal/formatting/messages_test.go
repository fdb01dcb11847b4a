package formatting

import (
	"strings"
	"testing"

	"voice-greeter/internal/core/domain"
)

func TestConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant string
		expected string
	}{
		{
			name:     "MsgDenied",
			constant: MsgDenied,
			expected: "You are not allowed to use this bot.",
		},
		{
			name:     "MsgPong",
			constant: MsgPong,
			expected: "Pong! The bot is online.",
		},
		{
			name:     "MsgNoSessions",
			constant: MsgNoSessions,
			expected: "No active voice sessions.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.constant != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, tt.constant)
			}
		})
	}
}

func TestMsgStatus(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := MsgStatus(nil); got != MsgNoSessions {
			t.Errorf("Expected %q, got %q", MsgNoSessions, got)
		}
	})

	t.Run("rows", func(t *testing.T) {
		rows := []SessionRow{
			{GuildName: "Alpha", Session: domain.SessionInfo{GuildID: "111", ChannelID: "c1", CurrentFile: "clip1.mp3", Trigger: domain.TriggerManual}},
			{Session: domain.SessionInfo{GuildID: "222", ChannelID: "c2", CurrentFile: "hello.ogg", Trigger: domain.TriggerAuto}},
		}

		got := MsgStatus(rows)

		for _, want := range []string{"Active sessions: 2", "Alpha", "clip1.mp3", "manual", "222", "hello.ogg", "auto", "```"} {
			if !strings.Contains(got, want) {
				t.Errorf("Expected status to contain %q, got:\n%s", want, got)
			}
		}
	})
}

func TestMsgUnmuted(t *testing.T) {
	tests := []struct {
		count    int
		expected string
	}{
		{0, "Unmuted on 0 servers."},
		{1, "Unmuted on 1 server."},
		{3, "Unmuted on 3 servers."},
	}

	for _, tt := range tests {
		if got := MsgUnmuted(tt.count); got != tt.expected {
			t.Errorf("MsgUnmuted(%d) = %q, want %q", tt.count, got, tt.expected)
		}
	}
}

func TestMsgPlaying(t *testing.T) {
	got := MsgPlaying("Alpha", "General", "clip1.mp3")
	expected := "Playing **clip1.mp3** in General on Alpha."
	if got != expected {
		t.Errorf("Expected '%s', got '%s'", expected, got)
	}
}
