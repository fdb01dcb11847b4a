package commands

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestNewRouter(t *testing.T) {
	router := NewRouter()

	if router == nil {
		t.Fatal("expected non-nil router")
	}
	if router.routes == nil {
		t.Fatal("expected routes map to be initialized")
	}
	if len(router.routes) != 0 {
		t.Errorf("expected empty routes, got %d", len(router.routes))
	}
}

func TestRouter_Register_OverwritesPrevious(t *testing.T) {
	router := NewRouter()

	firstCalled := false
	secondCalled := false
	router.Register("cmd", func(DiscordSession, *discordgo.InteractionCreate) { firstCalled = true })
	router.Register("cmd", func(DiscordSession, *discordgo.InteractionCreate) { secondCalled = true })

	router.Handle(&mockDiscordSession{}, makeCommandInteraction("cmd", "op", nil))

	if firstCalled {
		t.Error("first handler should have been replaced")
	}
	if !secondCalled {
		t.Error("second handler should be called")
	}
}

func TestRouter_Handle(t *testing.T) {
	tests := []struct {
		name       string
		iType      discordgo.InteractionType
		command    string
		wantCalled bool
	}{
		{"application command", discordgo.InteractionApplicationCommand, "ping", true},
		{"unknown command", discordgo.InteractionApplicationCommand, "dance", false},
		{"autocomplete ignored", discordgo.InteractionApplicationCommandAutocomplete, "ping", false},
		{"component ignored", discordgo.InteractionMessageComponent, "ping", false},
		{"ping interaction ignored", discordgo.InteractionPing, "ping", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter()
			called := false
			router.Register("ping", func(DiscordSession, *discordgo.InteractionCreate) { called = true })

			i := makeCommandInteraction(tt.command, "op", nil)
			i.Type = tt.iType
			if tt.iType == discordgo.InteractionMessageComponent {
				i.Data = discordgo.MessageComponentInteractionData{CustomID: "x"}
			}
			router.Handle(&mockDiscordSession{}, i)

			if called != tt.wantCalled {
				t.Errorf("called = %v, want %v", called, tt.wantCalled)
			}
		})
	}
}

func TestRouter_HandleFunc(t *testing.T) {
	router := NewRouter()
	if router.HandleFunc() == nil {
		t.Fatal("expected non-nil handler func")
	}
}
