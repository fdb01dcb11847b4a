package domain

import "strings"

// RecordSeparator splits the guild id from its name in registry lines and
// library directory names.
const RecordSeparator = " - "

// GuildRecord is one line of the guild registry.
type GuildRecord struct {
	ID   string
	Name string
	// Unavailable marks a guild the bot belongs to that is in an outage.
	// Only its id is known.
	Unavailable bool
}

// LeadingID returns the id segment of a registry line or directory name.
func LeadingID(name string) string {
	id, _, _ := strings.Cut(name, RecordSeparator)
	return strings.TrimSpace(id)
}

type Occupant struct {
	UserID string
	Bot    bool
}

type VoiceChannel struct {
	ID        string
	GuildID   string
	GuildName string
	Name      string
	Occupants []Occupant
}

// HumanCount returns the number of non-bot occupants.
func (c VoiceChannel) HumanCount() int {
	n := 0
	for _, o := range c.Occupants {
		if !o.Bot {
			n++
		}
	}
	return n
}

// VoiceTransition describes a member's voice channel change. An empty
// channel ID means "not connected".
type VoiceTransition struct {
	GuildID       string
	UserID        string
	Bot           bool
	FromChannelID string
	ToChannelID   string
}

// SessionInfo is a handle-free snapshot of an active voice session.
type SessionInfo struct {
	ID          string
	GuildID     string
	ChannelID   string
	CurrentFile string
	Trigger     Trigger
}

type Trigger string

const (
	TriggerAuto   Trigger = "auto"
	TriggerManual Trigger = "manual"
)

// CommandRequest is an operator command invocation stripped of transport
// details.
type CommandRequest struct {
	Name    string
	UserID  string
	Options map[string]string
}

func (r CommandRequest) Option(name string) string {
	if r.Options == nil {
		return ""
	}
	return r.Options[name]
}
