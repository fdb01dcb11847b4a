package discord

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"voice-greeter/internal/core/domain"

	"github.com/bwmarrin/discordgo"
)

var ErrNotVoiceChannel = errors.New("not a voice channel")

type MemberMuter interface {
	GuildMemberMute(guildID, userID string, mute bool, options ...discordgo.RequestOption) error
}

// Directory answers guild and voice questions from the gateway state cache.
type Directory struct {
	state *discordgo.State
	rest  MemberMuter
}

func NewDirectory(state *discordgo.State, rest MemberMuter) *Directory {
	return &Directory{state: state, rest: rest}
}

func (d *Directory) botID() string {
	d.state.RLock()
	defer d.state.RUnlock()
	if d.state.User == nil {
		return ""
	}
	return d.state.User.ID
}

// Guilds lists every guild the bot belongs to. Guilds in an outage are
// included by id and marked unavailable.
func (d *Directory) Guilds() []domain.GuildRecord {
	d.state.RLock()
	defer d.state.RUnlock()

	out := make([]domain.GuildRecord, 0, len(d.state.Guilds))
	for _, g := range d.state.Guilds {
		if g.Unavailable {
			out = append(out, domain.GuildRecord{ID: g.ID, Unavailable: true})
			continue
		}
		out = append(out, domain.GuildRecord{ID: g.ID, Name: g.Name})
	}
	return out
}

func (d *Directory) Guild(guildID string) (domain.GuildRecord, bool) {
	g, err := d.state.Guild(guildID)
	if err != nil || g.Unavailable {
		return domain.GuildRecord{}, false
	}
	return domain.GuildRecord{ID: g.ID, Name: g.Name}, true
}

func (d *Directory) VoiceChannel(guildID, channelID string) (domain.VoiceChannel, error) {
	channels, err := d.voiceChannels(guildID, func(c *discordgo.Channel) bool { return c.ID == channelID })
	if err != nil {
		return domain.VoiceChannel{}, err
	}
	if len(channels) == 0 {
		return domain.VoiceChannel{}, fmt.Errorf("channel %s in guild %s: %w", channelID, guildID, ErrNotVoiceChannel)
	}
	return channels[0], nil
}

// VoiceChannels lists the guild's voice channels in display order.
func (d *Directory) VoiceChannels(guildID string) ([]domain.VoiceChannel, error) {
	return d.voiceChannels(guildID, func(*discordgo.Channel) bool { return true })
}

func (d *Directory) voiceChannels(guildID string, match func(*discordgo.Channel) bool) ([]domain.VoiceChannel, error) {
	botID := d.botID()

	guild, err := d.state.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("guild %s: %w", guildID, err)
	}

	d.state.RLock()
	defer d.state.RUnlock()

	bots := make(map[string]bool, len(guild.Members))
	for _, m := range guild.Members {
		if m.User != nil {
			bots[m.User.ID] = m.User.Bot
		}
	}

	occupants := make(map[string][]domain.Occupant)
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == "" {
			continue
		}
		occupants[vs.ChannelID] = append(occupants[vs.ChannelID], domain.Occupant{
			UserID: vs.UserID,
			Bot:    isBot(vs, bots, botID),
		})
	}

	var out []domain.VoiceChannel
	var positions []int
	for _, c := range guild.Channels {
		if !isVoice(c.Type) || !match(c) {
			continue
		}
		out = append(out, domain.VoiceChannel{
			ID:        c.ID,
			GuildID:   guildID,
			GuildName: guild.Name,
			Name:      c.Name,
			Occupants: occupants[c.ID],
		})
		positions = append(positions, c.Position)
	}

	sort.Stable(byPosition{out, positions})
	return out, nil
}

// SelfVoiceMuted reports whether the bot is connected to voice in the guild
// and server-muted there.
func (d *Directory) SelfVoiceMuted(guildID string) bool {
	botID := d.botID()
	if botID == "" {
		return false
	}

	vs, err := d.state.VoiceState(guildID, botID)
	if err != nil {
		return false
	}
	return vs.ChannelID != "" && vs.Mute
}

func (d *Directory) SetSelfMute(ctx context.Context, guildID string, mute bool) error {
	botID := d.botID()
	if botID == "" {
		return errors.New("bot user not known yet")
	}
	if err := d.rest.GuildMemberMute(guildID, botID, mute, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("set mute in guild %s: %w", guildID, err)
	}
	return nil
}

func isVoice(t discordgo.ChannelType) bool {
	return t == discordgo.ChannelTypeGuildVoice || t == discordgo.ChannelTypeGuildStageVoice
}

func isBot(vs *discordgo.VoiceState, known map[string]bool, botID string) bool {
	if vs.UserID == botID {
		return true
	}
	if vs.Member != nil && vs.Member.User != nil {
		return vs.Member.User.Bot
	}
	return known[vs.UserID]
}

type byPosition struct {
	channels  []domain.VoiceChannel
	positions []int
}

func (b byPosition) Len() int           { return len(b.channels) }
func (b byPosition) Less(i, j int) bool { return b.positions[i] < b.positions[j] }
func (b byPosition) Swap(i, j int) {
	b.channels[i], b.channels[j] = b.channels[j], b.channels[i]
	b.positions[i], b.positions[j] = b.positions[j], b.positions[i]
}
