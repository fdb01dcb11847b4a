package voice

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"voice-greeter/internal/adapters/metrics"
	"voice-greeter/internal/core/domain"
	"voice-greeter/internal/core/ports"

	"github.com/google/uuid"
)

const (
	reasonCompleted = "completed"
	reasonError     = "error"
	reasonPreempted = "preempted"
	reasonStopped   = "stopped"
)

type session struct {
	info   domain.SessionInfo
	conn   ports.VoiceConnection
	stop   context.CancelFunc
	closed bool
}

// Manager owns every active voice session, at most one per guild.
type Manager struct {
	transport      ports.VoiceTransport
	connectTimeout time.Duration

	// mu is held across teardown-then-connect so a guild never has two
	// live connections.
	mu       sync.Mutex
	sessions map[string]*session
	newID    func() string
}

func NewManager(transport ports.VoiceTransport, connectTimeout time.Duration) *Manager {
	return &Manager{
		transport:      transport,
		connectTimeout: connectTimeout,
		sessions:       make(map[string]*session),
		newID:          uuid.NewString,
	}
}

// Start replaces any session in the channel's guild with a new one playing
// path. It returns once playback has been started.
func (m *Manager) Start(ctx context.Context, channel domain.VoiceChannel, path string, trigger domain.Trigger) (domain.SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.sessions[channel.GuildID]; ok {
		slog.Info("Replacing active session", "guild_id", channel.GuildID, "session_id", old.info.ID)
		m.teardownLocked(old, reasonPreempted)
	}

	connectCtx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	started := time.Now()
	conn, err := m.transport.Connect(connectCtx, channel.GuildID, channel.ID)
	cancel()
	if err != nil {
		metrics.VoiceConnectDuration.WithLabelValues("failure").Observe(time.Since(started).Seconds())
		return domain.SessionInfo{}, fmt.Errorf("join voice channel %s: %w", channel.ID, err)
	}
	metrics.VoiceConnectDuration.WithLabelValues("success").Observe(time.Since(started).Seconds())

	// Playback outlives the request that started it.
	playCtx, stop := context.WithCancel(context.Background())
	s := &session{
		info: domain.SessionInfo{
			ID:          m.newID(),
			GuildID:     channel.GuildID,
			ChannelID:   channel.ID,
			CurrentFile: filepath.Base(path),
			Trigger:     trigger,
		},
		conn: conn,
		stop: stop,
	}
	m.sessions[channel.GuildID] = s

	metrics.VoiceSessionsStarted.WithLabelValues(string(trigger)).Inc()
	metrics.VoiceSessionsActive.Inc()
	slog.Info("Playback started",
		"session_id", s.info.ID,
		"guild_id", s.info.GuildID,
		"channel_id", s.info.ChannelID,
		"file", s.info.CurrentFile,
		"trigger", trigger,
	)

	go m.await(s, conn.Play(playCtx, path))

	return s.info, nil
}

// await tears the session down once playback reports completion.
func (m *Manager) await(s *session, finished <-chan error) {
	err := <-finished

	m.mu.Lock()
	defer m.mu.Unlock()

	if s.closed {
		return
	}

	if err != nil {
		slog.Error("Playback failed", "session_id", s.info.ID, "guild_id", s.info.GuildID, "error", err)
		m.teardownLocked(s, reasonError)
		return
	}

	slog.Info("Playback finished, disconnecting", "session_id", s.info.ID, "guild_id", s.info.GuildID)
	m.teardownLocked(s, reasonCompleted)
}

func (m *Manager) teardownLocked(s *session, reason string) {
	if s.closed {
		return
	}
	s.closed = true

	if current, ok := m.sessions[s.info.GuildID]; ok && current == s {
		delete(m.sessions, s.info.GuildID)
	}

	s.stop()
	if err := s.conn.Close(); err != nil {
		slog.Warn("Failed to close voice connection", "session_id", s.info.ID, "error", err)
	}

	metrics.VoiceSessionsEnded.WithLabelValues(reason).Inc()
	metrics.VoiceSessionsActive.Dec()
	slog.Debug("Session closed", "session_id", s.info.ID, "reason", reason)
}

// End tears down the guild's session if there is one.
func (m *Manager) End(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[guildID]; ok {
		m.teardownLocked(s, reasonStopped)
	}
}

func (m *Manager) Has(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[guildID]
	return ok
}

// List returns a snapshot of active sessions ordered by guild id.
func (m *Manager) List() []domain.SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GuildID < out[j].GuildID })
	return out
}

// Shutdown ends every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		m.teardownLocked(s, reasonStopped)
	}
}
