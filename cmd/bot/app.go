package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"voice-greeter/internal/adapters/audio"
	"voice-greeter/internal/adapters/discord"
	"voice-greeter/internal/adapters/discord/commands"
	"voice-greeter/internal/adapters/storage/filesystem"
	"voice-greeter/internal/config"
	"voice-greeter/internal/core/services/autoplay"
	"voice-greeter/internal/core/services/library"
	"voice-greeter/internal/core/services/operator"
	"voice-greeter/internal/core/services/voice"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	config        *config.Config
	discord       *discordgo.Session
	sessions      Sessions
	publisher     Publisher
	metricsServer *http.Server
	consoleCancel context.CancelFunc
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	store := filesystem.NewStore(cfg.MusicDir, cfg.ServersFile)
	// library failures are not fatal
	if err := store.EnsureLayout(); err != nil {
		slog.Error("Failed to prepare music library", "music_dir", cfg.MusicDir, "error", err)
	}

	session, err := discord.NewSession(cfg)
	if err != nil {
		return nil, err
	}

	directory := discord.NewDirectory(session.State, session)
	transport := discord.NewTransport(session, audio.NewPlayer(cfg.FFmpegPath))
	sessions := voice.NewManager(transport, cfg.VoiceConnectTimeout)

	publisher := commands.NewPublisher(session, store, func() string {
		if session.State == nil || session.State.User == nil {
			return ""
		}
		return session.State.User.ID
	})
	reconciler := library.NewReconciler(store, publisher)

	readiness := &autoplay.Readiness{}
	trigger := autoplay.NewTrigger(readiness, directory, store, sessions)

	dispatcher := operator.NewDispatcher(cfg.OperatorID, directory, store, sessions)
	router := commands.NewRouter()
	commands.RegisterDispatcher(router, dispatcher)

	handlers := discord.NewHandlers(directory, reconciler, trigger, sessions, readiness, cfg.StartupTimeout)
	handlers.Register(session)
	session.AddHandler(router.HandleFunc())

	slog.Info("Application initialized",
		"music_dir", cfg.MusicDir,
		"servers_file", cfg.ServersFile,
		"commands", dispatcher.Commands(),
	)

	return &App{
		config:    cfg,
		discord:   session,
		sessions:  sessions,
		publisher: publisher,
	}, nil
}

func (a *App) Run() error {
	a.startMetricsServer()

	if err := a.discord.Open(); err != nil {
		slog.Error("Failed to open discord session", "error", err)
		return err
	}

	if a.config.ConsoleEnabled && stdinIsTerminal() {
		var ctx context.Context
		ctx, a.consoleCancel = context.WithCancel(context.Background())
		go NewConsole(os.Stdin, a.publisher, a.sessions).Run(ctx)
		slog.Info("Console ready", "commands", "reload, status, help")
	}

	return nil
}

func (a *App) startMetricsServer() {
	if a.config.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metricsServer = &http.Server{
		Addr:              a.config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Starting metrics server", "addr", a.config.MetricsAddr)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
}

func (a *App) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down...")
	var errs []error

	if a.consoleCancel != nil {
		a.consoleCancel()
	}

	if a.sessions != nil {
		a.sessions.Shutdown()
	}

	if a.discord != nil {
		if err := a.discord.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close discord session: %w", err))
		}
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop metrics server: %w", err))
		}
	}

	return errors.Join(errs...)
}
