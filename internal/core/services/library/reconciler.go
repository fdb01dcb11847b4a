package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"voice-greeter/internal/adapters/metrics"
	"voice-greeter/internal/core/domain"
	"voice-greeter/internal/core/ports"
)

// Result summarizes one reconciliation pass.
type Result struct {
	Added       int
	Removed     int
	DirsRemoved int
	Failures    int
}

// Reconciler keeps the registry file and guild folders in line with the
// guilds the bot belongs to.
type Reconciler struct {
	store     ports.LibraryStore
	publisher ports.CommandPublisher
}

func NewReconciler(store ports.LibraryStore, publisher ports.CommandPublisher) *Reconciler {
	return &Reconciler{store: store, publisher: publisher}
}

// Reconcile aligns the registry and library folders with live. Failures on a
// single folder or record are collected and do not stop the pass. Unavailable
// guilds are kept as they are but nothing new is created for them.
func (r *Reconciler) Reconcile(ctx context.Context, live []domain.GuildRecord) (Result, error) {
	var res Result
	var errs []error

	validIDs := make(map[string]bool, len(live))
	for _, g := range live {
		validIDs[g.ID] = true
	}
	keep := func(id string) bool { return validIDs[id] }

	// a read failure skips only the registry steps
	registry, readErr := r.store.ReadRegistry()
	if readErr != nil {
		errs = append(errs, fmt.Errorf("read registry: %w", readErr))
		res.Failures++
	}

	known := make(map[string]bool, len(registry))
	for _, rec := range registry {
		known[rec.ID] = true
	}

	for _, g := range live {
		if g.Unavailable {
			continue
		}

		if err := r.store.EnsureGuildDir(g); err != nil {
			errs = append(errs, err)
			res.Failures++
		}

		if readErr != nil || known[g.ID] {
			continue
		}
		if err := r.store.AppendGuild(g); err != nil {
			errs = append(errs, fmt.Errorf("append guild %s: %w", g.ID, err))
			res.Failures++
			continue
		}
		known[g.ID] = true
		res.Added++
		slog.Info("Added missing guild", "guild_id", g.ID, "guild_name", g.Name)
	}

	if readErr == nil {
		removed, err := r.pruneRegistry(keep)
		if err != nil {
			errs = append(errs, err)
			res.Failures++
		}
		res.Removed = removed
		if removed > 0 {
			slog.Info("Removed stale registry entries", "count", removed)
		}
	}

	dirsRemoved, dirErrs := r.pruneDirs(keep)
	res.DirsRemoved = dirsRemoved
	res.Failures += len(dirErrs)
	errs = append(errs, dirErrs...)

	recordChanges(res)
	r.publish(ctx)

	slog.Info("Library reconciled",
		"guilds", len(live),
		"added", res.Added,
		"removed", res.Removed,
		"dirs_removed", res.DirsRemoved,
		"failures", res.Failures,
	)

	return res, errors.Join(errs...)
}

// AddGuild handles the bot joining a single guild.
func (r *Reconciler) AddGuild(ctx context.Context, g domain.GuildRecord) error {
	var errs []error

	if err := r.store.EnsureGuildDir(g); err != nil {
		errs = append(errs, err)
	}

	registry, err := r.store.ReadRegistry()
	if err != nil {
		errs = append(errs, fmt.Errorf("read registry: %w", err))
	} else if !containsID(registry, g.ID) {
		if err := r.store.AppendGuild(g); err != nil {
			errs = append(errs, fmt.Errorf("append guild %s: %w", g.ID, err))
		} else {
			metrics.LibraryReconcileChanges.WithLabelValues("added").Inc()
			slog.Info("Registered new guild", "guild_id", g.ID, "guild_name", g.Name)
		}
	}

	r.publish(ctx)
	return errors.Join(errs...)
}

// RemoveGuild handles the bot leaving a single guild.
func (r *Reconciler) RemoveGuild(ctx context.Context, guildID string) error {
	var errs []error
	keep := func(id string) bool { return id != guildID }

	dirsRemoved, dirErrs := r.pruneDirs(keep)
	errs = append(errs, dirErrs...)

	removed, err := r.pruneRegistry(keep)
	if err != nil {
		errs = append(errs, err)
	}

	metrics.LibraryReconcileChanges.WithLabelValues("removed").Add(float64(removed))
	metrics.LibraryReconcileChanges.WithLabelValues("dir_removed").Add(float64(dirsRemoved))
	slog.Info("Unregistered guild", "guild_id", guildID, "entries", removed, "dirs", dirsRemoved)

	r.publish(ctx)
	return errors.Join(errs...)
}

// pruneRegistry rewrites the registry without entries that fail keep and
// without duplicate ids. It returns the number of dropped entries.
func (r *Reconciler) pruneRegistry(keep func(id string) bool) (int, error) {
	registry, err := r.store.ReadRegistry()
	if err != nil {
		return 0, fmt.Errorf("read registry: %w", err)
	}

	seen := make(map[string]bool, len(registry))
	filtered := make([]domain.GuildRecord, 0, len(registry))
	for _, rec := range registry {
		if !keep(rec.ID) || seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		filtered = append(filtered, rec)
	}

	dropped := len(registry) - len(filtered)
	if dropped == 0 {
		return 0, nil
	}

	if err := r.store.WriteRegistry(filtered); err != nil {
		return 0, fmt.Errorf("write registry: %w", err)
	}
	return dropped, nil
}

func (r *Reconciler) pruneDirs(keep func(id string) bool) (int, []error) {
	names, err := r.store.ListLibraryDirs()
	if err != nil {
		return 0, []error{fmt.Errorf("list library: %w", err)}
	}

	var errs []error
	removed := 0
	for _, name := range names {
		if keep(domain.LeadingID(name)) {
			continue
		}
		if err := r.store.RemoveDir(name); err != nil {
			slog.Error("Failed to remove guild folder", "dir", name, "error", err)
			errs = append(errs, fmt.Errorf("remove %s: %w", name, err))
			continue
		}
		removed++
		slog.Info("Removed stale guild folder", "dir", name)
	}
	return removed, errs
}

func (r *Reconciler) publish(ctx context.Context) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx); err != nil {
		slog.Error("Failed to refresh commands", "error", err)
	}
}

func recordChanges(res Result) {
	metrics.LibraryReconcileChanges.WithLabelValues("added").Add(float64(res.Added))
	metrics.LibraryReconcileChanges.WithLabelValues("removed").Add(float64(res.Removed))
	metrics.LibraryReconcileChanges.WithLabelValues("dir_removed").Add(float64(res.DirsRemoved))
	metrics.LibraryReconcileChanges.WithLabelValues("failed").Add(float64(res.Failures))
}

func containsID(records []domain.GuildRecord, id string) bool {
	for _, rec := range records {
		if rec.ID == id {
			return true
		}
	}
	return false
}
