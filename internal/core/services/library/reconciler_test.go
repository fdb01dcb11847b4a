package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"testing"

	"voice-greeter/internal/adapters/storage/filesystem"
	"voice-greeter/internal/core/domain"
)

type mockPublisher struct {
	calls       int
	publishFunc func(ctx context.Context) error
}

func (m *mockPublisher) Publish(ctx context.Context) error {
	m.calls++
	if m.publishFunc != nil {
		return m.publishFunc(ctx)
	}
	return nil
}

// failingStore wraps a real store and fails selected operations.
type failingStore struct {
	*filesystem.Store
	failRemove map[string]bool
	removed    []string
	readErr    error
	appended   []string
	rewritten  bool
}

func (f *failingStore) ReadRegistry() ([]domain.GuildRecord, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.Store.ReadRegistry()
}

func (f *failingStore) AppendGuild(record domain.GuildRecord) error {
	f.appended = append(f.appended, record.ID)
	return f.Store.AppendGuild(record)
}

func (f *failingStore) WriteRegistry(records []domain.GuildRecord) error {
	f.rewritten = true
	return f.Store.WriteRegistry(records)
}

func (f *failingStore) RemoveDir(name string) error {
	if f.failRemove[name] {
		return errors.New("permission denied")
	}
	f.removed = append(f.removed, name)
	return f.Store.RemoveDir(name)
}

type fixture struct {
	store        *filesystem.Store
	registryPath string
	publisher    *mockPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	registryPath := filepath.Join(base, "servers.txt")
	store := filesystem.NewStore(filepath.Join(base, "music"), registryPath)
	if err := store.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout failed: %v", err)
	}
	return &fixture{store: store, registryPath: registryPath, publisher: &mockPublisher{}}
}

func (f *fixture) writeRegistry(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(f.registryPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) registry(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.registryPath)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func (f *fixture) mkdir(t *testing.T, name string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(f.store.Root(), name), 0o755); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) registryIDs(t *testing.T) []string {
	t.Helper()
	records, err := f.store.ReadRegistry()
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)
	return ids
}

func (f *fixture) dirs(t *testing.T) []string {
	t.Helper()
	names, err := f.store.ListLibraryDirs()
	if err != nil {
		t.Fatal(err)
	}
	return names
}

func TestReconcile_RemovesStaleGuild(t *testing.T) {
	f := newFixture(t)
	f.writeRegistry(t, "111 - Alpha\n222 - Beta\n")
	f.mkdir(t, "111 - Alpha")
	f.mkdir(t, "222 - Beta")

	r := NewReconciler(f.store, f.publisher)
	res, err := r.Reconcile(context.Background(), []domain.GuildRecord{{ID: "111", Name: "Alpha"}})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if got := f.registry(t); got != "111 - Alpha\n" {
		t.Errorf("expected registry %q, got %q", "111 - Alpha\n", got)
	}
	if dirs := f.dirs(t); !slices.Equal(dirs, []string{"111 - Alpha"}) {
		t.Errorf("expected only Alpha folder, got %v", dirs)
	}
	if res.Removed != 1 || res.DirsRemoved != 1 || res.Added != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
	if f.publisher.calls != 1 {
		t.Errorf("expected commands refreshed once, got %d", f.publisher.calls)
	}
}

func TestReconcile_AddsMissingGuilds(t *testing.T) {
	f := newFixture(t)
	f.writeRegistry(t, "111 - Alpha")

	r := NewReconciler(f.store, f.publisher)
	res, err := r.Reconcile(context.Background(), []domain.GuildRecord{
		{ID: "111", Name: "Alpha"},
		{ID: "333", Name: "Gamma"},
	})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if got := f.registry(t); got != "111 - Alpha\n333 - Gamma\n" {
		t.Errorf("unexpected registry %q", got)
	}
	if dirs := f.dirs(t); !slices.Equal(dirs, []string{"111 - Alpha", "333 - Gamma"}) {
		t.Errorf("unexpected folders %v", dirs)
	}
	if res.Added != 1 {
		t.Errorf("expected 1 added, got %d", res.Added)
	}
}

func TestReconcile_AddAndRemoveInOnePass(t *testing.T) {
	f := newFixture(t)
	f.writeRegistry(t, "111 - Alpha\n222 - Beta\n")

	r := NewReconciler(f.store, f.publisher)
	_, err := r.Reconcile(context.Background(), []domain.GuildRecord{
		{ID: "111", Name: "Alpha"},
		{ID: "333", Name: "Gamma"},
	})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	// appended entries survive the stale-entry rewrite
	if ids := f.registryIDs(t); !slices.Equal(ids, []string{"111", "333"}) {
		t.Errorf("expected ids [111 333], got %v", ids)
	}
}

func TestReconcile_KeepsReservedAndDeduplicates(t *testing.T) {
	f := newFixture(t)
	f.writeRegistry(t, "111 - Alpha\n111 - Alpha\n")
	os.WriteFile(filepath.Join(f.store.DefaultDir(), "hello.mp3"), []byte("x"), 0o644)

	r := NewReconciler(f.store, f.publisher)
	if _, err := r.Reconcile(context.Background(), []domain.GuildRecord{{ID: "111", Name: "Alpha"}}); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if got := f.registry(t); got != "111 - Alpha\n" {
		t.Errorf("expected deduplicated registry, got %q", got)
	}
	for _, dir := range []string{f.store.DefaultDir(), f.store.CommonDir()} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("reserved dir %s removed: %v", dir, err)
		}
	}
	if _, err := os.Stat(filepath.Join(f.store.DefaultDir(), "hello.mp3")); err != nil {
		t.Errorf("default clip removed: %v", err)
	}
}

func TestReconcile_RecreatesMissingFolderForKnownGuild(t *testing.T) {
	f := newFixture(t)
	f.writeRegistry(t, "111 - Alpha\n")

	r := NewReconciler(f.store, f.publisher)
	if _, err := r.Reconcile(context.Background(), []domain.GuildRecord{{ID: "111", Name: "Alpha"}}); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if dirs := f.dirs(t); !slices.Equal(dirs, []string{"111 - Alpha"}) {
		t.Errorf("expected Alpha folder, got %v", dirs)
	}
}

func TestReconcile_FolderFailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	f.writeRegistry(t, "111 - Alpha\n")
	f.mkdir(t, "111 - Alpha")
	f.mkdir(t, "222 - Beta")
	f.mkdir(t, "333 - Gamma")
	f.mkdir(t, "444 - Delta")

	store := &failingStore{Store: f.store, failRemove: map[string]bool{"222 - Beta": true}}
	r := NewReconciler(store, f.publisher)

	res, err := r.Reconcile(context.Background(), []domain.GuildRecord{{ID: "111", Name: "Alpha"}})
	if err == nil {
		t.Fatal("expected joined error for failed folder")
	}

	if dirs := f.dirs(t); !slices.Equal(dirs, []string{"111 - Alpha", "222 - Beta"}) {
		t.Errorf("expected only the failing folder to remain, got %v", dirs)
	}
	if res.DirsRemoved != 2 || res.Failures != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if f.publisher.calls != 1 {
		t.Error("commands should still be refreshed after a partial failure")
	}
}

func TestReconcile_RegistryReadFailureStillSyncsFolders(t *testing.T) {
	f := newFixture(t)
	f.writeRegistry(t, "111 - Alpha\n999 - Gone\n")
	f.mkdir(t, "999 - Gone")

	store := &failingStore{Store: f.store, readErr: errors.New("input/output error")}
	r := NewReconciler(store, f.publisher)

	res, err := r.Reconcile(context.Background(), []domain.GuildRecord{
		{ID: "111", Name: "Alpha"},
		{ID: "222", Name: "Beta"},
	})
	if err == nil || !strings.Contains(err.Error(), "input/output error") {
		t.Fatalf("expected registry read error, got %v", err)
	}

	if dirs := f.dirs(t); !slices.Equal(dirs, []string{"111 - Alpha", "222 - Beta"}) {
		t.Errorf("expected folders synced without the registry, got %v", dirs)
	}
	if len(store.appended) != 0 || store.rewritten {
		t.Errorf("registry must not be touched after a failed read: appended %v, rewritten %v", store.appended, store.rewritten)
	}
	if got := f.registry(t); got != "111 - Alpha\n999 - Gone\n" {
		t.Errorf("registry changed: %q", got)
	}
	if res.DirsRemoved != 1 || res.Failures != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if f.publisher.calls != 1 {
		t.Error("commands should still be refreshed")
	}
}

func TestReconcile_KeepsUnavailableGuild(t *testing.T) {
	f := newFixture(t)
	f.writeRegistry(t, "111 - Alpha\n333 - Gamma\n")
	f.mkdir(t, "333 - Gamma")
	clip := filepath.Join(f.store.Root(), "333 - Gamma", "hello.mp3")
	if err := os.WriteFile(clip, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewReconciler(f.store, f.publisher)
	res, err := r.Reconcile(context.Background(), []domain.GuildRecord{
		{ID: "111", Name: "Alpha"},
		{ID: "333", Unavailable: true},
		{ID: "444", Unavailable: true},
	})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if got := f.registry(t); got != "111 - Alpha\n333 - Gamma\n" {
		t.Errorf("unexpected registry %q", got)
	}
	if _, err := os.Stat(clip); err != nil {
		t.Errorf("clip of unavailable guild removed: %v", err)
	}
	// nothing is known about 444 beyond its id
	if _, ok := f.store.FindGuildDir("444"); ok {
		t.Error("no folder should be created for an unavailable guild")
	}
	if res.Removed != 0 || res.DirsRemoved != 0 || res.Added != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestReconcile_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.publisher.publishFunc = func(ctx context.Context) error { return errors.New("rate limited") }

	r := NewReconciler(f.store, f.publisher)
	if _, err := r.Reconcile(context.Background(), []domain.GuildRecord{{ID: "111", Name: "Alpha"}}); err != nil {
		t.Errorf("publish failure should not be returned: %v", err)
	}
}

func TestReconcile_NilPublisher(t *testing.T) {
	f := newFixture(t)
	r := NewReconciler(f.store, nil)
	if _, err := r.Reconcile(context.Background(), nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestReconcile_EventSequencesConverge(t *testing.T) {
	tests := []struct {
		name   string
		events []struct {
			join bool
			g    domain.GuildRecord
		}
		live []domain.GuildRecord
	}{
		{
			name: "join then leave",
			events: []struct {
				join bool
				g    domain.GuildRecord
			}{
				{true, domain.GuildRecord{ID: "1", Name: "One"}},
				{true, domain.GuildRecord{ID: "2", Name: "Two"}},
				{false, domain.GuildRecord{ID: "1"}},
			},
			live: []domain.GuildRecord{{ID: "2", Name: "Two"}, {ID: "3", Name: "Three"}},
		},
		{
			name: "repeated joins",
			events: []struct {
				join bool
				g    domain.GuildRecord
			}{
				{true, domain.GuildRecord{ID: "1", Name: "One"}},
				{true, domain.GuildRecord{ID: "1", Name: "One"}},
				{false, domain.GuildRecord{ID: "9"}},
			},
			live: []domain.GuildRecord{{ID: "1", Name: "One"}},
		},
		{
			name: "everything left",
			events: []struct {
				join bool
				g    domain.GuildRecord
			}{
				{true, domain.GuildRecord{ID: "5", Name: "Five"}},
			},
			live: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			r := NewReconciler(f.store, f.publisher)
			ctx := context.Background()

			for _, ev := range tt.events {
				var err error
				if ev.join {
					err = r.AddGuild(ctx, ev.g)
				} else {
					err = r.RemoveGuild(ctx, ev.g.ID)
				}
				if err != nil {
					t.Fatalf("event failed: %v", err)
				}
			}

			if _, err := r.Reconcile(ctx, tt.live); err != nil {
				t.Fatalf("Reconcile failed: %v", err)
			}

			var want []string
			for _, g := range tt.live {
				want = append(want, g.ID)
			}
			sort.Strings(want)

			if got := f.registryIDs(t); !slices.Equal(got, want) {
				t.Errorf("registry ids = %v, want %v", got, want)
			}

			var dirIDs []string
			for _, name := range f.dirs(t) {
				dirIDs = append(dirIDs, domain.LeadingID(name))
			}
			sort.Strings(dirIDs)
			if !slices.Equal(dirIDs, want) {
				t.Errorf("folder ids = %v, want %v", dirIDs, want)
			}
		})
	}
}

func TestAddGuild(t *testing.T) {
	f := newFixture(t)
	f.writeRegistry(t, "111 - Alpha")

	r := NewReconciler(f.store, f.publisher)
	if err := r.AddGuild(context.Background(), domain.GuildRecord{ID: "222", Name: "Beta"}); err != nil {
		t.Fatalf("AddGuild failed: %v", err)
	}
	if err := r.AddGuild(context.Background(), domain.GuildRecord{ID: "222", Name: "Beta"}); err != nil {
		t.Fatalf("second AddGuild failed: %v", err)
	}

	if got := f.registry(t); got != "111 - Alpha\n222 - Beta\n" {
		t.Errorf("unexpected registry %q", got)
	}
	if _, ok := f.store.FindGuildDir("222"); !ok {
		t.Error("expected folder for new guild")
	}
	if f.publisher.calls != 2 {
		t.Errorf("expected 2 command refreshes, got %d", f.publisher.calls)
	}
}

func TestRemoveGuild(t *testing.T) {
	f := newFixture(t)
	f.writeRegistry(t, "111 - Alpha\n1111 - Prefix Twin\n")
	f.mkdir(t, "111 - Alpha")
	f.mkdir(t, "1111 - Prefix Twin")

	r := NewReconciler(f.store, f.publisher)
	if err := r.RemoveGuild(context.Background(), "111"); err != nil {
		t.Fatalf("RemoveGuild failed: %v", err)
	}

	if got := f.registry(t); got != "1111 - Prefix Twin\n" {
		t.Errorf("unexpected registry %q", got)
	}
	if dirs := f.dirs(t); !slices.Equal(dirs, []string{"1111 - Prefix Twin"}) {
		t.Errorf("unexpected folders %v", dirs)
	}

	// removing an unknown guild is a no-op
	if err := r.RemoveGuild(context.Background(), "999"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
