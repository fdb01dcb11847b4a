package filesystem

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"voice-greeter/internal/core/domain"

	"github.com/gofrs/flock"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultDirName = "default"
	CommonDirName  = "com"
)

var (
	guildExtensions  = []string{"mp3", "wav", "m4a", "ogg"}
	commonExtensions = []string{"mp3", "wav", "m4a", "ogg", "flac"}

	ErrReservedDir = errors.New("reserved library directory")
	ErrInvalidDir  = errors.New("invalid library directory name")
)

// Store owns the music library tree and the guild registry file.
type Store struct {
	root         string
	registryPath string

	mu   sync.Mutex
	lock *flock.Flock
	intn func(n int) int
}

func NewStore(root, registryPath string) *Store {
	return &Store{
		root:         root,
		registryPath: registryPath,
		lock:         flock.New(registryPath + ".lock"),
		intn:         rand.Intn,
	}
}

func (s *Store) Root() string       { return s.root }
func (s *Store) DefaultDir() string { return filepath.Join(s.root, DefaultDirName) }
func (s *Store) CommonDir() string  { return filepath.Join(s.root, CommonDirName) }

// EnsureLayout creates the library root, the reserved directories and an
// empty registry file. It is safe to call repeatedly.
func (s *Store) EnsureLayout() error {
	for _, dir := range []string{s.root, s.DefaultDir(), s.CommonDir(), filepath.Dir(s.registryPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(s.registryPath, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create registry: %w", err)
	}
	return f.Close()
}

// -- Registry --

func (s *Store) ReadRegistry() ([]domain.GuildRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock registry: %w", err)
	}
	defer s.lock.Unlock()

	return s.readRegistry()
}

func (s *Store) WriteRegistry(records []domain.GuildRecord) error {
	return s.withWriteLock(func() error {
		return s.writeRegistry(records)
	})
}

// AppendGuild adds one record, inserting a newline first when the file does
// not already end with one.
func (s *Store) AppendGuild(record domain.GuildRecord) error {
	return s.withWriteLock(func() error {
		existing, err := os.ReadFile(s.registryPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read registry: %w", err)
		}

		line := FormatRecord(record) + "\n"
		if len(existing) > 0 && existing[len(existing)-1] != '\n' {
			line = "\n" + line
		}

		f, err := os.OpenFile(s.registryPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open registry: %w", err)
		}
		if _, err := f.WriteString(line); err != nil {
			f.Close()
			return fmt.Errorf("append registry: %w", err)
		}
		return f.Close()
	})
}

func (s *Store) withWriteLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock registry: %w", err)
	}
	defer s.lock.Unlock()

	return fn()
}

func (s *Store) readRegistry() ([]domain.GuildRecord, error) {
	data, err := os.ReadFile(s.registryPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return ParseRegistry(string(data)), nil
}

func (s *Store) writeRegistry(records []domain.GuildRecord) error {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(FormatRecord(r))
		b.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.registryPath), ".registry-*")
	if err != nil {
		return fmt.Errorf("create temp registry: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp registry: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp registry: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.registryPath); err != nil {
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}

// ParseRegistry reads one record per non-empty line. A line without the
// separator is taken as a bare id.
func ParseRegistry(content string) []domain.GuildRecord {
	var records []domain.GuildRecord
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		id, name, _ := strings.Cut(line, domain.RecordSeparator)
		records = append(records, domain.GuildRecord{
			ID:   strings.TrimSpace(id),
			Name: name,
		})
	}
	return records
}

func FormatRecord(r domain.GuildRecord) string {
	if r.Name == "" {
		return r.ID
	}
	return r.ID + domain.RecordSeparator + flattenLine(r.Name)
}

func flattenLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// -- Library directories --

// DirName is the directory name used for a guild's library.
func DirName(r domain.GuildRecord) string {
	name := sanitizeName(r.Name)
	if name == "" {
		return r.ID
	}
	return r.ID + domain.RecordSeparator + name
}

func sanitizeName(name string) string {
	name = norm.NFC.String(flattenLine(name))
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, name)
	return strings.TrimSpace(name)
}

// EnsureGuildDir creates the guild's directory unless one already exists for
// its id, so renamed guilds keep a single folder.
func (s *Store) EnsureGuildDir(record domain.GuildRecord) error {
	if _, ok := s.FindGuildDir(record.ID); ok {
		return nil
	}
	dir := filepath.Join(s.root, DirName(record))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create guild dir %s: %w", dir, err)
	}
	return nil
}

// FindGuildDir returns the path of the directory whose leading id segment
// matches guildID.
func (s *Store) FindGuildDir(guildID string) (string, bool) {
	if guildID == "" {
		return "", false
	}
	names, err := s.ListLibraryDirs()
	if err != nil {
		return "", false
	}
	for _, name := range names {
		if domain.LeadingID(name) == guildID {
			return filepath.Join(s.root, name), true
		}
	}
	return "", false
}

// ListLibraryDirs lists top-level directories except the reserved ones.
func (s *Store) ListLibraryDirs() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read library root: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() || IsReserved(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (s *Store) RemoveDir(name string) error {
	if IsReserved(name) {
		return fmt.Errorf("%w: %s", ErrReservedDir, name)
	}
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidDir, name)
	}
	return os.RemoveAll(filepath.Join(s.root, name))
}

func IsReserved(name string) bool {
	return name == DefaultDirName || name == CommonDirName
}

// -- Audio files --

func (s *Store) ListAudioFiles(dir string) []string {
	return listFiles(dir, guildExtensions)
}

func (s *Store) ListCommonClips() []string {
	return listFiles(s.CommonDir(), commonExtensions)
}

// PickRandom returns a uniformly chosen audio file name from dir.
func (s *Store) PickRandom(dir string) (string, bool) {
	files := s.ListAudioFiles(dir)
	if len(files) == 0 {
		return "", false
	}
	return files[s.intn(len(files))], true
}

func listFiles(dir string, extensions []string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if hasExtension(e.Name(), extensions) {
			files = append(files, e.Name())
		}
	}
	return files
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return false
	}
	for _, allowed := range extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
