// Package backup writes point-in-time archives of the store, retains a bounded number of
// them, and restores the store from one.
package backup

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/rcliao/memory-storage/internal/model"
)

const (
	archiveExt = ".tar.gz"
	sidecarExt = ".json"
	tmpExt     = ".tmp"

	// DefaultMaxBackups is the retention bound used when none is configured.
	DefaultMaxBackups = 5
)

// Source is the store being backed up. The engine implements it.
type Source interface {
	Snapshot(ctx context.Context) (*model.Snapshot, error)
	Restore(ctx context.Context, snap *model.Snapshot) error
}

// Config controls where archives live, how many are kept and how often they are taken.
type Config struct {
	Dir              string
	MaxBackups       int
	Interval         time.Duration // zero disables the timer
	OnStartup        bool
	CompressionLevel int
	Logger           *slog.Logger
}

// State is the manager's current activity.
type State string

const (
	StateIdle         State = "idle"
	StateSnapshotting State = "snapshotting"
	StateRestoring    State = "restoring"
	StateFailed       State = "failed"
)

// Status is a point-in-time view of the manager for status endpoints.
type Status struct {
	State      State      `json:"state" yaml:"state" toml:"state"`
	LastError  string     `json:"last_error,omitempty" yaml:"last_error,omitempty" toml:"last_error,omitempty"`
	LastBackup *time.Time `json:"last_backup,omitempty" yaml:"last_backup,omitempty" toml:"last_backup,omitempty"`
	Archives   int        `json:"archives" yaml:"archives" toml:"archives"`
	MaxBackups int        `json:"max_backups" yaml:"max_backups" toml:"max_backups"`
	Interval   string     `json:"interval" yaml:"interval" toml:"interval"`
}

// TriggerParams labels a backup. Both fields are optional.
type TriggerParams struct {
	Name    string
	Comment string
}

// Manager owns the archive directory.
type Manager struct {
	src    Source
	cfg    Config
	logger *slog.Logger

	// opMu serialises backups and restores.
	opMu sync.Mutex

	stateMu    sync.RWMutex
	state      State
	lastErr    error
	lastBackup time.Time

	idMu    sync.Mutex
	entropy io.Reader

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	closed   atomic.Bool

	now func() time.Time
}

// NewManager prepares cfg.Dir and removes leftovers of interrupted backups.
func NewManager(src Source, cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, errors.New("backup dir is required")
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = DefaultMaxBackups
	}
	if cfg.CompressionLevel == 0 {
		cfg.CompressionLevel = gzip.DefaultCompression
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	m := &Manager{
		src:     src,
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "backup"),
		state:   StateIdle,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	if err := m.cleanup(); err != nil {
		return nil, err
	}
	if archives, err := m.List(context.Background()); err == nil {
		retainedArchives.Set(float64(len(archives)))
	}
	return m, nil
}

// Dir returns the archive directory.
func (m *Manager) Dir() string { return m.cfg.Dir }

// State returns the current state.
func (m *Manager) State() State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// Status reports the state together with retention details.
func (m *Manager) Status(ctx context.Context) Status {
	m.stateMu.RLock()
	st := Status{
		State:      m.state,
		MaxBackups: m.cfg.MaxBackups,
		Interval:   m.cfg.Interval.String(),
	}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	if !m.lastBackup.IsZero() {
		t := m.lastBackup
		st.LastBackup = &t
	}
	m.stateMu.RUnlock()

	if archives, err := m.List(ctx); err == nil {
		st.Archives = len(archives)
	}
	return st
}

func (m *Manager) setState(s State, err error) {
	m.stateMu.Lock()
	m.state = s
	m.lastErr = err
	m.stateMu.Unlock()
}

// Trigger takes a backup now, waiting for any backup or restore already running.
func (m *Manager) Trigger(ctx context.Context, p TriggerParams) (*model.Archive, error) {
	if m.closed.Load() {
		return nil, model.ArchiveError("backup", model.ErrClosed, "", nil)
	}
	if p.Name != "" && !model.ValidFileName(p.Name) {
		return nil, &model.Error{Op: "backup", Kind: model.ErrInvalidName, Archive: p.Name}
	}
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.backupLocked(ctx, p)
}

// backupLocked runs one backup. The caller holds opMu.
func (m *Manager) backupLocked(ctx context.Context, p TriggerParams) (*model.Archive, error) {
	ctx, span := tracer.Start(ctx, "backup.create")
	defer span.End()
	logger := loggerWithTrace(ctx, m.logger)

	start := time.Now()
	m.setState(StateSnapshotting, nil)

	arch, err := m.createArchive(ctx, p)
	elapsed := time.Since(start)
	if err != nil {
		backupDuration.WithLabelValues("failure").Observe(elapsed.Seconds())
		operationsTotal.WithLabelValues("backup", "failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "backup failed")
		m.setState(StateIdle, err)
		logger.Error("backup failed", "error", err, "duration", elapsed)
		return nil, err
	}

	backupDuration.WithLabelValues("success").Observe(elapsed.Seconds())
	operationsTotal.WithLabelValues("backup", "success").Inc()
	lastArchiveSize.Set(float64(arch.Size))
	span.SetAttributes(
		attribute.String("archive.id", arch.ID),
		attribute.Int64("archive.size", arch.Size),
		attribute.Int("archive.files", arch.FileCount),
	)

	m.stateMu.Lock()
	m.state = StateIdle
	m.lastErr = nil
	m.lastBackup = arch.CreatedAt
	m.stateMu.Unlock()

	logger.Info("backup created",
		"id", arch.ID,
		"name", arch.Name,
		"projects", len(arch.Projects),
		"files", arch.FileCount,
		"size", arch.Size,
		"duration", elapsed,
	)

	if err := m.enforceRetention(ctx); err != nil {
		logger.Warn("retention failed", "error", err)
	}
	return arch, nil
}

func (m *Manager) createArchive(ctx context.Context, p TriggerParams) (*model.Archive, error) {
	snap, err := m.src.Snapshot(ctx)
	if err != nil {
		return nil, model.ArchiveError("backup", model.ErrBackupFailed, "", err)
	}

	now := m.now().UTC()
	id := m.newID(now)
	meta := &model.Archive{
		ID:        id,
		Name:      p.Name,
		Comment:   p.Comment,
		CreatedAt: now,
		Projects:  make([]string, len(snap.Projects)),
		FileCount: len(snap.Files),
	}
	if meta.Name == "" {
		meta.Name = "backup_" + now.Format("20060102_150405")
	}
	for i, pr := range snap.Projects {
		meta.Projects[i] = pr.Name
	}

	archivePath := m.archivePath(id)
	size, sum, err := m.writeArchive(archivePath, snap, meta)
	if err != nil {
		return nil, model.ArchiveError("backup", model.ErrBackupFailed, id, err)
	}
	meta.Size = size
	meta.SHA256 = sum
	meta.Path = archivePath

	// The sidecar commits the archive; without it the archive is never listed.
	if err := writeJSONAtomic(m.sidecarPath(id), meta); err != nil {
		os.Remove(archivePath)
		return nil, model.ArchiveError("backup", model.ErrBackupFailed, id, err)
	}
	if err := syncDir(m.cfg.Dir); err != nil {
		os.Remove(m.sidecarPath(id))
		os.Remove(archivePath)
		return nil, model.ArchiveError("backup", model.ErrBackupFailed, id, err)
	}
	return meta, nil
}

func (m *Manager) writeArchive(dst string, snap *model.Snapshot, meta *model.Archive) (int64, string, error) {
	tmp, err := os.CreateTemp(m.cfg.Dir, filepath.Base(dst)+".*"+tmpExt)
	if err != nil {
		return 0, "", fmt.Errorf("create temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	h := sha256.New()
	cw := &countingWriter{}
	if err := encodeArchive(io.MultiWriter(tmp, h, cw), snap, meta, m.cfg.CompressionLevel); err != nil {
		return 0, "", err
	}
	if err := tmp.Sync(); err != nil {
		return 0, "", fmt.Errorf("sync archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, "", fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return 0, "", fmt.Errorf("rename archive: %w", err)
	}
	committed = true
	return cw.n, hex.EncodeToString(h.Sum(nil)), nil
}

// List returns committed archives, newest first.
func (m *Manager) List(ctx context.Context) ([]model.Archive, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var out []model.Archive
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), sidecarExt) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), sidecarExt)
		arch, err := m.readSidecar(id)
		if err != nil {
			m.logger.Debug("skipping unreadable archive", "id", id, "error", err)
			continue
		}
		out = append(out, *arch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Get returns one archive's metadata.
func (m *Manager) Get(ctx context.Context, id string) (*model.Archive, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return nil, model.ArchiveError("get backup", model.ErrArchiveNotFound, id, nil)
	}
	arch, err := m.readSidecar(id)
	if errors.Is(err, os.ErrNotExist) {
		return nil, model.ArchiveError("get backup", model.ErrArchiveNotFound, id, nil)
	}
	if err != nil {
		return nil, model.ArchiveError("get backup", model.ErrStorage, id, err)
	}
	return arch, nil
}

func (m *Manager) readSidecar(id string) (*model.Archive, error) {
	b, err := os.ReadFile(m.sidecarPath(id))
	if err != nil {
		return nil, err
	}
	var arch model.Archive
	if err := json.Unmarshal(b, &arch); err != nil {
		return nil, fmt.Errorf("parse sidecar: %w", err)
	}
	if arch.ID != id {
		return nil, fmt.Errorf("sidecar id %q does not match %q", arch.ID, id)
	}
	arch.Path = m.archivePath(id)
	if _, err := os.Stat(arch.Path); err != nil {
		return nil, err
	}
	return &arch, nil
}

// Restore replaces the store with the contents of archive id. The archive is verified and
// decoded before the store is touched; on any failure the store keeps its current contents.
func (m *Manager) Restore(ctx context.Context, id string) (*model.Archive, error) {
	if m.closed.Load() {
		return nil, model.ArchiveError("restore", model.ErrClosed, id, nil)
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	// Resolved under opMu; retention evicts under it too.
	arch, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "backup.restore")
	defer span.End()
	span.SetAttributes(attribute.String("archive.id", id))
	logger := loggerWithTrace(ctx, m.logger)

	start := time.Now()
	m.setState(StateRestoring, nil)

	err = m.restoreArchive(ctx, arch)
	elapsed := time.Since(start)
	if err != nil {
		err = model.ArchiveError("restore", model.ErrRestoreFailed, id, err)
		restoreDuration.WithLabelValues("failure").Observe(elapsed.Seconds())
		operationsTotal.WithLabelValues("restore", "failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "restore failed")
		m.setState(StateFailed, err)
		logger.Error("restore failed", "id", id, "error", err, "duration", elapsed)
		return nil, err
	}

	restoreDuration.WithLabelValues("success").Observe(elapsed.Seconds())
	operationsTotal.WithLabelValues("restore", "success").Inc()
	m.setState(StateIdle, nil)
	logger.Info("restore completed", "id", id, "name", arch.Name, "files", arch.FileCount, "duration", elapsed)
	return arch, nil
}

func (m *Manager) restoreArchive(ctx context.Context, arch *model.Archive) error {
	snap, err := stageArchive(arch)
	if err != nil {
		return err
	}
	return m.src.Restore(ctx, snap)
}

// stageArchive verifies the checksum and decodes the whole archive into memory.
func stageArchive(arch *model.Archive) (*model.Snapshot, error) {
	f, err := os.Open(arch.Path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	if sum := hex.EncodeToString(h.Sum(nil)); sum != arch.SHA256 {
		return nil, fmt.Errorf("checksum mismatch: got %s, want %s", sum, arch.SHA256)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind archive: %w", err)
	}
	snap, mf, err := decodeArchive(f)
	if err != nil {
		return nil, err
	}
	if mf.ID != arch.ID {
		return nil, fmt.Errorf("archive manifest id %q does not match %q", mf.ID, arch.ID)
	}
	return snap, nil
}

// enforceRetention removes the oldest committed archives beyond MaxBackups.
func (m *Manager) enforceRetention(ctx context.Context) error {
	archives, err := m.List(ctx)
	if err != nil {
		return err
	}
	if m.cfg.MaxBackups > 0 && len(archives) > m.cfg.MaxBackups {
		for _, a := range archives[m.cfg.MaxBackups:] {
			// Sidecar first: an archive without one is invisible and cleaned up at startup.
			if err := os.Remove(m.sidecarPath(a.ID)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove sidecar %s: %w", a.ID, err)
			}
			if err := os.Remove(m.archivePath(a.ID)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove archive %s: %w", a.ID, err)
			}
			m.logger.Info("backup evicted", "id", a.ID, "name", a.Name)
		}
		archives = archives[:m.cfg.MaxBackups]
	}
	retainedArchives.Set(float64(len(archives)))
	return nil
}

// cleanup removes temp files and archives whose sidecar was never written.
func (m *Manager) cleanup() error {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		return fmt.Errorf("read backup dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case strings.HasSuffix(name, tmpExt):
		case strings.HasSuffix(name, archiveExt):
			id := strings.TrimSuffix(name, archiveExt)
			if _, err := os.Stat(m.sidecarPath(id)); err == nil {
				continue
			}
		default:
			continue
		}
		if err := os.Remove(filepath.Join(m.cfg.Dir, name)); err != nil {
			return fmt.Errorf("remove %s: %w", name, err)
		}
		m.logger.Info("removed incomplete backup file", "file", name)
	}
	return nil
}

func (m *Manager) newID(t time.Time) string {
	m.idMu.Lock()
	defer m.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), m.entropy).String()
}

func (m *Manager) archivePath(id string) string {
	return filepath.Join(m.cfg.Dir, id+archiveExt)
}

func (m *Manager) sidecarPath(id string) string {
	return filepath.Join(m.cfg.Dir, id+sidecarExt)
}

type countingWriter struct{ n int64 }

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

// writeJSONAtomic writes v to path via a synced temp file and rename.
func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*"+tmpExt)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync dir: %w", err)
	}
	return nil
}
