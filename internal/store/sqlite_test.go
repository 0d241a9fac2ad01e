package store

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rcliao/memory-storage/internal/model"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustProject(t *testing.T, s *SQLStore, name string) {
	t.Helper()
	if _, err := s.CreateProject(context.Background(), CreateProjectParams{Name: name}); err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
}

func TestCreateAndListProjects(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := s.CreateProject(ctx, CreateProjectParams{Name: "GLOBAL", Description: "shared"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
	mustProject(t, s, "alpha")

	_, err = s.CreateProject(ctx, CreateProjectParams{Name: "GLOBAL"})
	if !errors.Is(err, model.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	projects, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	if projects[0].Name != "GLOBAL" || projects[1].Name != "alpha" {
		t.Errorf("expected name order [GLOBAL alpha], got [%s %s]", projects[0].Name, projects[1].Name)
	}
	if projects[0].Description != "shared" {
		t.Errorf("expected description 'shared', got %q", projects[0].Description)
	}
}

func TestWriteAndRead(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProject(t, s, "GLOBAL")

	res, err := s.WriteContent(ctx, WriteParams{Project: "GLOBAL", Name: "notes.md", Content: []byte("hello")})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !res.Created {
		t.Error("expected first write to create the file")
	}
	if res.File.MemoryType != model.DefaultMemoryType {
		t.Errorf("expected default memory type, got %q", res.File.MemoryType)
	}

	res, err = s.WriteContent(ctx, WriteParams{Project: "GLOBAL", Name: "notes.md", Content: []byte("hello world")})
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if res.Created {
		t.Error("expected second write to update")
	}

	f, err := s.ReadContent(ctx, "GLOBAL", "notes.md")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(f.Content) != "hello world" {
		t.Errorf("expected 'hello world', got %q", f.Content)
	}
	if f.Size != int64(len("hello world")) {
		t.Errorf("expected size %d, got %d", len("hello world"), f.Size)
	}
	if f.ContentType != model.DefaultContentType {
		t.Errorf("expected content type %q, got %q", model.DefaultContentType, f.ContentType)
	}
}

func TestWriteBinaryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProject(t, s, "bin")

	payload := []byte{0x00, 0xff, 0x10, 0x00, 'a', 0x80}
	if _, err := s.WriteContent(ctx, WriteParams{Project: "bin", Name: "blob.bin", Content: payload, ContentType: "application/octet-stream"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := s.ReadContent(ctx, "bin", "blob.bin")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(f.Content, payload) {
		t.Errorf("expected %v, got %v", payload, f.Content)
	}
}

func TestWriteKeepsMemoryTypeWhenUnset(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProject(t, s, "p")

	s.WriteContent(ctx, WriteParams{Project: "p", Name: "f", Content: []byte("1"), MemoryType: model.ShortTerm})
	res, err := s.WriteContent(ctx, WriteParams{Project: "p", Name: "f", Content: []byte("2")})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if res.File.MemoryType != model.ShortTerm {
		t.Errorf("expected SHORT_TERM to be kept, got %q", res.File.MemoryType)
	}
}

func TestWriteMustExist(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProject(t, s, "p")

	_, err := s.WriteContent(ctx, WriteParams{Project: "p", Name: "missing", Content: []byte("x"), MustExist: true})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.ReadContent(ctx, "p", "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected update of missing file to create nothing, got %v", err)
	}
}

func TestWriteMustNotExist(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProject(t, s, "p")

	res, err := s.WriteContent(ctx, WriteParams{Project: "p", Name: "f", Content: []byte("one"), MustNotExist: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !res.Created {
		t.Error("expected Created on first write")
	}
	_, err = s.WriteContent(ctx, WriteParams{Project: "p", Name: "f", Content: []byte("two"), MustNotExist: true})
	if !errors.Is(err, model.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	f, err := s.ReadContent(ctx, "p", "f")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(f.Content) != "one" {
		t.Errorf("content = %q, want original", f.Content)
	}
}

func TestWriteMissingProject(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.WriteContent(ctx, WriteParams{Project: "nope", Name: "f", Content: []byte("x")})
	if !errors.Is(err, model.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestReadErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProject(t, s, "p")

	if _, err := s.ReadContent(ctx, "p", "absent"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.ReadContent(ctx, "absent", "f"); !errors.Is(err, model.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestCreateFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProject(t, s, "p")

	info, err := s.CreateFile(ctx, CreateFileParams{Project: "p", Name: "todo.md", MemoryType: model.ProjectMT})
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	if info.Size != 0 || info.MemoryType != model.ProjectMT {
		t.Errorf("unexpected file info: %+v", info)
	}

	if _, err := s.CreateFile(ctx, CreateFileParams{Project: "p", Name: "todo.md"}); !errors.Is(err, model.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := s.CreateFile(ctx, CreateFileParams{Project: "q", Name: "todo.md"}); !errors.Is(err, model.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}

	f, err := s.ReadContent(ctx, "p", "todo.md")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(f.Content) != 0 {
		t.Errorf("expected empty content, got %q", f.Content)
	}
}

func TestDeleteFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProject(t, s, "p")
	s.WriteContent(ctx, WriteParams{Project: "p", Name: "a", Content: []byte("a")})

	if err := s.DeleteFile(ctx, "p", "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteFile(ctx, "p", "a"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := s.ReadContent(ctx, "p", "a"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected deleted file to be gone, got %v", err)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProject(t, s, "GLOBAL")
	mustProject(t, s, "keep")
	s.WriteContent(ctx, WriteParams{Project: "GLOBAL", Name: "notes.md", Content: []byte("hello")})
	s.WriteContent(ctx, WriteParams{Project: "keep", Name: "notes.md", Content: []byte("kept")})

	if err := s.DeleteProject(ctx, "GLOBAL"); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if _, err := s.ReadContent(ctx, "GLOBAL", "notes.md"); !errors.Is(err, model.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
	if err := s.DeleteProject(ctx, "GLOBAL"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}

	f, err := s.ReadContent(ctx, "keep", "notes.md")
	if err != nil || string(f.Content) != "kept" {
		t.Errorf("expected sibling project untouched, got %v %v", f, err)
	}
	st, _ := s.Stats(ctx)
	if st.Files != 1 {
		t.Errorf("expected 1 file left, got %d", st.Files)
	}
}

func TestListFilesAndCounts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProject(t, s, "p")
	s.WriteContent(ctx, WriteParams{Project: "p", Name: "b.md", Content: []byte("bb")})
	s.WriteContent(ctx, WriteParams{Project: "p", Name: "a.md", Content: []byte("a")})

	files, err := s.ListFiles(ctx, "p")
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 2 || files[0].Name != "a.md" || files[1].Name != "b.md" {
		t.Fatalf("expected [a.md b.md], got %+v", files)
	}
	if files[1].Size != 2 {
		t.Errorf("expected size 2, got %d", files[1].Size)
	}

	p, err := s.GetProject(ctx, "p")
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if p.FileCount != 2 {
		t.Errorf("expected file_count 2, got %d", p.FileCount)
	}

	if _, err := s.ListFiles(ctx, "missing"); !errors.Is(err, model.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
	if _, err := s.GetProject(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "durable.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.CreateProject(ctx, CreateProjectParams{Name: "p"})
	if _, err := s.WriteContent(ctx, WriteParams{Project: "p", Name: "f", Content: []byte("durable")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	s.Close()

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	f, err := s2.ReadContent(ctx, "p", "f")
	if err != nil {
		t.Fatalf("read after reopen: %v", err)
	}
	if string(f.Content) != "durable" {
		t.Errorf("expected 'durable', got %q", f.Content)
	}
}

func TestSnapshotAndReplace(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.CreateProject(ctx, CreateProjectParams{Name: "A", Description: "first"})
	mustProject(t, s, "B")
	s.WriteContent(ctx, WriteParams{Project: "A", Name: "one.md", Content: []byte("1"), MemoryType: model.ShortTerm})
	s.WriteContent(ctx, WriteParams{Project: "B", Name: "two.md", Content: []byte("2")})

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Projects) != 2 || len(snap.Files) != 2 {
		t.Fatalf("expected 2 projects and 2 files, got %d and %d", len(snap.Projects), len(snap.Files))
	}

	mustProject(t, s, "C")
	s.DeleteProject(ctx, "A")
	s.WriteContent(ctx, WriteParams{Project: "B", Name: "two.md", Content: []byte("changed")})

	if err := s.Replace(ctx, snap); err != nil {
		t.Fatalf("replace: %v", err)
	}

	after, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot after: %v", err)
	}
	if len(after.Projects) != 2 || after.Projects[0].Name != "A" || after.Projects[1].Name != "B" {
		t.Fatalf("expected projects [A B], got %+v", after.Projects)
	}
	if after.Projects[0].Description != "first" {
		t.Errorf("expected description kept, got %q", after.Projects[0].Description)
	}
	if !after.Projects[0].CreatedAt.Equal(snap.Projects[0].CreatedAt) {
		t.Errorf("expected created_at kept")
	}
	for i := range snap.Files {
		want, got := snap.Files[i], after.Files[i]
		if want.Project != got.Project || want.Name != got.Name || !bytes.Equal(want.Content, got.Content) ||
			want.MemoryType != got.MemoryType || !want.LastModified.Equal(got.LastModified) {
			t.Errorf("file %d: expected %+v, got %+v", i, want, got)
		}
	}
}

func TestReplaceFailureLeavesStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProject(t, s, "live")
	s.WriteContent(ctx, WriteParams{Project: "live", Name: "f", Content: []byte("keep me")})

	// A file under a project the snapshot does not declare violates the foreign key.
	bad := &model.Snapshot{
		Projects: []model.Project{{Name: "x"}},
		Files: []model.File{{
			FileInfo: model.FileInfo{Project: "ghost", Name: "f", MemoryType: model.LongTerm, ContentType: "text/plain"},
			Content:  []byte("nope"),
		}},
	}
	if err := s.Replace(ctx, bad); err == nil {
		t.Fatal("expected replace to fail")
	}

	f, err := s.ReadContent(ctx, "live", "f")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(f.Content) != "keep me" {
		t.Errorf("expected live content untouched, got %q", f.Content)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProject(t, s, "p")
	s.WriteContent(ctx, WriteParams{Project: "p", Name: "a", Content: []byte("abc"), MemoryType: model.GlobalMT})
	s.WriteContent(ctx, WriteParams{Project: "p", Name: "b", Content: []byte("de")})

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Backend != "sqlite" || st.Projects != 1 || st.Files != 2 || st.ContentBytes != 5 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if st.MemoryTypes["GLOBAL"] != 1 || st.MemoryTypes["LONG_TERM"] != 1 {
		t.Errorf("unexpected memory type counts: %v", st.MemoryTypes)
	}
}
