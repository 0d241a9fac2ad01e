package model

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidProjectName(t *testing.T) {
	cases := map[string]bool{
		"GLOBAL":                   true,
		"my-project_1":             true,
		"":                         false,
		"has space":                false,
		"dot.name":                 false,
		"../etc":                   false,
		"a/b":                      false,
		strings.Repeat("x", 100):   true,
		strings.Repeat("x", 101):   false,
	}
	for name, want := range cases {
		if got := ValidProjectName(name); got != want {
			t.Errorf("ValidProjectName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestValidFileName(t *testing.T) {
	cases := map[string]bool{
		"notes.md":         true,
		"context_2024.txt": true,
		".":                false,
		"..":               false,
		"a..b":             false,
		"../secret":        false,
		"dir/file.md":      false,
		`dir\file.md`:      false,
		"":                 false,
	}
	for name, want := range cases {
		if got := ValidFileName(name); got != want {
			t.Errorf("ValidFileName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestErrorIsKindAndCause(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("write: %w", StorageError("write", "GLOBAL", "notes.md", cause))

	if !errors.Is(err, ErrStorage) {
		t.Error("expected ErrStorage")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if KindOf(err) != ErrStorage {
		t.Errorf("expected kind ErrStorage, got %v", KindOf(err))
	}
	if !strings.Contains(err.Error(), "GLOBAL/notes.md") {
		t.Errorf("expected identifier in message, got %q", err.Error())
	}
}

func TestKindOfPlainSentinel(t *testing.T) {
	err := fmt.Errorf("lookup: %w", ErrArchiveNotFound)
	if KindOf(err) != ErrArchiveNotFound {
		t.Errorf("expected ErrArchiveNotFound, got %v", KindOf(err))
	}
	if KindOf(errors.New("other")) != nil {
		t.Error("expected nil kind for untyped error")
	}
}

func TestSnapshotFileCount(t *testing.T) {
	s := &Snapshot{Files: []File{
		{FileInfo: FileInfo{Project: "a", Name: "1"}},
		{FileInfo: FileInfo{Project: "a", Name: "2"}},
		{FileInfo: FileInfo{Project: "b", Name: "1"}},
	}}
	if s.FileCount("a") != 2 || s.FileCount("b") != 1 || s.FileCount("c") != 0 {
		t.Errorf("unexpected counts: a=%d b=%d c=%d", s.FileCount("a"), s.FileCount("b"), s.FileCount("c"))
	}
}

func TestSnapshotValidate(t *testing.T) {
	ok := &Snapshot{
		Projects: []Project{{Name: "a"}, {Name: "b"}},
		Files:    []File{{FileInfo: FileInfo{Project: "a", Name: "x.md"}}},
	}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid snapshot, got %v", err)
	}

	orphan := &Snapshot{
		Projects: []Project{{Name: "a"}},
		Files:    []File{{FileInfo: FileInfo{Project: "ghost", Name: "x.md"}}},
	}
	if err := orphan.Validate(); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}

	dup := &Snapshot{Projects: []Project{{Name: "a"}, {Name: "a"}}}
	if err := dup.Validate(); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	bad := &Snapshot{Projects: []Project{{Name: "../x"}}}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
}

func TestContentEncoding(t *testing.T) {
	cases := []struct {
		in  []byte
		enc string
	}{
		{[]byte("plain text"), ""},
		{[]byte("héllo wörld"), ""},
		{[]byte{}, ""},
		{[]byte{0x00, 0xff, 0xfe, 0x10}, EncodingBase64},
		{[]byte{'o', 'k', 0xc3}, EncodingBase64},
	}
	for _, c := range cases {
		content, enc := EncodeContent(c.in)
		if enc != c.enc {
			t.Errorf("EncodeContent(%v) encoding = %q, want %q", c.in, enc, c.enc)
		}
		got, err := DecodeContent("test", content, enc)
		if err != nil {
			t.Fatalf("DecodeContent(%q, %q): %v", content, enc, err)
		}
		if !bytes.Equal(got, c.in) {
			t.Errorf("round trip of %v gave %v", c.in, got)
		}
	}

	for _, c := range []struct{ content, enc string }{
		{"not base64!", EncodingBase64},
		{"abc", "hex"},
	} {
		_, err := DecodeContent("test", c.content, c.enc)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("DecodeContent(%q, %q) = %v, want ErrInvalidInput", c.content, c.enc, err)
		}
	}
}
