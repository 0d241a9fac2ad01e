package a2a

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/memory-storage/internal/engine"
	"github.com/rcliao/memory-storage/internal/model"
	"github.com/rcliao/memory-storage/internal/store"
)

func newTestRouter(t *testing.T) (*Router, *engine.Engine) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "a2a.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	e := engine.New(s, engine.Options{})
	return NewRouter(e), e
}

func TestWriteCreatesProjectThenReadBack(t *testing.T) {
	ctx := context.Background()
	r, e := newTestRouter(t)

	out, err := r.Handle(ctx, Request{Action: MemoryBankWrite, Parameters: map[string]string{
		ParamProject: "agent-x",
		ParamFile:    "context.md",
		ParamContent: "# A2A Test File",
	}})
	require.NoError(t, err)
	w := out.(WriteResponse)
	assert.Equal(t, "success", w.Status)
	assert.Contains(t, w.Message, "written")
	assert.True(t, w.Created)

	_, err = e.GetProject(ctx, "agent-x")
	require.NoError(t, err)

	out, err = r.Handle(ctx, Request{Action: MemoryBankRead, Parameters: map[string]string{
		ParamProject: "agent-x",
		ParamFile:    "context.md",
	}})
	require.NoError(t, err)
	rd := out.(ReadResponse)
	assert.Equal(t, "# A2A Test File", rd.Content)
	assert.Equal(t, int64(len("# A2A Test File")), rd.Metadata.Size)
	assert.False(t, rd.Metadata.LastModified.IsZero())
}

func TestBinaryContentUsesBase64(t *testing.T) {
	ctx := context.Background()
	r, e := newTestRouter(t)

	blob := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff, 0xc3}
	_, err := r.Handle(ctx, Request{Action: MemoryBankWrite, Parameters: map[string]string{
		ParamProject:  "p",
		ParamFile:     "image.png",
		ParamContent:  base64.StdEncoding.EncodeToString(blob),
		ParamEncoding: model.EncodingBase64,
	}})
	require.NoError(t, err)

	f, err := e.ReadFile(ctx, "p", "image.png")
	require.NoError(t, err)
	assert.Equal(t, blob, f.Content)

	out, err := r.Handle(ctx, Request{Action: MemoryBankRead, Parameters: map[string]string{ParamProject: "p", ParamFile: "image.png"}})
	require.NoError(t, err)
	rd := out.(ReadResponse)
	require.Equal(t, model.EncodingBase64, rd.Encoding)
	got, err := base64.StdEncoding.DecodeString(rd.Content)
	require.NoError(t, err)
	assert.Equal(t, blob, got)
	assert.Equal(t, int64(len(blob)), rd.Metadata.Size)

	_, err = r.Handle(ctx, Request{Action: MemoryBankUpdate, Parameters: map[string]string{
		ParamProject: "p", ParamFile: "image.png", ParamContent: "not base64!", ParamEncoding: model.EncodingBase64,
	}})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	// A rejected write does not create its project.
	_, err = r.Handle(ctx, Request{Action: MemoryBankWrite, Parameters: map[string]string{
		ParamProject: "fresh", ParamFile: "f.md", ParamContent: "x", ParamEncoding: "hex",
	}})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = e.GetProject(ctx, "fresh")
	assert.ErrorIs(t, err, model.ErrProjectNotFound)

	out, err = r.Handle(ctx, Request{Action: MemoryBankRead, Parameters: map[string]string{ParamProject: "p", ParamFile: "image.png"}})
	require.NoError(t, err)
	assert.Equal(t, rd.Content, out.(ReadResponse).Content)
}

func TestWriteTwiceReplaces(t *testing.T) {
	ctx := context.Background()
	r, e := newTestRouter(t)

	for _, content := range []string{"one", "two"} {
		_, err := r.Handle(ctx, Request{Action: MemoryBankWrite, Parameters: map[string]string{
			ParamProject: "p", ParamFile: "f.md", ParamContent: content, ParamMemoryType: string(model.ShortTerm),
		}})
		require.NoError(t, err)
	}
	f, err := e.ReadFile(ctx, "p", "f.md")
	require.NoError(t, err)
	assert.Equal(t, "two", string(f.Content))
	assert.Equal(t, model.ShortTerm, f.MemoryType)
}

func TestUpdateRequiresExistingFile(t *testing.T) {
	ctx := context.Background()
	r, e := newTestRouter(t)
	_, err := e.CreateProject(ctx, "p", "")
	require.NoError(t, err)

	params := map[string]string{ParamProject: "p", ParamFile: "f.md", ParamContent: "x"}
	_, err = r.Handle(ctx, Request{Action: MemoryBankUpdate, Parameters: params})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = r.Handle(ctx, Request{Action: MemoryBankWrite, Parameters: params})
	require.NoError(t, err)

	params[ParamContent] = "updated"
	out, err := r.Handle(ctx, Request{Action: MemoryBankUpdate, Parameters: params})
	require.NoError(t, err)
	assert.Contains(t, out.(WriteResponse).Message, "updated")
}

func TestListActions(t *testing.T) {
	ctx := context.Background()
	r, e := newTestRouter(t)

	out, err := r.Handle(ctx, Request{Action: ListProjects})
	require.NoError(t, err)
	assert.Empty(t, out.(ProjectsResponse).Projects)
	assert.NotNil(t, out.(ProjectsResponse).Projects)

	_, err = e.CreateProject(ctx, "alpha", "")
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, engine.WriteRequest{Project: "alpha", Name: "b.md", Content: []byte("b")})
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, engine.WriteRequest{Project: "alpha", Name: "a.md", Content: []byte("a")})
	require.NoError(t, err)

	out, err = r.Handle(ctx, Request{Action: ListProjects, Parameters: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, out.(ProjectsResponse).Projects)

	out, err = r.Handle(ctx, Request{Action: ListProjectFiles, Parameters: map[string]string{ParamProject: "alpha"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md"}, out.(FilesResponse).Files)

	_, err = r.Handle(ctx, Request{Action: ListProjectFiles, Parameters: map[string]string{ParamProject: "ghost"}})
	assert.ErrorIs(t, err, model.ErrProjectNotFound)
}

func TestInvalidRequests(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRouter(t)

	_, err := r.Handle(ctx, Request{Action: "invalid_action"})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.ErrorContains(t, err, "invalid_action")

	_, err = r.Handle(ctx, Request{Action: MemoryBankRead, Parameters: map[string]string{ParamProject: "p"}})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.ErrorContains(t, err, ParamFile)

	_, err = r.Handle(ctx, Request{Action: MemoryBankWrite, Parameters: map[string]string{
		ParamProject: "../etc", ParamFile: "f.md", ParamContent: "x",
	}})
	assert.ErrorIs(t, err, model.ErrInvalidName)
}

func TestActions(t *testing.T) {
	r, _ := newTestRouter(t)
	assert.Equal(t, []string{
		ListProjectFiles, ListProjects, MemoryBankRead, MemoryBankUpdate, MemoryBankWrite,
	}, r.Actions())
}
