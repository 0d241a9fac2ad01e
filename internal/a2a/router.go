// Package a2a dispatches agent-to-agent action requests onto the engine.
package a2a

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rcliao/memory-storage/internal/engine"
	"github.com/rcliao/memory-storage/internal/model"
	"github.com/rcliao/memory-storage/internal/store"
)

// Action names.
const (
	ListProjects     = "list_projects"
	ListProjectFiles = "list_project_files"
	MemoryBankRead   = "memory_bank_read"
	MemoryBankWrite  = "memory_bank_write"
	MemoryBankUpdate = "memory_bank_update"
)

// Parameter names.
const (
	ParamProject    = "projectName"
	ParamFile       = "fileName"
	ParamContent    = "content"
	ParamMemoryType = "memoryType"
	// ParamEncoding is "base64" when content is not UTF-8 text.
	ParamEncoding = "encoding"
)

const statusSuccess = "success"

// Request is one action invocation.
type Request struct {
	Action     string            `json:"action"`
	Parameters map[string]string `json:"parameters"`
}

// Engine is the subset of the engine the router drives.
type Engine interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	CreateProject(ctx context.Context, name, description string) (*model.Project, error)
	ListFiles(ctx context.Context, project, pattern string) ([]model.FileInfo, error)
	ReadFile(ctx context.Context, project, name string) (*model.File, error)
	WriteFile(ctx context.Context, r engine.WriteRequest) (*store.WriteResult, error)
	UpdateFile(ctx context.Context, r engine.WriteRequest) (*store.WriteResult, error)
}

// ProjectsResponse answers list_projects.
type ProjectsResponse struct {
	Status   string   `json:"status"`
	Projects []string `json:"projects"`
}

// FilesResponse answers list_project_files.
type FilesResponse struct {
	Status string   `json:"status"`
	Files  []string `json:"files"`
}

// Metadata describes a file returned by memory_bank_read.
type Metadata struct {
	LastModified time.Time        `json:"lastModified"`
	Size         int64            `json:"size"`
	MemoryType   model.MemoryType `json:"memoryType"`
	ContentType  string           `json:"contentType"`
}

// ReadResponse answers memory_bank_read. Content that is not valid UTF-8 is
// base64 encoded and Encoding says so.
type ReadResponse struct {
	Status   string   `json:"status"`
	Content  string   `json:"content"`
	Encoding string   `json:"encoding,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// WriteResponse answers memory_bank_write and memory_bank_update.
type WriteResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Created bool     `json:"created"`
	Meta    Metadata `json:"metadata"`
}

type handler struct {
	required []string
	fn       func(ctx context.Context, params map[string]string) (interface{}, error)
}

// Router maps action names to engine calls.
type Router struct {
	engine   Engine
	handlers map[string]handler
}

// NewRouter returns a router over e.
func NewRouter(e Engine) *Router {
	r := &Router{engine: e}
	r.handlers = map[string]handler{
		ListProjects:     {fn: r.listProjects},
		ListProjectFiles: {required: []string{ParamProject}, fn: r.listProjectFiles},
		MemoryBankRead:   {required: []string{ParamProject, ParamFile}, fn: r.read},
		MemoryBankWrite:  {required: []string{ParamProject, ParamFile, ParamContent}, fn: r.write},
		MemoryBankUpdate: {required: []string{ParamProject, ParamFile, ParamContent}, fn: r.update},
	}
	return r
}

// Actions lists the supported action names.
func (r *Router) Actions() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Handle runs req. Unknown actions and missing parameters fail with ErrInvalidInput.
func (r *Router) Handle(ctx context.Context, req Request) (interface{}, error) {
	h, ok := r.handlers[req.Action]
	if !ok {
		return nil, &model.Error{Op: "a2a", Kind: model.ErrInvalidInput, Err: fmt.Errorf("unknown action %q", req.Action)}
	}
	params := req.Parameters
	if params == nil {
		params = map[string]string{}
	}
	for _, p := range h.required {
		if _, ok := params[p]; !ok {
			return nil, &model.Error{Op: req.Action, Kind: model.ErrInvalidInput, Err: fmt.Errorf("missing required parameter %s", p)}
		}
	}
	return h.fn(ctx, params)
}

func (r *Router) listProjects(ctx context.Context, _ map[string]string) (interface{}, error) {
	projects, err := r.engine.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(projects))
	for i, p := range projects {
		names[i] = p.Name
	}
	return ProjectsResponse{Status: statusSuccess, Projects: names}, nil
}

func (r *Router) listProjectFiles(ctx context.Context, params map[string]string) (interface{}, error) {
	files, err := r.engine.ListFiles(ctx, params[ParamProject], "")
	if err != nil {
		return nil, err
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return FilesResponse{Status: statusSuccess, Files: names}, nil
}

func (r *Router) read(ctx context.Context, params map[string]string) (interface{}, error) {
	f, err := r.engine.ReadFile(ctx, params[ParamProject], params[ParamFile])
	if err != nil {
		return nil, err
	}
	content, enc := model.EncodeContent(f.Content)
	return ReadResponse{Status: statusSuccess, Content: content, Encoding: enc, Metadata: metadata(f.FileInfo)}, nil
}

func (r *Router) write(ctx context.Context, params map[string]string) (interface{}, error) {
	project := params[ParamProject]
	wr, err := writeRequest(MemoryBankWrite, params)
	if err != nil {
		return nil, err
	}
	_, err = r.engine.CreateProject(ctx, project, "")
	if err != nil && !errors.Is(err, model.ErrAlreadyExists) {
		return nil, err
	}
	res, err := r.engine.WriteFile(ctx, wr)
	if err != nil {
		return nil, err
	}
	return WriteResponse{
		Status:  statusSuccess,
		Message: fmt.Sprintf("File written to %s/%s", project, params[ParamFile]),
		Created: res.Created,
		Meta:    metadata(res.File),
	}, nil
}

func (r *Router) update(ctx context.Context, params map[string]string) (interface{}, error) {
	wr, err := writeRequest(MemoryBankUpdate, params)
	if err != nil {
		return nil, err
	}
	res, err := r.engine.UpdateFile(ctx, wr)
	if err != nil {
		return nil, err
	}
	return WriteResponse{
		Status:  statusSuccess,
		Message: fmt.Sprintf("File updated at %s/%s", params[ParamProject], params[ParamFile]),
		Meta:    metadata(res.File),
	}, nil
}

func writeRequest(action string, params map[string]string) (engine.WriteRequest, error) {
	content, err := model.DecodeContent(action, params[ParamContent], params[ParamEncoding])
	if err != nil {
		return engine.WriteRequest{}, err
	}
	return engine.WriteRequest{
		Project:    params[ParamProject],
		Name:       params[ParamFile],
		Content:    content,
		MemoryType: model.MemoryType(params[ParamMemoryType]),
	}, nil
}

func metadata(f model.FileInfo) Metadata {
	return Metadata{LastModified: f.LastModified, Size: f.Size, MemoryType: f.MemoryType, ContentType: f.ContentType}
}
