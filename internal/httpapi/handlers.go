package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rcliao/memory-storage/internal/a2a"
	"github.com/rcliao/memory-storage/internal/backup"
	"github.com/rcliao/memory-storage/internal/engine"
	"github.com/rcliao/memory-storage/internal/model"
	"github.com/rcliao/memory-storage/internal/store"
)

// MessageResponse acknowledges a mutation.
type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CreateProjectRequest is the body of POST /projects.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateFileRequest is the body of POST /projects/{project}/files.
// Encoding "base64" carries content that is not UTF-8 text.
type CreateFileRequest struct {
	Name        string           `json:"name"`
	Content     string           `json:"content"`
	Encoding    string           `json:"encoding,omitempty"`
	ContentType string           `json:"content_type,omitempty"`
	MemoryType  model.MemoryType `json:"memory_type,omitempty"`
}

// UpdateFileRequest is the body of PUT /projects/{project}/files/{file}.
type UpdateFileRequest struct {
	Content     string           `json:"content"`
	Encoding    string           `json:"encoding,omitempty"`
	ContentType string           `json:"content_type,omitempty"`
	MemoryType  model.MemoryType `json:"memory_type,omitempty"`
}

// FileResponse is a file with its content. Content that is not valid UTF-8 is
// base64 encoded and Encoding says so.
type FileResponse struct {
	model.FileInfo
	Content  string `json:"content"`
	Encoding string `json:"encoding,omitempty"`
}

// WriteResponse reports the stored metadata after a write.
type WriteResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Created bool           `json:"created"`
	File    model.FileInfo `json:"file"`
}

// CreateBackupRequest is the optional body of POST /backups.
type CreateBackupRequest struct {
	Name    string `json:"name,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// RestoreResponse reports a completed restore.
type RestoreResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Archive model.Archive `json:"archive"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Version string        `json:"version"`
	Time    time.Time     `json:"time"`
	Backup  backup.Status `json:"backup"`
	Store   *store.Stats  `json:"store"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "Memory Storage is running",
		"version": s.cfg.Version,
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.engine.ListProjects(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if projects == nil {
		projects = []model.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	p, err := s.engine.CreateProject(r.Context(), req.Name, req.Description)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.GetProject(r.Context(), chi.URLParam(r, "project"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "project")
	if err := s.engine.DeleteProject(r.Context(), name); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Status: "success", Message: fmt.Sprintf("Project '%s' deleted", name)})
}

// handleListFiles lists a project's files; ?pattern= filters by glob and ?q= searches
// names and content instead.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	query := r.URL.Query()

	var (
		files []model.FileInfo
		err   error
	)
	if q := query.Get("q"); q != "" {
		limit := 0
		if l := query.Get("limit"); l != "" {
			limit, err = strconv.Atoi(l)
			if err != nil || limit < 0 {
				writeError(w, http.StatusBadRequest, "invalid_input", "invalid limit", correlationID(r))
				return
			}
		}
		files, err = s.engine.SearchFiles(r.Context(), project, q, limit)
	} else {
		files, err = s.engine.ListFiles(r.Context(), project, query.Get("pattern"))
	}
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if files == nil {
		files = []model.FileInfo{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	var req CreateFileRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	content, err := model.DecodeContent("create file", req.Content, req.Encoding)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	res, err := s.engine.AddFile(r.Context(), engine.WriteRequest{
		Project:     project,
		Name:        req.Name,
		Content:     content,
		ContentType: req.ContentType,
		MemoryType:  req.MemoryType,
	})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, WriteResponse{
		Status:  "success",
		Message: fmt.Sprintf("File '%s' created in project '%s'", req.Name, project),
		Created: true,
		File:    res.File,
	})
}

// handleReadFile returns the file as JSON, or the raw bytes with ?raw=true.
func (s *Server) handleReadFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.engine.ReadFile(r.Context(), chi.URLParam(r, "project"), chi.URLParam(r, "file"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if raw, _ := strconv.ParseBool(r.URL.Query().Get("raw")); raw {
		w.Header().Set("Content-Type", f.ContentType)
		w.Header().Set("Last-Modified", f.LastModified.UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(f.Content)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(f.Content)
		return
	}
	content, enc := model.EncodeContent(f.Content)
	writeJSON(w, http.StatusOK, FileResponse{FileInfo: f.FileInfo, Content: content, Encoding: enc})
}

// handleUpdateFile replaces an existing file's content; ?upsert=true creates it when absent.
func (s *Server) handleUpdateFile(w http.ResponseWriter, r *http.Request) {
	project, name := chi.URLParam(r, "project"), chi.URLParam(r, "file")
	var req UpdateFileRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	content, err := model.DecodeContent("update file", req.Content, req.Encoding)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	wr := engine.WriteRequest{
		Project:     project,
		Name:        name,
		Content:     content,
		ContentType: req.ContentType,
		MemoryType:  req.MemoryType,
	}

	var res *store.WriteResult
	if upsert, _ := strconv.ParseBool(r.URL.Query().Get("upsert")); upsert {
		res, err = s.engine.WriteFile(r.Context(), wr)
	} else {
		res, err = s.engine.UpdateFile(r.Context(), wr)
	}
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, WriteResponse{
		Status:  "success",
		Message: fmt.Sprintf("File '%s' updated in project '%s'", name, project),
		Created: res.Created,
		File:    res.File,
	})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	project, name := chi.URLParam(r, "project"), chi.URLParam(r, "file")
	if err := s.engine.DeleteFile(r.Context(), project, name); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{
		Status:  "success",
		Message: fmt.Sprintf("File '%s' deleted from project '%s'", name, project),
	})
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	archives, err := s.backups.List(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if archives == nil {
		archives = []model.Archive{}
	}
	writeJSON(w, http.StatusOK, archives)
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	var req CreateBackupRequest
	if r.ContentLength != 0 {
		if !s.decodeJSON(w, r, &req) {
			return
		}
	}
	arch, err := s.backups.Trigger(r.Context(), backup.TriggerParams{Name: req.Name, Comment: req.Comment})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, arch)
}

func (s *Server) handleGetBackup(w http.ResponseWriter, r *http.Request) {
	arch, err := s.backups.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, arch)
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	arch, err := s.backups.Restore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RestoreResponse{
		Status:  "success",
		Message: fmt.Sprintf("Restored backup '%s'", arch.Name),
		Archive: *arch,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Version: s.cfg.Version,
		Time:    time.Now().UTC(),
		Backup:  s.backups.Status(r.Context()),
		Store:   stats,
	})
}

func (s *Server) handleA2A(w http.ResponseWriter, r *http.Request) {
	var req a2a.Request
	if !s.decodeJSON(w, r, &req) {
		return
	}
	out, err := s.router.Handle(r.Context(), req)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
