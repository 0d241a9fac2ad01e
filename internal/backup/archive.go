package backup

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/rcliao/memory-storage/internal/model"
)

// formatVersion is bumped whenever the archive layout changes.
const formatVersion = 1

const (
	manifestEntry = "manifest.json"
	projectsEntry = "projects.json"
	filesEntry    = "files.json"
	contentPrefix = "content/"
)

// manifest is the first entry of every archive.
type manifest struct {
	FormatVersion int       `json:"format_version"`
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Projects      int       `json:"projects"`
	Files         int       `json:"files"`
}

type archivedProject struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type archivedFile struct {
	Project      string           `json:"project"`
	Name         string           `json:"name"`
	MemoryType   model.MemoryType `json:"memory_type"`
	ContentType  string           `json:"content_type"`
	Size         int64            `json:"size"`
	CreatedAt    time.Time        `json:"created_at"`
	LastModified time.Time        `json:"last_modified"`
}

func contentEntry(project, name string) string {
	return contentPrefix + path.Join(project, name)
}

// encodeArchive writes snap as a gzip-compressed tar stream.
func encodeArchive(w io.Writer, snap *model.Snapshot, meta *model.Archive, level int) error {
	gz, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return fmt.Errorf("create gzip writer: %w", err)
	}
	tw := tar.NewWriter(gz)

	m := manifest{
		FormatVersion: formatVersion,
		ID:            meta.ID,
		Name:          meta.Name,
		Comment:       meta.Comment,
		CreatedAt:     meta.CreatedAt,
		Projects:      len(snap.Projects),
		Files:         len(snap.Files),
	}
	if err := writeJSONEntry(tw, manifestEntry, meta.CreatedAt, m); err != nil {
		return err
	}

	projects := make([]archivedProject, len(snap.Projects))
	for i, p := range snap.Projects {
		projects[i] = archivedProject{Name: p.Name, Description: p.Description, CreatedAt: p.CreatedAt}
	}
	if err := writeJSONEntry(tw, projectsEntry, meta.CreatedAt, projects); err != nil {
		return err
	}

	files := make([]archivedFile, len(snap.Files))
	for i, f := range snap.Files {
		files[i] = archivedFile{
			Project:      f.Project,
			Name:         f.Name,
			MemoryType:   f.MemoryType,
			ContentType:  f.ContentType,
			Size:         int64(len(f.Content)),
			CreatedAt:    f.CreatedAt,
			LastModified: f.LastModified,
		}
	}
	if err := writeJSONEntry(tw, filesEntry, meta.CreatedAt, files); err != nil {
		return err
	}

	for _, f := range snap.Files {
		if err := writeEntry(tw, contentEntry(f.Project, f.Name), f.LastModified, f.Content); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}
	return nil
}

func writeJSONEntry(tw *tar.Writer, name string, modTime time.Time, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return writeEntry(tw, name, modTime, b)
}

func writeEntry(tw *tar.Writer, name string, modTime time.Time, data []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(data)),
		ModTime:  modTime,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// decodeArchive reads an archive fully into a Snapshot and checks it is complete.
func decodeArchive(r io.Reader) (*model.Snapshot, *manifest, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open gzip: %w", err)
	}
	defer gz.Close()
	tr := tar.NewReader(gz)

	var (
		m        *manifest
		projects []archivedProject
		files    []archivedFile
		contents = make(map[string][]byte)
	)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", hdr.Name, err)
		}

		switch {
		case hdr.Name == manifestEntry:
			m = &manifest{}
			if err := json.Unmarshal(data, m); err != nil {
				return nil, nil, fmt.Errorf("parse manifest: %w", err)
			}
		case hdr.Name == projectsEntry:
			if err := json.Unmarshal(data, &projects); err != nil {
				return nil, nil, fmt.Errorf("parse projects: %w", err)
			}
		case hdr.Name == filesEntry:
			if err := json.Unmarshal(data, &files); err != nil {
				return nil, nil, fmt.Errorf("parse files: %w", err)
			}
		case len(hdr.Name) > len(contentPrefix) && hdr.Name[:len(contentPrefix)] == contentPrefix:
			if _, dup := contents[hdr.Name]; dup {
				return nil, nil, fmt.Errorf("duplicate entry %s", hdr.Name)
			}
			contents[hdr.Name] = data
		}
	}

	if m == nil {
		return nil, nil, fmt.Errorf("missing %s", manifestEntry)
	}
	if m.FormatVersion != formatVersion {
		return nil, nil, fmt.Errorf("unsupported archive format %d", m.FormatVersion)
	}
	if len(projects) != m.Projects || len(files) != m.Files {
		return nil, nil, fmt.Errorf("manifest counts %d/%d do not match index %d/%d",
			m.Projects, m.Files, len(projects), len(files))
	}

	snap := &model.Snapshot{
		TakenAt:  m.CreatedAt,
		Projects: make([]model.Project, 0, len(projects)),
		Files:    make([]model.File, 0, len(files)),
	}
	for _, p := range projects {
		snap.Projects = append(snap.Projects, model.Project{Name: p.Name, Description: p.Description, CreatedAt: p.CreatedAt})
	}
	for _, f := range files {
		data, ok := contents[contentEntry(f.Project, f.Name)]
		if !ok {
			return nil, nil, fmt.Errorf("missing content for %s/%s", f.Project, f.Name)
		}
		if int64(len(data)) != f.Size {
			return nil, nil, fmt.Errorf("content size of %s/%s is %d, index says %d", f.Project, f.Name, len(data), f.Size)
		}
		snap.Files = append(snap.Files, model.File{
			FileInfo: model.FileInfo{
				Project:      f.Project,
				Name:         f.Name,
				MemoryType:   f.MemoryType,
				ContentType:  f.ContentType,
				Size:         f.Size,
				CreatedAt:    f.CreatedAt,
				LastModified: f.LastModified,
			},
			Content: data,
		})
	}

	if err := snap.Validate(); err != nil {
		return nil, nil, err
	}
	return snap, m, nil
}
