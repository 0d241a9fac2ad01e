package model

import "time"

// Archive describes a retained backup.
type Archive struct {
	ID        string    `json:"id" yaml:"id" toml:"id"`
	Name      string    `json:"name" yaml:"name" toml:"name"`
	Comment   string    `json:"comment,omitempty" yaml:"comment,omitempty" toml:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" toml:"created_at"`
	Size      int64     `json:"size" yaml:"size" toml:"size"`
	SHA256    string    `json:"sha256" yaml:"sha256" toml:"sha256"`
	Projects  []string  `json:"projects" yaml:"projects" toml:"projects"`
	FileCount int       `json:"file_count" yaml:"file_count" toml:"file_count"`
	Path      string    `json:"-" yaml:"-" toml:"-"`
}
