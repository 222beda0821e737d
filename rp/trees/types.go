package trees

import (
	"time"
)

// Resource kinds with fixed meaning
const (
	KindRepo     = "repo"
	KindFile     = "file"
	KindLanguage = "language"
)

// File is a raw scan node for a file matched by a classifier.
// Content is nil unless the matching classifier wants content.
type File struct {
	Name       string
	SourcePath string
	Content    *string
}

// Dir is a raw scan node. Dirs keep scan order.
type Dir struct {
	Path  string
	Files []*File
	Dirs  []*Dir
}

// IsEmpty reports whether the directory holds neither files nor directories.
func (d *Dir) IsEmpty() bool {
	return len(d.Files) == 0 && len(d.Dirs) == 0
}

// Resource is a node of the output tree.
//
// Path is slash separated and relative to the nearest enclosing promoted
// resource; it is empty for the resource itself. SourcePath is the scanned
// path and is the join key for history timestamps.
type Resource struct {
	Name         string         `json:"name" yaml:"name"`
	Path         string         `json:"path" yaml:"path"`
	SourcePath   string         `json:"sourcePath" yaml:"sourcePath"`
	Kind         string         `json:"kind" yaml:"kind"`
	Metadata     map[string]any `json:"metadata" yaml:"metadata"`
	Content      *string        `json:"content,omitempty" yaml:"content,omitempty"`
	Children     []*Resource    `json:"children,omitempty" yaml:"children,omitempty"`
	LastModified time.Time      `json:"lastModified" yaml:"lastModified"`
}

// IsFile reports whether r is a plain file resource.
func (r *Resource) IsFile() bool {
	return r.Kind == KindFile
}
