package trees

import (
	"log/slog"
	"maps"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/repo-parser/rp/classifier"
)

type promotionState int

const (
	unpromoted promotionState = iota
	promoted
)

// promotion tracks whether the directory being built has become a resource.
// The transition unpromoted -> promoted happens once per directory.
type promotion struct {
	state    promotionState
	resource *Resource
}

// promote records a non-file classification result. The first result creates
// the resource, later ones merge their metadata into it.
func (p *promotion) promote(dir *Dir, res classifier.Result, now time.Time) {
	if p.state == promoted {
		maps.Copy(p.resource.Metadata, res.Metadata)
		return
	}
	p.state = promoted
	p.resource = &Resource{
		Name:         filepath.Base(dir.Path),
		Path:         "",
		SourcePath:   dir.Path,
		Kind:         res.Kind,
		Metadata:     maps.Clone(res.Metadata),
		LastModified: now,
	}
}

// Builder turns a raw scan tree into a Resource tree.
type Builder struct {
	classifiers classifier.List
	now         time.Time
}

// NewBuilder creates a builder. now is the placeholder timestamp given to
// every node before history is applied.
func NewBuilder(classifiers classifier.List, now time.Time) *Builder {
	return &Builder{classifiers: classifiers, now: now}
}

// Build is a convenience wrapper around NewBuilder(...).Build(dir).
func Build(dir *Dir, classifiers classifier.List, now time.Time) (*Resource, []string) {
	return NewBuilder(classifiers, now).Build(dir)
}

// Build returns the repository root resource and the source paths of every
// file resource in the tree, in traversal order.
func (b *Builder) Build(dir *Dir) (*Resource, []string) {
	children, filePaths := b.buildChildren(dir, "")

	root := &Resource{
		Name:         filepath.Base(dir.Path),
		Path:         "",
		SourcePath:   dir.Path,
		Kind:         KindRepo,
		Metadata:     map[string]any{},
		Children:     children,
		LastModified: b.now,
	}

	slog.Debug("Resource tree built",
		"root", dir.Path,
		"top_level", len(children),
		"files", len(filePaths))

	return root, filePaths
}

type classified struct {
	file   *File
	result classifier.Result
}

// buildChildren builds the resources found in dir. When dir holds no
// manifest it is transparent and its descendants are returned flattened;
// otherwise the single promoted resource is returned.
func (b *Builder) buildChildren(dir *Dir, parentPath string) ([]*Resource, []string) {
	var p promotion

	matched := make([]classified, 0, len(dir.Files))
	for _, f := range dir.Files {
		c, ok := b.classifiers.Match(f.Name)
		if !ok {
			continue
		}
		res := c.Classify(f.SourcePath, content(f))
		matched = append(matched, classified{file: f, result: res})

		if res.Promotes() {
			p.promote(dir, res, b.now)
		}
	}

	if p.state == promoted {
		parentPath = ""
	}

	var (
		resources []*Resource
		filePaths []string
	)
	for _, m := range matched {
		resources = append(resources, &Resource{
			Name:         m.file.Name,
			Path:         path.Join(parentPath, m.file.Name),
			SourcePath:   m.file.SourcePath,
			Kind:         KindFile,
			Metadata:     maps.Clone(m.result.Metadata),
			Content:      m.file.Content,
			LastModified: b.now,
		})
		filePaths = append(filePaths, m.file.SourcePath)
	}

	for _, sub := range dir.Dirs {
		subResources, subPaths := b.buildChildren(sub, path.Join(parentPath, relativeName(dir.Path, sub.Path)))
		resources = append(resources, subResources...)
		filePaths = append(filePaths, subPaths...)
	}

	if p.state == unpromoted {
		return resources, filePaths
	}

	p.resource.Children = resources
	slog.Debug("Directory promoted",
		"dir", dir.Path,
		"kind", p.resource.Kind,
		"children", len(resources))
	return []*Resource{p.resource}, filePaths
}

// relativeName is sub relative to parent in slash form. Subdirectory scans
// may attach a nested directory directly to the synthetic root.
func relativeName(parent, sub string) string {
	rel, err := filepath.Rel(parent, sub)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(sub)
	}
	return filepath.ToSlash(rel)
}

func content(f *File) string {
	if f.Content == nil {
		return ""
	}
	return *f.Content
}
