// Package classifier decides which scanned files matter and what kind of
// resource, if any, they declare.
//
// A Classifier is a (pattern, extractor, wants-content) record. Classifiers are
// kept in an ordered List and dispatch is a linear first-match scan; no
// chaining happens after the first match.
package classifier

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/common"

	"github.com/sourcegraph/conc/panics"
)

// KindFile marks an ordinary file that does not define a resource.
const KindFile = "file"

// Matcher tests a file name. *regexp.Regexp satisfies it.
type Matcher interface {
	MatchString(name string) bool
}

// ExtractFunc turns raw content into a (kind, metadata) pair. Content is empty
// when the classifier does not want content.
type ExtractFunc func(content string) (kind string, metadata map[string]any, err error)

// Classifier is a registered content-sniffing rule.
type Classifier struct {
	Name         string
	Pattern      Matcher
	Extract      ExtractFunc
	WantsContent bool
}

// New builds a classifier from a regular expression.
func New(name, pattern string, extract ExtractFunc, wantsContent bool) (Classifier, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Classifier{}, fmt.Errorf("classifier %s: invalid pattern %q: %w", name, pattern, err)
	}
	return Classifier{Name: name, Pattern: re, Extract: extract, WantsContent: wantsContent}, nil
}

// MustNew is New that panics on an invalid pattern. Used for built-in classifiers.
func MustNew(name, pattern string, extract ExtractFunc, wantsContent bool) Classifier {
	c, err := New(name, pattern, extract, wantsContent)
	if err != nil {
		panic(err)
	}
	return c
}

// Result is the outcome of classifying one file.
type Result struct {
	Kind     string
	Metadata map[string]any
	// Err is set when the extractor failed; Kind is then KindFile and Metadata empty.
	Err error
}

// Promotes reports whether the file declares a resource for its directory.
func (r Result) Promotes() bool {
	return r.Err == nil && r.Kind != KindFile
}

// List is an ordered set of classifiers.
type List []Classifier

// Match returns the first classifier whose pattern matches name.
func (l List) Match(name string) (*Classifier, bool) {
	for i := range l {
		if l[i].Pattern.MatchString(name) {
			return &l[i], true
		}
	}
	return nil, false
}

// Classify runs the extractor of c on content. An extractor error or panic is
// returned as a *common.ClassificationError inside the Result and the file is
// demoted to a plain file with empty metadata.
func (c *Classifier) Classify(path, content string) Result {
	var (
		kind     string
		metadata map[string]any
		err      error
	)

	var pc panics.Catcher
	pc.Try(func() {
		kind, metadata, err = c.Extract(content)
	})
	if r := pc.Recovered(); r != nil {
		err = r.AsError()
	}

	if err != nil {
		slog.Warn("Classifier failed, treating as plain file",
			"path", path,
			"classifier", c.Name,
			"error", err)
		return Result{
			Kind:     KindFile,
			Metadata: map[string]any{},
			Err:      &common.ClassificationError{Path: path, Classifier: c.Name, Err: err},
		}
	}

	if kind == "" {
		kind = KindFile
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Result{Kind: kind, Metadata: metadata}
}
