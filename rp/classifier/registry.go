package classifier

import (
	"fmt"

	"github.com/ZanzyTHEbar/repo-parser/rp/config"

	"github.com/bmatcuk/doublestar/v4"
)

// Extractor names accepted in configuration
const (
	ExtractorFrontMatter = "frontmatter"
	ExtractorStatic      = "static"
)

// Glob matches file names against a doublestar pattern.
type Glob struct {
	pattern string
}

// NewGlob validates pattern and returns a Glob matcher.
func NewGlob(pattern string) (Glob, error) {
	if !doublestar.ValidatePattern(pattern) {
		return Glob{}, fmt.Errorf("invalid glob pattern %q", pattern)
	}
	return Glob{pattern: pattern}, nil
}

// MatchString implements Matcher
func (g Glob) MatchString(name string) bool {
	ok, err := doublestar.Match(g.pattern, name)
	return err == nil && ok
}

func (g Glob) String() string { return g.pattern }

// Defaults returns the built-in classifiers: markdown documents with front
// matter, and build manifests that are tracked for existence only.
func Defaults() List {
	return List{
		MustNew("markdown", `\.md$`, FrontMatter, true),
		MustNew("build-manifest", `^BUILD(\.bazel)?$`, Static(KindFile), false),
	}
}

// FromConfig returns the configured classifiers in declaration order followed
// by the defaults. Dispatch is first-match, so a configured rule takes
// precedence over a built-in one matching the same name.
func FromConfig(cfgs []config.ClassifierConfig) (List, error) {
	list := make(List, 0, len(cfgs)+len(Defaults()))
	for i, cc := range cfgs {
		c, err := fromConfig(cc)
		if err != nil {
			return nil, fmt.Errorf("classifiers[%d]: %w", i, err)
		}
		list = append(list, c)
	}
	return append(list, Defaults()...), nil
}

func fromConfig(cc config.ClassifierConfig) (Classifier, error) {
	var extract ExtractFunc
	switch cc.Extractor {
	case ExtractorFrontMatter, "":
		extract = FrontMatter
	case ExtractorStatic:
		extract = Static(cc.Kind)
	default:
		return Classifier{}, fmt.Errorf("classifier %s: unknown extractor %q", cc.Name, cc.Extractor)
	}

	if cc.Glob != "" {
		g, err := NewGlob(cc.Glob)
		if err != nil {
			return Classifier{}, fmt.Errorf("classifier %s: %w", cc.Name, err)
		}
		return Classifier{Name: cc.Name, Pattern: g, Extract: extract, WantsContent: cc.WantsContent}, nil
	}
	return New(cc.Name, cc.Pattern, extract, cc.WantsContent)
}
