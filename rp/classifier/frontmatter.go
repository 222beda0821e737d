package classifier

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// TypeKey is the front matter key that names a resource kind. It is removed
// from the returned metadata.
const TypeKey = "type"

const (
	yamlDelimiter = "---"
	tomlDelimiter = "+++"
)

// FrontMatter extracts the kind and metadata from a YAML (---) or TOML (+++)
// front matter block at the top of content. Content without front matter is
// a plain file with no metadata.
func FrontMatter(content string) (string, map[string]any, error) {
	delim, block, ok := splitFrontMatter(content)
	if !ok {
		return KindFile, map[string]any{}, nil
	}

	metadata := map[string]any{}
	switch delim {
	case yamlDelimiter:
		var node any
		if err := yaml.Unmarshal([]byte(block), &node); err != nil {
			return "", nil, fmt.Errorf("invalid yaml front matter: %w", err)
		}
		switch v := node.(type) {
		case nil:
		case map[string]any:
			metadata = v
		default:
			return "", nil, fmt.Errorf("yaml front matter must be a mapping, got %T", node)
		}
	case tomlDelimiter:
		if err := toml.Unmarshal([]byte(block), &metadata); err != nil {
			return "", nil, fmt.Errorf("invalid toml front matter: %w", err)
		}
	}

	kind, err := popKind(metadata)
	if err != nil {
		return "", nil, err
	}
	return kind, metadata, nil
}

func popKind(metadata map[string]any) (string, error) {
	raw, ok := metadata[TypeKey]
	if !ok {
		return KindFile, nil
	}
	delete(metadata, TypeKey)

	switch v := raw.(type) {
	case string:
		if v == "" {
			return KindFile, nil
		}
		return v, nil
	case nil:
		return KindFile, nil
	case map[string]any, []any:
		return "", fmt.Errorf("front matter %q must be a scalar, got %T", TypeKey, raw)
	default:
		return fmt.Sprint(v), nil
	}
}

// splitFrontMatter returns the delimiter and the text between the opening and
// closing delimiter lines. Both lines must consist of the delimiter alone.
func splitFrontMatter(content string) (string, string, bool) {
	content = strings.TrimPrefix(content, "\ufeff")

	first, rest, found := strings.Cut(content, "\n")
	if !found {
		return "", "", false
	}
	delim := strings.TrimRight(first, " \t\r")
	if delim != yamlDelimiter && delim != tomlDelimiter {
		return "", "", false
	}

	var block strings.Builder
	for rest != "" {
		var line string
		line, rest, _ = strings.Cut(rest, "\n")
		if strings.TrimRight(line, " \t\r") == delim {
			return delim, block.String(), true
		}
		block.WriteString(strings.TrimSuffix(line, "\r"))
		block.WriteByte('\n')
	}
	return "", "", false
}

// Static returns an extractor that always reports kind with empty metadata.
// It never looks at content, so it pairs with WantsContent=false.
func Static(kind string) ExtractFunc {
	return func(string) (string, map[string]any, error) {
		if kind == "" {
			return KindFile, map[string]any{}, nil
		}
		return kind, map[string]any{}, nil
	}
}
