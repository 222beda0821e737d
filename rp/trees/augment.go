package trees

import (
	"maps"
)

// AugmentMetadata walks the tree top-down. A "language" resource adds
// language=<name> to the context of its branch; every other resource gets
// the current context merged into its metadata, overwriting existing keys.
func AugmentMetadata(root *Resource) {
	augment(root, nil)
}

func augment(r *Resource, extra map[string]any) {
	if r.Kind == KindLanguage {
		extra = with(extra, "language", r.Name)
	} else if len(extra) > 0 {
		if r.Metadata == nil {
			r.Metadata = make(map[string]any, len(extra))
		}
		maps.Copy(r.Metadata, extra)
	}

	for _, child := range r.Children {
		augment(child, extra)
	}
}

// with returns a copy of extra with key set. extra itself is never modified,
// so sibling branches never observe each other's context.
func with(extra map[string]any, key string, value any) map[string]any {
	next := make(map[string]any, len(extra)+1)
	maps.Copy(next, extra)
	next[key] = value
	return next
}
