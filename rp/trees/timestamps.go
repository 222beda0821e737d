package trees

import (
	"time"
)

// ApplyLastModified assigns timestamps in post-order. A file takes its entry
// from stamps when present; a node with children takes the maximum of its
// children. Leaves missing from stamps keep their placeholder.
func ApplyLastModified(root *Resource, stamps map[string]time.Time) {
	if root == nil {
		return
	}

	for _, child := range root.Children {
		ApplyLastModified(child, stamps)
	}

	if root.IsFile() {
		if ts, ok := stamps[root.SourcePath]; ok {
			root.LastModified = ts
		}
	}

	if len(root.Children) == 0 {
		return
	}
	latest := root.Children[0].LastModified
	for _, child := range root.Children[1:] {
		if child.LastModified.After(latest) {
			latest = child.LastModified
		}
	}
	root.LastModified = latest
}
