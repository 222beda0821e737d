package trees

import (
	"time"
)

// TreeMetrics summarizes a finished resource tree.
type TreeMetrics struct {
	TotalResources int
	Files          int
	ByKind         map[string]int
	MaxDepth       int
	WithContent    int
	Newest         time.Time
	Oldest         time.Time
}

// ComputeMetrics walks root once and returns its metrics.
func ComputeMetrics(root *Resource) TreeMetrics {
	m := TreeMetrics{ByKind: make(map[string]int)}

	Walk(root, func(r *Resource, depth int) bool {
		m.TotalResources++
		m.ByKind[r.Kind]++
		if depth > m.MaxDepth {
			m.MaxDepth = depth
		}
		if !r.IsFile() {
			return true
		}

		m.Files++
		if r.Content != nil {
			m.WithContent++
		}
		if m.Newest.IsZero() || r.LastModified.After(m.Newest) {
			m.Newest = r.LastModified
		}
		if m.Oldest.IsZero() || r.LastModified.Before(m.Oldest) {
			m.Oldest = r.LastModified
		}
		return true
	})

	return m
}

// Resources returns the number of non-file resources other than the root.
func (m TreeMetrics) Resources() int {
	return m.TotalResources - m.Files - m.ByKind[KindRepo]
}
