package filesystem

import (
	"context"

	"github.com/ZanzyTHEbar/repo-parser/rp/trees"
)

// assertTree checks the shape a finished run guarantees: file resources are
// leaves, and every resource with children carries the newest child time.
func (p *Parser) assertTree(ctx context.Context, root *trees.Resource) {
	trees.Walk(root, func(r *trees.Resource, _ int) bool {
		p.assertHandler.Assert(ctx, !r.IsFile() || len(r.Children) == 0,
			"file resource has children",
			"path", r.SourcePath,
			"children", len(r.Children))

		if len(r.Children) == 0 {
			return true
		}
		newest := r.Children[0].LastModified
		for _, child := range r.Children[1:] {
			if child.LastModified.After(newest) {
				newest = child.LastModified
			}
		}
		p.assertHandler.Assert(ctx, r.LastModified.Equal(newest),
			"resource is not stamped with its newest child",
			"path", r.SourcePath,
			"lastModified", r.LastModified,
			"newest", newest)
		return true
	})
}
