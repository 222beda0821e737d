package trees

// WalkFunc is called for each resource with its depth below the start node.
// Returning false skips the resource's children.
type WalkFunc func(r *Resource, depth int) bool

// Walk visits the tree in pre-order.
func Walk(root *Resource, fn WalkFunc) {
	walk(root, 0, fn)
}

func walk(r *Resource, depth int, fn WalkFunc) {
	if r == nil || !fn(r, depth) {
		return
	}
	for _, child := range r.Children {
		walk(child, depth+1, fn)
	}
}

// Collect returns every resource of the given kind, root included, in pre-order.
func Collect(root *Resource, kind string) []*Resource {
	var out []*Resource
	Walk(root, func(r *Resource, _ int) bool {
		if r.Kind == kind {
			out = append(out, r)
		}
		return true
	})
	return out
}
