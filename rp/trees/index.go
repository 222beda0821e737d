package trees

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/armon/go-radix"
)

// ResourceIndexStats tracks lookups served by a ResourceIndex
type ResourceIndexStats struct {
	Resources    int64
	Owners       int64
	Lookups      int64
	OwnerLookups int64
}

// ResourceIndex maps source paths to resources using patricia trees, so the
// resource that owns any path is found with a single longest-prefix lookup.
type ResourceIndex struct {
	mu     sync.RWMutex
	nodes  *radix.Tree // exact source path -> *Resource
	owners *radix.Tree // source path + "/" -> *Resource, non-file resources only

	resources    int64
	owned        int64
	lookups      atomic.Int64
	ownerLookups atomic.Int64
}

// NewResourceIndex indexes every resource under root.
func NewResourceIndex(root *Resource) *ResourceIndex {
	idx := &ResourceIndex{
		nodes:  radix.New(),
		owners: radix.New(),
	}

	Walk(root, func(r *Resource, _ int) bool {
		idx.insert(r)
		return true
	})

	slog.Debug("Resource index built",
		"resources", idx.resources,
		"owners", idx.owned)

	return idx
}

func (idx *ResourceIndex) insert(r *Resource) {
	key := normalizeIndexPath(r.SourcePath)
	if _, updated := idx.nodes.Insert(key, r); !updated {
		idx.resources++
	}
	if r.IsFile() {
		return
	}
	if _, updated := idx.owners.Insert(ownerKey(key), r); !updated {
		idx.owned++
	}
}

// Lookup returns the resource whose source path is exactly path.
func (idx *ResourceIndex) Lookup(path string) (*Resource, bool) {
	key := normalizeIndexPath(path)

	idx.lookups.Add(1)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	value, found := idx.nodes.Get(key)
	if !found {
		return nil, false
	}
	return value.(*Resource), true
}

// Owner returns the nearest non-file resource enclosing path. A directory
// resource owns itself.
func (idx *ResourceIndex) Owner(path string) (*Resource, bool) {
	key := ownerKey(normalizeIndexPath(path))

	idx.ownerLookups.Add(1)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	_, value, found := idx.owners.LongestPrefix(key)
	if !found {
		return nil, false
	}
	return value.(*Resource), true
}

// Under returns every indexed resource whose source path lies under dir,
// dir itself included, in lexical path order.
func (idx *ResourceIndex) Under(dir string) []*Resource {
	key := normalizeIndexPath(dir)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var results []*Resource
	idx.nodes.WalkPrefix(key, func(k string, value interface{}) bool {
		if k == key || strings.HasPrefix(k, ownerKey(key)) {
			results = append(results, value.(*Resource))
		}
		return false
	})
	return results
}

// Size returns the number of indexed resources.
func (idx *ResourceIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.nodes.Len()
}

// Stats returns a copy of the index statistics.
func (idx *ResourceIndex) Stats() ResourceIndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return ResourceIndexStats{
		Resources:    idx.resources,
		Owners:       idx.owned,
		Lookups:      idx.lookups.Load(),
		OwnerLookups: idx.ownerLookups.Load(),
	}
}

// normalizeIndexPath ensures consistent path formatting for the index
func normalizeIndexPath(p string) string {
	normalized := filepath.ToSlash(filepath.Clean(strings.ReplaceAll(p, `\`, "/")))
	if len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func ownerKey(key string) string {
	if strings.HasSuffix(key, "/") {
		return key
	}
	return key + "/"
}
