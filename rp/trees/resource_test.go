package trees

import (
	"testing"
	"time"

	"github.com/ZanzyTHEbar/repo-parser/rp/classifier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(src string, md map[string]any) *Resource {
	if md == nil {
		md = map[string]any{}
	}
	return &Resource{Name: src, SourcePath: src, Kind: KindFile, Metadata: md, LastModified: buildTime}
}

func node(kind, name, src string, children ...*Resource) *Resource {
	return &Resource{Name: name, SourcePath: src, Kind: kind, Metadata: map[string]any{}, Children: children, LastModified: buildTime}
}

func TestAugmentMetadata(t *testing.T) {
	svcFile := leaf("/r/python/svc/README.md", nil)
	overwritten := leaf("/r/python/svc/old.md", map[string]any{"language": "rust", "owner": "a"})
	goFile := leaf("/r/python/go/main.md", nil)
	sibling := leaf("/r/other/x.md", nil)

	svc := node("service", "svc", "/r/python/svc", svcFile, overwritten)
	goLang := node(KindLanguage, "go", "/r/python/go", goFile)
	python := node(KindLanguage, "python", "/r/python", svc, goLang)
	other := node("service", "other", "/r/other", sibling)
	root := node(KindRepo, "r", "/r", python, other)

	AugmentMetadata(root)

	assert.Equal(t, "python", svc.Metadata["language"])
	assert.Equal(t, "python", svcFile.Metadata["language"])
	assert.Equal(t, map[string]any{"language": "python", "owner": "a"}, overwritten.Metadata)
	assert.Equal(t, "go", goFile.Metadata["language"], "nested language overrides its branch")

	assert.Empty(t, other.Metadata, "sibling branch keeps its own context")
	assert.Empty(t, sibling.Metadata)
	assert.Empty(t, root.Metadata)
	assert.Empty(t, python.Metadata)
}

func TestApplyLastModified(t *testing.T) {
	t1 := time.Unix(1600000000, 0)
	t2 := time.Unix(1700000000, 0)
	t3 := time.Unix(1650000000, 0)

	a := leaf("/r/a.md", nil)
	b := leaf("/r/svc/b.md", nil)
	c := leaf("/r/svc/c.md", nil)
	missing := leaf("/r/lib/missing.md", nil)
	svc := node("service", "svc", "/r/svc", b, c)
	lib := node("library", "lib", "/r/lib", missing)
	empty := node("library", "empty", "/r/empty")
	root := node(KindRepo, "r", "/r", a, svc, lib, empty)

	ApplyLastModified(root, map[string]time.Time{
		"/r/a.md":     t1,
		"/r/svc/b.md": t3,
		"/r/svc/c.md": t2,
		"/r/svc":      t1, // directory entries never apply
	})

	assert.Equal(t, t1, a.LastModified)
	assert.Equal(t, t2, svc.LastModified)
	assert.Equal(t, buildTime, missing.LastModified)
	assert.Equal(t, buildTime, lib.LastModified)
	assert.Equal(t, buildTime, empty.LastModified, "childless resource keeps construction time")
	assert.Equal(t, buildTime, root.LastModified, "placeholder is newer than history")

	Walk(root, func(r *Resource, _ int) bool {
		if len(r.Children) == 0 {
			return true
		}
		latest := r.Children[0].LastModified
		for _, ch := range r.Children {
			if ch.LastModified.After(latest) {
				latest = ch.LastModified
			}
		}
		assert.Equal(t, latest, r.LastModified, "rollup of %s", r.SourcePath)
		return true
	})
}

func TestCollectAndWalk(t *testing.T) {
	svcA := node("service", "a", "/r/a", leaf("/r/a/x.md", nil))
	svcB := node("service", "b", "/r/a/b")
	svcA.Children = append(svcA.Children, svcB)
	root := node(KindRepo, "r", "/r", svcA, leaf("/r/y.md", nil))

	services := Collect(root, "service")
	require.Len(t, services, 2)
	assert.Same(t, svcA, services[0])
	assert.Same(t, svcB, services[1])

	assert.Equal(t, []*Resource{root}, Collect(root, KindRepo))
	assert.Len(t, Collect(root, KindFile), 2)
	assert.Empty(t, Collect(root, "library"))

	var visited []string
	Walk(root, func(r *Resource, depth int) bool {
		visited = append(visited, r.SourcePath)
		return r.Kind != "service"
	})
	assert.Equal(t, []string{"/r", "/r/a", "/r/y.md"}, visited)
}

func TestResourceIndex(t *testing.T) {
	root, _ := Build(scenarioOneTree(), nil, buildTime)
	assert.Empty(t, root.Children, "no classifiers means no resources")

	root, _ = Build(scenarioOneTree(), classifier.Defaults(), buildTime)
	idx := NewResourceIndex(root)
	assert.Equal(t, 5, idx.Size())

	tests := []struct {
		name  string
		path  string
		owner string
	}{
		{"file in service", "/repo/service-example/docs/testing.md", "service-example"},
		{"service itself", "/repo/service-example", "service-example"},
		{"trailing slash", "/repo/service-example/", "service-example"},
		{"root file", "/repo/README.md", "repo"},
		{"prefix sibling is not inside", "/repo/service-example2/a.md", "repo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, ok := idx.Owner(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.owner, owner.Name)
		})
	}

	_, ok := idx.Owner("/elsewhere/file.md")
	assert.False(t, ok)

	r, ok := idx.Lookup("/repo/service-example/README.md")
	require.True(t, ok)
	assert.Equal(t, KindFile, r.Kind)
	_, ok = idx.Lookup("/repo/service-example/docs")
	assert.False(t, ok, "transparent directories are not indexed")

	under := idx.Under("/repo/service-example")
	assert.Len(t, under, 3)

	stats := idx.Stats()
	assert.Equal(t, int64(5), stats.Resources)
	assert.Equal(t, int64(2), stats.Owners)
	assert.Equal(t, int64(2), stats.Lookups)
	assert.Equal(t, int64(6), stats.OwnerLookups)
}

func TestComputeMetrics(t *testing.T) {
	root, _ := Build(scenarioOneTree(), classifier.Defaults(), buildTime)

	m := ComputeMetrics(root)
	assert.Equal(t, 5, m.TotalResources)
	assert.Equal(t, 3, m.Files)
	assert.Equal(t, 3, m.WithContent)
	assert.Equal(t, 1, m.ByKind["service"])
	assert.Equal(t, 1, m.Resources())
	assert.Equal(t, 2, m.MaxDepth)
	assert.Equal(t, buildTime, m.Newest)
	assert.Equal(t, buildTime, m.Oldest)
}
