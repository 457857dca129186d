package menu

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vanderheijden86/helpview/pkg/model"
	"pgregory.net/rapid"
)

type recordingNav struct {
	navigated  []string
	downloaded []string
}

func (r *recordingNav) Navigate(url string) { r.navigated = append(r.navigated, url) }
func (r *recordingNav) Download(url string) { r.downloaded = append(r.downloaded, url) }

// TestBuildSimpleExample verifies ROOT/A/B nests B under A with a navigate action
func TestBuildSimpleExample(t *testing.T) {
	entries := []model.Entry{
		model.NewRoot(""),
		model.NewFolder(1, -1, "A"),
		model.NewLeaf(1, "B", model.TypeFile, "/b.html"),
	}

	nav := &recordingNav{}
	tree, err := Build(entries, nav)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(tree.Roots) != 1 || tree.Roots[0].Label != "A" {
		t.Fatalf("expected single top-level node A, got %+v", tree.Roots)
	}
	a := tree.Roots[0]
	if len(a.Children) != 1 || a.Children[0].Label != "B" {
		t.Fatalf("expected A to contain B, got %+v", a.Children)
	}

	b := a.Children[0]
	if !b.IsLeaf() {
		t.Error("expected B to be a leaf without children slot")
	}
	if !b.Activate() {
		t.Fatal("expected B to have an action")
	}
	if len(nav.navigated) != 1 || nav.navigated[0] != "/b.html" {
		t.Errorf("expected navigation to /b.html, got %v", nav.navigated)
	}
}

// TestBuildChildrenSlot verifies id-bearing entries always get a children slot
func TestBuildChildrenSlot(t *testing.T) {
	entries := []model.Entry{
		model.NewRoot(""),
		model.NewFolder(1, -1, "Empty folder"),
		model.NewLeaf(-1, "Top page", model.TypeFile, "/top.html"),
	}

	tree, err := Build(entries, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	folder, page := tree.Roots[0], tree.Roots[1]
	if folder.Children == nil {
		t.Error("expected folder to have an empty, non-nil children slot")
	}
	if folder.HasChildren() {
		t.Error("expected folder to be empty")
	}
	if page.Children != nil {
		t.Error("expected page without id to have no children slot")
	}
}

// TestBuildDeepNesting resolves items whose parent is several levels down
func TestBuildDeepNesting(t *testing.T) {
	entries := []model.Entry{
		model.NewRoot(""),
		model.NewFolder(1, -1, "General"),
		model.NewFolder(2, 1, "Application"),
		model.NewLeaf(2, "Contacts", model.TypeFile, "/general/app/contacts.html"),
		model.NewFolder(3, 1, "Userinterface"),
		model.NewLeaf(3, "ö", model.TypeFile, "/general/ui/o.html"),
		model.NewLeaf(3, "&", model.TypeFile, "/general/ui/amp.html"),
		model.NewFolder(4, -1, "Documents"),
		model.NewLeaf(4, "references", model.TypeDownload, "/docs/references.pdf"),
		model.NewLeaf(-1, "System overview", model.TypeFile, "/overview.html"),
	}

	nav := &recordingNav{}
	tree, err := Build(entries, nav)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(tree.Roots) != 3 {
		t.Fatalf("expected 3 top-level nodes, got %d", len(tree.Roots))
	}
	general := tree.Roots[0]
	if len(general.Children) != 2 {
		t.Fatalf("expected General to have 2 children, got %d", len(general.Children))
	}
	ui := general.Children[1]
	if ui.Label != "Userinterface" || len(ui.Children) != 2 {
		t.Fatalf("unexpected Userinterface node: %+v", ui)
	}
	if ui.Children[0].Label != "ö" || ui.Children[1].Label != "&" {
		t.Errorf("expected sibling order preserved, got %q, %q", ui.Children[0].Label, ui.Children[1].Label)
	}

	doc := tree.Roots[1].Children[0]
	if doc.Action != ActionDownload {
		t.Errorf("expected download action, got %v", doc.Action)
	}
	doc.Activate()
	if len(nav.downloaded) != 1 || nav.downloaded[0] != "/docs/references.pdf" {
		t.Errorf("expected download of references.pdf, got %v", nav.downloaded)
	}

	if got := tree.Count(); got != 9 {
		t.Errorf("expected 9 nodes, got %d", got)
	}
	if got := len(tree.Leaves()); got != 5 {
		t.Errorf("expected 5 actionable leaves, got %d", got)
	}
}

func TestBuildHomeURL(t *testing.T) {
	tree, err := Build([]model.Entry{
		model.NewRoot("/structure/index.html"),
		model.NewLeaf(-1, "Page", model.TypeFile, "/page.html"),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if tree.HomeURL != "/structure/index.html" {
		t.Errorf("expected home from root, got %q", tree.HomeURL)
	}

	tree, err = Build([]model.Entry{
		model.NewRoot(""),
		model.NewFolder(1, -1, "No page"),
		model.NewLeaf(-1, "Page", model.TypeFile, "/page.html"),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if tree.HomeURL != "/page.html" {
		t.Errorf("expected home to fall back to first top-level page, got %q", tree.HomeURL)
	}
}

func TestBuildFolderWithoutURLHasNoAction(t *testing.T) {
	nav := &recordingNav{}
	tree, err := Build([]model.Entry{model.NewRoot(""), model.NewFolder(1, -1, "F")}, nav)
	if err != nil {
		t.Fatal(err)
	}
	if tree.Roots[0].Activate() {
		t.Error("expected folder without url to have no action")
	}
	if len(nav.navigated) != 0 {
		t.Errorf("expected no navigation, got %v", nav.navigated)
	}
}

func TestBuildErrors(t *testing.T) {
	cyclicA := model.NewFolder(1, 2, "A")
	cyclicB := model.NewFolder(2, 1, "B")

	tests := []struct {
		name    string
		entries []model.Entry
		want    error
	}{
		{
			name:    "unknown parent",
			entries: []model.Entry{model.NewRoot(""), model.NewLeaf(42, "Lost", model.TypeFile, "/lost.html")},
			want:    ErrUnknownParent,
		},
		{
			name:    "parent after child",
			entries: []model.Entry{model.NewRoot(""), model.NewLeaf(1, "Early", model.TypeFile, "/e.html"), model.NewFolder(1, -1, "Late")},
			want:    ErrUnknownParent,
		},
		{
			name:    "duplicate id",
			entries: []model.Entry{model.NewRoot(""), model.NewFolder(1, -1, "A"), model.NewFolder(1, -1, "B")},
			want:    ErrDuplicateID,
		},
		{
			name:    "self parent",
			entries: []model.Entry{model.NewRoot(""), model.NewFolder(7, 7, "Self")},
			want:    ErrMalformedHierarchy,
		},
		{
			name:    "item claiming root id",
			entries: []model.Entry{model.NewRoot(""), model.NewFolder(-1, -1, "Fake root")},
			want:    ErrMalformedHierarchy,
		},
		{
			name:    "cycle",
			entries: []model.Entry{model.NewRoot(""), cyclicA, cyclicB},
			want:    ErrUnknownParent, // A references 2 before it exists
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.entries, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var herr *HierarchyError
			if !errors.As(err, &herr) {
				t.Fatalf("expected *HierarchyError, got %T", err)
			}
		})
	}
}

func TestParentTablePathCycle(t *testing.T) {
	p := ParentTable{1: 2, 2: 3, 3: 1}
	one := 1
	if _, err := p.Path(&one, 2); !errors.Is(err, ErrMalformedHierarchy) {
		t.Fatalf("expected malformed hierarchy for cycle, got %v", err)
	}
	if _, err := p.Path(nil, 3); !errors.Is(err, ErrMalformedHierarchy) {
		t.Fatalf("expected malformed hierarchy for cycle reached from a leaf, got %v", err)
	}
}

func TestParentTablePathOrder(t *testing.T) {
	p := ParentTable{1: -1, 2: 1, 3: 2}
	path, err := p.Path(nil, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, 2, 3}
	if fmt.Sprint(path) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, path)
	}

	three := 3
	path, err = p.Path(&three, 2)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(path) != fmt.Sprint([]int{1, 2}) {
		t.Errorf("expected [1 2] for id-bearing entry, got %v", path)
	}
}

func TestTreeFind(t *testing.T) {
	tree, err := Build([]model.Entry{
		model.NewRoot(""),
		model.NewFolder(1, -1, "A"),
		model.NewFolder(2, 1, "B"),
		model.NewLeaf(2, "C", model.TypeFile, "/c.html"),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	chain := tree.Find("/c.html")
	if len(chain) != 3 {
		t.Fatalf("expected chain of 3, got %d", len(chain))
	}
	if chain[0].Label != "A" || chain[1].Label != "B" || chain[2].Label != "C" {
		t.Errorf("unexpected chain: %q %q %q", chain[0].Label, chain[1].Label, chain[2].Label)
	}
	if tree.Find("/missing.html") != nil {
		t.Error("expected nil for unknown url")
	}
	if tree.Find("") != nil {
		t.Error("expected nil for empty url")
	}
}

// TestBuildPreservesOrderProperty generates random well-formed listings and
// checks every entry lands exactly one level under its parent, in input order.
func TestBuildPreservesOrderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 40).Draw(t, "n")

		entries := []model.Entry{model.NewRoot("")}
		expectedParent := make(map[string]string)
		var folderIDs []int
		folderName := make(map[int]string)

		for i := 0; i < n; i++ {
			name := fmt.Sprintf("e%d", i)
			parent := model.RootID
			if len(folderIDs) > 0 && rapid.Bool().Draw(t, "nested") {
				parent = folderIDs[rapid.IntRange(0, len(folderIDs)-1).Draw(t, "parent")]
			}
			expectedParent[name] = folderName[parent]

			if rapid.Bool().Draw(t, "folder") {
				id := i + 1
				folderIDs = append(folderIDs, id)
				folderName[id] = name
				entries = append(entries, model.NewFolder(id, parent, name))
			} else {
				entries = append(entries, model.NewLeaf(parent, name, model.TypeFile, "/"+name+".html"))
			}
		}

		tree, err := Build(entries, nil)
		if err != nil {
			t.Fatalf("Build failed on well-formed input: %v", err)
		}
		if got := tree.Count(); got != n {
			t.Fatalf("expected %d nodes, got %d", n, got)
		}

		var check func(nodes []*Node, parent string)
		check = func(nodes []*Node, parent string) {
			last := -1
			for _, node := range nodes {
				if expectedParent[node.Label] != parent {
					t.Fatalf("%s nested under %q, want %q", node.Label, parent, expectedParent[node.Label])
				}
				var idx int
				fmt.Sscanf(node.Label, "e%d", &idx)
				if idx <= last {
					t.Fatalf("sibling order broken under %q: e%d after e%d", parent, idx, last)
				}
				last = idx
				if (node.ID != nil) != (node.Children != nil) {
					t.Fatalf("%s: children slot must exist exactly when the entry has an id", node.Label)
				}
				check(node.Children, node.Label)
			}
		}
		check(tree.Roots, "")
	})
}
