package mangle

import (
	"os"
	"strings"
	"testing"

	"github.com/javanhut/gitcs-filter/internal/extract"
	"github.com/javanhut/gitcs-filter/internal/gitobj"
	"github.com/javanhut/gitcs-filter/internal/ignoreblob"
	"github.com/javanhut/gitcs-filter/internal/objstore"
)

func newTestMangler(t *testing.T) (*Mangler, *objstore.Destination, string) {
	t.Helper()
	originDir := t.TempDir()
	stagingDir := t.TempDir()
	dest, err := objstore.NewDestination(originDir)
	if err != nil {
		t.Fatalf("NewDestination: %v", err)
	}
	origin := objstore.NewOrigin(originDir)
	sink := extract.NewSink(stagingDir, true)
	ignore := ignoreblob.New([]string{".png", ".zip"})

	m := &Mangler{
		Origin: origin,
		Dest:   dest,
		Sink:   sink,
		Ignore: ignore,
		Tables: NewTables(),
		Config: Config{
			TriggerSuffix: "Tests",
			Extensions:    map[string]struct{}{".png": {}, ".zip": {}},
			URIPrefix:     "gs://example-bucket",
		},
	}
	return m, dest, stagingDir
}

// S1: empty tree rewrites to itself.
func TestMangleEmptyTree(t *testing.T) {
	m, dest, _ := newTestMangler(t)
	emptyHash, err := dest.Write(gitobj.TypeTree, nil)
	if err != nil {
		t.Fatalf("write empty tree: %v", err)
	}
	result, err := m.MangleTree(emptyHash, false, 0)
	if err != nil {
		t.Fatalf("MangleTree: %v", err)
	}
	if result != emptyHash {
		t.Errorf("expected empty tree unchanged, got %s != %s", result, emptyHash)
	}
}

// S2: tree with one ordinary file outside the special subtree is untouched.
func TestMangleUntouchedSubtreeRoundTrips(t *testing.T) {
	m, dest, _ := newTestMangler(t)
	fileHash, err := dest.Write(gitobj.TypeBlob, []byte("hello"))
	if err != nil {
		t.Fatalf("write blob: %v", err)
	}
	treeHash, err := dest.Write(gitobj.TypeTree, gitobj.SerializeTree([]gitobj.Entry{
		{Mode: "100644", Name: []byte("a.txt"), Hash: fileHash},
	}))
	if err != nil {
		t.Fatalf("write tree: %v", err)
	}

	result, err := m.MangleTree(treeHash, false, 0)
	if err != nil {
		t.Fatalf("MangleTree: %v", err)
	}
	if result != treeHash {
		t.Errorf("expected unchanged tree hash, got %s != %s", result, treeHash)
	}
}

// S3: special subtree with a binary file gets extracted and pointer-ized,
// and gets a synthesized .gitignore.
func TestMangleExtractsBinaryAndInjectsIgnore(t *testing.T) {
	m, dest, stagingDir := newTestMangler(t)

	imgBytes := []byte("fake png bytes")
	imgHash, err := dest.Write(gitobj.TypeBlob, imgBytes)
	if err != nil {
		t.Fatalf("write blob: %v", err)
	}

	testsSubtree, err := dest.Write(gitobj.TypeTree, gitobj.SerializeTree([]gitobj.Entry{
		{Mode: "100644", Name: []byte("img.PNG"), Hash: imgHash},
	}))
	if err != nil {
		t.Fatalf("write subtree: %v", err)
	}

	rootTree, err := dest.Write(gitobj.TypeTree, gitobj.SerializeTree([]gitobj.Entry{
		{Mode: gitobj.SubtreeMode, Name: []byte("LayoutTests"), Hash: testsSubtree},
	}))
	if err != nil {
		t.Fatalf("write root tree: %v", err)
	}

	result, err := m.MangleTree(rootTree, false, 0)
	if err != nil {
		t.Fatalf("MangleTree: %v", err)
	}
	if result == rootTree {
		t.Fatal("expected root tree to change")
	}

	_, rootPayload, err := m.Origin.Read(result)
	if err != nil {
		t.Fatalf("read rewritten root: %v", err)
	}
	rootEntries, err := gitobj.ParseTree(rootPayload)
	if err != nil {
		t.Fatalf("parse rewritten root: %v", err)
	}
	if len(rootEntries) != 1 {
		t.Fatalf("expected 1 root entry, got %d", len(rootEntries))
	}

	_, subPayload, err := m.Origin.Read(rootEntries[0].Hash)
	if err != nil {
		t.Fatalf("read rewritten subtree: %v", err)
	}
	subEntries, err := gitobj.ParseTree(subPayload)
	if err != nil {
		t.Fatalf("parse rewritten subtree: %v", err)
	}

	var gotPointer, gotIgnore bool
	for _, e := range subEntries {
		switch string(e.Name) {
		case "img.PNG.gitcs":
			gotPointer = true
			_, payload, err := m.Origin.Read(e.Hash)
			if err != nil {
				t.Fatalf("read pointer blob: %v", err)
			}
			expected := "src gs://example-bucket/" + imgHash.String() + ".blob\n"
			if string(payload) != expected {
				t.Errorf("expected pointer payload %q, got %q", expected, payload)
			}
		case ".gitignore":
			gotIgnore = true
			_, payload, err := m.Origin.Read(e.Hash)
			if err != nil {
				t.Fatalf("read gitignore blob: %v", err)
			}
			if !strings.Contains(string(payload), "*.png\n") {
				t.Errorf("expected ignore blob to contain *.png, got %q", payload)
			}
		}
	}
	if !gotPointer {
		t.Error("expected renamed pointer entry img.PNG.gitcs")
	}
	if !gotIgnore {
		t.Error("expected synthesized .gitignore entry")
	}

	stagedPath := stagingDir + "/" + imgHash.String() + ".blob"
	if _, err := os.ReadFile(stagedPath); err != nil {
		t.Errorf("expected staged file: %v", err)
	}
}

// S4: pre-existing .gitignore content is preserved as a prefix.
func TestMangleIgnorePrefixPreservesBase(t *testing.T) {
	m, dest, _ := newTestMangler(t)

	baseIgnoreHash, err := dest.Write(gitobj.TypeBlob, []byte("foo\n"))
	if err != nil {
		t.Fatalf("write base ignore: %v", err)
	}
	testsSubtree, err := dest.Write(gitobj.TypeTree, gitobj.SerializeTree([]gitobj.Entry{
		{Mode: "100644", Name: []byte(".gitignore"), Hash: baseIgnoreHash},
	}))
	if err != nil {
		t.Fatalf("write subtree: %v", err)
	}
	rootTree, err := dest.Write(gitobj.TypeTree, gitobj.SerializeTree([]gitobj.Entry{
		{Mode: gitobj.SubtreeMode, Name: []byte("Tests"), Hash: testsSubtree},
	}))
	if err != nil {
		t.Fatalf("write root: %v", err)
	}

	result, err := m.MangleTree(rootTree, false, 0)
	if err != nil {
		t.Fatalf("MangleTree: %v", err)
	}

	_, rootPayload, _ := m.Origin.Read(result)
	rootEntries, _ := gitobj.ParseTree(rootPayload)
	_, subPayload, _ := m.Origin.Read(rootEntries[0].Hash)
	subEntries, _ := gitobj.ParseTree(subPayload)

	for _, e := range subEntries {
		if string(e.Name) == ".gitignore" {
			_, payload, err := m.Origin.Read(e.Hash)
			if err != nil {
				t.Fatalf("read gitignore: %v", err)
			}
			if !strings.HasPrefix(string(payload), "foo\n\n") {
				t.Errorf("expected prefix 'foo\\n\\n', got %q", payload)
			}
			return
		}
	}
	t.Error("expected .gitignore entry in rewritten subtree")
}

// Memoization: mangling the same tree twice returns the same hash, and
// the first call records its result in tree_cache.
func TestMangleIdempotentAndMemoized(t *testing.T) {
	m, dest, _ := newTestMangler(t)
	fileHash, _ := dest.Write(gitobj.TypeBlob, []byte("x"))
	treeHash, _ := dest.Write(gitobj.TypeTree, gitobj.SerializeTree([]gitobj.Entry{
		{Mode: "100644", Name: []byte("x.txt"), Hash: fileHash},
	}))

	r1, err := m.MangleTree(treeHash, false, 0)
	if err != nil {
		t.Fatalf("first MangleTree: %v", err)
	}
	if cached, ok := m.Tables.LookupTree(treeHash); !ok || cached != r1 {
		t.Errorf("expected tree_cache to hold %s for %s, got %s (present=%v)", r1, treeHash, cached, ok)
	}
	r2, err := m.MangleTree(treeHash, false, 0)
	if err != nil {
		t.Fatalf("second MangleTree: %v", err)
	}
	if r1 != r2 {
		t.Errorf("expected idempotent result, got %s != %s", r1, r2)
	}
}

