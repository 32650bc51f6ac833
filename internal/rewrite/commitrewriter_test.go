package rewrite

import (
	"strings"
	"testing"

	"github.com/javanhut/gitcs-filter/internal/gitobj"
	"github.com/javanhut/gitcs-filter/internal/mangle"
	"github.com/javanhut/gitcs-filter/internal/objstore"
)

func writeCommit(t *testing.T, dest *objstore.Destination, treeHex, parentHex, rest string) gitobj.Hash {
	t.Helper()
	payload := "tree " + treeHex + "\n"
	if parentHex != "" {
		payload += "parent " + parentHex + "\n"
	}
	payload += rest
	h, err := dest.Write(gitobj.TypeCommit, []byte(payload))
	if err != nil {
		t.Fatalf("write commit: %v", err)
	}
	return h
}

// S6: three-commit linear history rewrites tree references and
// relinks parent pointers; the first commit has no parent field.
func TestRewriteCommitsLinearChain(t *testing.T) {
	originDir := t.TempDir()
	dest, err := objstore.NewDestination(originDir)
	if err != nil {
		t.Fatalf("NewDestination: %v", err)
	}
	origin := objstore.NewOrigin(originDir)

	treeA, _ := dest.Write(gitobj.TypeTree, nil)
	treeB, _ := dest.Write(gitobj.TypeTree, gitobj.SerializeTree([]gitobj.Entry{
		{Mode: "100644", Name: []byte("x"), Hash: treeA},
	}))
	treeC, _ := dest.Write(gitobj.TypeTree, gitobj.SerializeTree([]gitobj.Entry{
		{Mode: "100644", Name: []byte("y"), Hash: treeB},
	}))

	commit1 := writeCommit(t, dest, treeA.String(), "", "author a <a@x> 0 +0000\n\nfirst\n")
	commit2 := writeCommit(t, dest, treeB.String(), commit1.String(), "author a <a@x> 1 +0000\n\nsecond\n")
	commit3 := writeCommit(t, dest, treeC.String(), commit2.String(), "author a <a@x> 2 +0000\n\nthird\n")

	tables := mangle.NewTables()
	// treeA maps to a different tree so commit1's rewrite gets a new
	// hash, which every later parent pointer must then follow.
	newTreeA, _ := dest.Write(gitobj.TypeTree, gitobj.SerializeTree([]gitobj.Entry{
		{Mode: "100644", Name: []byte("z"), Hash: treeA},
	}))
	newTreeB := treeB
	newTreeC := treeC
	if err := tables.StoreRoot(treeA.String(), newTreeA.String()); err != nil {
		t.Fatalf("StoreRoot: %v", err)
	}
	if err := tables.StoreRoot(treeB.String(), newTreeB.String()); err != nil {
		t.Fatalf("StoreRoot: %v", err)
	}
	if err := tables.StoreRoot(treeC.String(), newTreeC.String()); err != nil {
		t.Fatalf("StoreRoot: %v", err)
	}

	rewriter := &CommitRewriter{Origin: origin, Dest: dest, Tables: tables}
	newTip, err := rewriter.RewriteCommits([]string{commit1.String(), commit2.String(), commit3.String()})
	if err != nil {
		t.Fatalf("RewriteCommits: %v", err)
	}

	tipHash, err := gitobj.ParseHash(newTip)
	if err != nil {
		t.Fatalf("ParseHash: %v", err)
	}
	_, payload, err := origin.Read(tipHash)
	if err != nil {
		t.Fatalf("read new tip: %v", err)
	}
	if !strings.Contains(string(payload), "tree "+newTreeC.String()+"\n") {
		t.Errorf("expected rewritten tip to reference new tree, got %q", payload)
	}
	if !strings.HasSuffix(string(payload), "third\n") {
		t.Errorf("expected rewritten tip to preserve message suffix, got %q", payload)
	}
	if strings.Contains(string(payload), "parent "+commit2.String()) {
		t.Error("expected parent pointer to be relinked, not left pointing at the original commit")
	}
}

// A commit whose first rev unexpectedly carries a parent field is
// rejected as a non-linear-history violation.
func TestRewriteCommitsRejectsUnexpectedParentOnFirst(t *testing.T) {
	originDir := t.TempDir()
	dest, err := objstore.NewDestination(originDir)
	if err != nil {
		t.Fatalf("NewDestination: %v", err)
	}
	origin := objstore.NewOrigin(originDir)

	tree, _ := dest.Write(gitobj.TypeTree, nil)
	bogusParent, _ := dest.Write(gitobj.TypeCommit, []byte("tree "+tree.String()+"\nauthor a <a@x> 0 +0000\n\nroot\n"))
	commit := writeCommit(t, dest, tree.String(), bogusParent.String(), "author a <a@x> 1 +0000\n\nchild\n")

	tables := mangle.NewTables()
	if err := tables.StoreRoot(tree.String(), tree.String()); err != nil {
		t.Fatalf("StoreRoot: %v", err)
	}

	rewriter := &CommitRewriter{Origin: origin, Dest: dest, Tables: tables}
	if _, err := rewriter.RewriteCommits([]string{commit.String()}); err == nil {
		t.Fatal("expected an error for an unexpected parent field on the first listed commit")
	}
}

// A commit missing its expected parent field is a corrupt-object
// violation, not silently accepted as a new root.
func TestRewriteCommitsRejectsMissingParent(t *testing.T) {
	originDir := t.TempDir()
	dest, err := objstore.NewDestination(originDir)
	if err != nil {
		t.Fatalf("NewDestination: %v", err)
	}
	origin := objstore.NewOrigin(originDir)

	tree, _ := dest.Write(gitobj.TypeTree, nil)
	commit1 := writeCommit(t, dest, tree.String(), "", "author a <a@x> 0 +0000\n\nfirst\n")
	commit2 := writeCommit(t, dest, tree.String(), "", "author a <a@x> 1 +0000\n\nsecond, no parent field\n")

	tables := mangle.NewTables()
	if err := tables.StoreRoot(tree.String(), tree.String()); err != nil {
		t.Fatalf("StoreRoot: %v", err)
	}

	rewriter := &CommitRewriter{Origin: origin, Dest: dest, Tables: tables}
	if _, err := rewriter.RewriteCommits([]string{commit1.String(), commit2.String()}); err == nil {
		t.Fatal("expected an error for a non-first commit missing its parent field")
	}
}
