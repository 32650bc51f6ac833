// Package mangle implements the tree mangler (C6): a recursive,
// memoizing rewrite of a tree subgraph that stages binary assets,
// injects an ignore blob, and renames pointer entries.
package mangle

import (
	"sync"

	"github.com/javanhut/gitcs-filter/internal/ferrors"
	"github.com/javanhut/gitcs-filter/internal/gitobj"
)

// Tables holds the three shared, concurrent memo tables of §3:
// tree_cache, root_trees, and extracted_blobs. A single Tables
// instance is shared by every worker in the parallel tree driver
// (C7).
type Tables struct {
	treeMu    sync.Mutex
	treeCache map[gitobj.Hash]gitobj.Hash

	rootMu    sync.Mutex
	rootTrees map[string]string

	extractedMu sync.Mutex
	extracted   map[gitobj.Hash]struct{}
}

// NewTables creates empty memo tables.
func NewTables() *Tables {
	return &Tables{
		treeCache: make(map[gitobj.Hash]gitobj.Hash),
		rootTrees: make(map[string]string),
		extracted: make(map[gitobj.Hash]struct{}),
	}
}

// LookupTree returns the memoized rewrite of orig, if any.
func (t *Tables) LookupTree(orig gitobj.Hash) (gitobj.Hash, bool) {
	t.treeMu.Lock()
	defer t.treeMu.Unlock()
	h, ok := t.treeCache[orig]
	return h, ok
}

// StoreTree records orig -> rewritten via compare-and-set: a second
// writer computing a different value for the same key is a fatal
// invariant violation (§3, §7).
func (t *Tables) StoreTree(orig, rewritten gitobj.Hash) error {
	t.treeMu.Lock()
	defer t.treeMu.Unlock()
	if existing, ok := t.treeCache[orig]; ok {
		if existing != rewritten {
			return ferrors.InvariantViolated("tree_cache mismatch for %s: %s != %s", orig, existing, rewritten)
		}
		return nil
	}
	t.treeCache[orig] = rewritten
	return nil
}

// LookupRoot returns the rewritten hex for an original top-tree hex.
func (t *Tables) LookupRoot(origHex string) (string, bool) {
	t.rootMu.Lock()
	defer t.rootMu.Unlock()
	h, ok := t.rootTrees[origHex]
	return h, ok
}

// StoreRoot records origHex -> rewrittenHex via compare-and-set.
func (t *Tables) StoreRoot(origHex, rewrittenHex string) error {
	t.rootMu.Lock()
	defer t.rootMu.Unlock()
	if existing, ok := t.rootTrees[origHex]; ok {
		if existing != rewrittenHex {
			return ferrors.InvariantViolated("root_trees mismatch for %s: %s != %s", origHex, existing, rewrittenHex)
		}
		return nil
	}
	t.rootTrees[origHex] = rewrittenHex
	return nil
}

// MarkExtracted records hash as staged, returning whether it was
// already present (membership-idempotent; used solely for counting).
func (t *Tables) MarkExtracted(hash gitobj.Hash) (alreadyPresent bool) {
	t.extractedMu.Lock()
	defer t.extractedMu.Unlock()
	_, ok := t.extracted[hash]
	t.extracted[hash] = struct{}{}
	return ok
}

// ExtractedCount returns the number of distinct blobs staged so far.
func (t *Tables) ExtractedCount() int {
	t.extractedMu.Lock()
	defer t.extractedMu.Unlock()
	return len(t.extracted)
}
