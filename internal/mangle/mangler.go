package mangle

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/javanhut/gitcs-filter/internal/extract"
	"github.com/javanhut/gitcs-filter/internal/ferrors"
	"github.com/javanhut/gitcs-filter/internal/gitobj"
	"github.com/javanhut/gitcs-filter/internal/ignoreblob"
	"github.com/javanhut/gitcs-filter/internal/objstore"
)

// maxDepth guards against pathological recursion depth (§9:
// "implementations SHOULD guard against pathological depth"); real
// repository trees are tens of levels deep at most.
const maxDepth = 1000

// Config carries the run-time knobs of §6 that shape a rewrite.
type Config struct {
	// TriggerSuffix is the special-subtree name suffix (e.g. "Tests").
	TriggerSuffix string
	// Extensions is the lowercase, dot-prefixed binary-classification
	// extension set (e.g. ".png").
	Extensions map[string]struct{}
	// URIPrefix is the external object-store URI prefix written into
	// pointer blobs, e.g. "gs://blink-gitcs".
	URIPrefix string
}

// isBinaryExt reports whether fname's extension (case-insensitive) is
// in the configured extension set.
func (c Config) isBinaryExt(fname string) bool {
	ext := strings.ToLower(filepath.Ext(fname))
	_, ok := c.Extensions[ext]
	return ok
}

// Mangler rewrites tree subgraphs per §4.6, sharing Tables across
// every concurrent invocation from the parallel tree driver (C7).
type Mangler struct {
	Origin *objstore.Origin
	Dest   *objstore.Destination
	Sink   *extract.Sink
	Ignore *ignoreblob.Builder
	Tables *Tables
	Config Config
}

// MangleTree recursively rewrites the tree rooted at root, returning
// its rewritten hash (or root unchanged if nothing in the subgraph
// needed rewriting). inSpecial is latched true for every descendant
// once the special subtree has been entered; depth counts subtree
// levels from the invocation root (depth 0 is the tree passed to the
// top-level call).
func (m *Mangler) MangleTree(root gitobj.Hash, inSpecial bool, depth int) (gitobj.Hash, error) {
	if depth > maxDepth {
		return gitobj.Hash{}, ferrors.InvariantViolated("tree depth exceeded %d at %s", maxDepth, root)
	}

	if cached, ok := m.Tables.LookupTree(root); ok {
		return cached, nil
	}

	objType, payload, err := m.Origin.Read(root)
	if err != nil {
		return gitobj.Hash{}, err
	}
	if objType != gitobj.TypeTree {
		return gitobj.Hash{}, ferrors.CorruptObject("mangle target %s is not a tree (got %s)", root, objType)
	}
	entries, err := gitobj.ParseTree(payload)
	if err != nil {
		return gitobj.Hash{}, err
	}

	var out []gitobj.Entry
	var baseIgnore gitobj.Hash
	haveBaseIgnore := false
	changed := false

	for _, e := range entries {
		if e.Mode.IsFile() {
			name := string(e.Name)
			switch {
			case inSpecial && depth == 1 && name == ".gitignore":
				baseIgnore = e.Hash
				haveBaseIgnore = true
				continue // re-emitted, augmented, below
			case inSpecial && m.Config.isBinaryExt(name):
				if err := m.Sink.Extract(e.Hash, m.Origin); err != nil {
					return gitobj.Hash{}, err
				}
				m.Tables.MarkExtracted(e.Hash)

				pointerPayload := fmt.Sprintf("src %s/%s.blob\n", m.Config.URIPrefix, e.Hash)
				newBlobHash, err := m.Dest.Write(gitobj.TypeBlob, []byte(pointerPayload))
				if err != nil {
					return gitobj.Hash{}, err
				}

				e.Hash = newBlobHash
				e.Name = append(append([]byte{}, e.Name...), ".gitcs"...)
				changed = true
			}
			out = append(out, e)
			continue
		}

		// Subtree entry.
		descend := inSpecial || strings.HasSuffix(string(e.Name), m.Config.TriggerSuffix)
		if descend {
			newChild, err := m.MangleTree(e.Hash, true, depth+1)
			if err != nil {
				return gitobj.Hash{}, err
			}
			if newChild != e.Hash {
				changed = true
			}
			e.Hash = newChild
		}
		out = append(out, e)
	}

	if inSpecial && depth == 1 {
		base := gitobj.Hash{}
		if haveBaseIgnore {
			base = baseIgnore
		}
		ignoreHash, err := m.Ignore.Build(base, m.Origin, m.Dest)
		if err != nil {
			return gitobj.Hash{}, err
		}
		out = append(out, gitobj.Entry{Mode: "100644", Name: []byte(".gitignore"), Hash: ignoreHash})
		changed = true
	}

	var result gitobj.Hash
	if changed {
		newPayload := gitobj.SerializeTree(out)
		result, err = m.Dest.Write(gitobj.TypeTree, newPayload)
		if err != nil {
			return gitobj.Hash{}, err
		}
	} else {
		result = root
	}

	if err := m.Tables.StoreTree(root, result); err != nil {
		return gitobj.Hash{}, err
	}
	return result, nil
}
