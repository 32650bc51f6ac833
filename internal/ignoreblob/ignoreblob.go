// Package ignoreblob implements the ignore-blob builder (C5): it
// produces a new ignore blob combining an optional pre-existing
// ".gitignore" with a fixed suffix list of extension globs, memoizing
// by the base blob's hash.
package ignoreblob

import (
	"bytes"
	"sort"
	"sync"

	"github.com/javanhut/gitcs-filter/internal/ferrors"
	"github.com/javanhut/gitcs-filter/internal/gitobj"
	"github.com/javanhut/gitcs-filter/internal/objstore"
)

// key identifies a memoized derivation: either "derived from this
// base blob hash" or "derived from no base" (the blank case). Using a
// distinct key type rather than overloading gitobj.Hash with a
// sentinel value (as the original Python's single dict did with the
// string 'blank') avoids any chance of a real hash colliding with the
// sentinel.
type key struct {
	hasBase bool
	base    gitobj.Hash
}

// Builder produces ignore blobs for a fixed, sorted extension set. It
// is safe for concurrent use by multiple tree-mangler workers.
type Builder struct {
	extensions []string // already sorted ascending
	mu         sync.Mutex
	cache      map[key]gitobj.Hash
}

// New creates a Builder for the given extension set (e.g. the binary
// classification set of §6). Extensions are sorted once at
// construction.
func New(extensions []string) *Builder {
	sorted := make([]string, len(extensions))
	copy(sorted, extensions)
	sort.Strings(sorted)
	return &Builder{
		extensions: sorted,
		cache:      make(map[key]gitobj.Hash),
	}
}

// Build returns the hash of a new ignore blob layering the sorted
// extension globs after an optional base blob's content, writing it
// via dest if not already memoized.
//
// If base is the zero hash, the result starts from empty content. If
// base is non-zero, its payload is read from origin via C1 and used
// as a prefix: "base content" + "\n" is prepended unconditionally
// (even if the base already ended in a newline), per §4.5/§6.
func (b *Builder) Build(base gitobj.Hash, origin *objstore.Origin, dest *objstore.Destination) (gitobj.Hash, error) {
	k := key{hasBase: !base.IsZero(), base: base}

	b.mu.Lock()
	if cached, ok := b.cache[k]; ok {
		b.mu.Unlock()
		return cached, nil
	}
	b.mu.Unlock()

	var buf bytes.Buffer
	if k.hasBase {
		_, basePayload, err := origin.Read(base)
		if err != nil {
			return gitobj.Hash{}, err
		}
		buf.Write(basePayload)
		buf.WriteByte('\n')
	}
	for _, ext := range b.extensions {
		buf.WriteByte('*')
		buf.WriteString(ext)
		buf.WriteByte('\n')
	}

	hash, err := dest.Write(gitobj.TypeBlob, buf.Bytes())
	if err != nil {
		return gitobj.Hash{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.cache[k]; ok {
		if existing != hash {
			return gitobj.Hash{}, ferrors.InvariantViolated("ignore-blob memo mismatch for base %v: %s != %s", k, existing, hash)
		}
		return existing, nil
	}
	b.cache[k] = hash
	return hash, nil
}
