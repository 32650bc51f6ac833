// Package objstore implements the loose-object store I/O (C3): path
// derivation by first-hash-byte fan-out, atomic rename on write, and
// idempotent writes for an already-present object.
package objstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/javanhut/gitcs-filter/internal/ferrors"
	"github.com/javanhut/gitcs-filter/internal/gitobj"
)

// writerSeq disambiguates concurrent temp-file names from goroutines
// sharing a process ID; combined with os.Getpid() this gives every
// writer-id (§4.1) its own temp path.
var writerSeq atomic.Uint64

// Origin is a read-only loose-object directory.
type Origin struct {
	Dir string
}

// NewOrigin wraps an existing loose-object directory for reading.
func NewOrigin(dir string) *Origin {
	return &Origin{Dir: dir}
}

// Read loads, decompresses, and parses the object stored under hash.
func (o *Origin) Read(hash gitobj.Hash) (gitobj.ObjType, []byte, error) {
	path := objectPath(o.Dir, hash)
	compressed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, ferrors.NotFound(hash.String())
		}
		return "", nil, ferrors.IoError("read object %s: %s", hash, err)
	}
	return gitobj.Decode(compressed)
}

// Destination is a write-only loose-object directory. Concurrent
// writers are safe: writes are atomic-by-rename and content-addressed,
// so two writers of the same object converge on the same bytes.
type Destination struct {
	Dir string
}

// NewDestination prepares a directory for writing new objects.
func NewDestination(dir string) (*Destination, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ferrors.IoError("create destination dir %s: %s", dir, err)
	}
	return &Destination{Dir: dir}, nil
}

// Write encodes (type, payload) and writes the compressed object to
// disk if it is not already present. It returns the object's hash
// regardless of whether a write actually occurred.
func (d *Destination) Write(objType gitobj.ObjType, payload []byte) (gitobj.Hash, error) {
	hash, compressed, err := gitobj.Encode(objType, payload)
	if err != nil {
		return hash, err
	}
	if err := d.writeCompressed(hash, compressed); err != nil {
		return hash, err
	}
	return hash, nil
}

func (d *Destination) writeCompressed(hash gitobj.Hash, compressed []byte) error {
	path := objectPath(d.Dir, hash)
	if _, err := os.Stat(path); err == nil {
		return nil // already present; content-addressed, so bytes must match
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ferrors.IoError("create object subdir %s: %s", dir, err)
	}

	tmpPath := fmt.Sprintf("%s-%d.%d.tmp", path, os.Getpid(), writerSeq.Add(1))
	if err := os.WriteFile(tmpPath, compressed, 0o644); err != nil {
		return ferrors.IoError("write temp object %s: %s", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		// Another writer may have raced us to the rename; if the
		// target now exists the object is present either way.
		if _, statErr := os.Stat(path); statErr == nil {
			return nil
		}
		return ferrors.IoError("rename temp object %s -> %s: %s", tmpPath, path, err)
	}
	return nil
}

// objectPath derives "<hex[0:2]>/<hex[2:]>" under root, the fan-out
// layout shared by both origin and destination stores (§3, §4.3).
func objectPath(root string, hash gitobj.Hash) string {
	hex := hash.String()
	return filepath.Join(root, hex[:2], hex[2:])
}
