// Package extract implements the binary extraction sink (C4): it
// materializes a blob's payload into the staging directory under its
// content hash, for later upload to an external object store.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/javanhut/gitcs-filter/internal/cas"
	"github.com/javanhut/gitcs-filter/internal/ferrors"
	"github.com/javanhut/gitcs-filter/internal/gitobj"
	"github.com/javanhut/gitcs-filter/internal/objstore"
)

var writerSeq atomic.Uint64

// Sink stages binary blobs to disk for upload to the external object
// store. When Enabled is false (dry-run, §4.4) the write is skipped
// entirely but the caller still records the hash for counting.
//
// Alongside the flat "<hex>.blob" layout the external uploader
// expects, every staged payload is mirrored into a BLAKE3-addressed
// cas.FileCAS rooted at "<dir>/blake3": a fast secondary integrity
// check for the upload step, independent of the SHA-1 content
// address used by the primary layout.
type Sink struct {
	Dir     string
	Enabled bool

	casOnce sync.Once
	casDir  *cas.FileCAS
}

// NewSink prepares a staging directory. dir is created lazily on the
// first Extract call so a disabled sink never touches the filesystem.
func NewSink(dir string, enabled bool) *Sink {
	return &Sink{Dir: dir, Enabled: enabled}
}

// Extract reads the blob payload for hash from origin and writes it
// to "<dir>/<hex>.blob", then mirrors it into the BLAKE3 sidecar CAS.
//
// Idempotent: if the destination already exists with the same size it
// is left untouched (§4.4's optional optimization). When the sink is
// disabled, Extract does nothing and returns nil.
func (s *Sink) Extract(hash gitobj.Hash, origin *objstore.Origin) error {
	if !s.Enabled {
		return nil
	}

	objType, payload, err := origin.Read(hash)
	if err != nil {
		return err
	}
	if objType != gitobj.TypeBlob {
		return ferrors.CorruptObject("extract target %s is not a blob (got %s)", hash, objType)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return ferrors.IoError("create staging dir %s: %s", s.Dir, err)
	}

	blobPath := filepath.Join(s.Dir, hash.String()+".blob")
	if fi, statErr := os.Stat(blobPath); statErr == nil && fi.Size() == int64(len(payload)) {
		return nil
	}

	if err := writeAtomic(blobPath, payload); err != nil {
		return err
	}

	sidecar, err := s.sidecarCAS()
	if err != nil {
		return err
	}
	if err := sidecar.Put(cas.SumB3(payload), payload); err != nil {
		return ferrors.IoError("mirror %s into blake3 sidecar: %s", hash, err)
	}
	return nil
}

func (s *Sink) sidecarCAS() (*cas.FileCAS, error) {
	var initErr error
	s.casOnce.Do(func() {
		s.casDir, initErr = cas.NewFileCAS(filepath.Join(s.Dir, "blake3"))
	})
	if initErr != nil {
		return nil, ferrors.IoError("init blake3 sidecar store: %s", initErr)
	}
	return s.casDir, nil
}

func writeAtomic(path string, data []byte) error {
	tmpPath := fmt.Sprintf("%s-%d.%d.tmp", path, os.Getpid(), writerSeq.Add(1))
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return ferrors.IoError("write temp staged file %s: %s", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return ferrors.IoError("rename staged file %s -> %s: %s", tmpPath, path, err)
	}
	return nil
}
