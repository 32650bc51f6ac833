package gitobj

import (
	"bytes"
	"sort"

	"github.com/javanhut/gitcs-filter/internal/ferrors"
)

// SubtreeMode is the exact mode string for a subtree entry (§3).
const SubtreeMode = "40000"

// Entry is a single tree entry: (mode-string, filename-bytes,
// child-hash).
type Entry struct {
	Mode Mode
	Name []byte
	Hash Hash
}

// Mode is the ASCII octal mode string of a tree entry, with no
// leading zero.
type Mode string

// IsSubtree reports whether the entry is a subtree ('40000' exactly).
func (m Mode) IsSubtree() bool {
	return m == SubtreeMode
}

// IsFile reports whether the entry begins with '1', the file-like
// prefix (§3).
func (m Mode) IsFile() bool {
	return len(m) > 0 && m[0] == '1'
}

// sortKey returns the canonical ordering key for an entry: its name,
// with a trailing '/' appended when the entry is a subtree — the
// legacy ordering quirk that must be preserved for hash stability.
func sortKey(e Entry) []byte {
	if e.Mode.IsSubtree() {
		key := make([]byte, 0, len(e.Name)+1)
		key = append(key, e.Name...)
		key = append(key, '/')
		return key
	}
	return e.Name
}

// ParseTree scans a tree object's payload into its entries. The
// parser does not assume any particular input ordering.
func ParseTree(payload []byte) ([]Entry, error) {
	var entries []Entry
	pos := 0
	for pos < len(payload) {
		spaceIdx := bytes.IndexByte(payload[pos:], ' ')
		if spaceIdx < 0 {
			return nil, ferrors.CorruptObject("tree entry at offset %d: missing mode terminator", pos)
		}
		spaceIdx += pos
		mode := Mode(payload[pos:spaceIdx])

		nulIdx := bytes.IndexByte(payload[spaceIdx+1:], 0)
		if nulIdx < 0 {
			return nil, ferrors.CorruptObject("tree entry at offset %d: missing filename terminator", pos)
		}
		nulIdx += spaceIdx + 1

		nameStart := spaceIdx + 1
		hashStart := nulIdx + 1
		hashEnd := hashStart + HashSize
		if hashEnd > len(payload) {
			return nil, ferrors.CorruptObject("tree entry at offset %d: truncated child hash", pos)
		}

		name := make([]byte, nulIdx-nameStart)
		copy(name, payload[nameStart:nulIdx])

		var h Hash
		copy(h[:], payload[hashStart:hashEnd])

		entries = append(entries, Entry{Mode: mode, Name: name, Hash: h})
		pos = hashEnd
	}
	return entries, nil
}

// SerializeTree sorts entries by the canonical key of §3 and
// concatenates "<mode> <filename>\0<raw-hash>" for each, with no
// separators between entries.
func SerializeTree(entries []Entry) []byte {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sortKey(sorted[i]), sortKey(sorted[j])) < 0
	})

	var buf bytes.Buffer
	for _, e := range sorted {
		buf.WriteString(string(e.Mode))
		buf.WriteByte(' ')
		buf.Write(e.Name)
		buf.WriteByte(0)
		buf.Write(e.Hash[:])
	}
	return buf.Bytes()
}
