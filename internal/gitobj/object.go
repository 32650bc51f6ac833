package gitobj

import (
	"bytes"
	"io"
	"strconv"

	"github.com/klauspost/compress/zlib"

	"github.com/javanhut/gitcs-filter/internal/ferrors"
)

// ObjType is one of the three object envelope tags recognized by the
// source repository's loose object format.
type ObjType string

const (
	TypeCommit ObjType = "commit"
	TypeTree   ObjType = "tree"
	TypeBlob   ObjType = "blob"
)

// FastCompressionLevel is the zlib level used when writing new
// objects, per §4.1 ("a fast compression level (level 1 is
// acceptable)").
const FastCompressionLevel = zlib.BestSpeed

// BuildEnvelope constructs the literal byte sequence
// "<type> <decimal-length>\0<payload>" that is both hashed and
// zlib-compressed to produce a loose object (§3).
func BuildEnvelope(objType ObjType, payload []byte) []byte {
	header := string(objType) + " " + strconv.Itoa(len(payload)) + "\x00"
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	out = append(out, payload...)
	return out
}

// Encode builds the envelope, hashes it, and zlib-compresses it at
// FastCompressionLevel. It performs no I/O.
func Encode(objType ObjType, payload []byte) (hash Hash, compressed []byte, err error) {
	envelope := BuildEnvelope(objType, payload)
	hash = Sum(envelope)

	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, FastCompressionLevel)
	if err != nil {
		return hash, nil, ferrors.CodecError("create zlib writer: %s", err)
	}
	if _, err := w.Write(envelope); err != nil {
		return hash, nil, ferrors.CodecError("zlib compress: %s", err)
	}
	if err := w.Close(); err != nil {
		return hash, nil, ferrors.CodecError("close zlib writer: %s", err)
	}
	return hash, buf.Bytes(), nil
}

// Decode reverses Encode: it zlib-decompresses compressed, splits the
// header on the first NUL and then on the single space, validates the
// decoded length against the trailing byte count, and returns the
// object type and payload.
func Decode(compressed []byte) (objType ObjType, payload []byte, err error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return "", nil, ferrors.CodecError("create zlib reader: %s", err)
	}
	defer zr.Close()

	envelope, err := io.ReadAll(zr)
	if err != nil {
		return "", nil, ferrors.CodecError("zlib decompress: %s", err)
	}

	nul := bytes.IndexByte(envelope, 0)
	if nul < 0 {
		return "", nil, ferrors.CorruptObject("object header missing NUL terminator")
	}
	header := envelope[:nul]
	payload = envelope[nul+1:]

	sp := bytes.IndexByte(header, ' ')
	if sp < 0 {
		return "", nil, ferrors.CorruptObject("object header missing space: %q", header)
	}
	objType = ObjType(header[:sp])
	switch objType {
	case TypeCommit, TypeTree, TypeBlob:
	default:
		return "", nil, ferrors.CorruptObject("unrecognized object type %q", objType)
	}

	declaredLen, err := strconv.Atoi(string(header[sp+1:]))
	if err != nil {
		return "", nil, ferrors.CorruptObject("object header length %q is not decimal: %s", header[sp+1:], err)
	}
	if declaredLen != len(payload) {
		return "", nil, ferrors.CorruptObject("object length mismatch: header says %d, payload is %d bytes", declaredLen, len(payload))
	}

	return objType, payload, nil
}
