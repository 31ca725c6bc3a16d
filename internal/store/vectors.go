package store

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/blevesearch/mmap-go"

	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
)

// headerSize is the fixed-width binary header written at the start of the
// vectors file: magic(8) + version(4) + rows(4) + dim(4) + dtype(1) +
// modelName(64) + modelDigest(32).
const headerSize = 8 + 4 + 4 + 4 + 1 + 64 + 32

const dtypeFloat32 = byte(1)

// WriteVectorsFile writes header+body for vectors (row-major, each row
// length dim) to path. Callers are responsible for the *.new-then-rename
// atomicity; this function only produces file contents.
func WriteVectorsFile(path string, dim int, modelName string, modelDigest [32]byte, vectors [][]float32) error {
	f, err := os.Create(path)
	if err != nil {
		return coreerrors.Wrap(coreerrors.KindIO, "create vectors file", err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 1<<20)
	if _, err := w.WriteString(vectorsMagic); err != nil {
		return coreerrors.Wrap(coreerrors.KindIO, "write vectors header", err)
	}
	var hdr [4 + 4 + 4 + 1]byte
	binary.LittleEndian.PutUint32(hdr[0:4], StoreVersion)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(vectors)))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(dim))
	hdr[12] = dtypeFloat32
	if _, err := w.Write(hdr[:]); err != nil {
		return coreerrors.Wrap(coreerrors.KindIO, "write vectors header", err)
	}
	var nameBuf [64]byte
	copy(nameBuf[:], modelName)
	if _, err := w.Write(nameBuf[:]); err != nil {
		return coreerrors.Wrap(coreerrors.KindIO, "write model name", err)
	}
	if _, err := w.Write(modelDigest[:]); err != nil {
		return coreerrors.Wrap(coreerrors.KindIO, "write model digest", err)
	}

	var rowBuf [4]byte
	for _, row := range vectors {
		if len(row) != dim {
			return coreerrors.New(coreerrors.KindCorrupt, "row dimension mismatch while writing vectors")
		}
		for _, f32 := range row {
			binary.LittleEndian.PutUint32(rowBuf[:], math.Float32bits(f32))
			if _, err := w.Write(rowBuf[:]); err != nil {
				return coreerrors.Wrap(coreerrors.KindIO, "write vector row", err)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return coreerrors.Wrap(coreerrors.KindIO, "flush vectors file", err)
	}
	return f.Sync()
}

// MappedVectors is a read-only, memory-mapped view over a vectors file.
type MappedVectors struct {
	mm     mmap.MMap
	file   *os.File
	Header Header
}

// OpenVectorsMmap mmaps path read-only and parses its header eagerly.
func OpenVectorsMmap(path string) (*MappedVectors, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, coreerrors.Wrap(coreerrors.KindNotFound, "open vectors file", err)
		}
		return nil, coreerrors.Wrap(coreerrors.KindIO, "open vectors file", err)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, coreerrors.Wrap(coreerrors.KindIO, "mmap vectors file", err)
	}
	if len(m) < headerSize {
		m.Unmap()
		f.Close()
		return nil, coreerrors.New(coreerrors.KindCorrupt, "vectors file too small for header")
	}
	if string(m[0:8]) != vectorsMagic {
		m.Unmap()
		f.Close()
		return nil, coreerrors.New(coreerrors.KindCorrupt, "vectors file magic mismatch")
	}
	version := binary.LittleEndian.Uint32(m[8:12])
	if version != StoreVersion {
		m.Unmap()
		f.Close()
		return nil, coreerrors.New(coreerrors.KindCorrupt, "unsupported store version").WithDetail("refusing to open an unknown version; rebuild required")
	}
	rows := int(binary.LittleEndian.Uint32(m[12:16]))
	dim := int(binary.LittleEndian.Uint32(m[16:20]))
	var digest [32]byte
	copy(digest[:], m[21+64:21+64+32])
	hdr := Header{
		Version:     version,
		ModelName:   cstr(m[21 : 21+64]),
		ModelDigest: digest,
		Dim:         dim,
		Rows:        rows,
	}
	return &MappedVectors{mm: m, file: f, Header: hdr}, nil
}

// Row returns a copy of row i as a []float32, decoded from the mmap'd bytes.
func (v *MappedVectors) Row(i int) []float32 {
	dim := v.Header.Dim
	start := headerSize + i*dim*4
	row := make([]float32, dim)
	for j := 0; j < dim; j++ {
		off := start + j*4
		row[j] = math.Float32frombits(binary.LittleEndian.Uint32(v.mm[off : off+4]))
	}
	return row
}

// Close unmaps and closes the underlying file.
func (v *MappedVectors) Close() error {
	if err := v.mm.Unmap(); err != nil {
		return err
	}
	return v.file.Close()
}

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

var _ io.Closer = (*MappedVectors)(nil)
