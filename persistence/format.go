// Package persistence serializes the identity registry to a durable,
// kernel-independent snapshot and back.
//
// Snapshot layout:
//
//	magic    [4]byte  "TGS0"
//	version  uint16   format version
//	flags    uint16   low 4 bits: compression codec
//	nameLen  uint8    codec name length
//	name     []byte   codec name ("json", "go-json", ...)
//	length   uint64   payload length in bytes (after compression)
//	checksum uint32   CRC32C of the payload bytes as stored
//	payload  []byte
//
// The file is self-describing: the reader selects the payload codec by the
// stored name and the compression codec by the flag bits. Round-trips are
// lossless for every populated record field; absent optional fields are
// stored as explicit nulls by the registry record schema.
package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/brepkit/topogo/codec"
	"github.com/brepkit/topogo/internal/hash"
	"github.com/brepkit/topogo/registry"
)

var (
	snapshotMagic   = [4]byte{'T', 'G', 'S', '0'}
	formatVersion   = uint16(1)
	compressionBits = uint16(0x000F)
)

var (
	// ErrInvalidMagic is returned when the snapshot header magic is wrong.
	ErrInvalidMagic = errors.New("invalid snapshot magic")

	// ErrUnsupportedVersion is returned for snapshot versions this build
	// cannot read.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")

	// ErrUnknownCodec is returned when the snapshot names a codec this
	// build does not know.
	ErrUnknownCodec = errors.New("unknown snapshot codec")

	// ErrUnknownCompression is returned for unrecognized compression flag
	// bits.
	ErrUnknownCompression = errors.New("unknown snapshot compression")
)

// ChecksumMismatchError is returned when the payload checksum does not
// verify; the snapshot is corrupt and must not be imported.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("snapshot checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// Compression selects the snapshot payload compression.
type Compression uint8

const (
	// CompressionNone stores the payload uncompressed.
	CompressionNone Compression = iota
	// CompressionZstd compresses with zstd (best ratio, recommended).
	CompressionZstd
	// CompressionLZ4 compresses with lz4 (fastest).
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Write encodes records with c, compresses per comp and writes a complete
// snapshot to w.
func Write(w io.Writer, records []registry.Record, c codec.Codec, comp Compression) error {
	if c == nil {
		c = codec.Default
	}

	payload, err := c.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot payload: %w", err)
	}

	payload, err = compress(payload, comp)
	if err != nil {
		return err
	}

	name := c.Name()
	if len(name) > 255 {
		return fmt.Errorf("codec name too long: %q", name)
	}

	header := make([]byte, 0, 4+2+2+1+len(name)+8+4)
	header = append(header, snapshotMagic[:]...)
	header = binary.LittleEndian.AppendUint16(header, formatVersion)
	header = binary.LittleEndian.AppendUint16(header, uint16(comp)&compressionBits)
	header = append(header, uint8(len(name)))
	header = append(header, name...)
	header = binary.LittleEndian.AppendUint64(header, uint64(len(payload)))
	header = binary.LittleEndian.AppendUint32(header, hash.CRC32C(payload))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write snapshot header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write snapshot payload: %w", err)
	}
	return nil
}

// Read parses a complete snapshot from r, verifying magic, version and
// checksum before decoding any record.
func Read(r io.Reader) ([]registry.Record, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("failed to read snapshot magic: %w", err)
	}
	if magic != snapshotMagic {
		return nil, ErrInvalidMagic
	}

	var fixed [5]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, fmt.Errorf("failed to read snapshot header: %w", err)
	}
	version := binary.LittleEndian.Uint16(fixed[0:2])
	if version != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	comp := Compression(binary.LittleEndian.Uint16(fixed[2:4]) & compressionBits)
	nameLen := int(fixed[4])

	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBuf); err != nil {
		return nil, fmt.Errorf("failed to read snapshot codec name: %w", err)
	}
	c, ok := codec.ByName(string(nameBuf))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, string(nameBuf))
	}

	var tail [12]byte
	if _, err := io.ReadFull(r, tail[:]); err != nil {
		return nil, fmt.Errorf("failed to read snapshot header: %w", err)
	}
	payloadLen := binary.LittleEndian.Uint64(tail[0:8])
	checksum := binary.LittleEndian.Uint32(tail[8:12])

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("failed to read snapshot payload: %w", err)
	}
	if actual := hash.CRC32C(payload); actual != checksum {
		return nil, &ChecksumMismatchError{Expected: checksum, Actual: actual}
	}

	payload, err := decompress(payload, comp)
	if err != nil {
		return nil, err
	}

	var records []registry.Record
	if err := c.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot payload: %w", err)
	}
	return records, nil
}

func compress(data []byte, comp Compression) ([]byte, error) {
	switch comp {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("failed to lz4-compress snapshot: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("failed to lz4-compress snapshot: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(comp))
	}
}

func decompress(data []byte, comp Compression) ([]byte, error) {
	switch comp {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to zstd-decompress snapshot: %w", err)
		}
		return out, nil
	case CompressionLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("failed to lz4-decompress snapshot: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(comp))
	}
}
