// Package hash provides the checksum primitives used for snapshot
// integrity verification.
//
// All checksums use CRC32-Castagnoli: hardware accelerated on x86 (SSE4.2)
// and ARM (CRC extension), with better error detection than CRC32-IEEE.
// CRC32C is not cryptographically secure; it detects accidental corruption,
// not tampering.
package hash

import (
	"hash"
	"hash/crc32"
)

// crc32cTable is pre-computed for the Castagnoli polynomial so repeated
// checksums avoid MakeTable calls.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// NewCRC32C returns a new streaming CRC32-Castagnoli hash.Hash32.
func NewCRC32C() hash.Hash32 {
	return crc32.New(crc32cTable)
}
