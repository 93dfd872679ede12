// Package binarycmd implements the binary commands processor (spec.md
// §4.8): oversized commands — batch symbol/account provisioning and report
// queries — travel through the ring as a contiguous run of
// BINARY_DATA_COMMAND / BINARY_DATA_QUERY frames, each carrying 5 int64
// words, keyed by userCookie (the transferId) and terminated by a frame
// with symbol == -1. This package assembles those frames back into a byte
// payload and decodes the concrete batch command types.
//
// Grounded on the teacher's fixed-word ring slot discipline
// (matching/trade_ringbuffer_batch_safe.go reuses pre-allocated slots rather
// than allocating per message); the frame-assembly/decompress-dispatch shape
// itself is grounded on
// original_source's BinaryCommandsProcessor equivalent described in spec.md
// §4.8, reworked as a Go struct with an explicit accumulator map instead of
// a thread-local scratch buffer.
package binarycmd

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"clob-engine/domain"
)

// BatchAddSymbolsCommand bulk-installs symbol specifications, normally sent
// once at startup (spec.md: "Created once via BatchAddSymbolsCommand; never
// mutated after insertion").
type BatchAddSymbolsCommand struct {
	Symbols []domain.CoreSymbolSpecification
}

// BatchAddAccountsCommand bulk-credits a set of user accounts, used for
// bootstrapping test/demo balances without one BALANCE_ADJUSTMENT per user.
type BatchAddAccountsCommand struct {
	UID      int64
	Balances map[int32]int64 // currency -> amount
}

// ReportQuery requests an aggregated cross-shard report. Kind selects which
// reducer the caller's future assembles the per-shard fragments with.
type ReportQueryKind int8

const (
	ReportTotalBalances ReportQueryKind = iota
	ReportSingleUserProfile
)

type ReportQuery struct {
	Kind ReportQueryKind
	UID  int64 // meaningful only for ReportSingleUserProfile
}

// Encode serializes v with gob and LZ4-compresses the result (raw block,
// not LZ4-framed — matching the journal's "RESERVED_COMPRESSED" wire
// convention so both paths share one compression scheme).
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("binarycmd: gob encode: %w", err)
	}
	original := buf.Bytes()

	compressed := make([]byte, lz4.CompressBlockBound(len(original)))
	var compressor lz4.Compressor
	n, err := compressor.CompressBlock(original, compressed)
	if err != nil {
		return nil, fmt.Errorf("binarycmd: lz4 compress: %w", err)
	}
	compressed = compressed[:n]

	out := make([]byte, 8+len(compressed))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(original)))
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(compressed)))
	copy(out[8:], compressed)
	return out, nil
}

// decode reverses Encode and gob-decodes into dst.
func decode(payload []byte, dst any) error {
	if len(payload) < 8 {
		return fmt.Errorf("binarycmd: payload too short: %d bytes", len(payload))
	}
	originalSize := binary.LittleEndian.Uint32(payload[0:4])
	compressedSize := binary.LittleEndian.Uint32(payload[4:8])
	rest := payload[8:]
	// rest may carry trailing zero padding from the last (partially-filled)
	// 5-word binary frame, so trim to the declared compressed size rather
	// than requiring an exact-length match.
	if uint32(len(rest)) < compressedSize {
		return fmt.Errorf("binarycmd: compressed size mismatch: header=%d actual=%d", compressedSize, len(rest))
	}
	body := rest[:compressedSize]

	original := make([]byte, originalSize)
	n, err := lz4.UncompressBlock(body, original)
	if err != nil {
		return fmt.Errorf("binarycmd: lz4 decompress: %w", err)
	}
	if uint32(n) != originalSize {
		return fmt.Errorf("binarycmd: decompressed size mismatch: header=%d actual=%d", originalSize, n)
	}

	return gob.NewDecoder(bytes.NewReader(original)).Decode(dst)
}
