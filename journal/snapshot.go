package journal

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
)

// ShardKind distinguishes a matching-engine snapshot from a risk-engine
// snapshot in the .ecs file name (spec.md: "<ME|RE><instance>").
type ShardKind string

const (
	MatchingShard ShardKind = "ME"
	RiskShard     ShardKind = "RE"
)

// SnapshotFileName builds the name spec.md §4.9 specifies:
// <exchangeId>_snapshot_<snapshotId>_<ME|RE><instance>.ecs
func SnapshotFileName(exchangeID string, snapshotID int64, kind ShardKind, instance int) string {
	return fmt.Sprintf("%s_snapshot_%d_%s%d.ecs", exchangeID, snapshotID, kind, instance)
}

// WriteSnapshot LZ4-compresses state (an opaque, shard-serialized byte
// blob — the matching engine's order books or the risk engine's user
// profiles, encoded by the caller) and writes it as
// [int32 originalSize][int32 compressedSize][LZ4 data].
func WriteSnapshot(directory string, exchangeID string, snapshotID int64, kind ShardKind, instance int, state []byte) error {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("journal: mkdir %s: %w", directory, err)
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(state)))
	var compressor lz4.Compressor
	n, err := compressor.CompressBlock(state, compressed)
	if err != nil {
		return fmt.Errorf("journal: lz4 compress snapshot: %w", err)
	}
	compressed = compressed[:n]

	out := make([]byte, 8+len(compressed))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(state)))
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(compressed)))
	copy(out[8:], compressed)

	path := filepath.Join(directory, SnapshotFileName(exchangeID, snapshotID, kind, instance))
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("journal: write snapshot %s: %w", path, err)
	}
	return nil
}

// ReadSnapshot inverts WriteSnapshot, returning the original
// shard-serialized state bytes.
func ReadSnapshot(directory string, exchangeID string, snapshotID int64, kind ShardKind, instance int) ([]byte, error) {
	path := filepath.Join(directory, SnapshotFileName(exchangeID, snapshotID, kind, instance))
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("journal: read snapshot %s: %w", path, err)
	}
	if len(raw) < 8 {
		return nil, fmt.Errorf("journal: snapshot %s truncated", path)
	}
	originalSize := binary.LittleEndian.Uint32(raw[0:4])
	compressedSize := binary.LittleEndian.Uint32(raw[4:8])
	body := raw[8:]
	if uint32(len(body)) != compressedSize {
		return nil, fmt.Errorf("journal: snapshot %s compressed size mismatch: header=%d actual=%d", path, compressedSize, len(body))
	}

	state := make([]byte, originalSize)
	n, err := lz4.UncompressBlock(body, state)
	if err != nil {
		return nil, fmt.Errorf("journal: lz4 decompress snapshot %s: %w", path, err)
	}
	if uint32(n) != originalSize {
		return nil, fmt.Errorf("journal: snapshot %s decompressed size mismatch: header=%d actual=%d", path, originalSize, n)
	}
	return state, nil
}
