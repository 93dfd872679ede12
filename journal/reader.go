package journal

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/pierrec/lz4/v4"

	"clob-engine/domain"
)

// DecodedRecord pairs a reconstructed command with the sequence number it
// was journaled under.
type DecodedRecord struct {
	Seq int64
	Cmd *domain.OrderCommand
}

// ReadFile decodes every record in a .ecj journal file, transparently
// inflating RESERVED_COMPRESSED blocks. Nested compression (a compressed
// block whose decompressed bytes themselves contain another
// RESERVED_COMPRESSED record) is rejected, per spec.md's "one level of
// nesting only".
func ReadFile(path string) ([]DecodedRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("journal: read %s: %w", path, err)
	}
	return decodeStream(data, false)
}

func decodeStream(data []byte, nested bool) ([]DecodedRecord, error) {
	var out []DecodedRecord
	pos := 0
	for pos < len(data) {
		code := domain.OrderCommandType(data[pos])
		if code == domain.ReservedCompressed {
			if nested {
				return nil, fmt.Errorf("journal: nested RESERVED_COMPRESSED block is not allowed")
			}
			if pos+9 > len(data) {
				return nil, fmt.Errorf("journal: truncated compressed record header at offset %d", pos)
			}
			compressedSize := binary.LittleEndian.Uint32(data[pos+1 : pos+5])
			originalSize := binary.LittleEndian.Uint32(data[pos+5 : pos+9])
			bodyStart := pos + 9
			bodyEnd := bodyStart + int(compressedSize)
			if bodyEnd > len(data) {
				return nil, fmt.Errorf("journal: truncated compressed record body at offset %d", pos)
			}
			original := make([]byte, originalSize)
			n, err := lz4.UncompressBlock(data[bodyStart:bodyEnd], original)
			if err != nil {
				return nil, fmt.Errorf("journal: lz4 decompress at offset %d: %w", pos, err)
			}
			inner, err := decodeStream(original[:n], true)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
			pos = bodyEnd
			continue
		}

		cmd, seq, consumed, err := DecodeRecord(data[pos:])
		if err != nil {
			return nil, fmt.Errorf("journal: decode record at offset %d: %w", pos, err)
		}
		out = append(out, DecodedRecord{Seq: seq, Cmd: cmd})
		pos += consumed
	}
	return out, nil
}
