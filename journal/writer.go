package journal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"

	"clob-engine/domain"
)

// Config tunes the journal writer's buffering and rotation thresholds
// (spec.md §4.9's journalBufferFlushTrigger, journalBatchCompressThreshold,
// journalFileMaxSize).
type Config struct {
	// BufferFlushTrigger: once the uncompressed accumulator reaches this
	// many bytes, Flush is called automatically after WriteRecord.
	BufferFlushTrigger int
	// BatchCompressThreshold: a Flush whose buffer is below this size is
	// written raw; at or above, it is LZ4-compressed into a
	// RESERVED_COMPRESSED record.
	BatchCompressThreshold int
	// FileMaxSize: once a file's running byte count reaches this, the next
	// write rotates to a new file.
	FileMaxSize int64
}

// Writer appends journal records to <exchangeId>_journal_<snapshotId>_<hex4>.ecj
// files under directory, rotating on RESET and when FileMaxSize is reached
// (next partition, same snapshot) and on PERSIST_STATE_RISK (next snapshot,
// same partition number).
//
// Not safe for concurrent use: spec.md §5 dedicates exactly one goroutine
// ("the journaling consumer") to disk I/O.
type Writer struct {
	cfg       Config
	directory string
	exchangeID string
	partition  uint16

	snapshotID int64
	file       *os.File
	buf        bytes.Buffer
	bytesWritten int64
}

// NewWriter opens (creating if necessary) the journal file for the given
// partition and starting snapshotID.
func NewWriter(directory, exchangeID string, partition uint16, snapshotID int64, cfg Config) (*Writer, error) {
	w := &Writer{cfg: cfg, directory: directory, exchangeID: exchangeID, partition: partition, snapshotID: snapshotID}
	if err := w.openFile(); err != nil {
		return nil, err
	}
	return w, nil
}

func fileName(exchangeID string, snapshotID int64, partition uint16) string {
	return fmt.Sprintf("%s_journal_%d_%04x.ecj", exchangeID, snapshotID, partition)
}

func (w *Writer) openFile() error {
	if err := os.MkdirAll(w.directory, 0o755); err != nil {
		return fmt.Errorf("journal: mkdir %s: %w", w.directory, err)
	}
	path := filepath.Join(w.directory, fileName(w.exchangeID, w.snapshotID, w.partition))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open %s: %w", path, err)
	}
	w.file = f
	w.bytesWritten = 0
	return nil
}

// HandleCommand is the writer's main entry point: it rotates the file when
// spec.md requires it, appends the encoded record, flushes when the
// accumulator crosses BufferFlushTrigger, and force-flushes on
// SHUTDOWN_SIGNAL.
func (w *Writer) HandleCommand(cmd *domain.OrderCommand, seq int64) error {
	switch cmd.Command {
	case domain.Reset:
		w.partition++
		if err := w.Rotate(w.snapshotID); err != nil {
			return err
		}
	case domain.PersistStateRisk:
		if err := w.Rotate(w.snapshotID + 1); err != nil {
			return err
		}
	}

	if err := w.WriteRecord(cmd, seq); err != nil {
		return err
	}

	if cmd.Command == domain.ShutdownSignal {
		return w.Flush()
	}
	if w.cfg.FileMaxSize > 0 && w.bytesWritten+int64(w.buf.Len()) >= w.cfg.FileMaxSize {
		if err := w.Flush(); err != nil {
			return err
		}
		w.partition++
		return w.Rotate(w.snapshotID)
	}
	return nil
}

// WriteRecord appends one encoded record to the in-memory accumulator,
// auto-flushing once BufferFlushTrigger is reached.
func (w *Writer) WriteRecord(cmd *domain.OrderCommand, seq int64) error {
	w.buf.Write(EncodeRecord(cmd, seq))
	if w.cfg.BufferFlushTrigger > 0 && w.buf.Len() >= w.cfg.BufferFlushTrigger {
		return w.Flush()
	}
	return nil
}

// Flush writes the accumulated bytes to disk: raw if below
// BatchCompressThreshold, otherwise as an LZ4-compressed RESERVED_COMPRESSED
// record ([4 bytes compressedSize][4 bytes originalSize][compressed bytes]
// after the 1-byte type code).
func (w *Writer) Flush() error {
	if w.buf.Len() == 0 {
		return nil
	}
	original := append([]byte(nil), w.buf.Bytes()...)
	w.buf.Reset()

	var out []byte
	if len(original) < w.cfg.BatchCompressThreshold {
		out = original
	} else {
		compressed := make([]byte, lz4.CompressBlockBound(len(original)))
		var compressor lz4.Compressor
		n, err := compressor.CompressBlock(original, compressed)
		if err != nil {
			return fmt.Errorf("journal: lz4 compress: %w", err)
		}
		compressed = compressed[:n]

		header := make([]byte, 1+4+4)
		header[0] = byte(domain.ReservedCompressed)
		binary.LittleEndian.PutUint32(header[1:5], uint32(n))
		binary.LittleEndian.PutUint32(header[5:9], uint32(len(original)))
		out = append(header, compressed...)
	}

	n, err := w.file.Write(out)
	w.bytesWritten += int64(n)
	if err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	return nil
}

// Rotate flushes and closes the current file and opens the file named by
// newSnapshotID and the writer's current partition.
func (w *Writer) Rotate(newSnapshotID int64) error {
	if err := w.Flush(); err != nil {
		return err
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("journal: close: %w", err)
	}
	w.snapshotID = newSnapshotID
	return w.openFile()
}

// Close flushes any remaining bytes and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}
