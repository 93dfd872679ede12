// Package journal implements the exchange's write-ahead log and state
// snapshots (spec.md §4.9): every mutating command is appended to an
// LZ4-block-compressed journal file, periodic snapshots let startup skip
// straight to a recent state, and replay re-derives bit-identical state by
// feeding the same commands back through the engine with their original
// timestamps and service flags.
//
// Grounded on the teacher's buffered-writer discipline in
// matching/trade_ringbuffer_batch_safe.go (never block a hot-path goroutine
// on a syscall; accumulate then flush) and the pack's pierrec/lz4 usage
// (other_examples/manifests/wyfcoding-financialTrading, .../NimbleMarkets-
// dbn-go); the compressed-record wire shape itself is spec.md's own
// RESERVED_COMPRESSED sentinel scheme, carried exactly as specified since it
// is load-bearing for replay compatibility.
package journal

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"clob-engine/domain"
)

// EncodeRecord serializes one command into the fixed journal record layout:
// 1 byte command-type code, int64 seq, int64 timestampNs, int32
// serviceFlags, int64 eventsGroup, then command-specific fields.
func EncodeRecord(cmd *domain.OrderCommand, seq int64) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(cmd.Command))
	writeInt64(&buf, seq)
	writeInt64(&buf, cmd.Timestamp)
	writeInt32(&buf, cmd.ServiceFlags)
	writeInt64(&buf, cmd.EventsGroup)

	switch cmd.Command {
	case domain.PlaceOrder:
		writeInt64(&buf, cmd.UID)
		writeInt32(&buf, cmd.Symbol)
		writeInt64(&buf, cmd.OrderID)
		writeInt64(&buf, cmd.Price)
		writeInt64(&buf, cmd.ReserveBidPrice)
		writeInt64(&buf, cmd.Size)
		writeInt64(&buf, cmd.UserCookie)
		buf.WriteByte(byte(cmd.Action) | byte(cmd.OrderType)<<1)

	case domain.CancelOrder:
		writeInt64(&buf, cmd.UID)
		writeInt32(&buf, cmd.Symbol)
		writeInt64(&buf, cmd.OrderID)

	case domain.MoveOrder:
		writeInt64(&buf, cmd.UID)
		writeInt32(&buf, cmd.Symbol)
		writeInt64(&buf, cmd.OrderID)
		writeInt64(&buf, cmd.Price)

	case domain.ReduceOrder:
		writeInt64(&buf, cmd.UID)
		writeInt32(&buf, cmd.Symbol)
		writeInt64(&buf, cmd.OrderID)
		writeInt64(&buf, cmd.Size)

	case domain.BalanceAdjustment:
		// Symbol carries the currency code and Size the signed adjustment
		// amount (risk.Engine.applyBalanceAdjustment's convention), rather
		// than a separate price/adjustment-type pair.
		writeInt64(&buf, cmd.UID)
		writeInt32(&buf, cmd.Symbol)
		writeInt64(&buf, cmd.Size)

	case domain.AddUser, domain.SuspendUser, domain.ResumeUser:
		writeInt64(&buf, cmd.UID)

	case domain.BinaryDataCommand, domain.BinaryDataQuery:
		if cmd.BinaryLast {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		for _, w := range cmd.BinaryWords {
			writeInt64(&buf, w)
		}

	case domain.OrderBookRequest:
		writeInt64(&buf, cmd.UID)
		writeInt32(&buf, cmd.Symbol)
		writeInt64(&buf, cmd.Size)

	// Reset, Nop, PersistStateMatching, PersistStateRisk, GroupingControl,
	// ShutdownSignal carry no command-specific payload beyond the header.
	default:
	}

	return buf.Bytes()
}

// DecodeRecord parses one record produced by EncodeRecord, returning the
// reconstructed command, its sequence number, and the number of bytes
// consumed from data (so callers can advance past it in a larger stream).
func DecodeRecord(data []byte) (cmd *domain.OrderCommand, seq int64, consumed int, err error) {
	const headerLen = 1 + 8 + 8 + 4 + 8
	if len(data) < headerLen {
		return nil, 0, 0, fmt.Errorf("journal: record header truncated: have %d bytes", len(data))
	}
	r := &reader{data: data}
	commandType := domain.OrderCommandType(r.byte())
	seq = r.int64()
	timestampNs := r.int64()
	serviceFlags := r.int32()
	eventsGroup := r.int64()

	cmd = &domain.OrderCommand{
		Command:      commandType,
		Timestamp:    timestampNs,
		ServiceFlags: serviceFlags,
		EventsGroup:  eventsGroup,
	}

	switch commandType {
	case domain.PlaceOrder:
		cmd.UID = r.int64()
		cmd.Symbol = r.int32()
		cmd.OrderID = r.int64()
		cmd.Price = r.int64()
		cmd.ReserveBidPrice = r.int64()
		cmd.Size = r.int64()
		cmd.UserCookie = r.int64()
		packed := r.byte()
		cmd.Action = domain.OrderAction(packed & 1)
		cmd.OrderType = domain.OrderType(packed >> 1)

	case domain.CancelOrder:
		cmd.UID = r.int64()
		cmd.Symbol = r.int32()
		cmd.OrderID = r.int64()

	case domain.MoveOrder:
		cmd.UID = r.int64()
		cmd.Symbol = r.int32()
		cmd.OrderID = r.int64()
		cmd.Price = r.int64()

	case domain.ReduceOrder:
		cmd.UID = r.int64()
		cmd.Symbol = r.int32()
		cmd.OrderID = r.int64()
		cmd.Size = r.int64()

	case domain.BalanceAdjustment:
		cmd.UID = r.int64()
		cmd.Symbol = r.int32()
		cmd.Size = r.int64()

	case domain.AddUser, domain.SuspendUser, domain.ResumeUser:
		cmd.UID = r.int64()

	case domain.BinaryDataCommand, domain.BinaryDataQuery:
		cmd.BinaryLast = r.byte() != 0
		for i := range cmd.BinaryWords {
			cmd.BinaryWords[i] = r.int64()
		}
		if cmd.BinaryLast {
			cmd.Symbol = -1
		}

	case domain.OrderBookRequest:
		cmd.UID = r.int64()
		cmd.Symbol = r.int32()
		cmd.Size = r.int64()

	default:
	}

	if r.err != nil {
		return nil, 0, 0, r.err
	}
	return cmd, seq, r.pos, nil
}

// reader is a small cursor over a byte slice used by DecodeRecord; it
// records the first short-read error rather than panicking, so DecodeRecord
// can return it once at the end.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.data) {
		r.err = fmt.Errorf("journal: record truncated at offset %d (need %d more bytes)", r.pos, n)
		return false
	}
	return true
}

func (r *reader) byte() byte {
	if !r.need(1) {
		return 0
	}
	b := r.data[r.pos]
	r.pos++
	return b
}

func (r *reader) int32() int32 {
	if !r.need(4) {
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	return v
}

func (r *reader) int64() int64 {
	if !r.need(8) {
		return 0
	}
	v := int64(binary.LittleEndian.Uint64(r.data[r.pos:]))
	r.pos += 8
	return v
}

func writeInt32(buf *bytes.Buffer, v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	buf.Write(b[:])
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}
