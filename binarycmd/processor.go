package binarycmd

import (
	"encoding/binary"

	"clob-engine/domain"
)

// WordsPerFrame is the fixed per-command payload width spec.md §4.8
// specifies: each BINARY_DATA_COMMAND/BINARY_DATA_QUERY ring slot carries 5
// int64 words.
const WordsPerFrame = 5
const bytesPerFrame = WordsPerFrame * 8

// SplitIntoFrames packs payload into a sequence of OrderCommands of the
// given command type, 40 bytes per frame, the last one carrying
// BinaryLast=true and Symbol=-1 (the terminator sentinel). userCookie keys
// the frames back together on the receiving side (spec.md: "accumulates
// frames keyed by userCookie (transferId)").
func SplitIntoFrames(cmdType domain.OrderCommandType, userCookie int64, payload []byte) []*domain.OrderCommand {
	frameCount := (len(payload) + bytesPerFrame - 1) / bytesPerFrame
	if frameCount == 0 {
		frameCount = 1
	}
	frames := make([]*domain.OrderCommand, frameCount)
	for i := 0; i < frameCount; i++ {
		frame := &domain.OrderCommand{Command: cmdType, UserCookie: userCookie}
		lo := i * bytesPerFrame
		hi := lo + bytesPerFrame
		if hi > len(payload) {
			hi = len(payload)
		}
		chunk := payload[lo:hi]
		for w := 0; w*8 < len(chunk); w++ {
			var word [8]byte
			copy(word[:], chunk[w*8:])
			frame.BinaryWords[w] = int64(binary.LittleEndian.Uint64(word[:]))
		}
		if i == frameCount-1 {
			frame.BinaryLast = true
			frame.Symbol = -1
		}
		frames[i] = frame
	}
	return frames
}

// Processor accumulates binary frames per userCookie and reassembles the
// original payload once the terminating frame arrives. One Processor
// instance runs per risk shard and per matching shard (spec.md §4.8).
type Processor struct {
	pending map[int64][]byte // userCookie -> accumulated bytes so far
}

// NewProcessor creates an empty frame accumulator.
func NewProcessor() *Processor {
	return &Processor{pending: make(map[int64][]byte)}
}

// Accumulate folds one frame's words into the accumulator for its
// userCookie. It returns the reassembled payload and true once cmd is the
// terminating frame (symbol == -1); otherwise it returns (nil, false) and
// retains the partial accumulation.
func (p *Processor) Accumulate(cmd *domain.OrderCommand) ([]byte, bool) {
	buf := p.pending[cmd.UserCookie]
	for _, w := range cmd.BinaryWords {
		var word [8]byte
		binary.LittleEndian.PutUint64(word[:], uint64(w))
		buf = append(buf, word[:]...)
	}

	if !cmd.BinaryLast {
		p.pending[cmd.UserCookie] = buf
		return nil, false
	}

	delete(p.pending, cmd.UserCookie)
	return buf, true
}
