package journal

import (
	"fmt"
	"sort"

	"clob-engine/domain"
)

// Replay reads every record across files (already sorted into partition
// order by the caller), checks for a strictly increasing sequence (gaps are
// logged but tolerated, per spec.md §4.9), and invokes handler for each
// command in order, preserving its original timestampNs, serviceFlags, and
// eventsGroup so replayed state is bit-identical to pre-crash state.
//
// gapLog receives a human-readable note whenever a sequence gap is
// detected; pass nil to ignore gaps silently.
func Replay(files []string, handler func(cmd *domain.OrderCommand) error, gapLog func(msg string)) error {
	var all []DecodedRecord
	for _, f := range files {
		recs, err := ReadFile(f)
		if err != nil {
			return fmt.Errorf("journal: replay %s: %w", f, err)
		}
		all = append(all, recs...)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Seq < all[j].Seq })

	var lastSeq int64 = -1
	for _, rec := range all {
		if lastSeq >= 0 && rec.Seq != lastSeq+1 {
			if gapLog != nil {
				gapLog(fmt.Sprintf("journal: sequence gap: expected %d, got %d", lastSeq+1, rec.Seq))
			}
		}
		if rec.Seq < lastSeq {
			return fmt.Errorf("journal: sequence went backwards: %d after %d", rec.Seq, lastSeq)
		}
		if err := handler(rec.Cmd); err != nil {
			return fmt.Errorf("journal: replay handler failed at seq %d: %w", rec.Seq, err)
		}
		lastSeq = rec.Seq
	}
	return nil
}
