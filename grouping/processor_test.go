package grouping

import (
	"testing"

	"clob-engine/domain"
)

func TestGroupSwitchesOnMessageCount(t *testing.T) {
	p := New(Config{MsgsInGroupLimit: 3, PoolingEnabled: false})

	g1 := groupOf(p, &domain.OrderCommand{Command: domain.PlaceOrder}, 0)
	g2 := groupOf(p, &domain.OrderCommand{Command: domain.PlaceOrder}, 1)
	g3 := groupOf(p, &domain.OrderCommand{Command: domain.PlaceOrder}, 2)
	if g1 != g2 || g2 != g3 {
		t.Fatalf("expected first 3 commands in same group, got %d %d %d", g1, g2, g3)
	}
	g4 := groupOf(p, &domain.OrderCommand{Command: domain.PlaceOrder}, 3)
	if g4 == g3 {
		t.Fatalf("expected 4th command to start a new group after hitting the limit")
	}
}

func TestGroupSwitchesOnElapsedDuration(t *testing.T) {
	p := New(Config{MsgsInGroupLimit: 1000, MaxGroupDurationNs: 100})

	g1 := groupOf(p, &domain.OrderCommand{Command: domain.PlaceOrder}, 0)
	g2 := groupOf(p, &domain.OrderCommand{Command: domain.PlaceOrder}, 50)
	if g1 != g2 {
		t.Fatalf("expected no switch before duration elapses")
	}
	g3 := groupOf(p, &domain.OrderCommand{Command: domain.PlaceOrder}, 200)
	if g3 == g2 {
		t.Fatalf("expected a new group once max duration elapsed")
	}
}

func TestResetAlwaysSwitchesGroup(t *testing.T) {
	p := New(Config{MsgsInGroupLimit: 1000})
	g1 := groupOf(p, &domain.OrderCommand{Command: domain.PlaceOrder}, 0)
	g2 := groupOf(p, &domain.OrderCommand{Command: domain.Reset}, 1)
	if g1 == g2 {
		t.Fatalf("expected RESET to force a new group")
	}
	g3 := groupOf(p, &domain.OrderCommand{Command: domain.PlaceOrder}, 2)
	if g3 != g2 {
		t.Fatalf("expected command after RESET to share RESET's new group")
	}
}

func TestPersistStateRiskDoesNotSwitchGroup(t *testing.T) {
	p := New(Config{MsgsInGroupLimit: 1000})
	g1 := groupOf(p, &domain.OrderCommand{Command: domain.PersistStateMatching}, 0)
	g2 := groupOf(p, &domain.OrderCommand{Command: domain.PersistStateRisk}, 1)
	if g1 != g2 {
		t.Fatalf("expected PERSIST_STATE_RISK to ride in the same group as its sibling PERSIST_STATE_MATCHING, got %d and %d", g1, g2)
	}
}

func TestBinaryBatchTerminatorSwitchesGroup(t *testing.T) {
	p := New(Config{MsgsInGroupLimit: 1000})
	g1 := groupOf(p, &domain.OrderCommand{Command: domain.BinaryDataCommand, Symbol: -1, BinaryLast: false}, 0)
	g2 := groupOf(p, &domain.OrderCommand{Command: domain.BinaryDataCommand, Symbol: -1, BinaryLast: true}, 1)
	if g1 == g2 {
		t.Fatalf("expected the terminating binary frame to start a new group")
	}
}

func TestL2HeartbeatFlag(t *testing.T) {
	p := New(Config{MsgsInGroupLimit: 1000, L2PublishIntervalNs: 100})

	c1 := &domain.OrderCommand{Command: domain.PlaceOrder}
	p.Process(c1, 0)
	if c1.ServiceFlags != 1 {
		t.Fatalf("expected first command to carry the heartbeat flag")
	}

	c2 := &domain.OrderCommand{Command: domain.PlaceOrder}
	p.Process(c2, 10)
	if c2.ServiceFlags != 0 {
		t.Fatalf("expected no heartbeat before the interval elapses, got flags=%d", c2.ServiceFlags)
	}

	c3 := &domain.OrderCommand{Command: domain.PlaceOrder}
	p.Process(c3, 150)
	if c3.ServiceFlags != 1 {
		t.Fatalf("expected heartbeat to fire again once the interval elapses")
	}
}

func TestRecyclingDisabledReleasesStaleChain(t *testing.T) {
	p := New(Config{MsgsInGroupLimit: 1000, PoolingEnabled: false})
	cmd1 := &domain.OrderCommand{
		Command:      domain.PlaceOrder,
		MatcherEvent: &domain.MatcherTradeEvent{EventType: domain.Trade, Size: 5},
	}
	p.Process(cmd1, 0)
	if p.accumulated != nil {
		t.Fatalf("expected nothing accumulated when pooling is disabled")
	}

	stale := cmd1.MatcherEvent
	cmd2 := &domain.OrderCommand{Command: domain.PlaceOrder}
	p.Process(cmd2, 1)
	if p.accumulated != nil {
		t.Fatalf("expected nothing accumulated when pooling is disabled")
	}
	if stale.EventType != domain.Trade || stale.Size != 0 {
		t.Fatalf("expected cmd1's now-stale chain to be released (zeroed) immediately, got %+v", stale)
	}
}

// TestRecyclingFlushesAtChainLengthTarget covers the one-call-deferred
// recycling scheme: a command's own chain is only eligible for folding into
// the accumulator (and thus eligible to be zeroed by a flush) on the *next*
// call to Process, never during its own call.
func TestRecyclingFlushesAtChainLengthTarget(t *testing.T) {
	p := New(Config{MsgsInGroupLimit: 1000, PoolingEnabled: true, ChainLengthTarget: 2})

	cmd1 := &domain.OrderCommand{
		Command:      domain.PlaceOrder,
		MatcherEvent: &domain.MatcherTradeEvent{EventType: domain.Trade, Size: 1},
	}
	p.Process(cmd1, 0)
	if p.accumulatedLen != 0 {
		t.Fatalf("expected cmd1's own chain to be pending, not yet accumulated, got len=%d", p.accumulatedLen)
	}

	cmd2 := &domain.OrderCommand{
		Command: domain.PlaceOrder,
		MatcherEvent: &domain.MatcherTradeEvent{
			EventType: domain.Trade, Size: 2,
			NextEvent: &domain.MatcherTradeEvent{EventType: domain.Trade, Size: 3},
		},
	}
	p.Process(cmd2, 1)
	if p.accumulatedLen != 1 {
		t.Fatalf("expected cmd1's now-stale 1-event chain folded in, cmd2's still pending, got len=%d", p.accumulatedLen)
	}

	cmd3 := &domain.OrderCommand{Command: domain.PlaceOrder}
	p.Process(cmd3, 2)
	if p.accumulatedLen != 0 {
		t.Fatalf("expected accumulator to flush once cmd2's 2-event chain crossed the target, got len=%d", p.accumulatedLen)
	}
}

// TestOwnChainSurvivesChainLengthFlush guards against the real bug the
// deferred scheme above fixes: folding a *stale* chain into the accumulator
// can trigger a same-call flush, but that flush must never zero the chain
// the command currently being processed just produced — the journal and the
// command's result future both still need to read it once Process returns.
func TestOwnChainSurvivesChainLengthFlush(t *testing.T) {
	p := New(Config{MsgsInGroupLimit: 1000, PoolingEnabled: true, ChainLengthTarget: 1})

	cmd1 := &domain.OrderCommand{
		Command:      domain.PlaceOrder,
		MatcherEvent: &domain.MatcherTradeEvent{EventType: domain.Trade, Size: 1},
	}
	p.Process(cmd1, 0)

	cmd2 := &domain.OrderCommand{
		Command:      domain.PlaceOrder,
		MatcherEvent: &domain.MatcherTradeEvent{EventType: domain.Trade, Size: 2},
	}
	p.Process(cmd2, 1)

	if cmd2.MatcherEvent == nil || cmd2.MatcherEvent.Size != 2 {
		t.Fatalf("expected cmd2's own matcher event to survive its own Process call, got %+v", cmd2.MatcherEvent)
	}
}

func groupOf(p *Processor, cmd *domain.OrderCommand, nowNs int64) int64 {
	p.Process(cmd, nowNs)
	return cmd.EventsGroup
}
