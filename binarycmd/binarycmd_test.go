package binarycmd

import (
	"encoding/binary"
	"testing"

	"clob-engine/domain"
	"clob-engine/risk"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := BatchAddAccountsCommand{UID: 7, Balances: map[int32]int64{1: 500, 2: 1000}}
	payload, err := Encode(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var decoded BatchAddAccountsCommand
	if err := decode(payload, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.UID != 7 || decoded.Balances[1] != 500 || decoded.Balances[2] != 1000 {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestFrameSplitAndReassemble(t *testing.T) {
	cmd := BatchAddSymbolsCommand{Symbols: []domain.CoreSymbolSpecification{
		{SymbolID: 1, Type: domain.CurrencyExchangePair, BaseCurrency: 1, QuoteCurrency: 2, BaseScaleK: 1, QuoteScaleK: 1},
		{SymbolID: 2, Type: domain.FuturesContract, QuoteCurrency: 3, QuoteScaleK: 1, MakerFee: 1, TakerFee: 2},
	}}
	payload, err := Encode(cmd)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	frames := SplitIntoFrames(domain.BinaryDataCommand, 99, payload)
	if len(frames) < 2 {
		t.Fatalf("expected the payload to span multiple frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f.UserCookie != 99 {
			t.Fatalf("frame %d: expected userCookie 99, got %d", i, f.UserCookie)
		}
		last := i == len(frames)-1
		if f.BinaryLast != last {
			t.Fatalf("frame %d: expected BinaryLast=%v, got %v", i, last, f.BinaryLast)
		}
		if last && f.Symbol != -1 {
			t.Fatalf("expected terminal frame to carry symbol -1, got %d", f.Symbol)
		}
	}

	proc := NewProcessor()
	var reassembled []byte
	for i, f := range frames {
		payload, done := proc.Accumulate(f)
		if i < len(frames)-1 && done {
			t.Fatalf("frame %d unexpectedly signaled done", i)
		}
		if done {
			reassembled = payload
		}
	}
	if reassembled == nil {
		t.Fatalf("expected the terminal frame to yield the reassembled payload")
	}

	var decoded BatchAddSymbolsCommand
	if err := decode(reassembled, &decoded); err != nil {
		t.Fatalf("decode reassembled payload: %v", err)
	}
	if len(decoded.Symbols) != 2 || decoded.Symbols[0].SymbolID != 1 || decoded.Symbols[1].SymbolID != 2 {
		t.Fatalf("unexpected decoded symbols: %+v", decoded.Symbols)
	}
}

func TestInterleavedUserCookiesDoNotCrossContaminate(t *testing.T) {
	payloadA, _ := Encode(BatchAddAccountsCommand{UID: 1, Balances: map[int32]int64{1: 111}})
	payloadB, _ := Encode(BatchAddAccountsCommand{UID: 2, Balances: map[int32]int64{1: 222}})

	framesA := SplitIntoFrames(domain.BinaryDataCommand, 10, payloadA)
	framesB := SplitIntoFrames(domain.BinaryDataCommand, 20, payloadB)

	proc := NewProcessor()
	var gotA, gotB []byte
	maxLen := len(framesA)
	if len(framesB) > maxLen {
		maxLen = len(framesB)
	}
	for i := 0; i < maxLen; i++ {
		if i < len(framesA) {
			if p, done := proc.Accumulate(framesA[i]); done {
				gotA = p
			}
		}
		if i < len(framesB) {
			if p, done := proc.Accumulate(framesB[i]); done {
				gotB = p
			}
		}
	}

	var decodedA, decodedB BatchAddAccountsCommand
	if err := decode(gotA, &decodedA); err != nil || decodedA.UID != 1 {
		t.Fatalf("user A payload corrupted: err=%v decoded=%+v", err, decodedA)
	}
	if err := decode(gotB, &decodedB); err != nil || decodedB.UID != 2 {
		t.Fatalf("user B payload corrupted: err=%v decoded=%+v", err, decodedB)
	}
}

func TestDispatchBatchAddSymbols(t *testing.T) {
	engine := risk.NewEngine(risk.NewProfileService(), risk.NewSymbolProvider())
	h := &Handler{Engine: engine}

	payload, _ := Encode(BatchAddSymbolsCommand{Symbols: []domain.CoreSymbolSpecification{
		{SymbolID: 5, Type: domain.CurrencyExchangePair, BaseCurrency: 1, QuoteCurrency: 2, BaseScaleK: 1, QuoteScaleK: 1},
	}})
	if _, err := h.Dispatch(domain.BinaryDataCommand, payload); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if engine.Symbols.Get(5) == nil {
		t.Fatalf("expected symbol 5 to be installed")
	}
}

func TestDispatchBatchAddAccountsCreditsBalance(t *testing.T) {
	engine := risk.NewEngine(risk.NewProfileService(), risk.NewSymbolProvider())
	h := &Handler{Engine: engine}

	payload, _ := Encode(BatchAddAccountsCommand{UID: 42, Balances: map[int32]int64{1: 777}})
	if _, err := h.Dispatch(domain.BinaryDataCommand, payload); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := engine.Profiles.Get(42).Accounts[1]; got != 777 {
		t.Fatalf("expected balance 777, got %d", got)
	}
}

func TestReportTotalBalancesMergeAcrossShards(t *testing.T) {
	shardA := risk.NewEngine(risk.NewProfileService(), risk.NewSymbolProvider())
	shardA.Profiles.GetOrCreate(1).Accounts[1] = 100

	shardB := risk.NewEngine(risk.NewProfileService(), risk.NewSymbolProvider())
	shardB.Profiles.GetOrCreate(2).Accounts[1] = 50
	shardB.Profiles.GetOrCreate(2).Accounts[2] = 5

	query, _ := Encode(ReportQuery{Kind: ReportTotalBalances})

	fragA, err := (&Handler{Engine: shardA}).Dispatch(domain.BinaryDataQuery, query)
	if err != nil {
		t.Fatalf("dispatch shard A: %v", err)
	}
	fragB, err := (&Handler{Engine: shardB}).Dispatch(domain.BinaryDataQuery, query)
	if err != nil {
		t.Fatalf("dispatch shard B: %v", err)
	}

	merged, err := MergeTotalBalances([][]byte{fragA, fragB})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged[1] != 150 || merged[2] != 5 {
		t.Fatalf("unexpected merged totals: %+v", merged)
	}
}

func TestEncodeHeaderSizesMatchPayload(t *testing.T) {
	repetitive := BatchAddAccountsCommand{UID: 1, Balances: map[int32]int64{}}
	for i := int32(0); i < 200; i++ {
		repetitive.Balances[i] = 1
	}
	payload, err := Encode(repetitive)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	originalSize := binary.LittleEndian.Uint32(payload[0:4])
	compressedSize := binary.LittleEndian.Uint32(payload[4:8])
	if int(compressedSize) != len(payload)-8 {
		t.Fatalf("compressed size header %d does not match actual trailing bytes %d", compressedSize, len(payload)-8)
	}
	if originalSize == 0 {
		t.Fatalf("expected a non-zero original size header")
	}
}
