package exchange

import (
	"reflect"
	"testing"

	"github.com/efreitasn/exchangecore/internal/domain"
	"pgregory.net/rapid"
)

func genCommand(id domain.ExchangeID) *rapid.Generator[Command] {
	return rapid.Custom(func(t *rapid.T) Command {
		symbol := rapid.SampledFrom([]string{"ABC/XYZ", "DEF/XYZ", "BTC/USD"}).Draw(t, "symbol")
		switch rapid.IntRange(0, 3).Draw(t, "kind") {
		case 0:
			return CreateExchange{ExchangeID: id}
		case 1, 2:
			return RegisterCurrencyPair{ExchangeID: id, Symbol: symbol, BaseCurrency: "AAA", CounterCurrency: "BBB"}
		default:
			return RemoveTicker{ExchangeID: id, Symbol: symbol}
		}
	})
}

// Feature: exchange-core, Property 5: Replay determinism

func TestProperty_ReplayReproducesState(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ex := New(testID)
		var history []Event
		cmds := rapid.SliceOfN(genCommand(testID), 0, 40).Draw(t, "commands")
		for _, cmd := range cmds {
			before := ex.Snapshot()
			events, err := ex.Handle(cmd)
			if err != nil {
				if !reflect.DeepEqual(before, ex.Snapshot()) {
					t.Fatalf("rejected %T changed state", cmd)
				}
				continue
			}
			if len(events) != 1 {
				t.Fatalf("%T emitted %d events", cmd, len(events))
			}
			history = append(history, events...)
		}

		first, err := Load(testID, history)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		second, err := Load(testID, history)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if !reflect.DeepEqual(first.Snapshot(), second.Snapshot()) {
			t.Fatal("two replays of the same history disagree")
		}
		if !reflect.DeepEqual(first.Snapshot(), ex.Snapshot()) {
			t.Fatalf("replayed %+v != live %+v", first.Snapshot(), ex.Snapshot())
		}
		if ex.Version() != len(history) {
			t.Fatalf("version %d != %d events", ex.Version(), len(history))
		}
	})
}
