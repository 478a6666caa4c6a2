package actions

import (
	"testing"

	"empires-server/internal/empire"
	"empires-server/internal/state"
)

func TestFlushMessagesOrdersBySender(t *testing.T) {
	rs := testRuleset()
	st := testState(rs)
	st.Empires[2].Eliminate(4, empire.DefeatConquered)
	st.Outbox = []state.Message{
		{Turn: 5, From: 2, To: 0, Kind: "taunt", Text: "b"},
		{Turn: 5, From: 1, To: 2, Kind: "greeting", Text: "a"},
		{Turn: 5, From: 1, To: 2, Kind: "greeting", Text: "dup"},
		{Turn: 5, From: 2, To: 3, Kind: "taunt", Text: "to the dead"},
		{Turn: 5, From: 3, To: 1, Kind: "plea", Text: "from the dead"},
	}

	got := FlushMessages(st, rs)
	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %+v", got)
	}
	if got[0].From != 1 || got[0].Text != "a" || got[1].From != 2 || got[1].Text != "b" {
		t.Fatalf("unexpected delivery order %+v", got)
	}
	if got[0].ID != 1 || got[1].ID != 2 {
		t.Fatal("delivered messages must get sequential ids")
	}
	if len(st.Outbox) != 0 || len(st.Messages) != 2 {
		t.Fatal("outbox must be drained into the log")
	}
}
