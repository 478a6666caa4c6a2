package actions

import (
	"slices"

	"empires-server/internal/empire"
	"empires-server/internal/ruleset"
	"empires-server/internal/state"
)

// FlushMessages delivers the outbox in sender order, at most one message per
// sender. Messages whose sender or recipient has been eliminated are dropped.
func FlushMessages(st *state.State, rs *ruleset.Ruleset) []state.Message {
	queued := st.Outbox
	st.Outbox = nil
	slices.SortStableFunc(queued, func(a, b state.Message) int {
		return int(a.From - b.From)
	})

	var delivered []state.Message
	sent := make(map[empire.ID]bool)
	for _, m := range queued {
		if sent[m.From] || !st.IsAlive(m.From) || (m.To != 0 && !st.IsAlive(m.To)) {
			continue
		}
		sent[m.From] = true
		delivered = append(delivered, st.Deliver(m, rs.History.Messages))
	}
	return delivered
}
