package messenger

// applyFilters computes the visible subset: a message survives when every
// filter's predicate passes for every currently selected value. An empty
// selection on a filter is pass-through, not exclusion.
func applyFilters(messages []Message, specs []FilterSpec, state FilterState) []Message {
	if len(specs) == 0 {
		return messages
	}

	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if passesAll(m, specs, state) {
			out = append(out, m)
		}
	}
	return out
}

func passesAll(m Message, specs []FilterSpec, state FilterState) bool {
	for _, f := range specs {
		if f.Predicate == nil {
			continue
		}
		sel := state[f.ID]
		if f.Multiple {
			for _, v := range sel.Values {
				if !f.Predicate(m, v) {
					return false
				}
			}
		} else if sel.Value != "" && !f.Predicate(m, sel.Value) {
			return false
		}
	}
	return true
}

// seedFilterState initializes every filter with an empty selection.
func seedFilterState(specs []FilterSpec) FilterState {
	state := make(FilterState, len(specs))
	for _, f := range specs {
		state[f.ID] = FilterValue{}
	}
	return state
}
