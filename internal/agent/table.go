package agent

import "sort"

// #region table
// table holds one complete row per materialized state. Columns follow the
// configured action order.
type table struct {
	actions []Action
	index   map[Action]int
	rows    map[State][]float64
}

func newTable(actions []Action) *table {
	idx := make(map[Action]int, len(actions))
	for i, a := range actions {
		idx[a] = i
	}
	return &table{actions: actions, index: idx, rows: make(map[State][]float64)}
}

// ensure materializes an all-zero row for s if it is absent.
func (t *table) ensure(s State) []float64 {
	row, ok := t.rows[s]
	if !ok {
		row = make([]float64, len(t.actions))
		t.rows[s] = row
	}
	return row
}

func (t *table) max(row []float64) float64 {
	best := row[0]
	for _, v := range row[1:] {
		if v > best {
			best = v
		}
	}
	return best
}

// maximizers returns every column index holding the row maximum.
func (t *table) maximizers(row []float64) []int {
	best := t.max(row)
	var out []int
	for i, v := range row {
		if v == best {
			out = append(out, i)
		}
	}
	return out
}

func (t *table) sortedStates() []State {
	states := make([]State, 0, len(t.rows))
	for s := range t.rows {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].key < states[j].key })
	return states
}

// #endregion table
