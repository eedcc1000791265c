package ingest

// UpdateOp says how a single column participates in a partial update.
type UpdateOp int

const (
	// OpSet overwrites the stored value.
	OpSet UpdateOp = iota
	// OpSetIfAbsent writes the value only when the stored value is NULL,
	// so the first writer wins (creation timestamps, journey start times).
	OpSetIfAbsent
	// OpAdd atomically adds a numeric delta to the stored value.
	OpAdd
)

// FieldUpdate is one column's update intent. A partial update is an
// ordered list of intents; when two intents name the same column the later
// one wins, which makes the merge precedence explicit instead of an
// accident of expression ordering.
type FieldUpdate struct {
	Column string
	Op     UpdateOp
	Value  interface{}
}

// Set returns an unconditional overwrite intent.
func Set(column string, value interface{}) FieldUpdate {
	return FieldUpdate{Column: column, Op: OpSet, Value: value}
}

// SetIfAbsent returns a first-write-wins intent.
func SetIfAbsent(column string, value interface{}) FieldUpdate {
	return FieldUpdate{Column: column, Op: OpSetIfAbsent, Value: value}
}

// Add returns an atomic accumulate intent.
func Add(column string, delta interface{}) FieldUpdate {
	return FieldUpdate{Column: column, Op: OpAdd, Value: delta}
}

// Collapse resolves duplicate columns, keeping the last intent for each
// column while preserving first-appearance order. Store implementations
// apply the collapsed list.
func Collapse(updates []FieldUpdate) []FieldUpdate {
	index := make(map[string]int, len(updates))
	out := make([]FieldUpdate, 0, len(updates))
	for _, u := range updates {
		if i, ok := index[u.Column]; ok {
			out[i] = u
			continue
		}
		index[u.Column] = len(out)
		out = append(out, u)
	}
	return out
}

// hasColumn reports whether an intent for the column is already queued.
func hasColumn(updates []FieldUpdate, column string) bool {
	for _, u := range updates {
		if u.Column == column {
			return true
		}
	}
	return false
}
