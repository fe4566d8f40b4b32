// Package intern assigns stable integer identities to strings.
package intern

// ID identifies an interned string. IDs are allocated sequentially from zero
// and are never reused.
type ID uint32

// Table is an append-only bijection between strings and IDs. It is not safe
// for concurrent use.
type Table struct {
	ids   map[string]ID
	texts []string
	bytes int64
}

// New returns an empty Table.
func New() *Table {
	return &Table{
		ids: make(map[string]ID),
	}
}

// Intern returns the ID for text, allocating the next ID on first sight.
func (t *Table) Intern(text string) ID {
	if id, ok := t.ids[text]; ok {
		return id
	}
	id := ID(len(t.texts))
	t.texts = append(t.texts, text)
	t.ids[text] = id
	t.bytes += int64(len(text))
	return id
}

// Lookup returns the ID of text without interning it.
func (t *Table) Lookup(text string) (ID, bool) {
	id, ok := t.ids[text]
	return id, ok
}

// Resolve returns the text for id. It panics if id was never issued by this
// table.
func (t *Table) Resolve(id ID) string {
	return t.texts[id]
}

// Len returns the number of distinct strings interned.
func (t *Table) Len() int {
	return len(t.texts)
}

// Size returns the total byte length of all interned strings.
func (t *Table) Size() int64 {
	return t.bytes
}
