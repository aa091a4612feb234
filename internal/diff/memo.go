package diff

// Memo caches computed diffs per segment so render paths can ask repeatedly
// without recomputation. Entries invalidate automatically when either input
// string changes. One Memo belongs to one session; it is not safe for
// concurrent use and does not need to be (see the single-thread control
// model in the pipeline).
type Memo struct {
	entries map[string]memoEntry
}

type memoEntry struct {
	original string
	revised  string
	tokens   []Token
}

// NewMemo returns an empty diff cache.
func NewMemo() *Memo {
	return &Memo{entries: make(map[string]memoEntry)}
}

// Diff returns the token stream for the pair, computing it only when the
// cached inputs for segmentID differ from the ones given.
func (m *Memo) Diff(segmentID, original, revised string) []Token {
	if entry, ok := m.entries[segmentID]; ok && entry.original == original && entry.revised == revised {
		return entry.tokens
	}
	tokens := Compute(original, revised)
	m.entries[segmentID] = memoEntry{original: original, revised: revised, tokens: tokens}
	return tokens
}

// Invalidate drops the cached diff for one segment.
func (m *Memo) Invalidate(segmentID string) {
	delete(m.entries, segmentID)
}

// Reset drops all cached diffs.
func (m *Memo) Reset() {
	m.entries = make(map[string]memoEntry)
}
