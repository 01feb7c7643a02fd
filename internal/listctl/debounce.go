package listctl

// SearchBuffer separates the text being typed from the search term that
// drives the list. Every keystroke bumps a version; a pending commit only
// lands when its version is still the latest.
type SearchBuffer struct {
	raw       string
	committed string
	version   uint64
}

// NewSearchBuffer starts a buffer whose raw and committed text are term.
func NewSearchBuffer(term string) SearchBuffer {
	return SearchBuffer{raw: term, committed: term}
}

// Raw returns the text as typed.
func (b *SearchBuffer) Raw() string { return b.raw }

// Committed returns the term currently applied to the list.
func (b *SearchBuffer) Committed() string { return b.committed }

// Pending reports whether typed text differs from the committed term.
func (b *SearchBuffer) Pending() bool { return b.raw != b.committed }

// Type records a keystroke and returns the version a quiet-period timer must
// present to Settle.
func (b *SearchBuffer) Type(text string) uint64 {
	b.raw = text
	b.version++
	return b.version
}

// Settle commits the raw text when version is still current and the text
// differs from the committed term.
func (b *SearchBuffer) Settle(version uint64) (string, bool) {
	if version != b.version {
		return "", false
	}
	return b.commit()
}

// Commit applies the raw text immediately and invalidates pending timers.
func (b *SearchBuffer) Commit() (string, bool) {
	b.version++
	return b.commit()
}

func (b *SearchBuffer) commit() (string, bool) {
	if b.raw == b.committed {
		return "", false
	}
	b.committed = b.raw
	return b.committed, true
}
