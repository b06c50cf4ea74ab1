package feed

// Cursor tracks how much of an assembled list has been revealed.
// It is not safe for concurrent use; State guards it.
type Cursor struct {
	pageSize  int
	total     int
	revealed  int
	loading   bool
	exhausted bool
}

// NewCursor returns a cursor revealing pageSize items per page.
func NewCursor(pageSize int) *Cursor {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Cursor{pageSize: pageSize, exhausted: true}
}

// Reset reveals the first page of a freshly assembled list of total items.
func (c *Cursor) Reset(total int) {
	c.total = total
	c.revealed = min(c.pageSize, total)
	c.exhausted = total <= c.pageSize
	c.loading = false
}

// TryBegin starts a page load. It reports false while another load is in
// flight or when nothing is left to reveal.
func (c *Cursor) TryBegin() bool {
	if c.loading || c.exhausted {
		return false
	}
	c.loading = true
	return true
}

// Finish completes a load begun with TryBegin by revealing one more page.
func (c *Cursor) Finish() {
	if !c.loading {
		return
	}
	c.loading = false
	c.revealed = min(c.revealed+c.pageSize, c.total)
	if c.revealed == c.total {
		c.exhausted = true
	}
}

// Cancel abandons a load in flight without revealing anything.
func (c *Cursor) Cancel() {
	c.loading = false
}

// LoadMore begins and finishes a load in one step.
func (c *Cursor) LoadMore() bool {
	if !c.TryBegin() {
		return false
	}
	c.Finish()
	return true
}

// PageSize returns the configured page size.
func (c *Cursor) PageSize() int { return c.pageSize }

// Revealed returns the number of visible items.
func (c *Cursor) Revealed() int { return c.revealed }

// HasMore reports whether further pages remain.
func (c *Cursor) HasMore() bool { return !c.exhausted }

// Loading reports whether a page load is in flight.
func (c *Cursor) Loading() bool { return c.loading }

// Window returns the revealed prefix of list.
func Window[T any](c *Cursor, list []T) []T {
	return list[:min(c.revealed, len(list))]
}
