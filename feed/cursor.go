package feed

// Cursor accumulates everything a feed view has loaded. Items and view counts
// are append-only; view counts are kept even when an id repeats across pages.
// Cursor is not safe for concurrent use; the Loader guards it.
type Cursor struct {
	items     []Item
	token     string
	exhausted bool
	views     []ViewCount
	latest    map[string]int64 // id -> most recently appended count
}

func (c *Cursor) appendPage(p Page) {
	c.items = append(c.items, p.Items...)
	c.token = p.Next
	c.exhausted = p.Next == ""
}

func (c *Cursor) appendViews(vs []ViewCount) {
	if len(vs) == 0 {
		return
	}
	if c.latest == nil {
		c.latest = make(map[string]int64, len(vs))
	}
	c.views = append(c.views, vs...)
	for _, v := range vs {
		c.latest[v.ID] = v.Views
	}
}

// Lookup returns the most recently appended count for id.
func (c *Cursor) Lookup(id string) (int64, bool) {
	v, ok := c.latest[id]
	return v, ok
}

func (c *Cursor) Items() []Item           { return c.items }
func (c *Cursor) ViewCounts() []ViewCount { return c.views }
func (c *Cursor) Token() string           { return c.token }
func (c *Cursor) Exhausted() bool         { return c.exhausted }

func (c *Cursor) clone() Cursor {
	out := Cursor{
		items:     append([]Item(nil), c.items...),
		token:     c.token,
		exhausted: c.exhausted,
		views:     append([]ViewCount(nil), c.views...),
	}
	if len(c.latest) > 0 {
		out.latest = make(map[string]int64, len(c.latest))
		for k, v := range c.latest {
			out.latest[k] = v
		}
	}
	return out
}
