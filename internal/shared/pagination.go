package shared

// Window is a validated limit/offset pair.
type Window struct {
	Limit  int
	Offset int
}

// NewWindow clamps limit into [1, max] using def when unset, and floors offset at zero.
func NewWindow(limit, offset, def, max int) Window {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return Window{Limit: limit, Offset: offset}
}
