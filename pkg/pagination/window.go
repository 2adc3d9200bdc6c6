package pagination

// WindowSize is the maximum number of page controls shown.
const WindowSize = 5

// Window returns the page numbers to render as navigation controls for the
// current page. The result holds at most WindowSize entries, always contains
// current and stays within [1, total].
func Window(current, total int) []int {
	if total < 1 {
		total = 1
	}
	current = clamp(current, 1, total)

	var from, to int
	switch {
	case total <= WindowSize:
		from, to = 1, total
	case current <= 3:
		from, to = 1, WindowSize
	case current >= total-2:
		from, to = total-WindowSize+1, total
	default:
		from, to = current-2, current+2
	}

	pages := make([]int, 0, to-from+1)
	for p := from; p <= to; p++ {
		pages = append(pages, p)
	}
	return pages
}

// Prev returns the page the "previous" control leads to.
func Prev(current int) int {
	return max(current-1, 1)
}

// Next returns the page the "next" control leads to.
func Next(current, total int) int {
	return max(min(current+1, total), 1)
}

// Nav is the navigation bar for one page.
type Nav struct {
	Current      int   `json:"current"`
	Total        int   `json:"total"`
	Pages        []int `json:"pages"`
	Prev         int   `json:"prev"`
	Next         int   `json:"next"`
	PrevDisabled bool  `json:"prev_disabled"`
	NextDisabled bool  `json:"next_disabled"`
}

// NewNav computes the navigation bar for (current, total).
func NewNav(current, total int) Nav {
	if total < 1 {
		total = 1
	}
	return Nav{
		Current:      current,
		Total:        total,
		Pages:        Window(current, total),
		Prev:         Prev(current),
		Next:         Next(current, total),
		PrevDisabled: current <= 1,
		NextDisabled: current >= total,
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
