package pagination

import "slices"

// Config controls the visible-page window.
type Config struct {
	// MaxVisiblePages is the page count up to which every page is shown.
	MaxVisiblePages int

	// BoundaryCount is the number of pages pinned at the start and end.
	BoundaryCount int

	// SiblingCount is the number of pages shown on each side of the current page.
	SiblingCount int

	// ShowEllipsis is carried for renderers; the window itself is unaffected.
	ShowEllipsis bool
}

// DefaultConfig returns the default window: 7 visible pages, one boundary
// page, one sibling on each side.
func DefaultConfig() Config {
	return Config{
		MaxVisiblePages: 7,
		BoundaryCount:   1,
		SiblingCount:    1,
		ShowEllipsis:    true,
	}
}

// normalize replaces out-of-range options so the calculator never fails.
func (c Config) normalize() Config {
	if c.MaxVisiblePages < 1 {
		c.MaxVisiblePages = DefaultConfig().MaxVisiblePages
	}
	if c.BoundaryCount < 0 {
		c.BoundaryCount = 0
	}
	if c.SiblingCount < 0 {
		c.SiblingCount = 0
	}
	return c
}

// State is the normalised pagination state.
type State struct {
	CurrentPage  int `json:"current_page"`
	ItemsPerPage int `json:"items_per_page"`
	TotalItems   int `json:"total_items"`
	TotalPages   int `json:"total_pages"`
}

// Navigation describes which page links to render.
type Navigation struct {
	VisiblePages      []int `json:"visible_pages"`
	CanGoPrevious     bool  `json:"can_go_previous"`
	CanGoNext         bool  `json:"can_go_next"`
	ShowStartEllipsis bool  `json:"show_start_ellipsis"`
	ShowEndEllipsis   bool  `json:"show_end_ellipsis"`
}

// Calculation is the combined result of Compute.
//
// StartIndex/EndIndex form a half-open range over the item sequence. EndIndex
// is not clamped to the collection length; use Slice for that.
type Calculation struct {
	State      State      `json:"state"`
	Navigation Navigation `json:"navigation"`
	StartIndex int        `json:"start_index"`
	EndIndex   int        `json:"end_index"`
}

// Range is the 1-based "Showing Start-End of Total" triple.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Total int `json:"total"`
}

// Compute runs the full calculation. Out-of-range input is clamped, never rejected.
func Compute(currentPage, totalItems, itemsPerPage int, cfg Config) Calculation {
	state := ComputeState(currentPage, totalItems, itemsPerPage)
	start, end := PageIndices(state.CurrentPage, itemsPerPage)

	return Calculation{
		State:      state,
		Navigation: VisiblePages(state.CurrentPage, state.TotalPages, cfg),
		StartIndex: start,
		EndIndex:   end,
	}
}

// ComputeState derives total pages and clamps the current page.
func ComputeState(currentPage, totalItems, itemsPerPage int) State {
	if totalItems < 0 {
		totalItems = 0
	}

	totalPages := 0
	if itemsPerPage > 0 {
		totalPages = (totalItems + itemsPerPage - 1) / itemsPerPage
	}

	page := 1
	if totalPages > 0 {
		page = min(max(currentPage, 1), totalPages)
	}

	return State{
		CurrentPage:  page,
		ItemsPerPage: itemsPerPage,
		TotalItems:   totalItems,
		TotalPages:   totalPages,
	}
}

// VisiblePages computes the page window around currentPage.
//
// A start ellipsis appears when siblingStart > boundaryCount+2 and an end
// ellipsis when siblingEnd < totalPages-boundaryCount-1. Boundary pages on a
// side with an ellipsis are left to the renderer.
func VisiblePages(currentPage, totalPages int, cfg Config) Navigation {
	cfg = cfg.normalize()
	if totalPages < 0 {
		totalPages = 0
	}

	nav := Navigation{
		CanGoPrevious: currentPage > 1,
		CanGoNext:     currentPage < totalPages,
	}

	if totalPages <= cfg.MaxVisiblePages {
		nav.VisiblePages = pageRange(1, totalPages)
		return nav
	}

	boundary := min(cfg.BoundaryCount, totalPages)
	startPages := pageRange(1, boundary)
	endPages := pageRange(totalPages-boundary+1, totalPages)

	siblingStart := max(currentPage-cfg.SiblingCount, 1)
	siblingEnd := min(currentPage+cfg.SiblingCount, totalPages)
	siblingPages := pageRange(siblingStart, siblingEnd)

	nav.ShowStartEllipsis = siblingStart > cfg.BoundaryCount+2
	nav.ShowEndEllipsis = siblingEnd < totalPages-cfg.BoundaryCount-1

	var pages []int
	switch {
	case nav.ShowStartEllipsis && nav.ShowEndEllipsis:
		pages = siblingPages
	case nav.ShowStartEllipsis:
		pages = concat(siblingPages, endPages)
	case nav.ShowEndEllipsis:
		pages = concat(startPages, siblingPages)
	default:
		pages = concat(startPages, siblingPages, endPages)
	}

	nav.VisiblePages = uniqueSorted(pages, totalPages)
	return nav
}

// PageIndices returns the half-open [start, end) item indices of a page.
func PageIndices(currentPage, itemsPerPage int) (start, end int) {
	start = (currentPage - 1) * itemsPerPage
	return start, start + itemsPerPage
}

// DisplayRange returns the 1-based item range shown on a page.
func DisplayRange(currentPage, itemsPerPage, totalItems int) Range {
	startIndex := (currentPage - 1) * itemsPerPage
	return Range{
		Start: min(startIndex+1, totalItems),
		End:   min(startIndex+itemsPerPage, totalItems),
		Total: totalItems,
	}
}

// IsValidPage reports whether page lies in [1, totalPages].
func IsValidPage(page, totalPages int) bool {
	return page >= 1 && page <= totalPages
}

// SafePage clamps page into [1, totalPages]. It returns totalPages unchanged
// when there are no pages.
func SafePage(page, totalPages int) int {
	if totalPages <= 0 {
		return totalPages
	}
	return min(max(page, 1), totalPages)
}

// ClampPageSize returns def for sizes below 1 and caps the rest at limit.
func ClampPageSize(size, def, limit int) int {
	if size < 1 {
		return def
	}
	if limit > 0 && size > limit {
		return limit
	}
	return size
}

// Slice returns the items of the calculated page, clamping EndIndex to len(items).
func Slice[T any](items []T, calc Calculation) []T {
	start := min(max(calc.StartIndex, 0), len(items))
	end := min(max(calc.EndIndex, start), len(items))
	return items[start:end]
}

func pageRange(from, to int) []int {
	if to < from {
		return []int{}
	}
	pages := make([]int, 0, to-from+1)
	for p := from; p <= to; p++ {
		pages = append(pages, p)
	}
	return pages
}

func concat(parts ...[]int) []int {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]int, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// uniqueSorted deduplicates, sorts ascending and drops pages outside [1, totalPages].
func uniqueSorted(pages []int, totalPages int) []int {
	out := make([]int, 0, len(pages))
	for _, p := range pages {
		if p >= 1 && p <= totalPages {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
