// Package pagination computes page windows for paginated listings and fetches
// paginated upstream sources in parallel.
//
// Page window:
//
//	calc := pagination.Compute(page, total, perPage, pagination.DefaultConfig())
//	items := pagination.Slice(all, calc)
//
// Compute never fails: a negative item count is treated as zero, the current
// page is clamped into [1, TotalPages] (1 when there are no pages), and a
// non-positive page size yields zero pages. With more pages than
// MaxVisiblePages the window shows the boundary pages, the siblings of the
// current page, and ellipsis flags where a gap of more than one page remains:
//
//	totalPages=10, currentPage=1  -> [1 2]       end ellipsis
//	totalPages=10, currentPage=5  -> [4 5 6]     both ellipses
//	totalPages=10, currentPage=10 -> [9 10]      start ellipsis
//
// Memo wraps Compute in a bounded cache for hot listing endpoints. It is an
// optimisation only; Compute is pure and returns value-equal results for equal
// input.
//
// Batch fetching:
//
//	fetcher := pagination.NewBatchFetcher(source, pagination.DefaultFetchConfig())
//	pages, err := fetcher.FetchPages(ctx, 4)
//
// The batch fetcher fetches page 1 first, then distributes the remaining pages
// over a worker pool and collects the bodies keyed by page number. A failed
// page stops the remaining workers and the partial result is returned with the
// error.
package pagination
