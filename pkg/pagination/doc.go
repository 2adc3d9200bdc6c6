// Package pagination turns "the first N records" into page fetches and
// computes the navigation window shown beneath a page.
//
// The collection is served in fixed-size pages. Selecting the first N records
// needs pages 1..ceil(N/pageSize); Assembler fetches those concurrently,
// joins them in page order and truncates to N:
//
//	asm := pagination.NewAssembler(articClient, pagination.DefaultConfig())
//	records, err := asm.Assemble(ctx, 25) // pages 1-3, 36 records, first 25 kept
//
// A failure on any page fails the whole assembly; no partial result is
// returned.
//
// Window maps (current, total) to at most five page numbers that always
// include current:
//
//	pagination.Window(4, 10) // [2 3 4 5 6]
package pagination
