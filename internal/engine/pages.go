package engine

// EnumeratePages returns the page numbers still to fetch after page 1.
//
// With a known total the last page is ceil(total/pageSize). With an unknown
// total the highest pagination control value is used when it exceeds 1;
// otherwise the result is empty and only page 1 is crawled.
func EnumeratePages(total int, totalKnown bool, pageSize int, knownPageCount int) []int {
	if pageSize <= 0 {
		pageSize = 1
	}

	last := 1
	switch {
	case totalKnown:
		if total <= 0 {
			return nil
		}
		last = (total + pageSize - 1) / pageSize
	case knownPageCount > 1:
		last = knownPageCount
	}

	if last < 2 {
		return nil
	}
	pages := make([]int, 0, last-1)
	for p := 2; p <= last; p++ {
		pages = append(pages, p)
	}
	return pages
}
