package service

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PageInfo is the resolved paging position for one render.
type PageInfo struct {
	EffectivePage int
	TotalPages    int
	Offset        int
}

// Paginate converts a row count and page size into page metadata. Invalid
// inputs collapse to sane values: pageSize <= 0 becomes 1, requestedPage < 1
// becomes 1, and totalPages is at least 1 even for an empty table. A
// requested page past the end is clamped to the last page.
func Paginate(totalRows int64, pageSize, requestedPage int) PageInfo {
	if pageSize <= 0 {
		pageSize = 1
	}
	if requestedPage < 1 {
		requestedPage = 1
	}

	totalPages := int((totalRows + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}
	if requestedPage > totalPages {
		requestedPage = totalPages
	}

	return PageInfo{
		EffectivePage: requestedPage,
		TotalPages:    totalPages,
		Offset:        (requestedPage - 1) * pageSize,
	}
}

// pageHref renders one page link target. The sticky parameters (search,
// filters, sort) ride along so navigating pages keeps the current view.
func pageHref(base string, sticky url.Values, page int) string {
	v := url.Values{}
	for key, vals := range sticky {
		v[key] = vals
	}
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	if len(v) == 0 {
		return base
	}
	return base + "?" + v.Encode()
}

// buildPaginationLinks renders the page navigation, a ±5 window around the
// current page with first/last shortcuts. Empty when one page suffices.
func buildPaginationLinks(totalRecords int64, pageSize, pageNum int, base string, sticky url.Values) string {
	info := Paginate(totalRecords, pageSize, pageNum)
	pageCount := info.TotalPages
	if pageCount < 2 {
		return ""
	}

	const delta = 5

	start := pageNum - delta
	if start < 1 {
		start = 1
	}
	end := pageNum + delta
	if end > pageCount {
		end = pageCount
	}

	var b strings.Builder
	b.WriteString("<div class='ajaxcrud-paging'>\n")

	if start > 1 {
		b.WriteString(fmt.Sprintf("<a class='page-link' href='%s'>1</a>\n", pageHref(base, sticky, 1)))
		if start > 2 {
			b.WriteString("<span class='page-gap'>...</span>\n")
		}
	}

	for i := start; i <= end; i++ {
		active := ""
		if i == pageNum {
			active = " active"
		}
		b.WriteString(fmt.Sprintf("<a class='page-link%s' href='%s'>%d</a>\n", active, pageHref(base, sticky, i), i))
	}

	if end < pageCount {
		if end < pageCount-1 {
			b.WriteString("<span class='page-gap'>...</span>\n")
		}
		b.WriteString(fmt.Sprintf("<a class='page-link' href='%s'>%d</a>\n", pageHref(base, sticky, pageCount), pageCount))
	}

	b.WriteString("</div>\n")
	return b.String()
}
