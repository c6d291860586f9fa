package handlers

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const maxPageSize = 100

type pageRequest struct {
	Number int
	Limit  int
}

func (p pageRequest) Offset() int {
	return (p.Number - 1) * p.Limit
}

type paginatedResponse[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// parsePage reads the page and limit query parameters. Malformed values fall
// back to the first page and the configured page size.
func parsePage(r *http.Request) pageRequest {
	query := r.URL.Query()
	page := pageRequest{Number: 1, Limit: pageSize}

	if n, err := strconv.Atoi(query.Get("page")); err == nil && n > 0 {
		page.Number = n
	}
	if n, err := strconv.Atoi(query.Get("limit")); err == nil && n > 0 {
		page.Limit = min(n, maxPageSize)
	}
	// Number*Limit must stay inside int; such a page is past any real count.
	page.Number = min(page.Number, math.MaxInt/page.Limit)
	return page
}

// pageExists reports whether the requested page falls inside the result set.
// The first page always exists, even when it is empty.
func pageExists(page pageRequest, count int64) bool {
	if page.Number == 1 {
		return true
	}
	if page.Limit <= 0 || page.Number-1 > math.MaxInt/page.Limit {
		return false
	}
	return int64(page.Offset()) < count
}

func newPaginatedResponse[T any](r *http.Request, page pageRequest, count int64, results []T) paginatedResponse[T] {
	if results == nil {
		results = []T{}
	}
	resp := paginatedResponse[T]{Count: count, Results: results}
	if int64(page.Number*page.Limit) < count {
		next := pageLink(r, page.Number+1)
		resp.Next = &next
	}
	if page.Number > 1 {
		previous := pageLink(r, page.Number-1)
		resp.Previous = &previous
	}
	return resp
}

func pageLink(r *http.Request, number int) string {
	query := r.URL.Query()
	if number <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(number))
	}
	link := url.URL{
		Scheme:   requestScheme(r),
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: query.Encode(),
	}
	return link.String()
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return "https"
	}
	return "http"
}

func absoluteURL(r *http.Request, path string) string {
	return (&url.URL{Scheme: requestScheme(r), Host: r.Host, Path: path}).String()
}
