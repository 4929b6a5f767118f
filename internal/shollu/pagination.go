package shollu

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Pagination struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

func (p Pagination) HasPrev() bool { return p.Page > 1 }
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }
func (p Pagination) Prev() int     { return max(1, p.Page-1) }
func (p Pagination) Next() int     { return min(p.TotalPages, p.Page+1) }

type Page[T any] struct {
	Items      []T
	Pagination Pagination
}

// pageMeta covers the pagination fields seen across endpoints.
type pageMeta struct {
	Data        json.RawMessage `json:"data"`
	Page        *int            `json:"page"`
	CurrentPage *int            `json:"current_page"`
	Limit       *int            `json:"limit"`
	PerPage     *int            `json:"per_page"`
	Total       *int            `json:"total"`
	TotalPages  *int            `json:"totalPages"`
	LastPage    *int            `json:"last_page"`
	Pagination  *pageMeta       `json:"pagination"`
}

func (m *pageMeta) merge(into *Pagination) {
	if m == nil {
		return
	}
	if v := first(m.Page, m.CurrentPage); v != nil {
		into.Page = *v
	}
	if v := first(m.Limit, m.PerPage); v != nil {
		into.Limit = *v
	}
	if m.Total != nil {
		into.Total = *m.Total
	}
	if v := first(m.TotalPages, m.LastPage); v != nil {
		into.TotalPages = *v
	}
	m.Pagination.merge(into)
}

func first(vals ...*int) *int {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// decodePage normalises the flat and nested list shapes into a Page.
// It also returns the raw object that held the items, for extra fields.
func decodePage[T any](raw []byte, page, limit int) (Page[T], json.RawMessage, error) {
	var out Page[T]
	out.Pagination = Pagination{Page: page, Limit: limit}

	var outer pageMeta
	if err := json.Unmarshal(raw, &outer); err != nil {
		return out, nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	outer.merge(&out.Pagination)

	items := bytes.TrimSpace(outer.Data)
	holder := json.RawMessage(raw)
	if len(items) > 0 && items[0] == '{' {
		var inner pageMeta
		if err := json.Unmarshal(items, &inner); err != nil {
			return out, nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		inner.merge(&out.Pagination)
		holder = json.RawMessage(items)
		items = bytes.TrimSpace(inner.Data)
	}

	if len(items) > 0 && string(items) != "null" {
		if err := json.Unmarshal(items, &out.Items); err != nil {
			return out, nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}

	p := &out.Pagination
	if p.Page < 1 {
		p.Page = 1
	}
	if p.TotalPages < 1 {
		p.TotalPages = 1
		if p.Limit > 0 && p.Total > p.Limit {
			p.TotalPages = (p.Total + p.Limit - 1) / p.Limit
		}
	}
	return out, holder, nil
}
