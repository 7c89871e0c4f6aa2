package anilist

import (
	"context"
	"fmt"
)

// paginator states. Transitions are: fetching -> accumulating on a
// successful fetch, accumulating -> fetching while hasNextPage holds,
// accumulating -> done on the final page. Any fetch failure aborts the run.
type paginatorState int

const (
	stateFetching paginatorState = iota
	stateAccumulating
	stateDone
)

// Paginator drives repeated media fetches until the upstream reports no
// further pages. Pages are strictly sequential: page+1 is only issued after
// the prior page's continuation flag is known.
type Paginator struct {
	client Client
	query  string
	ids    []int
}

// NewPaginator builds a paginator over a fixed id filter. The filter does
// not change for the duration of one run.
func NewPaginator(client Client, query string, ids []int) *Paginator {
	return &Paginator{client: client, query: query, ids: ids}
}

// Run walks all pages and returns the accumulated media records in page
// order, plus the metadata of the last response. On any failure the
// accumulator is discarded: callers get all pages or none.
func (p *Paginator) Run(ctx context.Context) ([]MediaPayload, Meta, error) {
	var (
		records []MediaPayload
		meta    Meta
		page    = 1
		resp    *Response
	)

	state := stateFetching
	for state != stateDone {
		switch state {
		case stateFetching:
			var err error
			resp, meta, err = p.client.Fetch(ctx, p.query, map[string]any{
				"page":  page,
				"id_in": p.ids,
			})
			if err != nil {
				return nil, Meta{}, err
			}
			state = stateAccumulating

		case stateAccumulating:
			if resp.Data.Page == nil {
				return nil, Meta{}, fmt.Errorf("anilist: page %d missing Page payload", page)
			}
			records = append(records, resp.Data.Page.Media...)
			if resp.Data.Page.PageInfo.HasNextPage {
				page++
				state = stateFetching
			} else {
				state = stateDone
			}
		}
	}

	return records, meta, nil
}
