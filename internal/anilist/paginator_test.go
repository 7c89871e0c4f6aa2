package anilist

import (
	"context"
	"errors"
	"testing"
)

// scriptedClient replays a fixed page sequence and records issued page numbers.
type scriptedClient struct {
	pages     []*Response
	err       error
	errAtPage int
	seenPages []int
}

func (c *scriptedClient) Fetch(ctx context.Context, query string, variables map[string]any) (*Response, Meta, error) {
	page := variables["page"].(int)
	c.seenPages = append(c.seenPages, page)
	if c.err != nil && page == c.errAtPage {
		return nil, Meta{}, c.err
	}
	return c.pages[page-1], Meta{Date: "Mon, 02 Jan 2006 15:04:05 GMT"}, nil
}

func mediaPage(hasNext bool, ids ...int) *Response {
	resp := &Response{}
	page := &PagePayload{}
	page.PageInfo.HasNextPage = hasNext
	for _, id := range ids {
		page.Media = append(page.Media, MediaPayload{ID: id})
	}
	resp.Data.Page = page
	return resp
}

func TestPaginatorConcatenatesAllPagesInOrder(t *testing.T) {
	client := &scriptedClient{pages: []*Response{
		mediaPage(true, 1, 2),
		mediaPage(true, 3, 4),
		mediaPage(false, 5),
	}}

	records, meta, err := NewPaginator(client, "query", []int{1, 2, 3, 4, 5}).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	wantIDs := []int{1, 2, 3, 4, 5}
	if len(records) != len(wantIDs) {
		t.Fatalf("expected %d records, got %d", len(wantIDs), len(records))
	}
	for i, want := range wantIDs {
		if records[i].ID != want {
			t.Fatalf("record %d: expected id %d, got %d", i, want, records[i].ID)
		}
	}

	wantPages := []int{1, 2, 3}
	if len(client.seenPages) != len(wantPages) {
		t.Fatalf("expected exactly 3 fetches, got %v", client.seenPages)
	}
	for i, want := range wantPages {
		if client.seenPages[i] != want {
			t.Fatalf("fetch %d: expected page %d, got %d", i, want, client.seenPages[i])
		}
	}
	if meta.Date == "" {
		t.Fatal("last page metadata missing")
	}
}

func TestPaginatorStopsAfterFinalPage(t *testing.T) {
	client := &scriptedClient{pages: []*Response{mediaPage(false, 9)}}

	records, _, err := NewPaginator(client, "query", []int{9}).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(records) != 1 || records[0].ID != 9 {
		t.Fatalf("unexpected records: %+v", records)
	}
	if len(client.seenPages) != 1 {
		t.Fatalf("expected a single fetch, got %v", client.seenPages)
	}
}

func TestPaginatorAbortsWithoutPartialResults(t *testing.T) {
	client := &scriptedClient{
		pages: []*Response{
			mediaPage(true, 1, 2),
			nil,
		},
		err:       ErrRateLimited,
		errAtPage: 2,
	}

	records, _, err := NewPaginator(client, "query", []int{1, 2}).Run(context.Background())
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if records != nil {
		t.Fatalf("expected no partial accumulation, got %+v", records)
	}
}
