package odata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// FilterTimeFormat is the timestamp layout accepted by the
// catalogue's datetime filter literals.
const FilterTimeFormat = "2006-01-02T15:04:05.000"

// Product is one search result: an opaque id and its modification
// timestamp.
type Product struct {
	ID         string
	ModifiedAt time.Time
}

type searchResponse struct {
	Value []struct {
		ID       string `json:"Id"`
		Modified string `json:"ModificationDate"`
	} `json:"value"`
}

// Timestamps arrive either zoned or bare depending on the catalogue
// version behind the endpoint.
var modificationLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
}

func parseModification(raw string) (time.Time, error) {
	for _, layout := range modificationLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			// Millisecond precision throughout: the checkpoint file and
			// the filter literal both carry three decimals, so finer
			// timestamps would re-match the max product on every run.
			return t.UTC().Truncate(time.Millisecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable ModificationDate %q", raw)
}

// SearchPage fetches one page of products modified after since,
// ordered as the catalogue returns them.
func (c *Client) SearchPage(ctx context.Context, since time.Time, skip, top int) ([]Product, error) {
	q := url.Values{}
	q.Set("$format", "json")
	q.Set("$select", "Id,ModificationDate")
	q.Set("$filter", fmt.Sprintf("ModificationDate gt datetime'%s'", since.UTC().Format(FilterTimeFormat)))
	q.Set("$skip", strconv.Itoa(skip))
	q.Set("$top", strconv.Itoa(top))

	u := fmt.Sprintf("%s/odata/v1/Products?%s", c.baseURL, q.Encode())
	resp, err := c.do(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding search page: %w", err)
	}

	products := make([]Product, 0, len(parsed.Value))
	for _, v := range parsed.Value {
		if v.ID == "" || v.Modified == "" {
			return nil, fmt.Errorf("search result missing Id or ModificationDate")
		}
		t, err := parseModification(v.Modified)
		if err != nil {
			return nil, err
		}
		products = append(products, Product{ID: v.ID, ModifiedAt: t})
	}
	return products, nil
}
