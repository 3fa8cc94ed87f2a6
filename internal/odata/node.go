package odata

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// NodeDoc describes a product as reported by its Nodes document.
type NodeDoc struct {
	// Title is the full product name, for example S2A_MSIL2A_...
	Title string
	// ProductURL is the catalogue URL of the product node; nested
	// files hang off it as Nodes('...') segments.
	ProductURL string
}

// The Nodes endpoint answers with an Atom feed holding one entry per
// product node.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title string `xml:"title"`
	ID    string `xml:"id"`
}

// ProductNode fetches and parses the Nodes document for a product id.
func (c *Client) ProductNode(ctx context.Context, productID string) (NodeDoc, error) {
	u := fmt.Sprintf("%s/odata/v1/Products('%s')/Nodes", c.baseURL, productID)
	resp, err := c.do(ctx, u)
	if err != nil {
		return NodeDoc{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return NodeDoc{}, fmt.Errorf("reading node document: %w", err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return NodeDoc{}, fmt.Errorf("parsing node document for %s: %w", productID, err)
	}
	if len(feed.Entries) == 0 {
		return NodeDoc{}, fmt.Errorf("node document for %s has no entries", productID)
	}
	entry := feed.Entries[0]
	if entry.Title == "" || entry.ID == "" {
		return NodeDoc{}, fmt.Errorf("node document for %s is missing title or product URL", productID)
	}
	return NodeDoc{Title: entry.Title, ProductURL: entry.ID}, nil
}

// NodeFileURL builds the download URL of a file nested under the
// product node, one Nodes('...') segment per path element.
func NodeFileURL(productURL string, pathSegments ...string) string {
	var b strings.Builder
	b.WriteString(productURL)
	for _, seg := range pathSegments {
		fmt.Fprintf(&b, "/Nodes('%s')", seg)
	}
	b.WriteString("/$value")
	return b.String()
}
