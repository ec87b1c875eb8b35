// Package backend is a development backend that speaks the chat wire
// protocol against a SQLite product catalogue.
package backend

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/ashureev/audience-chat/internal/domain"
	"github.com/ashureev/audience-chat/internal/protocol"
	"github.com/ashureev/audience-chat/internal/store"
)

const (
	// Greeting is the first assistant message of every connection.
	Greeting = "Hi! I can help you build an audience. Which product would you like to target?"

	searchLimit   = 10
	samplesPerRow = 2
)

// Composer turns user text into a reply frame.
type Composer struct {
	repo store.Repository
}

// NewComposer creates a composer backed by repo.
func NewComposer(repo store.Repository) *Composer {
	return &Composer{repo: repo}
}

// Reply looks the text up in the catalogue. A hit becomes a complex frame
// with a category table, a miss becomes a plain apology.
func (c *Composer) Reply(ctx context.Context, text string) (string, error) {
	query, products, err := c.search(ctx, text)
	if err != nil {
		return "", err
	}
	if len(products) == 0 {
		return fmt.Sprintf("Sorry, I couldn't find any products matching %q. Could you try another product name?", strings.TrimSpace(text)), nil
	}

	table := BuildTable(query, products)
	intro := fmt.Sprintf("I found **%d** products matching *%s* across %d categories. Select the categories you want to target:",
		table.TotalResults, query, len(table.Rows))
	return protocol.EncodeComplex(intro, table)
}

// search tries the whole text first, then each word from longest to
// shortest, and returns the first query with hits.
func (c *Composer) search(ctx context.Context, text string) (string, []store.Product, error) {
	for _, q := range candidates(text) {
		products, err := c.repo.SearchProducts(ctx, q, searchLimit)
		if err != nil {
			return "", nil, fmt.Errorf("search %q: %w", q, err)
		}
		if len(products) > 0 {
			return q, products, nil
		}
	}
	return strings.TrimSpace(text), nil, nil
}

func candidates(text string) []string {
	text = strings.TrimSpace(text)
	out := []string{text}
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) < 2 {
		return out
	}
	seen := map[string]bool{strings.ToLower(text): true}
	// Longest words first; they are the most specific.
	for n := longest(words); n >= 3; n-- {
		for _, w := range words {
			lw := strings.ToLower(w)
			if len(w) == n && !seen[lw] {
				seen[lw] = true
				out = append(out, w)
			}
		}
	}
	return out
}

func longest(words []string) int {
	n := 0
	for _, w := range words {
		n = max(n, len(w))
	}
	return n
}

// BuildTable groups products by (buyer, product) category in first-seen
// order, skipping retired categories. Each row keeps at most two sample SKUs
// and counts every grouped product; TotalResults is the sum of the counts.
func BuildTable(query string, products []store.Product) domain.ProductTable {
	table := domain.ProductTable{
		Query: query,
		Rows:  []domain.TableRow{},
	}
	index := make(map[[2]string]int)
	for _, p := range products {
		if p.BuyerCategory == store.RetiredCategory || p.ProductCategory == store.RetiredCategory {
			continue
		}
		k := [2]string{p.BuyerCategory, p.ProductCategory}
		i, ok := index[k]
		if !ok {
			i = len(table.Rows)
			index[k] = i
			table.Rows = append(table.Rows, domain.TableRow{
				BuyerCategory:   p.BuyerCategory,
				ProductCategory: p.ProductCategory,
				SKUs:            []domain.SKU{},
			})
		}
		row := &table.Rows[i]
		if len(row.SKUs) < samplesPerRow {
			row.SKUs = append(row.SKUs, domain.SKU{Name: p.Name, SKU: domain.FlexString(p.SKU)})
		}
		row.SampleCount++
		table.TotalResults++
	}
	return table
}

func selectionSummary(categories []domain.Category) string {
	if len(categories) == 0 {
		return "No categories were selected."
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.BuyerCategory+" > "+c.ProductCategory)
	}
	return fmt.Sprintf("Got it! Building an audience from %d categories: %s.", len(categories), strings.Join(names, ", "))
}
