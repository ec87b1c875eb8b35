package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FlexString decodes from either a JSON string or a JSON number.
// SKUs and row keys arrive in both shapes.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

// SKU is a sample product shown in a table row.
type SKU struct {
	Name string     `json:"name"`
	SKU  FlexString `json:"sku"`
}

// TableRow is one buyer/product category combination.
type TableRow struct {
	BuyerCategory   string     `json:"buyer_category"`
	ProductCategory string     `json:"product_category"`
	SKUs            []SKU      `json:"skus"`
	SampleCount     int        `json:"count"`
	Key             FlexString `json:"key,omitempty"`

	// RowKey is the selection identity of the row within its table.
	RowKey string `json:"-"`
}

// ProductTable is the tabular payload of a complex frame.
type ProductTable struct {
	Query        string     `json:"query"`
	TotalResults int        `json:"total_results"`
	Rows         []TableRow `json:"rows"`
}

// AssignRowKeys fills RowKey for every row: the server key when present,
// otherwise buyer-product-index.
func (t *ProductTable) AssignRowKeys() {
	for i := range t.Rows {
		row := &t.Rows[i]
		if k := strings.TrimSpace(string(row.Key)); k != "" {
			row.RowKey = k
			continue
		}
		row.RowKey = fmt.Sprintf("%s-%s-%d", row.BuyerCategory, row.ProductCategory, i)
	}
}

// Clone returns a deep copy of t. A nil table clones to nil.
func (t *ProductTable) Clone() *ProductTable {
	if t == nil {
		return nil
	}
	out := *t
	if t.Rows != nil {
		out.Rows = make([]TableRow, len(t.Rows))
		for i, row := range t.Rows {
			if row.SKUs != nil {
				row.SKUs = append([]SKU(nil), row.SKUs...)
			}
			out.Rows[i] = row
		}
	}
	return &out
}

// Row looks up a row by its selection key.
func (t *ProductTable) Row(rowKey string) (TableRow, bool) {
	for _, row := range t.Rows {
		if row.RowKey == rowKey {
			return row, true
		}
	}
	return TableRow{}, false
}
