package protocol

import (
	"errors"
	"testing"

	"github.com/ashureev/audience-chat/internal/domain"
)

func TestEncodeSelection(t *testing.T) {
	t.Parallel()

	got, err := EncodeSelection(domain.NewOutboundSelection([]domain.Selected{
		{BuyerCategory: "B1", ProductCategory: "P1", RowKey: "B1-P1-0"},
	}))
	if err != nil {
		t.Fatalf("EncodeSelection failed: %v", err)
	}
	want := `{"type":"selection","categories":[{"buyer_category":"B1","product_category":"P1"}]}`
	if got != want {
		t.Fatalf("unexpected frame:\n got %s\nwant %s", got, want)
	}
}

func TestEncodeSelectionEmpty(t *testing.T) {
	t.Parallel()

	got, err := EncodeSelection(domain.OutboundSelection{})
	if err != nil {
		t.Fatalf("EncodeSelection failed: %v", err)
	}
	if got != `{"type":"selection","categories":[]}` {
		t.Fatalf("unexpected frame: %s", got)
	}
}

func TestComplexFrameClassifiesBack(t *testing.T) {
	t.Parallel()

	raw, err := EncodeComplex("Found:", domain.ProductTable{Query: "tea", TotalResults: 3, Rows: []domain.TableRow{
		{BuyerCategory: "Drinks", ProductCategory: "Tea", SKUs: []domain.SKU{{Name: "Green", SKU: "1"}}, SampleCount: 3},
	}})
	if err != nil {
		t.Fatalf("EncodeComplex failed: %v", err)
	}
	f := Classify(raw)
	if f.Kind != KindStructured || f.Issue != nil {
		t.Fatalf("expected clean structured frame, got %s issue=%v", f.Kind, f.Issue)
	}
	if rows := f.Content.(domain.Structured).Table.Rows; len(rows) != 1 || rows[0].RowKey != "Drinks-Tea-0" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestDecodeSelection(t *testing.T) {
	t.Parallel()

	msg, ok, err := DecodeSelection(`{"type":"selection","categories":[{"buyer_category":"B","product_category":"P"}]}`)
	if err != nil || !ok {
		t.Fatalf("expected selection, ok=%v err=%v", ok, err)
	}
	if len(msg.Categories) != 1 || msg.Categories[0].ProductCategory != "P" {
		t.Fatalf("unexpected categories: %+v", msg.Categories)
	}

	if _, ok, _ := DecodeSelection("green tea"); ok {
		t.Fatal("free text must not decode as a selection")
	}
	if _, ok, _ := DecodeSelection(`{"type":"other"}`); ok {
		t.Fatal("other JSON must not decode as a selection")
	}
	if _, ok, err := DecodeSelection(`{"type":"selection","categories":[{"buyer_category":"B"}]}`); !ok || !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("incomplete category should be malformed, ok=%v err=%v", ok, err)
	}
}
