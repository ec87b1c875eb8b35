package selection

import (
	"testing"

	"github.com/ashureev/audience-chat/internal/domain"
	"github.com/google/go-cmp/cmp"
)

var (
	rowA = domain.TableRow{BuyerCategory: "B1", ProductCategory: "P1", RowKey: "B1-P1-0"}
	rowB = domain.TableRow{BuyerCategory: "B2", ProductCategory: "P2", RowKey: "B2-P2-1"}
)

func TestToggleTwiceCancels(t *testing.T) {
	t.Parallel()

	a := New(7)
	if !a.Toggle(rowA) {
		t.Fatal("first toggle should select")
	}
	if a.Toggle(rowA) {
		t.Fatal("second toggle should deselect")
	}
	if a.Len() != 0 || len(a.Current()) != 0 {
		t.Fatalf("expected empty selection, got %+v", a.Current())
	}
}

func TestToggleThenCommit(t *testing.T) {
	t.Parallel()

	a := New(7)
	a.Toggle(rowA)
	got := a.Commit()
	want := domain.OutboundSelection{
		Type:       "selection",
		Categories: []domain.Category{{BuyerCategory: "B1", ProductCategory: "P1"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("commit mismatch (-want +got):\n%s", diff)
	}
	if !a.Contains(rowA.RowKey) {
		t.Fatal("commit must not clear the selection")
	}
}

func TestCommitEmpty(t *testing.T) {
	t.Parallel()

	got := New(1).Commit()
	if got.Type != "selection" || got.Categories == nil || len(got.Categories) != 0 {
		t.Fatalf("expected empty non-nil categories, got %+v", got)
	}
}

func TestRowKeyAppearsOnce(t *testing.T) {
	t.Parallel()

	a := New(1)
	a.Toggle(rowA)
	a.Toggle(rowB)
	a.Toggle(rowA)
	a.Toggle(rowA)

	want := []domain.Selected{
		{BuyerCategory: "B2", ProductCategory: "P2", RowKey: "B2-P2-1"},
		{BuyerCategory: "B1", ProductCategory: "P1", RowKey: "B1-P1-0"},
	}
	if diff := cmp.Diff(want, a.Current()); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveAndReset(t *testing.T) {
	t.Parallel()

	a := New(1)
	a.Toggle(rowA)
	a.Toggle(rowB)
	if !a.Remove(rowA.RowKey) {
		t.Fatal("expected remove to report selected row")
	}
	if a.Remove(rowA.RowKey) {
		t.Fatal("removing twice should report false")
	}
	if a.Len() != 1 {
		t.Fatalf("expected 1 row left, got %d", a.Len())
	}
	a.Reset()
	if a.Len() != 0 || a.Contains(rowB.RowKey) {
		t.Fatal("reset should clear the selection")
	}
}
