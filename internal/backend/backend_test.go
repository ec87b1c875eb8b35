package backend

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/audience-chat/internal/domain"
	"github.com/ashureev/audience-chat/internal/middleware"
	"github.com/ashureev/audience-chat/internal/protocol"
	"github.com/ashureev/audience-chat/internal/session"
	"github.com/ashureev/audience-chat/internal/socket"
	"github.com/ashureev/audience-chat/internal/store"
	"github.com/google/go-cmp/cmp"
)

func newSeededStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "backend.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	if _, err := store.SeedCatalogue(context.Background(), repo, store.DefaultCatalogue); err != nil {
		t.Fatalf("SeedCatalogue: %v", err)
	}
	return repo
}

func TestBuildTableGroupsRows(t *testing.T) {
	t.Parallel()

	products := []store.Product{
		{SKU: "1", Name: "A", BuyerCategory: "Snacks", ProductCategory: "Crisps"},
		{SKU: "2", Name: "B", BuyerCategory: "Snacks", ProductCategory: "Nuts"},
		{SKU: "3", Name: "C", BuyerCategory: "Snacks", ProductCategory: "Crisps"},
		{SKU: "4", Name: "D", BuyerCategory: "Snacks", ProductCategory: "Crisps"},
		{SKU: "5", Name: "E", BuyerCategory: store.RetiredCategory, ProductCategory: "Crisps"},
	}
	got := BuildTable("salt", products)

	want := domain.ProductTable{
		Query:        "salt",
		TotalResults: 4,
		Rows: []domain.TableRow{
			{BuyerCategory: "Snacks", ProductCategory: "Crisps", SampleCount: 3, SKUs: []domain.SKU{{Name: "A", SKU: "1"}, {Name: "C", SKU: "3"}}},
			{BuyerCategory: "Snacks", ProductCategory: "Nuts", SampleCount: 1, SKUs: []domain.SKU{{Name: "B", SKU: "2"}}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildTableCountsOnlyOfferedProducts(t *testing.T) {
	t.Parallel()

	retired := []store.Product{
		{SKU: "1", Name: "A", BuyerCategory: store.RetiredCategory, ProductCategory: "Crisps"},
		{SKU: "2", Name: "B", BuyerCategory: "Snacks", ProductCategory: store.RetiredCategory},
	}
	got := BuildTable("salt", retired)
	if got.TotalResults != 0 || len(got.Rows) != 0 {
		t.Fatalf("expected an empty table, got %+v", got)
	}

	mixed := append(retired, store.Product{SKU: "3", Name: "C", BuyerCategory: "Snacks", ProductCategory: "Nuts"})
	got = BuildTable("salt", mixed)
	sum := 0
	for _, row := range got.Rows {
		sum += row.SampleCount
	}
	if got.TotalResults != sum || sum != 1 {
		t.Fatalf("total %d must equal the row counts %d", got.TotalResults, sum)
	}
}

func TestCandidates(t *testing.T) {
	t.Parallel()

	got := candidates("  I want chocolate buyers ")
	want := []string{"I want chocolate buyers", "chocolate", "buyers", "want"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("candidates mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"tea"}, candidates("tea")); diff != "" {
		t.Fatalf("single word mismatch (-want +got):\n%s", diff)
	}
}

func TestComposerReply(t *testing.T) {
	t.Parallel()

	c := NewComposer(newSeededStore(t))
	ctx := context.Background()

	frame, err := c.Reply(ctx, "I'd like to target chocolate lovers")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	f := protocol.Classify(frame)
	if f.Kind != protocol.KindStructured {
		t.Fatalf("expected structured frame, got %s: %s", f.Kind, frame)
	}
	table := f.Content.(domain.Structured).Table
	if table == nil || table.Query != "chocolate" || len(table.Rows) == 0 {
		t.Fatalf("unexpected table: %+v", table)
	}
	for _, row := range table.Rows {
		if row.BuyerCategory == store.RetiredCategory || row.ProductCategory == store.RetiredCategory {
			t.Fatalf("retired category offered: %+v", row)
		}
		if len(row.SKUs) > 2 {
			t.Fatalf("too many sample skus: %+v", row)
		}
	}

	frame, err = c.Reply(ctx, "caviar")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if f := protocol.Classify(frame); f.Kind != protocol.KindPlainText || !strings.Contains(frame, "caviar") {
		t.Fatalf("expected plain apology, got %s: %s", f.Kind, frame)
	}
}

func TestHandleSelectionFrames(t *testing.T) {
	t.Parallel()

	repo := newSeededStore(t)
	h := NewChatHandler(repo, middleware.NewOriginPolicy(true))
	ctx := context.Background()
	logger := slog.Default()

	if reply, err := h.handle(ctx, "5", "   ", logger); err != nil || reply != "" {
		t.Fatalf("blank frame: reply=%q err=%v", reply, err)
	}

	reply, err := h.handle(ctx, "5", `{"type":"selection","categories":[{"buyer_category":"Dairy","product_category":""}]}`, logger)
	if err != nil {
		t.Fatalf("malformed selection: %v", err)
	}
	if f := protocol.Classify(reply); f.Kind != protocol.KindPlainText {
		t.Fatalf("expected acknowledgement, got %s", f.Kind)
	}

	reply, err = h.handle(ctx, "5", `{"type":"selection","categories":[{"buyer_category":"Dairy","product_category":"Yoghurt"}]}`, logger)
	if err != nil {
		t.Fatalf("selection: %v", err)
	}
	if !strings.Contains(reply, "Dairy > Yoghurt") {
		t.Fatalf("unexpected ack %q", reply)
	}

	saved, err := repo.ListSelections(ctx, "5")
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 {
		t.Fatalf("expected one saved selection, got %d", len(saved))
	}
}

func TestSweepSelections(t *testing.T) {
	t.Parallel()

	repo := newSeededStore(t)
	ctx := context.Background()
	if _, err := repo.SaveSelection(ctx, "1", nil); err != nil {
		t.Fatal(err)
	}
	if n := sweepSelections(ctx, repo, time.Hour); n != 0 {
		t.Fatalf("fresh selection swept: %d", n)
	}
	if n := sweepSelections(ctx, repo, -time.Hour); n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}
}

func waitFor(t *testing.T, c *session.Controller, what string, pred func(session.Snapshot) bool) session.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s := c.Snapshot(); pred(s) {
			return s
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; last snapshot %+v", what, c.Snapshot())
	return session.Snapshot{}
}

func TestEndToEnd(t *testing.T) {
	repo := newSeededStore(t)
	srv := httptest.NewServer(NewChatHandler(repo, middleware.NewOriginPolicy(false)))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctrl := session.New(socket.New(url, socket.Options{}), session.Options{SessionKey: "e2e"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()
	defer func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("controller did not stop")
		}
	}()

	s := waitFor(t, ctrl, "greeting", func(s session.Snapshot) bool {
		return s.Interactive() && s.SessionID != "" && len(s.Entries) == 1
	})
	if s.SessionID != "1" {
		t.Fatalf("expected thread id 1, got %q", s.SessionID)
	}
	if got := s.Entries[0].Content; got != (domain.PlainText{Text: Greeting}) {
		t.Fatalf("unexpected greeting %+v", got)
	}

	if err := ctrl.Submit(ctx, "tea"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	s = waitFor(t, ctrl, "table", func(s session.Snapshot) bool {
		return len(s.Entries) == 3 && s.Entries[2].HasTable()
	})
	tableEntry := s.Entries[2]
	first := tableEntry.Table().Rows[0]

	if _, err := ctrl.Toggle(ctx, tableEntry.ID, first.RowKey); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	msg, err := ctrl.Commit(ctx, tableEntry.ID)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(msg.Categories) != 1 || msg.Categories[0].BuyerCategory != first.BuyerCategory {
		t.Fatalf("unexpected commit %+v", msg)
	}

	s = waitFor(t, ctrl, "acknowledgement", func(s session.Snapshot) bool { return len(s.Entries) == 4 })
	ack, ok := s.Entries[3].Content.(domain.PlainText)
	if !ok || !strings.HasPrefix(ack.Text, "Got it!") {
		t.Fatalf("unexpected acknowledgement %+v", s.Entries[3].Content)
	}

	saved, err := repo.ListSelections(ctx, "1")
	if err != nil {
		t.Fatalf("ListSelections: %v", err)
	}
	want := []domain.Category{{BuyerCategory: first.BuyerCategory, ProductCategory: first.ProductCategory}}
	if len(saved) != 1 {
		t.Fatalf("expected one saved selection, got %d", len(saved))
	}
	if diff := cmp.Diff(want, saved[0].Categories); diff != "" {
		t.Fatalf("saved categories mismatch (-want +got):\n%s", diff)
	}
}
