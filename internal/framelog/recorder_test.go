package framelog

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestRecorderWritesNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec, err := New(Config{Enabled: true, Dir: dir, QueueSize: 8}, "sess-1", slog.Default())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rec.Record(Event{SessionKey: "sess-1", Direction: DirectionInbound, Kind: "control", Raw: "THREAD_ID:1"})
	rec.Record(Event{SessionKey: "sess-1", ThreadID: "1", Direction: DirectionOutbound, Kind: "text", Raw: "tea"})
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "sess-1.ndjson"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer func() { _ = f.Close() }()

	var got []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Raw != "THREAD_ID:1" || got[1].Direction != DirectionOutbound {
		t.Fatalf("unexpected events: %+v", got)
	}
	if got[0].Timestamp == "" {
		t.Fatal("timestamp should be filled in")
	}
}

func TestDisabledRecorderIsNoop(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec, err := New(Config{Enabled: false, Dir: dir}, "sess", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rec.Record(Event{Raw: "x"})
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("disabled recorder wrote files: %v", entries)
	}
}
