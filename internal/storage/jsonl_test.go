package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lpIncentive/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	sink := NewJsonlStorage(path)
	ctx := context.Background()

	if err := sink.PutEventBatch(ctx, []model.HookEvent{{Seq: 1, EventName: "ExitFeeCharged"}}); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := sink.PutEventBatch(ctx, nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if err := sink.PutEventBatch(ctx, []model.HookEvent{{Seq: 2, LogIndex: 1, EventName: "ExitFeeCharged"}}); err != nil {
		t.Fatalf("second batch: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var seqs []uint64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event model.HookEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		seqs = append(seqs, event.Seq)
	}
	if len(seqs) != 2 || seqs[0] != 1 || seqs[1] != 2 {
		t.Fatalf("unexpected sequence: %v", seqs)
	}
}

type failingSink struct{ calls *int }

func (f failingSink) PutEventBatch(context.Context, []model.HookEvent) error {
	*f.calls++
	return errors.New("boom")
}

func TestMultiStopsAtFirstError(t *testing.T) {
	var calls int
	multi := Multi{nil, failingSink{&calls}, failingSink{&calls}}
	if err := multi.PutEventBatch(context.Background(), []model.HookEvent{{Seq: 1}}); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestJSONLFileTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	for i := 0; i < 2; i++ {
		out, err := OpenJSONL(path, false)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := out.Write(map[string]int{"run": i}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := out.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "{\"run\":1}\n" {
		t.Fatalf("unexpected contents: %q", data)
	}
}
