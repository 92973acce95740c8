package wal

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	Seq  int    `json:"seq"`
	Note string `json:"note"`
}

func readAll(t *testing.T, w *WAL) []record {
	t.Helper()
	var out []record
	err := w.ReadAll(func(raw []byte) error {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return out
}

func TestWAL_WriteFlushReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")

	w, err := NewWAL(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if err := w.Write(record{Seq: i, Note: "n"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	w, err = NewWAL(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	got := readAll(t, w)
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, r := range got {
		if r.Seq != i+1 {
			t.Errorf("record %d: seq %d", i, r.Seq)
		}
	}

	// 讀完之後仍可繼續追加
	if err := w.Write(record{Seq: 4}); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if got := readAll(t, w); len(got) != 4 {
		t.Errorf("expected 4 records after append, got %d", len(got))
	}
}

func TestWAL_ReadAllSeesBufferedWrites(t *testing.T) {
	w, err := NewWAL(filepath.Join(t.TempDir(), "wal.log"))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	_ = w.Write(record{Seq: 1})
	if got := readAll(t, w); len(got) != 1 {
		t.Errorf("expected buffered record to be readable, got %d", len(got))
	}
}

func TestWAL_TornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	data := `{"seq":1,"note":"ok"}` + "\n" + `{"seq":2,"no`
	if err := os.WriteFile(path, []byte(data), FileModePrivate); err != nil {
		t.Fatal(err)
	}

	w, err := NewWAL(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	var n int
	err = w.ReadAll(func([]byte) error { n++; return nil })
	if !errors.Is(err, ErrTornTail) {
		t.Fatalf("expected ErrTornTail, got %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 complete record before the torn tail, got %d", n)
	}
}

func TestWAL_CallbackError(t *testing.T) {
	w, err := NewWAL(filepath.Join(t.TempDir(), "wal.log"))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	_ = w.Write(record{Seq: 1})

	boom := errors.New("boom")
	if err := w.ReadAll(func([]byte) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("expected callback error, got %v", err)
	}
}
