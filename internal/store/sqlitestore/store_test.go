package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-sheets/internal/store/storetest"
	"github.com/goliatone/go-sheets/pkg/store"
)

func openTemp(t *testing.T, name string) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), name), PoolSize: 2})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return openTemp(t, "sheets.db") })
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheets.db")
	ctx := context.Background()

	first, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want := storetest.Sample("s-1", "u-1")
	if _, err := first.Insert(ctx, want); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	got, err := second.FindByID(ctx, "s-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sheet mismatch (-want +got):\n%s", diff)
	}
}

func TestDataBlobIsDeterministic(t *testing.T) {
	data := storetest.Sample("s-1", "u-1").Data
	first, err := encodeData(data)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := encodeData(data.Clone())
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if string(first) != string(again) {
			t.Fatal("encoding the same tree produced different bytes")
		}
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
