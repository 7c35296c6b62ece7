// Package storetest is a behavioural suite shared by store.Store
// implementations.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-sheets/pkg/sheet"
	"github.com/goliatone/go-sheets/pkg/store"
	"github.com/goliatone/go-sheets/pkg/value"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Sample returns a sheet with nested data and options.
func Sample(id, owner string) sheet.Sheet {
	return sheet.Sheet{
		ID:                    id,
		TemplateID:            "tpl-1",
		TemplateSystemName:    "dnd5e",
		TemplateSystemVersion: "5.1",
		OwnerID:               owner,
		Data: sheet.Data{
			"name": sheet.Leaf(value.String("Aria"), true, nil),
			"hp":   sheet.Leaf(value.Number(12), true, nil),
			"class": sheet.Leaf(value.String("mage"), false, []value.Value{
				value.String("mage"), value.String("warrior"),
			}),
			"stats": sheet.Group(sheet.Data{
				"str": sheet.Leaf(value.Number(8), true, nil),
				"dex": sheet.Leaf(value.Number(14.5), true, nil),
			}, true, nil),
		},
	}
}

// Run exercises the store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("InsertAndFind", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		want := Sample("s-1", "u-1")
		id, err := s.Insert(ctx, want)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if id != "s-1" {
			t.Fatalf("expected id s-1, got %q", id)
		}
		got, err := s.FindByID(ctx, id)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("sheet mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("InsertAssignsID", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		first, err := s.Insert(ctx, Sample("", "u-1"))
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		second, err := s.Insert(ctx, Sample("", "u-1"))
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if first == "" || second == "" || first == second {
			t.Fatalf("expected distinct generated ids, got %q and %q", first, second)
		}
		got, err := s.FindByID(ctx, first)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.ID != first {
			t.Fatalf("expected stored id %q, got %q", first, got.ID)
		}
	})

	t.Run("InsertConflict", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		if _, err := s.Insert(ctx, Sample("dup", "u-1")); err != nil {
			t.Fatalf("insert: %v", err)
		}
		_, err := s.Insert(ctx, Sample("dup", "u-2"))
		if !errors.Is(err, store.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("FindMissing", func(t *testing.T) {
		s := open(t, newStore)
		_, err := s.FindByID(context.Background(), "nope")
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("FindByOwner", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		for _, doc := range []sheet.Sheet{
			Sample("c", "u-1"),
			Sample("a", "u-1"),
			Sample("b", "u-2"),
		} {
			if _, err := s.Insert(ctx, doc); err != nil {
				t.Fatalf("insert %s: %v", doc.ID, err)
			}
		}

		got, err := s.FindByOwner(ctx, "u-1")
		if err != nil {
			t.Fatalf("find by owner: %v", err)
		}
		ids := make([]string, 0, len(got))
		for _, doc := range got {
			ids = append(ids, doc.ID)
		}
		if diff := cmp.Diff([]string{"a", "c"}, ids); diff != "" {
			t.Fatalf("ids mismatch (-want +got):\n%s", diff)
		}

		none, err := s.FindByOwner(ctx, "nobody")
		if err != nil {
			t.Fatalf("find by owner: %v", err)
		}
		if none == nil || len(none) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", none)
		}
	})

	t.Run("Update", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		original := Sample("s-1", "u-1")
		if _, err := s.Insert(ctx, original); err != nil {
			t.Fatalf("insert: %v", err)
		}

		owner := "u-9"
		data := sheet.Data{"hp": sheet.Leaf(value.Number(3), true, nil)}
		updated, err := s.Update(ctx, "s-1", sheet.Patch{OwnerID: &owner, Data: data})
		if err != nil {
			t.Fatalf("update: %v", err)
		}

		want := original
		want.OwnerID = owner
		want.Data = data
		if diff := cmp.Diff(want, updated); diff != "" {
			t.Fatalf("update result mismatch (-want +got):\n%s", diff)
		}
		stored, err := s.FindByID(ctx, "s-1")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if diff := cmp.Diff(want, stored); diff != "" {
			t.Fatalf("stored sheet mismatch (-want +got):\n%s", diff)
		}

		unchanged, err := s.Update(ctx, "s-1", sheet.Patch{})
		if err != nil {
			t.Fatalf("empty update: %v", err)
		}
		if diff := cmp.Diff(want, unchanged); diff != "" {
			t.Fatalf("empty patch changed the sheet (-want +got):\n%s", diff)
		}

		if _, err := s.Update(ctx, "missing", sheet.Patch{OwnerID: &owner}); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		if _, err := s.Insert(ctx, Sample("s-1", "u-1")); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if err := s.Delete(ctx, "s-1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.FindByID(ctx, "s-1"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.Delete(ctx, "s-1"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func open(t *testing.T, newStore Factory) store.Store {
	t.Helper()
	s := newStore(t)
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return s
}
