package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-formstate/pkg/store"
)

type draft struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type storeFactory struct {
	name  string
	build func(t *testing.T) store.Store[draft]
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{
			name: "memory",
			build: func(_ *testing.T) store.Store[draft] {
				return store.NewMemoryStore[draft]()
			},
		},
		{
			name: "file",
			build: func(t *testing.T) store.Store[draft] {
				s, err := store.NewFileStore[draft](t.TempDir())
				if err != nil {
					t.Fatalf("new file store: %v", err)
				}
				return s
			},
		},
	}
}

func TestStoreRoundtrip(t *testing.T) {
	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			s := factory.build(t)
			ctx := context.Background()

			snapshot := draft{Name: "Ada", Email: "ada@example.com"}
			meta := store.Meta{
				SnapshotID: "snap-1",
				UpdatedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
				Extra:      map[string]string{"origin": "test"},
			}

			saved, err := s.Save(ctx, "user/u-1/form/application", snapshot, meta)
			if err != nil {
				t.Fatalf("save: %v", err)
			}
			if saved.SnapshotID != "snap-1" {
				t.Fatalf("saved meta snapshot id = %q", saved.SnapshotID)
			}

			got, gotMeta, ok, err := s.Load(ctx, "user/u-1/form/application")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if !ok {
				t.Fatal("expected stored snapshot")
			}
			if got != snapshot {
				t.Fatalf("loaded snapshot = %+v", got)
			}
			if gotMeta.SnapshotID != "snap-1" || !gotMeta.UpdatedAt.Equal(meta.UpdatedAt) {
				t.Fatalf("loaded meta = %+v", gotMeta)
			}
			if gotMeta.Extra["origin"] != "test" {
				t.Fatalf("loaded extra = %v", gotMeta.Extra)
			}
		})
	}
}

func TestStoreSaveOverwritesPriorSnapshot(t *testing.T) {
	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			s := factory.build(t)
			ctx := context.Background()

			if _, err := s.Save(ctx, "form/application", draft{Name: "first"}, store.Meta{SnapshotID: "snap-1"}); err != nil {
				t.Fatalf("first save: %v", err)
			}
			if _, err := s.Save(ctx, "form/application", draft{Name: "second"}, store.Meta{SnapshotID: "snap-2"}); err != nil {
				t.Fatalf("second save: %v", err)
			}

			got, meta, ok, err := s.Load(ctx, "form/application")
			if err != nil || !ok {
				t.Fatalf("load: ok=%v err=%v", ok, err)
			}
			if got.Name != "second" || meta.SnapshotID != "snap-2" {
				t.Fatalf("got %+v meta %+v", got, meta)
			}
		})
	}
}

func TestStoreLoadMissingKey(t *testing.T) {
	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			s := factory.build(t)

			_, _, ok, err := s.Load(context.Background(), "form/never-saved")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if ok {
				t.Fatal("expected no snapshot for unknown key")
			}
		})
	}
}

func TestStoreDeleteRemovesSnapshot(t *testing.T) {
	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			s := factory.build(t)
			ctx := context.Background()

			if _, err := s.Save(ctx, "form/application", draft{Name: "Ada"}, store.Meta{}); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := s.Delete(ctx, "form/application"); err != nil {
				t.Fatalf("delete: %v", err)
			}

			_, _, ok, err := s.Load(ctx, "form/application")
			if err != nil {
				t.Fatalf("load after delete: %v", err)
			}
			if ok {
				t.Fatal("snapshot survived delete")
			}
		})
	}
}

func TestStoreDeleteMissingKeyIsNoop(t *testing.T) {
	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			s := factory.build(t)
			if err := s.Delete(context.Background(), "form/never-saved"); err != nil {
				t.Fatalf("delete: %v", err)
			}
		})
	}
}

func TestStoreEmptyKeyRejected(t *testing.T) {
	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			s := factory.build(t)
			ctx := context.Background()

			if _, _, _, err := s.Load(ctx, ""); !errors.Is(err, store.ErrKeyRequired) {
				t.Fatalf("load err = %v", err)
			}
			if _, err := s.Save(ctx, "", draft{}, store.Meta{}); !errors.Is(err, store.ErrKeyRequired) {
				t.Fatalf("save err = %v", err)
			}
			if err := s.Delete(ctx, ""); !errors.Is(err, store.ErrKeyRequired) {
				t.Fatalf("delete err = %v", err)
			}
		})
	}
}

func TestStoreMetaExtraDetached(t *testing.T) {
	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			s := factory.build(t)
			ctx := context.Background()

			extra := map[string]string{"origin": "test"}
			if _, err := s.Save(ctx, "form/application", draft{}, store.Meta{Extra: extra}); err != nil {
				t.Fatalf("save: %v", err)
			}
			extra["origin"] = "mutated"

			_, meta, _, err := s.Load(ctx, "form/application")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if meta.Extra["origin"] != "test" {
				t.Fatalf("stored extra followed caller mutation: %v", meta.Extra)
			}
		})
	}
}

func TestMemoryStoreLen(t *testing.T) {
	s := store.NewMemoryStore[draft]()
	ctx := context.Background()

	if s.Len() != 0 {
		t.Fatalf("len = %d", s.Len())
	}
	if _, err := s.Save(ctx, "form/a", draft{}, store.Meta{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.Save(ctx, "form/b", draft{}, store.Meta{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d", s.Len())
	}
	if err := s.Delete(ctx, "form/a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("len after delete = %d", s.Len())
	}
}

func TestFileStoreRequiresRoot(t *testing.T) {
	if _, err := store.NewFileStore[draft](""); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestFileStoreLayoutFollowsKeySegments(t *testing.T) {
	root := t.TempDir()
	s, err := store.NewFileStore[draft](root)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	if _, err := s.Save(context.Background(), "user/u-1/form/application", draft{Name: "Ada"}, store.Meta{}); err != nil {
		t.Fatalf("save: %v", err)
	}

	path := filepath.Join(root, "user", "u-1", "form", "application.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected snapshot file at %s: %v", path, err)
	}

	entries, err := os.ReadDir(filepath.Join(root, "user", "u-1", "form"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestFileStoreCorruptPayloadWrapsErrDecode(t *testing.T) {
	root := t.TempDir()
	s, err := store.NewFileStore[draft](root)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	path := filepath.Join(root, "form", "application.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, _, ok, err := s.Load(context.Background(), "form/application")
	if !errors.Is(err, store.ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
	if ok {
		t.Fatal("corrupt payload reported ok")
	}
}

func TestFileStoreUnsupportedVersionWrapsErrDecode(t *testing.T) {
	root := t.TempDir()
	s, err := store.NewFileStore[draft](root)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	path := filepath.Join(root, "form", "application.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	payload := `{"version":99,"snapshot":{"name":"Ada"},"meta":{}}`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, _, _, err = s.Load(context.Background(), "form/application")
	if !errors.Is(err, store.ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
	if !strings.Contains(err.Error(), "unsupported version 99") {
		t.Fatalf("err = %v", err)
	}
}

func TestFileStoreRejectsTraversalSegments(t *testing.T) {
	s, err := store.NewFileStore[draft](t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	if _, err := s.Save(context.Background(), "../escape", draft{}, store.Meta{}); err == nil {
		t.Fatal("expected error for traversal key")
	}
	if _, _, _, err := s.Load(context.Background(), "form/.."); err == nil {
		t.Fatal("expected error for traversal key")
	}
}

func TestFileStoreRejectsNonConformingSegments(t *testing.T) {
	root := t.TempDir()
	s, err := store.NewFileStore[draft](root)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()

	// "form/a b" and "form/a-b" must never share a file: the first is
	// refused outright instead of being rewritten onto the second.
	if _, err := s.Save(ctx, "form/a b", draft{Name: "spaced"}, store.Meta{}); err == nil {
		t.Fatal("expected error for segment with space")
	}
	if _, err := s.Save(ctx, "form/a-b", draft{Name: "dashed"}, store.Meta{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _, ok, err := s.Load(ctx, "form/a-b")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Name != "dashed" {
		t.Fatalf("got %+v", got)
	}

	for _, key := range []string{"form/app!", "form/über", "form//double"} {
		if _, _, _, err := s.Load(ctx, key); err == nil {
			t.Fatalf("load %q: expected error", key)
		}
	}
}

func TestNewPostgresStoreRequiresDB(t *testing.T) {
	if _, err := store.NewPostgresStore[draft](nil); err == nil {
		t.Fatal("expected error for nil db handle")
	}
}
