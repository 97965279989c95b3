package pins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spiffcs/repopin/internal/model"
)

func testRepos() []model.Repository {
	return []model.Repository{
		{ID: 2, FullName: "octo/b", Name: "b", OwnerLogin: "octo", StarCount: 20},
		{ID: 1, FullName: "octo/a", Name: "a", OwnerLogin: "octo", StarCount: 10},
	}
}

func TestStoreOperations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pins.json")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}

	if count := store.Count(); count != 0 {
		t.Errorf("expected initial count 0, got %d", count)
	}

	if err := store.Save(testRepos()); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if count := store.Count(); count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}

	// Reopen from disk and verify order survives
	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() reopen error: %v", err)
	}
	got := reopened.List()
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 1 {
		t.Fatalf("expected [2 1] after reload, got %+v", got)
	}
	if got[0].StarCount != 20 || got[0].OwnerLogin != "octo" {
		t.Errorf("fields not preserved: %+v", got[0])
	}

	removed, err := reopened.Remove(2)
	if err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if !removed {
		t.Error("expected Remove(2) to report true")
	}
	removed, err = reopened.Remove(99)
	if err != nil || removed {
		t.Errorf("Remove(99) = %v, %v; want false, nil", removed, err)
	}

	if err := reopened.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if count := reopened.Count(); count != 0 {
		t.Errorf("expected count 0 after clear, got %d", count)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after save")
	}
}

func TestCorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pins.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	if store.Count() != 0 {
		t.Errorf("expected empty store for corrupt file, got %d", store.Count())
	}
}

func TestListReturnsCopy(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "pins.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(testRepos()); err != nil {
		t.Fatal(err)
	}

	list := store.List()
	list[0].Name = "changed"
	if store.List()[0].Name != "b" {
		t.Error("List() must not expose internal state")
	}
}

func ids(repos []model.Repository) []int64 {
	out := make([]int64, len(repos))
	for i, r := range repos {
		out[i] = r.ID
	}
	return out
}

func TestSaveKeepsChangesFromOtherInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pins.json")
	a := repoWithID(1)
	b := repoWithID(2)
	c := repoWithID(3)

	session, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := session.Save([]model.Repository{a}); err != nil {
		t.Fatal(err)
	}

	// Another instance unpins a and pins c while the session is open.
	other, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := other.Save([]model.Repository{c}); err != nil {
		t.Fatal(err)
	}

	// The session pins b on top of the list it still holds.
	if err := session.Save([]model.Repository{b, a}); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	got := ids(reopened.List())
	want := []int64{2, 3}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("pins after concurrent edits = %v, want %v", got, want)
	}
	if ids(session.List())[1] != 3 {
		t.Errorf("session should see the merged list, got %v", ids(session.List()))
	}
}

func TestSaveUpdatesStoredFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pins.json")
	store, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(testRepos()); err != nil {
		t.Fatal(err)
	}

	refreshed := testRepos()
	refreshed[1].StarCount = 99
	if err := store.Save(refreshed); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	got := reopened.List()
	if len(got) != 2 || got[1].StarCount != 99 {
		t.Errorf("refreshed fields not saved: %+v", got)
	}
}

func repoWithID(id int64) model.Repository {
	return model.Repository{ID: id, FullName: "octo/r", Name: "r", OwnerLogin: "octo"}
}
