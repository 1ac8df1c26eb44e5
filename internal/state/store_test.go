package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/delicias-restaurant/api/internal/enum"
)

func storeWithMenu(t *testing.T, opts ...Option) *Store {
	t.Helper()
	store := NewStore(opts...)
	if _, err := store.Dispatch(SetInitialData{Menu: testMenu(), MenuSeq: 1}); err != nil {
		t.Fatalf("SetInitialData: %v", err)
	}
	return store
}

func TestStoreAssignsTimeBasedLineIDs(t *testing.T) {
	tick := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(time.Millisecond)
		return tick
	}
	store := storeWithMenu(t, WithClock(clock))

	first, err := store.Dispatch(AddToCart{ProductID: "p-chicha", Quantity: 1})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	second, err := store.Dispatch(AddToCart{ProductID: "p-chicha", Quantity: 1})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	id1 := first.Cart[0].LineID
	id2 := second.Cart[1].LineID
	if id1 == "" || id2 == "" || id1 == id2 {
		t.Errorf("line ids = %q, %q, want distinct non-empty", id1, id2)
	}
}

func TestStoreNotifiesSubscribers(t *testing.T) {
	store := storeWithMenu(t)

	var got []State
	unsubscribe := store.Subscribe(func(s State) { got = append(got, s) })

	if _, err := store.Dispatch(AddToCart{ProductID: "p-chicha", Quantity: 1}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(got) != 1 || len(got[0].Cart) != 1 {
		t.Fatalf("subscriber saw %d states", len(got))
	}

	// Failed dispatches do not notify.
	if _, err := store.Dispatch(AddToCart{ProductID: "p-nope"}); err == nil {
		t.Fatal("expected error for unknown product")
	}
	if len(got) != 1 {
		t.Errorf("subscriber notified on failed dispatch")
	}

	unsubscribe()
	if _, err := store.Dispatch(ClearCart{}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("subscriber notified after unsubscribe")
	}
}

func TestStoreSnapshotIsolated(t *testing.T) {
	store := NewStore()
	if _, err := store.Dispatch(SetInitialData{
		Tables: []TableView{{Code: "A1", Capacity: 4, Status: enum.TableStatusLibre}},
	}); err != nil {
		t.Fatalf("SetInitialData: %v", err)
	}
	before := store.Snapshot()

	if _, err := store.Dispatch(UpdateTableStatus{Code: "A1", Status: enum.TableStatusOcupada}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if before.Tables[0].Status != enum.TableStatusLibre {
		t.Errorf("earlier snapshot changed: %+v", before.Tables)
	}
	if store.Snapshot().Tables[0].Status != enum.TableStatusOcupada {
		t.Errorf("current snapshot missing update")
	}
}

func TestStorePersistsAddresses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "addresses.json")
	book := &FileAddressBook{Path: path}

	store := NewStore(WithAddressBook(book))
	if _, err := store.Dispatch(SaveAddress{Address: "Av. Arequipa 123"}); err != nil {
		t.Fatalf("SaveAddress: %v", err)
	}
	if _, err := store.Dispatch(SaveAddress{Address: "Jr. Union 456"}); err != nil {
		t.Fatalf("SaveAddress: %v", err)
	}

	// A fresh store over the same file sees the saved book.
	reloaded := NewStore(WithAddressBook(book))
	addresses := reloaded.Snapshot().Addresses
	if len(addresses) != 2 || addresses[0] != "Jr. Union 456" {
		t.Errorf("reloaded addresses = %v", addresses)
	}
}

func TestFileAddressBook_MissingFileIsEmpty(t *testing.T) {
	book := &FileAddressBook{Path: filepath.Join(t.TempDir(), "none.json")}
	addresses, err := book.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(addresses) != 0 {
		t.Errorf("addresses = %v, want empty", addresses)
	}
}
