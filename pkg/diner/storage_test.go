package diner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("NewFileStorage() error = %v", err)
	}

	var got []CartItem
	ok, err := s.Load(KeyCart, &got)
	if err != nil || ok {
		t.Fatalf("Load() on empty dir = %v, %v; want false, nil", ok, err)
	}

	want := []CartItem{{ProductID: "A", Name: "Momo", UnitPrice: 5, Quantity: 2}}
	if err := s.Save(KeyCart, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	ok, err = s.Load(KeyCart, &got)
	if err != nil || !ok {
		t.Fatalf("Load() = %v, %v", ok, err)
	}
	if len(got) != 1 || got[0].Quantity != 2 {
		t.Errorf("Load() = %+v", got)
	}

	if err := s.Delete(KeyCart); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(KeyCart); err != nil {
		t.Errorf("Delete() of a missing key error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, KeyCart+".json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still present after Delete(): %v", err)
	}
}

func TestFileStorageCorrupt(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileStorage(dir)
	if err := os.WriteFile(filepath.Join(dir, KeyCart+".json"), []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	var items []CartItem
	if _, err := s.Load(KeyCart, &items); !errors.Is(err, ErrCorruptState) {
		t.Errorf("Load() error = %v, want ErrCorruptState", err)
	}

	// The cart treats a corrupt snapshot as empty and drops it.
	c := NewCart(s, "", nil)
	if c.Len() != 0 {
		t.Errorf("cart from corrupt state has %d lines", c.Len())
	}
	if _, err := os.Stat(filepath.Join(dir, KeyCart+".json")); !errors.Is(err, os.ErrNotExist) {
		t.Error("corrupt snapshot should be removed")
	}
}
