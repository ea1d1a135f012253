package kvstore

import (
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	st, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var missing string
	ok, err := st.Get(KeyAdminPassword, &missing)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("expected miss for absent entry")
	}

	if err := st.Put(KeyAdminPassword, "1234"); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Reopen to prove the entry survived the process boundary.
	st2, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	var pw string
	ok, err = st2.Get(KeyAdminPassword, &pw)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if !ok || pw != "1234" {
		t.Errorf("expected persisted password 1234, got ok=%v pw=%q", ok, pw)
	}
}

func TestFileStoreCollections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	st, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	in := []map[string]string{{"id": "c1", "name": "Acme"}}
	if err := st.Put(KeyCustomers, in); err != nil {
		t.Fatalf("put: %v", err)
	}

	var out []map[string]string
	ok, err := st.Get(KeyCustomers, &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(out) != 1 || out[0]["name"] != "Acme" {
		t.Errorf("unexpected collection: %v", out)
	}

	if err := st.Delete(KeyCustomers); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, err = st.Get(KeyCustomers, &out)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if ok {
		t.Error("expected miss after delete")
	}
}
