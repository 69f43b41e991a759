package accounts

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "accounts.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddStoresBareJID(t *testing.T) {
	s := openTestStore(t)

	acc, err := s.Add("juliet@example.com/balcony", "Juliet")
	if err != nil {
		t.Fatal(err)
	}
	if acc.JID != "juliet@example.com" {
		t.Errorf("JID = %q, want juliet@example.com", acc.JID)
	}

	got, err := s.Get("juliet@example.com/other")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Juliet" || got.Created.IsZero() {
		t.Errorf("Get = %+v", got)
	}
}

func TestAddRejectsInvalidAndDuplicates(t *testing.T) {
	s := openTestStore(t)

	for _, bad := range []string{"", "example.com", "@example.com"} {
		if _, err := s.Add(bad, ""); err == nil {
			t.Errorf("Add(%q) succeeded", bad)
		}
	}

	if _, err := s.Add("romeo@montague.lit", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add("romeo@montague.lit/orchard", ""); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate Add error = %v, want ErrExists", err)
	}
}

func TestListAndAccounts(t *testing.T) {
	s := openTestStore(t)
	for _, a := range []string{"c@example.net", "a@example.com", "b@example.org"} {
		if _, err := s.Add(a, ""); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a@example.com", "b@example.org", "c@example.net"}
	if len(list) != len(want) {
		t.Fatalf("List = %d accounts, want %d", len(list), len(want))
	}
	for i, acc := range list {
		if acc.JID != want[i] {
			t.Errorf("List[%d] = %s, want %s", i, acc.JID, want[i])
		}
	}

	jids, err := s.Accounts()
	if err != nil {
		t.Fatal(err)
	}
	if len(jids) != 3 || jids[0].String() != "a@example.com" {
		t.Errorf("Accounts = %v", jids)
	}
}

func TestRemove(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Add("a@example.com", ""); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("a@example.com/phone"); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("a@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove error = %v, want ErrNotFound", err)
	}
	list, _ := s.List()
	if len(list) != 0 {
		t.Errorf("List after remove = %v", list)
	}
}

func TestReopenKeepsAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add("a@example.com", "A"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	acc, err := s.Get("a@example.com")
	if err != nil || acc.Name != "A" {
		t.Errorf("Get after reopen = %+v, %v", acc, err)
	}
}
