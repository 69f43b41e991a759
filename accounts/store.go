// Package accounts persists the XMPP accounts configured on this device.
package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"mellium.im/xmpp/jid"
)

var accountsBucket = []byte("accounts")

var (
	ErrExists   = errors.New("account already exists")
	ErrNotFound = errors.New("account not found")
)

type Account struct {
	JID     string    `json:"jid"`
	Name    string    `json:"name,omitempty"`
	Created time.Time `json:"created"`
}

// Store keeps accounts in a bbolt file keyed by bare JID.
type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating account store directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening account store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(accountsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// ParseBare validates addr and strips any resource.
func ParseBare(addr string) (jid.JID, error) {
	j, err := jid.Parse(addr)
	if err != nil {
		return jid.JID{}, fmt.Errorf("invalid jid %q: %w", addr, err)
	}
	if j.Localpart() == "" {
		return jid.JID{}, fmt.Errorf("invalid jid %q: missing local part", addr)
	}
	return j.Bare(), nil
}

func (s *Store) Add(addr, name string) (Account, error) {
	bare, err := ParseBare(addr)
	if err != nil {
		return Account{}, err
	}
	acc := Account{JID: bare.String(), Name: name, Created: time.Now().UTC()}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(accountsBucket)
		key := []byte(acc.JID)
		if bucket.Get(key) != nil {
			return fmt.Errorf("%s: %w", acc.JID, ErrExists)
		}
		data, err := json.Marshal(acc)
		if err != nil {
			return err
		}
		return bucket.Put(key, data)
	})
	if err != nil {
		return Account{}, err
	}
	return acc, nil
}

func (s *Store) Get(addr string) (Account, error) {
	bare, err := ParseBare(addr)
	if err != nil {
		return Account{}, err
	}
	var acc Account
	err = s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(accountsBucket).Get([]byte(bare.String()))
		if data == nil {
			return fmt.Errorf("%s: %w", bare, ErrNotFound)
		}
		return json.Unmarshal(data, &acc)
	})
	return acc, err
}

// List returns all accounts ordered by JID.
func (s *Store) List() ([]Account, error) {
	var out []Account
	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(accountsBucket).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var acc Account
			if err := json.Unmarshal(v, &acc); err != nil {
				return fmt.Errorf("decoding account %s: %w", k, err)
			}
			out = append(out, acc)
		}
		return nil
	})
	return out, err
}

// Accounts lists the bare JIDs of all stored accounts.
func (s *Store) Accounts() ([]jid.JID, error) {
	list, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make([]jid.JID, 0, len(list))
	for _, acc := range list {
		j, err := jid.Parse(acc.JID)
		if err != nil {
			return nil, fmt.Errorf("stored account %q: %w", acc.JID, err)
		}
		out = append(out, j)
	}
	return out, nil
}

func (s *Store) Remove(addr string) error {
	bare, err := ParseBare(addr)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(accountsBucket)
		key := []byte(bare.String())
		if bucket.Get(key) == nil {
			return fmt.Errorf("%s: %w", bare, ErrNotFound)
		}
		return bucket.Delete(key)
	})
}

func (s *Store) Path() string { return s.db.Path() }

func (s *Store) Close() error {
	return s.db.Close()
}
