// Package storage keeps the composed views of a session, by version, in an
// in-memory BuntDB so an export collaborator can read any recent one.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/raykavin/chartsync/pkg/derived"
	"github.com/raykavin/chartsync/pkg/pnl"
	"github.com/raykavin/chartsync/pkg/view"
	"github.com/tidwall/buntdb"
)

const versionIndex = "version_index"

var ErrViewNotFound = errors.New("view not found")

// View is the read-only export form of a session at one version: the state
// without hover, every overlay and the P&L.
type View struct {
	Version  uint64                    `json:"version"`
	State    view.State                `json:"state"`
	Overlays map[string]derived.Series `json:"overlays"`
	Errors   map[string]string         `json:"errors,omitempty"`
	PnL      *pnl.Result               `json:"pnl,omitempty"`
	SavedAt  time.Time                 `json:"saved_at"`
}

// BuntStorage stores views keyed by version.
type BuntStorage struct {
	db        *buntdb.DB
	retention int
}

type Option func(*BuntStorage)

// WithRetention keeps only the n most recent versions.
func WithRetention(n int) Option {
	return func(b *BuntStorage) {
		b.retention = n
	}
}

// FromMemory creates an in-memory storage.
func FromMemory(options ...Option) (*BuntStorage, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	err = db.CreateIndex(versionIndex, "view:*", buntdb.IndexJSON("version"))
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	b := &BuntStorage{db: db}
	for _, option := range options {
		option(b)
	}
	return b, nil
}

func key(version uint64) string {
	return fmt.Sprintf("view:%020d", version)
}

// Save stores v, replacing any view stored under the same version.
func (b *BuntStorage) Save(v View) error {
	if v.SavedAt.IsZero() {
		v.SavedAt = time.Now()
	}
	v.State = v.State.WithoutHover()
	v.Version = v.State.Version

	content, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal view: %w", err)
	}

	return b.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(key(v.Version), string(content), nil); err != nil {
			return fmt.Errorf("failed to store view: %w", err)
		}
		return b.prune(tx)
	})
}

func (b *BuntStorage) prune(tx *buntdb.Tx) error {
	if b.retention <= 0 {
		return nil
	}

	count, err := tx.Len()
	if err != nil {
		return err
	}

	var stale []string
	err = tx.Ascend(versionIndex, func(k, _ string) bool {
		if count-len(stale) <= b.retention {
			return false
		}
		stale = append(stale, k)
		return true
	})
	if err != nil {
		return fmt.Errorf("failed to iterate over views: %w", err)
	}

	for _, k := range stale {
		if _, err := tx.Delete(k); err != nil {
			return fmt.Errorf("failed to prune view: %w", err)
		}
	}
	return nil
}

// Latest returns the view with the highest version.
func (b *BuntStorage) Latest() (View, error) {
	var (
		v     View
		found bool
	)
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.Descend(versionIndex, func(_, value string) bool {
			found = true
			if err := json.Unmarshal([]byte(value), &v); err != nil {
				found = false
			}
			return false
		})
	})
	if err != nil {
		return View{}, fmt.Errorf("failed to read latest view: %w", err)
	}
	if !found {
		return View{}, ErrViewNotFound
	}
	return v, nil
}

func (b *BuntStorage) ByVersion(version uint64) (View, error) {
	var v View
	err := b.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(key(version))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(value), &v)
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return View{}, fmt.Errorf("version %d: %w", version, ErrViewNotFound)
	}
	if err != nil {
		return View{}, fmt.Errorf("failed to read view %d: %w", version, err)
	}
	return v, nil
}

// Versions lists the stored versions in ascending order.
func (b *BuntStorage) Versions() ([]uint64, error) {
	versions := make([]uint64, 0)
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend(versionIndex, func(_, value string) bool {
			var v struct {
				Version uint64 `json:"version"`
			}
			if err := json.Unmarshal([]byte(value), &v); err == nil {
				versions = append(versions, v.Version)
			}
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate over views: %w", err)
	}
	return versions, nil
}

// Close closes the database connection
func (b *BuntStorage) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
