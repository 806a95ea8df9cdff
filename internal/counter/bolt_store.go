package counter

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/matheus3301/mailcount/internal/folder"
	bolt "go.etcd.io/bbolt"
)

const (
	metadataBucket  = "metadata"
	unreadBucket    = "unread_locations"
	versionKey      = "version"
	boltFileVersion = 1
)

// BoltStore keeps one account's counters in a bbolt file (counters.db),
// separate from the message cache.
type BoltStore struct {
	path string
	db   *bolt.DB
}

// OpenBoltStore opens or creates the counter database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("cannot open %q: %w", path, err)
	}

	options := *bolt.DefaultOptions
	options.Timeout = 10 * time.Second
	db, err := bolt.Open(path, 0600, &options)
	if err != nil {
		return nil, fmt.Errorf("open counter db: %w", err)
	}

	s := &BoltStore{path: path, db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BoltStore) init() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		if err := meta.Put([]byte(versionKey), encodeCount(boltFileVersion)); err != nil {
			return err
		}
		_, err = tx.CreateBucketIfNotExists([]byte(unreadBucket))
		return err
	})
}

// Path returns the database file path.
func (s *BoltStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// FindUnreadLocation returns the counter for loc, or nil if none was saved.
func (s *BoltStore) FindUnreadLocation(loc folder.Location) (*UnreadLocation, error) {
	var found *UnreadLocation
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(unreadBucket)).Get(locationKey(loc))
		if v == nil {
			return nil
		}
		count, err := decodeCount(v)
		if err != nil {
			return fmt.Errorf("counter %s: %w", loc, err)
		}
		found = &UnreadLocation{Location: loc, Count: count}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// SaveUnreadLocation creates or overwrites the counter for u.Location.
func (s *BoltStore) SaveUnreadLocation(u *UnreadLocation) error {
	count := u.Count
	if count < 0 {
		count = 0
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(unreadBucket)).Put(locationKey(u.Location), encodeCount(count))
	})
}

// ListUnreadLocations returns every saved counter ordered by location code.
func (s *BoltStore) ListUnreadLocations() ([]UnreadLocation, error) {
	list := make([]UnreadLocation, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(unreadBucket)).ForEach(func(k, v []byte) error {
			code, err := strconv.Atoi(string(k))
			if err != nil {
				return fmt.Errorf("invalid counter key %q: %w", k, err)
			}
			count, err := decodeCount(v)
			if err != nil {
				return fmt.Errorf("counter %q: %w", k, err)
			}
			list = append(list, UnreadLocation{Location: folder.Location(code), Count: count})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Location < list[j].Location })
	return list, nil
}

func locationKey(loc folder.Location) []byte {
	return []byte(strconv.Itoa(int(loc)))
}

func encodeCount(n int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

func decodeCount(v []byte) (int, error) {
	if len(v) != 8 {
		return 0, fmt.Errorf("invalid value length %d", len(v))
	}
	return int(binary.BigEndian.Uint64(v)), nil
}
