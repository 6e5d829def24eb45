package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// BucketName for storing played cycles
	BucketName = "history"

	// MetaBucket for storing metadata
	MetaBucket = "meta"

	// CountKey for tracking total records
	CountKey = "count"
)

// Record is one accepted decision cycle.
type Record struct {
	FEN           string  `json:"fen"`            // Validated position the move was chosen in
	Move          string  `json:"move"`           // Move played, UCI notation
	Premove       string  `json:"premove"`        // Capture premoved after it, if any
	Side          string  `json:"side"`           // "w" or "b"
	Turn          int     `json:"turn"`           // Session turn counter
	RecognitionMs float64 `json:"recognition_ms"` // Frame to grid time
	Timestamp     int64   `json:"timestamp"`      // Unix timestamp
}

// HistoryStore keeps the most recent records in a bbolt ring buffer.
type HistoryStore struct {
	db       *bbolt.DB
	dbPath   string
	maxSize  int
	count    uint64
	isClosed bool
}

// NewHistoryStore opens or creates a history database holding at most
// maxSize records.
func NewHistoryStore(dbPath string, maxSize int) (*HistoryStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("history path is empty")
	}
	if maxSize <= 0 {
		return nil, fmt.Errorf("invalid history size: %d", maxSize)
	}

	// Open database with timeout
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Initialize buckets
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketName)); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(MetaBucket)); err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	store := &HistoryStore{
		db:      db,
		dbPath:  dbPath,
		maxSize: maxSize,
	}

	count, err := store.Count()
	if err != nil {
		db.Close()
		return nil, err
	}
	store.count = count

	return store, nil
}

func slotKey(slot uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, slot)
	return key
}

// Append stores a record, overwriting the oldest once the buffer is full.
func (s *HistoryStore) Append(rec Record) error {
	if s.isClosed {
		return fmt.Errorf("store is closed")
	}
	if rec.FEN == "" {
		return fmt.Errorf("record has no position")
	}
	if len(rec.Move) != 4 {
		return fmt.Errorf("invalid move %q", rec.Move)
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().Unix()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		if err := b.Put(slotKey(s.count%uint64(s.maxSize)), data); err != nil {
			return err
		}

		meta := tx.Bucket([]byte(MetaBucket))
		if meta == nil {
			return fmt.Errorf("meta bucket not found")
		}

		next := s.count + 1
		if err := meta.Put([]byte(CountKey), slotKey(next)); err != nil {
			return err
		}
		s.count = next
		return nil
	})
}

// Recent returns up to n records, newest first.
func (s *HistoryStore) Recent(n int) ([]Record, error) {
	if s.isClosed {
		return nil, fmt.Errorf("store is closed")
	}

	size := s.size()
	if n > size {
		n = size
	}
	if n <= 0 {
		return nil, nil
	}

	records := make([]Record, 0, n)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		for i := 1; i <= n; i++ {
			slot := (s.count - uint64(i)) % uint64(s.maxSize)
			data := b.Get(slotKey(slot))
			if data == nil {
				continue
			}

			var rec Record
			if err := json.Unmarshal(data, &rec); err != nil {
				continue // Skip corrupted records
			}
			records = append(records, rec)
		}
		return nil
	})

	return records, err
}

// Count returns the number of records ever appended.
func (s *HistoryStore) Count() (uint64, error) {
	if s.isClosed {
		return 0, fmt.Errorf("store is closed")
	}

	var count uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket([]byte(MetaBucket))
		if meta == nil {
			return fmt.Errorf("meta bucket not found")
		}

		if countBytes := meta.Get([]byte(CountKey)); countBytes != nil {
			count = binary.BigEndian.Uint64(countBytes)
		}
		return nil
	})

	return count, err
}

func (s *HistoryStore) size() int {
	if s.count > uint64(s.maxSize) {
		return s.maxSize
	}
	return int(s.count)
}

// Clear removes all records.
func (s *HistoryStore) Clear() error {
	if s.isClosed {
		return fmt.Errorf("store is closed")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(BucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucket([]byte(BucketName)); err != nil {
			return err
		}

		meta := tx.Bucket([]byte(MetaBucket))
		if meta == nil {
			return fmt.Errorf("meta bucket not found")
		}
		if err := meta.Put([]byte(CountKey), slotKey(0)); err != nil {
			return err
		}
		s.count = 0
		return nil
	})
}

// Close closes the database connection
func (s *HistoryStore) Close() error {
	if s.isClosed {
		return nil
	}

	s.isClosed = true
	return s.db.Close()
}

// Stats describes the store.
type Stats struct {
	TotalRecords  uint64
	StoredRecords int
	MaxSize       int
	DBPath        string
	IsWrapped     bool
}

// GetStats returns current statistics
func (s *HistoryStore) GetStats() (Stats, error) {
	count, err := s.Count()
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		TotalRecords:  count,
		StoredRecords: s.size(),
		MaxSize:       s.maxSize,
		DBPath:        s.dbPath,
		IsWrapped:     count > uint64(s.maxSize),
	}, nil
}

// ExportToJSON writes all stored records, oldest first, to a JSON file.
func (s *HistoryStore) ExportToJSON(outputPath string) error {
	records, err := s.Recent(s.size())
	if err != nil {
		return err
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
