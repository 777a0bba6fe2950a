package index

import (
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Summary describes the last recorded build.
type Summary struct {
	BuiltAt time.Time
	Outputs int
}

// Outputs returns the path -> hash map recorded by the previous build. A
// fresh store yields an empty map.
func (s *Store) Outputs() (map[string]string, error) {
	out := make(map[string]string)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bOutputs)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			out[string(k)] = string(v)
			return nil
		})
	})
	return out, err
}

// Replace swaps the recorded outputs for a new set in one transaction.
func (s *Store) Replace(outputs map[string]string, builtAt time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bOutputs); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		b, err := tx.CreateBucket(bOutputs)
		if err != nil {
			return err
		}
		for p, h := range outputs {
			if err := b.Put([]byte(p), []byte(h)); err != nil {
				return err
			}
		}

		meta, err := tx.CreateBucketIfNotExists(bMeta)
		if err != nil {
			return err
		}
		if err := meta.Put(kBuiltAt, encodeTime(builtAt)); err != nil {
			return err
		}
		return meta.Put(kCount, encodeCount(len(outputs)))
	})
}

func (s *Store) Summary() (Summary, error) {
	var sum Summary
	err := s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bMeta)
		if meta == nil {
			return nil
		}
		sum.BuiltAt = decodeTime(meta.Get(kBuiltAt))
		sum.Outputs = decodeCount(meta.Get(kCount))
		return nil
	})
	return sum, err
}
