// Package storage provides the durable keyed object store abstraction used
// by the submission queue, the account registry, and the form archive.
//
// Every operation is atomic with respect to every other operation on the
// same store, which is what lets the offline queue drain concurrently with
// new enqueues without a coordinating lock around the backend.
package storage

import "errors"

// ErrNotFound is returned when a key does not exist in the given bucket.
var ErrNotFound = errors.New("record not found")

// Store defines a durable keyed object store. Keys are scoped by bucket;
// values are opaque bytes (callers serialize their own records).
type Store interface {
	// Put creates or replaces the value stored under (bucket, key).
	Put(bucket, key string, value []byte) error
	// Get returns the value stored under (bucket, key), or ErrNotFound.
	Get(bucket, key string) ([]byte, error)
	// Delete removes (bucket, key). Deleting a missing key returns ErrNotFound.
	Delete(bucket, key string) error
	// List returns all keys in the bucket in lexicographic order. A missing
	// bucket lists as empty, not as an error.
	List(bucket string) ([]string, error)
	// Close releases the underlying resources.
	Close() error
}
