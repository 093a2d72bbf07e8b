// Package portstest provides in-memory implementations of the ports for
// tests.
package portstest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"recordpipeline/internal/ports"
)

type StoredObject struct {
	Data        []byte
	ContentType string
}

// MemStorage is an in-memory ports.ObjectStorage. Setting FailOn[op] makes
// that operation fail; ops are "put:<bucket>", "get", "copy", "delete" and
// "exists" and "list". Every attempted op is appended to Calls.
type MemStorage struct {
	mu      sync.Mutex
	buckets map[string]map[string]StoredObject
	FailOn  map[string]error
	Calls   []string
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		buckets: map[string]map[string]StoredObject{},
		FailOn:  map[string]error{},
	}
}

var _ ports.ObjectStorage = (*MemStorage)(nil)

func (m *MemStorage) attempt(op string) error {
	m.Calls = append(m.Calls, op)
	return m.FailOn[op]
}

func (m *MemStorage) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.attempt("put:" + bucket); err != nil {
		return err
	}
	if m.buckets[bucket] == nil {
		m.buckets[bucket] = map[string]StoredObject{}
	}
	m.buckets[bucket][key] = StoredObject{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

func (m *MemStorage) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.attempt("get"); err != nil {
		return nil, err
	}
	obj, ok := m.buckets[bucket][key]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, ports.ErrObjectNotFound)
	}
	return append([]byte(nil), obj.Data...), nil
}

func (m *MemStorage) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.attempt("copy"); err != nil {
		return err
	}
	obj, ok := m.buckets[srcBucket][srcKey]
	if !ok {
		return fmt.Errorf("copy %s/%s: %w", srcBucket, srcKey, ports.ErrObjectNotFound)
	}
	if m.buckets[dstBucket] == nil {
		m.buckets[dstBucket] = map[string]StoredObject{}
	}
	m.buckets[dstBucket][dstKey] = obj
	return nil
}

func (m *MemStorage) Delete(ctx context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.attempt("delete"); err != nil {
		return err
	}
	delete(m.buckets[bucket], key)
	return nil
}

func (m *MemStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.attempt("exists"); err != nil {
		return false, err
	}
	_, ok := m.buckets[bucket][key]
	return ok, nil
}

var _ ports.ObjectLister = (*MemStorage)(nil)

// List returns the bucket's keys in sorted order.
func (m *MemStorage) List(ctx context.Context, bucket string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.attempt("list"); err != nil {
		return nil, err
	}
	return m.sortedKeys(bucket), nil
}

// SetFailure changes FailOn[op] under the store's lock, for tests that flip
// failures while the store is in use. A nil err clears it.
func (m *MemStorage) SetFailure(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.FailOn, op)
		return
	}
	m.FailOn[op] = err
}

// Object reads a stored object without recording a call.
func (m *MemStorage) Object(bucket, key string) (StoredObject, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.buckets[bucket][key]
	return obj, ok
}

// Keys lists a bucket in sorted order.
func (m *MemStorage) Keys(bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedKeys(bucket)
}

func (m *MemStorage) sortedKeys(bucket string) []string {
	var keys []string
	for k := range m.buckets[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type Message struct {
	Topic string
	Key   []byte
	Value []byte
}

// Publisher records published messages; Err makes Publish fail.
type Publisher struct {
	mu       sync.Mutex
	Messages []Message
	Err      error
}

var _ ports.EventPublisher = (*Publisher)(nil)

func (p *Publisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Messages = append(p.Messages, Message{Topic: topic, Key: key, Value: value})
	return nil
}

// Published returns a copy of the messages published so far.
func (p *Publisher) Published() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.Messages...)
}

// Catalog is an in-memory ports.Catalog; Err makes Upsert fail.
type Catalog struct {
	mu      sync.Mutex
	Rows    map[string]ports.CatalogEntry
	Upserts int
	Err     error
}

func NewCatalog() *Catalog {
	return &Catalog{Rows: map[string]ports.CatalogEntry{}}
}

var _ ports.Catalog = (*Catalog)(nil)

func (c *Catalog) Upsert(ctx context.Context, entry ports.CatalogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.Upserts++
	c.Rows[entry.ID] = entry
	return nil
}

func (c *Catalog) Get(ctx context.Context, id string) (*ports.CatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	row, ok := c.Rows[id]
	if !ok {
		return nil, ports.ErrCatalogEntryNotFound
	}
	return &row, nil
}
