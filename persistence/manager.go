package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/brepkit/topogo/blobstore"
	"github.com/brepkit/topogo/codec"
	"github.com/brepkit/topogo/registry"
	"github.com/brepkit/topogo/resource"
)

var (
	// ErrManagerClosed is returned when operations are attempted on a
	// closed manager.
	ErrManagerClosed = errors.New("persistence manager is closed")

	// ErrNoStore is returned when no blob store is configured.
	ErrNoStore = errors.New("blob store not configured")
)

// DefaultSnapshotName is the blob name used when none is configured.
const DefaultSnapshotName = "registry.tgs"

// ManagerOptions configures the persistence manager.
type ManagerOptions struct {
	// Store is where snapshots are written. Required.
	Store blobstore.Store

	// SnapshotName is the blob name for the registry snapshot.
	// Defaults to DefaultSnapshotName.
	SnapshotName string

	// Codec encodes the snapshot payload. Defaults to codec.Default.
	Codec codec.Codec

	// Compression selects the payload compression.
	Compression Compression

	// Controller optionally bounds snapshot concurrency and throughput.
	Controller *resource.Controller
}

// Manager coordinates registry snapshot saves and loads against a blob
// store. The flush is bounded and synchronous: the target blob is opened,
// written and closed on every exit path, including failure. Thread-safe.
type Manager struct {
	store       blobstore.Store
	name        string
	codec       codec.Codec
	compression Compression
	controller  *resource.Controller

	mu     sync.RWMutex
	closed bool
}

// NewManager creates a persistence manager with the given options.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Store == nil {
		return nil, ErrNoStore
	}
	if opts.SnapshotName == "" {
		opts.SnapshotName = DefaultSnapshotName
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	return &Manager{
		store:       opts.Store,
		name:        opts.SnapshotName,
		codec:       opts.Codec,
		compression: opts.Compression,
		controller:  opts.Controller,
	}, nil
}

// SnapshotName returns the configured blob name.
func (m *Manager) SnapshotName() string { return m.name }

// Save writes the given registry records as one atomic snapshot blob.
func (m *Manager) Save(ctx context.Context, records []registry.Record) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrManagerClosed
	}

	if m.controller != nil {
		if err := m.controller.AcquireJob(ctx); err != nil {
			return err
		}
		defer m.controller.ReleaseJob()
	}

	var buf bytes.Buffer
	if err := Write(&buf, records, m.codec, m.compression); err != nil {
		return err
	}

	if m.controller != nil {
		if err := m.controller.WaitIO(ctx, buf.Len()); err != nil {
			return err
		}
	}

	if err := m.store.Put(ctx, m.name, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", m.name, err)
	}
	return nil
}

// Load reads the snapshot blob and returns its records.
// Returns blobstore.ErrNotFound when no snapshot exists yet.
func (m *Manager) Load(ctx context.Context) ([]registry.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrManagerClosed
	}

	if m.controller != nil {
		if err := m.controller.AcquireJob(ctx); err != nil {
			return nil, err
		}
		defer m.controller.ReleaseJob()
	}

	blob, err := m.store.Open(ctx, m.name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	if m.controller != nil {
		if err := m.controller.WaitIO(ctx, int(blob.Size())); err != nil {
			return nil, err
		}
	}

	data, err := io.ReadAll(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", m.name, err)
	}
	return Read(bytes.NewReader(data))
}

// Close marks the manager closed. Further Save/Load calls fail with
// ErrManagerClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
