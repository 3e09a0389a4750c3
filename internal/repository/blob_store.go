package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"GlucoPlot/internal/domain/models"
	domrepo "GlucoPlot/internal/domain/repository"
	"GlucoPlot/pkg/cache"
)

// CacheBlobStore keeps rendered images in a cache.Store (redis, memory or
// layered). Each blob uses three keys: metadata, bytes and a name index.
type CacheBlobStore struct {
	store cache.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewCacheBlobStore stores blobs in s. A zero ttl keeps the backend default.
func NewCacheBlobStore(s cache.Store, ttl time.Duration) *CacheBlobStore {
	return &CacheBlobStore{store: s, ttl: ttl, now: time.Now}
}

var _ domrepo.BlobStore = (*CacheBlobStore)(nil)

func metaKey(id string) string   { return cache.GenerateKey("blob:meta", id) }
func dataKey(id string) string   { return cache.GenerateKey("blob:data", id) }
func nameKey(name string) string { return cache.GenerateKey("blob:name", cache.HashKey(name)) }

// Put stores data under name. When name is already stored the existing ref is
// returned and data is discarded.
func (b *CacheBlobStore) Put(ctx context.Context, name, contentType string, data []byte) (models.FileRef, error) {
	if name == "" {
		return models.FileRef{}, errors.New("blob: empty name")
	}
	if ref, err := b.lookup(ctx, name); err == nil {
		return ref, nil
	} else if !errors.Is(err, domrepo.ErrNotFound) {
		return models.FileRef{}, err
	}

	meta := models.Blob{
		FileRef:     models.FileRef{ID: uuid.NewString(), Name: name},
		ContentType: contentType,
		Created:     b.now().UTC(),
	}
	if err := b.store.Set(ctx, dataKey(meta.ID), data, b.ttl); err != nil {
		return models.FileRef{}, fmt.Errorf("blob put %s: %w", name, err)
	}
	if err := cache.SetJSON(ctx, b.store, metaKey(meta.ID), meta, b.ttl); err != nil {
		return models.FileRef{}, fmt.Errorf("blob put %s: %w", name, err)
	}

	won, err := b.store.SetNX(ctx, nameKey(name), []byte(meta.ID), b.ttl)
	if err != nil {
		return models.FileRef{}, fmt.Errorf("blob index %s: %w", name, err)
	}
	if !won {
		// a concurrent Put for the same name got there first
		_ = b.store.Delete(ctx, dataKey(meta.ID), metaKey(meta.ID))
		return b.lookup(ctx, name)
	}
	return meta.FileRef, nil
}

func (b *CacheBlobStore) lookup(ctx context.Context, name string) (models.FileRef, error) {
	id, err := b.store.Get(ctx, nameKey(name))
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.FileRef{}, domrepo.ErrNotFound
	}
	if err != nil {
		return models.FileRef{}, fmt.Errorf("blob lookup %s: %w", name, err)
	}
	return models.FileRef{ID: string(id), Name: name}, nil
}

func (b *CacheBlobStore) Get(ctx context.Context, id string) (models.Blob, error) {
	meta, err := cache.GetJSON[models.Blob](ctx, b.store, metaKey(id))
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.Blob{}, domrepo.ErrNotFound
	}
	if err != nil {
		return models.Blob{}, fmt.Errorf("blob meta %s: %w", id, err)
	}
	data, err := b.store.Get(ctx, dataKey(id))
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.Blob{}, domrepo.ErrNotFound
	}
	if err != nil {
		return models.Blob{}, fmt.Errorf("blob data %s: %w", id, err)
	}
	meta.Data = data
	return meta, nil
}

func (b *CacheBlobStore) Delete(ctx context.Context, id string) error {
	meta, err := cache.GetJSON[models.Blob](ctx, b.store, metaKey(id))
	if errors.Is(err, cache.ErrCacheMiss) {
		return domrepo.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("blob meta %s: %w", id, err)
	}
	if err := b.store.Delete(ctx, metaKey(id), dataKey(id), nameKey(meta.Name)); err != nil {
		return fmt.Errorf("blob delete %s: %w", id, err)
	}
	return nil
}
