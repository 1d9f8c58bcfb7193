package dataset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"onthesis/domain/core"
	"onthesis/domain/dataset"
	"onthesis/internal"
	apperrors "onthesis/internal/errors"
	"onthesis/internal/metrics"
	"onthesis/ports"
)

// DefaultTimeout bounds every tier call.
const DefaultTimeout = 15 * time.Second

const (
	msgSavedRemote = "saved remotely"
	msgSavedLocal  = "saved locally (fallback)"
)

var errPartialPair = errors.New("artifact pair incomplete")

// HybridStore persists datasets to a durable remote tier with a local
// filesystem fallback. Saves try remote then local; loads read remote then
// local. Concurrent saves for one owner are last-save-wins.
type HybridStore struct {
	remote      ports.BlobStore
	local       ports.BlobStore
	timeout     time.Duration
	logger      *internal.Logger
	metrics     *metrics.Metrics
	datasetOpts []dataset.Option
}

// HybridOption configures a HybridStore.
type HybridOption func(*HybridStore)

// WithTimeout sets the per-tier deadline.
func WithTimeout(d time.Duration) HybridOption {
	return func(h *HybridStore) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *internal.Logger) HybridOption {
	return func(h *HybridStore) { h.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) HybridOption {
	return func(h *HybridStore) { h.metrics = m }
}

// WithDatasetOptions are applied to every dataset the store opens.
func WithDatasetOptions(opts ...dataset.Option) HybridOption {
	return func(h *HybridStore) { h.datasetOpts = append(h.datasetOpts, opts...) }
}

// NewHybridStore wires the tiers. remote may be nil, in which case every
// save lands locally.
func NewHybridStore(remote, local ports.BlobStore, opts ...HybridOption) (*HybridStore, error) {
	if local == nil {
		return nil, apperrors.ConfigInvalid("local storage tier is required")
	}
	h := &HybridStore{
		remote:  remote,
		local:   local,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = internal.OrDefault(h.logger).With("HybridStore")
	return h, nil
}

// Open loads the owner's dataset or returns a fresh empty one bound to
// this store.
func (h *HybridStore) Open(ctx context.Context, owner core.Owner) *dataset.Dataset {
	if ds, ok := h.Load(ctx, owner); ok {
		return ds
	}
	return dataset.New(owner, h, h.datasetOpts...)
}

// Save serializes the dataset and writes it to the first tier that
// accepts both artifacts. The two remote writes run concurrently, so a
// failed remote save can leave one new blob beside a stale one; Save then
// deletes the remote pair before falling back to local, and Load ignores
// a tier missing either blob. If that delete also fails, the remote tier
// keeps a mixed pair that Load can still read until the next remote save
// succeeds.
func (h *HybridStore) Save(ctx context.Context, ds *dataset.Dataset) (dataset.SaveOutcome, error) {
	data, meta, err := encodeDataset(ds)
	if err != nil {
		return dataset.SaveOutcome{}, apperrors.StorageError("failed to serialize dataset", err)
	}
	owner := ds.Owner()

	remoteErr := h.writeTier(ctx, h.remote, remoteKeys(owner), data, meta)
	if remoteErr == nil {
		h.metrics.ObserveSave(string(dataset.TierRemote), "ok")
		h.logger.Debug("saved %s to %s", owner, h.remote.Provider())
		return dataset.SaveOutcome{Tier: dataset.TierRemote, Message: msgSavedRemote}, nil
	}
	if h.remote != nil {
		h.metrics.ObserveSave(string(dataset.TierRemote), "error")
		h.logger.Warn("remote save failed for %s, falling back to local: %v", owner, remoteErr)
		h.discardPair(ctx, h.remote, remoteKeys(owner))
	}

	localErr := h.writeTier(ctx, h.local, localKeys(owner), data, meta)
	if localErr != nil {
		h.metrics.ObserveSave(string(dataset.TierLocal), "error")
		h.logger.Error("local save failed for %s: %v", owner, localErr)
		return dataset.SaveOutcome{}, apperrors.StorageError(
			fmt.Sprintf("failed to save dataset %s", owner), localErr)
	}
	h.metrics.ObserveSave(string(dataset.TierLocal), "ok")
	return dataset.SaveOutcome{Tier: dataset.TierLocal, Message: msgSavedLocal}, nil
}

// Load returns the owner's dataset from the first tier holding a complete
// and decodable artifact pair. Absence at both tiers is (nil, false).
func (h *HybridStore) Load(ctx context.Context, owner core.Owner) (*dataset.Dataset, bool) {
	if h.remote != nil {
		ds, err := h.readTier(ctx, h.remote, remoteKeys(owner), owner)
		if err == nil {
			h.metrics.ObserveLoad(string(dataset.TierRemote), "ok")
			return ds, true
		}
		h.observeLoadMiss(dataset.TierRemote, owner, err)
	}
	ds, err := h.readTier(ctx, h.local, localKeys(owner), owner)
	if err == nil {
		h.metrics.ObserveLoad(string(dataset.TierLocal), "ok")
		return ds, true
	}
	h.observeLoadMiss(dataset.TierLocal, owner, err)
	return nil, false
}

func (h *HybridStore) observeLoadMiss(tier dataset.Tier, owner core.Owner, err error) {
	if errors.Is(err, ports.ErrBlobNotFound) || errors.Is(err, errPartialPair) {
		h.metrics.ObserveLoad(string(tier), "absent")
		h.logger.Debug("no %s artifacts for %s", tier, owner)
		return
	}
	h.metrics.ObserveLoad(string(tier), "error")
	h.logger.Warn("%s load failed for %s: %v", tier, owner, err)
}

func (h *HybridStore) writeTier(ctx context.Context, store ports.BlobStore, keys blobKeys, data, meta []byte) error {
	if store == nil {
		return errors.New("tier not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return store.Put(gctx, keys.data, data, contentTypeCSV) })
	g.Go(func() error { return store.Put(gctx, keys.meta, meta, contentTypeJSON) })
	return g.Wait()
}

// discardPair removes both blobs of a pair whose write did not complete.
func (h *HybridStore) discardPair(ctx context.Context, store ports.BlobStore, keys blobKeys) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
	defer cancel()

	for _, key := range []string{keys.data, keys.meta} {
		if err := store.Delete(ctx, key); err != nil {
			h.logger.Warn("failed to discard partial %s blob %s: %v", store.Provider(), key, err)
		}
	}
}

// pairExists reports whether both blobs are present.
func pairExists(ctx context.Context, store ports.BlobStore, keys blobKeys) (bool, error) {
	for _, key := range []string{keys.data, keys.meta} {
		ok, err := store.Exists(ctx, key)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (h *HybridStore) readTier(ctx context.Context, store ports.BlobStore, keys blobKeys, owner core.Owner) (*dataset.Dataset, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	ok, err := pairExists(ctx, store, keys)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errPartialPair
	}

	var data, meta []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data, err = store.Get(gctx, keys.data)
		return err
	})
	g.Go(func() (err error) {
		meta, err = store.Get(gctx, keys.meta)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, ports.ErrBlobNotFound) {
			return nil, fmt.Errorf("%w: %v", errPartialPair, err)
		}
		return nil, err
	}
	return decodeDataset(owner, data, meta, h, h.datasetOpts...)
}

var (
	_ dataset.Store           = (*HybridStore)(nil)
	_ ports.DatasetRepository = (*HybridStore)(nil)
)
