package clients

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// sharedCallTimeout bounds an upstream detection that no longer follows a caller's context.
const sharedCallTimeout = 60 * time.Second

// CachedDetector remembers successful detections by image digest and collapses
// concurrent requests for the same image into one upstream call. Cameras often fire
// several times for one vehicle.
type CachedDetector struct {
	next   PlateDetector
	cache  *bigcache.BigCache
	group  singleflight.Group
	logger *zap.Logger
}

// NewCachedDetector wraps next with a cache whose entries live for ttl.
func NewCachedDetector(ctx context.Context, next PlateDetector, ttl time.Duration, logger *zap.Logger) (*CachedDetector, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 64
	cfg.MaxEntriesInWindow = 1024
	cfg.MaxEntrySize = 256
	cfg.Verbose = false

	cache, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &CachedDetector{next: next, cache: cache, logger: logger}, nil
}

// Detect implements PlateDetector.
func (d *CachedDetector) Detect(ctx context.Context, image []byte, filename string) (*Detection, error) {
	sum := sha256.Sum256(image)
	key := hex.EncodeToString(sum[:])

	if cached, ok := d.lookup(key); ok {
		return cached, nil
	}

	ch := d.group.DoChan(key, func() (interface{}, error) {
		if cached, ok := d.lookup(key); ok {
			return cached, nil
		}
		// The call is shared by every waiter, so one caller going away must not cancel it.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedCallTimeout)
		defer cancel()
		det, err := d.next.Detect(callCtx, image, filename)
		if err != nil {
			return nil, err
		}
		d.store(key, det)
		return det, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		det := *res.Val.(*Detection)
		return &det, nil
	}
}

// Close stops the cache janitor.
func (d *CachedDetector) Close() error {
	return d.cache.Close()
}

func (d *CachedDetector) lookup(key string) (*Detection, bool) {
	raw, err := d.cache.Get(key)
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			d.logger.Warn("detection cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var det Detection
	if err := json.Unmarshal(raw, &det); err != nil {
		d.logger.Warn("detection cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return &det, true
}

func (d *CachedDetector) store(key string, det *Detection) {
	raw, err := json.Marshal(det)
	if err != nil {
		return
	}
	if err := d.cache.Set(key, raw); err != nil {
		d.logger.Warn("detection cache write failed", zap.Error(err))
	}
}
