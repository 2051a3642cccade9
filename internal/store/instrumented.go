package store

import (
	"context"
	"time"

	"github.com/yourusername/banker-pool/internal/metrics"
)

// instrumented records latency and outcome of every call against a backend
type instrumented struct {
	next    Store
	backend string
}

// Instrument wraps a store so its calls are counted under the given backend label
func Instrument(next Store, backend string) Store {
	return &instrumented{next: next, backend: backend}
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	if IsNotFound(err) {
		err = nil
	}
	metrics.RecordStoreOperation(i.backend, op, time.Since(start).Seconds(), err)
}

func (i *instrumented) Get(ctx context.Context, key string) (blob []byte, err error) {
	defer func(start time.Time) { i.observe("get", start, err) }(time.Now())
	return i.next.Get(ctx, key)
}

func (i *instrumented) Put(ctx context.Context, key string, blob []byte) (err error) {
	defer func(start time.Time) { i.observe("put", start, err) }(time.Now())
	return i.next.Put(ctx, key, blob)
}

func (i *instrumented) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { i.observe("delete", start, err) }(time.Now())
	return i.next.Delete(ctx, key)
}

func (i *instrumented) List(ctx context.Context, prefix string) (keys []string, err error) {
	defer func(start time.Time) { i.observe("list", start, err) }(time.Now())
	return i.next.List(ctx, prefix)
}

func (i *instrumented) Exists(ctx context.Context, key string) (ok bool, err error) {
	defer func(start time.Time) { i.observe("exists", start, err) }(time.Now())
	return i.next.Exists(ctx, key)
}
