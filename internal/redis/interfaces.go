package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for per-payment locking.
type LockStoreInterface interface {
	AcquirePaymentLock(ctx context.Context, paymentID string, ttl time.Duration) (token string, ok bool, err error)
	ReleasePaymentLock(ctx context.Context, paymentID, token string) error
}

// Ensure concrete types implement interfaces.
var _ LockStoreInterface = (*LockStore)(nil)
