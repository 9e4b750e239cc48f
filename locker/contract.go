package locker

import (
	"context"
	"time"
)

// Parameters описывает аренду: Key/Value идентифицируют владельца,
// Expiration срок аренды, RetryInterval и Deadline управляют повтором
// в AcquireWithRetry.
type Parameters struct {
	Key, Value                          string
	Expiration, RetryInterval, Deadline time.Duration
}

type (
	// Locker это распределённая блокировка, на которой держится выбор
	// лидера в watchdog: лидер владеет группой remote-ов и снимает её
	// с паузы, остальные реплики ждут.
	Locker interface {
		Lock(ctx context.Context, key, value string, expiration time.Duration) (bool, error)
		Unlock(ctx context.Context, key, value string) (bool, error)
		ExtendLockTTL(ctx context.Context, key, value string, expiration time.Duration) (bool, error)
	}
)
