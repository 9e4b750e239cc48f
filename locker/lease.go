package locker

import (
	"context"
	"time"

	"github.com/PavelAgarkov/halt-pkg/utils"
)

// AcquireWithRetry пытается взять блокировку, повторяя попытки с шагом
// RetryInterval, пока не истечёт Deadline.
func AcquireWithRetry(ctx context.Context, l Locker, p Parameters) (bool, error) {
	deadline := time.Now().Add(p.Deadline)
	for {
		ok, err := l.Lock(ctx, p.Key, p.Value, p.Expiration)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		if err := utils.WaitOrCtx(ctx, p.RetryInterval); err != nil {
			return false, err
		}
	}
}
