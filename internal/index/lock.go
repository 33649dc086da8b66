package index

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	sifterrors "github.com/Aman-CERP/codesift/internal/errors"
)

// lockRetryInterval is how often lock acquisition is retried.
const lockRetryInterval = 100 * time.Millisecond

// Lock is an exclusive advisory lock on a cache directory. It prevents two
// processes from writing shard databases concurrently.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes an exclusive lock on the cache directory, blocking
// until it is acquired or ctx expires.
func AcquireLock(ctx context.Context, cacheDir string) (*Lock, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, sifterrors.StorageError("create cache directory", err)
	}

	fl := flock.New(filepath.Join(cacheDir, "index.lock"))
	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, sifterrors.StorageError("acquire index lock", err).
			WithSuggestion("another codesift process may be indexing this project")
	}
	if !locked {
		return nil, sifterrors.StorageError("index lock not acquired", nil)
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
