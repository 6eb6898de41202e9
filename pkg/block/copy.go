package block

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	copyChunkBlocks = 1024

	concurrentCopies = 8
)

// Copy clones the content of src onto dst chunk by chunk. Both devices
// must be initialized, have the same size and share the write unit of dst
// as a common alignment. Chunks are copied by a bounded number of
// concurrent workers; chunks never overlap, so concurrent writes target
// disjoint ranges.
func Copy(ctx context.Context, dst, src Device) error {
	if src.Size() != dst.Size() {
		return fmt.Errorf("block: copy size mismatch: src %d, dst %d", src.Size(), dst.Size())
	}

	unit := dst.WriteSize()
	if src.ReadSize() > unit {
		unit = src.ReadSize()
	}

	if unit%dst.WriteSize() != 0 || unit%src.ReadSize() != 0 {
		return fmt.Errorf("block: copy units incompatible: src read size %d, dst write size %d", src.ReadSize(), dst.WriteSize())
	}

	chunkSize := unit * copyChunkBlocks
	size := src.Size()

	sem := semaphore.NewWeighted(int64(concurrentCopies))
	g, ctx := errgroup.WithContext(ctx)

	var acquireErr error

	for off := int64(0); off < size; off += chunkSize {
		length := chunkSize
		if size-off < length {
			length = size - off
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			acquireErr = fmt.Errorf("block: copy cancelled: %w", err)

			break
		}

		off := off

		g.Go(func() error {
			defer sem.Release(1)

			buf := make([]byte, length)

			if _, err := src.ReadAt(buf, off); err != nil {
				return fmt.Errorf("block: copy read at %d: %w", off, err)
			}

			if _, err := dst.WriteAt(buf, off); err != nil {
				return fmt.Errorf("block: copy write at %d: %w", off, err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return acquireErr
}
