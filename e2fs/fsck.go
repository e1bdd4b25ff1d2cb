// Package e2fs is the consistency-check engine: it holds the on-disk model
// of a second-extended filesystem (superblock, group descriptors, inodes,
// directory entries) and the four ordered repair passes that fix broken
// self/parent back-pointers, orphaned inodes, stale link counts, and stale
// block bitmaps.
package e2fs

import (
	"fmt"

	"github.com/fsimg/e2fsck/backend"
	"github.com/fsimg/e2fsck/partition"
	"github.com/sirupsen/logrus"
)

// Options configure a repair or report run.
type Options struct {
	// Verbose enables byte-level dumps of every patch this run makes. The
	// dumps are logged at Debug level; the log level itself is left to the
	// caller.
	Verbose bool
}

// OpenPartition resolves partition n against image and returns a Context
// scoped to it, ready for FixPartition or direct pass invocation.
func OpenPartition(image backend.Storage, n int, opts Options) (*Context, error) {
	pt, err := partition.Resolve(image, n)
	if err != nil {
		return nil, err
	}
	scoped := backend.Sub(image, pt.Base(), pt.Size())
	return NewContext(scoped, pt, opts.Verbose)
}

// FixPartition runs all four repair passes, in order, against partition n
// of image. Between passes 2 and 3 the reference tally is cleared and
// rebuilt by re-running pass 1, because adopting orphans into lost+found
// changes reference counts.
func FixPartition(image backend.Storage, n int, opts Options) error {
	c, err := OpenPartition(image, n, opts)
	if err != nil {
		return fmt.Errorf("partition %d: %w", n, err)
	}

	c.log.Info("pass 1: checking directory structure")
	if err := c.Pass1(); err != nil {
		return fmt.Errorf("partition %d pass 1: %w", n, err)
	}

	c.log.Info("pass 2: adopting orphaned inodes")
	if err := c.Pass2(); err != nil {
		return fmt.Errorf("partition %d pass 2: %w", n, err)
	}

	c.ResetRefs()
	if err := c.Pass1(); err != nil {
		return fmt.Errorf("partition %d pass 1 (post-adoption): %w", n, err)
	}

	c.log.Info("pass 3: checking link counts")
	if err := c.Pass3(); err != nil {
		return fmt.Errorf("partition %d pass 3: %w", n, err)
	}

	c.log.Info("pass 4: checking block bitmaps")
	if err := c.Pass4(); err != nil {
		return fmt.Errorf("partition %d pass 4: %w", n, err)
	}

	c.log.Info("done")
	return nil
}

// FixFS is spec.md 4.10's driver: fix_fs(n) repairs one partition, fix_fs(0)
// enumerates partitions in ascending index order and repairs every one
// whose type is the classic second-extended code (0x83). Enumeration stops
// at the first index partition.Resolve cannot find.
func FixFS(image backend.Storage, n int, opts Options) error {
	if n != 0 {
		return FixPartition(image, n, opts)
	}

	for i := 1; ; i++ {
		pt, err := partition.Resolve(image, i)
		if err != nil {
			return nil
		}
		if pt.Type != partition.TypeLinux {
			continue
		}
		if err := FixPartition(image, i, opts); err != nil {
			logrus.WithFields(logrus.Fields{"partition": i}).Errorf("repair failed: %v", err)
		}
	}
}
