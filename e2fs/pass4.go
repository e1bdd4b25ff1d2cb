package e2fs

import "github.com/sirupsen/logrus"

// ceilDiv computes ceil(a/b) for positive integers.
func ceilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}

// isPowerOf reports whether n is an integer power of base (base>=2, n>=1).
func isPowerOf(n, base uint32) bool {
	if n == 0 {
		return false
	}
	for n%base == 0 {
		n /= base
	}
	return n == 1
}

// hasSuperblockBackup reports whether group g carries a backup copy of the
// superblock and group descriptor table, per the classic sparse-superblock
// convention: always groups 0 and 1, plus any group whose index is a power
// of 3, 5 or 7.
func hasSuperblockBackup(g uint32) bool {
	return g == 0 || g == 1 || isPowerOf(g, 3) || isPowerOf(g, 5) || isPowerOf(g, 7)
}

// Pass4 recomputes which blocks should be allocated from the inode tree and
// FS metadata layout, then overwrites each group's block bitmap wherever it
// disagrees.
func (c *Context) Pass4() error {
	sb := c.Superblock
	total := uint64(sb.NumGroups) * uint64(sb.BlocksPerGroup)
	expected := make([]bool, total)

	mark := func(b uint32) {
		if uint64(b) < total {
			expected[b] = true
		}
	}

	reserved := ceilDiv(2048+uint64(sb.NumGroups)*groupDescSize, uint64(sb.BlockSize))
	for b := uint64(0); b < reserved; b++ {
		mark(uint32(b))
	}

	firstData := sb.FirstDataBlock
	for g := uint32(0); g < sb.NumGroups; g++ {
		if hasSuperblockBackup(g) {
			base := firstData + g*sb.BlocksPerGroup
			mark(base)
			mark(base + 1)
		}
	}

	tableBlocks := ceilDiv(uint64(sb.InodesPerGroup)*uint64(sb.InodeSize), uint64(sb.BlockSize))
	for g := uint32(0); g < sb.NumGroups; g++ {
		gd := c.GroupDescs[g]
		mark(gd.BlockBitmap)
		mark(gd.InodeBitmap)
		for k := uint64(0); k < tableBlocks; k++ {
			mark(gd.InodeTable + uint32(k))
		}
	}

	for i := uint32(1); i <= sb.NumInodes; i++ {
		if c.InodeRefs[i] == 0 {
			continue
		}
		in, err := c.ReadInode(i)
		if err != nil {
			return err
		}
		if err := c.WalkBlocks(in, func(b uint32, _ bool) error {
			mark(b)
			return nil
		}); err != nil {
			return err
		}
	}

	for g := uint32(0); g < sb.NumGroups; g++ {
		bm, err := c.readBlockBitmap(g)
		if err != nil {
			return err
		}
		groupStart := uint64(g) * uint64(sb.BlocksPerGroup)
		end := sb.BlocksPerGroup
		if remaining := uint64(sb.NumBlocks) - groupStart; uint64(end) > remaining {
			end = uint32(remaining)
		}

		changed := false
		for b := uint32(0); b < end; b++ {
			want := expected[groupStart+uint64(b)]
			got, err := bm.IsSet(int(b))
			if err != nil {
				return err
			}
			if want == got {
				continue
			}
			c.log.WithFields(logrus.Fields{
				"group": g,
				"block": groupStart + uint64(b),
				"want":  want,
			}).Warn("correcting block bitmap")
			if want {
				err = bm.Set(int(b))
			} else {
				err = bm.Clear(int(b))
			}
			if err != nil {
				return err
			}
			changed = true
		}
		if changed {
			if err := c.writeBlockBitmap(g, bm); err != nil {
				return err
			}
		}
	}
	return nil
}
