package e2fs

import (
	"encoding/binary"
	"fmt"
)

// directBlockCount is the number of direct pointers, i_block[0..11]; the
// other three constants are the i_block indices of the singly, doubly and
// triply indirect roots, walked at recursion depths 1, 2 and 3.
const (
	directBlockCount = 12
	singlyIndirect   = 12
	doublyIndirect   = 13
	triplyIndirect   = 14
)

// BlockVisitor is called once per block an inode's block tree touches.
// isData is true for blocks that hold file/directory content (the direct
// pointers, and the leaves of an indirect tree); it is false for the
// indirect-block roots themselves, which hold only pointers.
type BlockVisitor func(blockNum uint32, isData bool) error

// WalkBlocks visits every block reachable through in's direct and
// singly/doubly/triply indirect pointers. A fast symlink (spec: symlink
// type with size < 60) stores its target inside i_block and owns no data
// blocks, so its i_block entries are never dereferenced.
func (c *Context) WalkBlocks(in *Inode, visit BlockVisitor) error {
	if in.IsFastSymlink() {
		return nil
	}
	for i := 0; i < directBlockCount; i++ {
		b := in.Block[i]
		if b == 0 {
			continue
		}
		if err := visit(b, true); err != nil {
			return err
		}
	}
	if err := c.walkIndirect(in.Block[singlyIndirect], 1, visit); err != nil {
		return err
	}
	if err := c.walkIndirect(in.Block[doublyIndirect], 2, visit); err != nil {
		return err
	}
	if err := c.walkIndirect(in.Block[triplyIndirect], 3, visit); err != nil {
		return err
	}
	return nil
}

// walkIndirect visits the indirect root itself, then recurses one level per
// call frame — each frame reads its own pointer block, so buffers are never
// shared across levels the way the original C implementation's single
// reused buffer happened to be safe only because of its alternating access
// pattern.
func (c *Context) walkIndirect(block uint32, depth int, visit BlockVisitor) error {
	if block == 0 {
		return nil
	}
	if err := visit(block, false); err != nil {
		return err
	}
	ptrs, err := c.readBlockPointers(block)
	if err != nil {
		return err
	}
	for _, p := range ptrs {
		if p == 0 {
			continue
		}
		if depth == 1 {
			if err := visit(p, true); err != nil {
				return err
			}
			continue
		}
		if err := c.walkIndirect(p, depth-1, visit); err != nil {
			return err
		}
	}
	return nil
}

// readBlockPointers reads a block and interprets it as an array of
// little-endian 32-bit block indices.
func (c *Context) readBlockPointers(blockNum uint32) ([]uint32, error) {
	data, err := c.ReadBlock(blockNum)
	if err != nil {
		return nil, fmt.Errorf("reading indirect block %d: %w", blockNum, err)
	}
	count := len(data) / 4
	ptrs := make([]uint32, count)
	for i := range ptrs {
		ptrs[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return ptrs, nil
}

// dataBlocks collects, in order, every data-carrying block (as opposed to
// indirect-root metadata block) an inode's tree touches. Used to read
// directory contents and whole-file bytes.
func (c *Context) dataBlocks(in *Inode) ([]uint32, error) {
	var blocks []uint32
	err := c.WalkBlocks(in, func(b uint32, isData bool) error {
		if isData {
			blocks = append(blocks, b)
		}
		return nil
	})
	return blocks, err
}
