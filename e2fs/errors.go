package e2fs

import "errors"

var (
	// ErrNotExt2 is returned when the superblock magic at partition offset
	// 1024+0x38 is not 0xEF53.
	ErrNotExt2 = errors.New("not a second-extended filesystem")
	// ErrNoSpaceInDirectory is returned by linkIntoLostFound when lost+found
	// has no room left in its last block to append an adopted orphan's
	// entry; pass 2 logs it and goes on to the next orphan.
	ErrNoSpaceInDirectory = errors.New("no space left in directory")
	// ErrNotFound is returned by name lookups (e.g. resolving lost+found).
	ErrNotFound = errors.New("not found")
	// ErrNotADirectory is returned when a directory walk is attempted on a
	// non-directory inode.
	ErrNotADirectory = errors.New("not a directory")
)
