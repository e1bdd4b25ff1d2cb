package e2fs

import (
	"encoding/binary"
	"fmt"
)

const (
	direntHeaderSize = 8 // inode(4) + rec_len(2) + name_len(1) + file_type(1)

	direntOffInode    = 0
	direntOffRecLen   = 4
	direntOffNameLen  = 6
	direntOffFileType = 7
	direntOffName     = 8
)

// DirEntry is one parsed directory entry. Offset is its byte offset within
// the block it was parsed from, needed to patch fields in place.
type DirEntry struct {
	Inode    uint32
	RecLen   uint16
	NameLen  uint8
	FileType uint8
	Name     string
	Offset   int
}

// align4 rounds n up to the next multiple of 4.
func align4(n int) int {
	return (n + 3) &^ 3
}

// minDirentFootprint is the smallest a directory entry with this many name
// bytes can be: header plus the 4-byte-aligned name.
func minDirentFootprint(nameLen int) int {
	return direntHeaderSize + align4(nameLen)
}

// parseDirEntries chains rec_len-linked directory entries out of one block
// until the running offset reaches blockSize (invariant: the chain ends
// exactly at the block boundary).
func parseDirEntries(block []byte, blockSize uint32) ([]DirEntry, error) {
	var entries []DirEntry
	offset := 0
	for offset < int(blockSize) {
		if offset+direntHeaderSize > len(block) {
			return nil, fmt.Errorf("directory entry header runs past end of block at offset %d", offset)
		}
		inode := binary.LittleEndian.Uint32(block[offset+direntOffInode:])
		recLen := binary.LittleEndian.Uint16(block[offset+direntOffRecLen:])
		nameLen := block[offset+direntOffNameLen]
		ft := block[offset+direntOffFileType]
		if recLen == 0 {
			return nil, fmt.Errorf("zero rec_len at offset %d", offset)
		}
		nameEnd := offset + direntOffName + int(nameLen)
		if nameEnd > len(block) {
			return nil, fmt.Errorf("directory entry name runs past end of block at offset %d", offset)
		}
		name := string(block[offset+direntOffName : nameEnd])
		entries = append(entries, DirEntry{
			Inode:    inode,
			RecLen:   recLen,
			NameLen:  nameLen,
			FileType: ft,
			Name:     name,
			Offset:   offset,
		})
		offset += int(recLen)
	}
	if offset != int(blockSize) {
		return nil, fmt.Errorf("directory entry chain ends at offset %d, want exactly %d", offset, blockSize)
	}
	return entries, nil
}

// serializeDirEntry renders the header + name bytes of an entry. It does
// not include any trailing padding up to rec_len; callers that need the
// padding zeroed write into an already-zeroed destination block.
func serializeDirEntry(e DirEntry) []byte {
	buf := make([]byte, direntHeaderSize+len(e.Name))
	binary.LittleEndian.PutUint32(buf[direntOffInode:], e.Inode)
	binary.LittleEndian.PutUint16(buf[direntOffRecLen:], e.RecLen)
	buf[direntOffNameLen] = e.NameLen
	buf[direntOffFileType] = e.FileType
	copy(buf[direntOffName:], e.Name)
	return buf
}
