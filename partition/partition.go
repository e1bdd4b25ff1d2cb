// Package partition resolves a 1-based partition index against an MBR (and,
// for logical partitions, its EBR chain) without depending on anything
// above it: it only ever reads the first sector of the image and the EBR
// sectors it is led to, via a backend.File.
package partition

import (
	"errors"
	"fmt"

	"github.com/fsimg/e2fsck/backend"
)

// SectorSize is the fixed 512-byte sector size this tool assumes, the same
// assumption the classic MBR/EBR layout itself makes.
const SectorSize = 512

// Type is the 8-bit MBR partition type byte.
type Type uint8

// Partition types this package cares about: the classic second-extended
// filesystem type, and the DOS-extended markers used to find the EBR chain.
const (
	TypeLinux           Type = 0x83
	TypeExtendedCHS     Type = 0x05
	TypeExtendedLBA     Type = 0x0F
	TypeExtendedLinux   Type = 0x85
	bootstrapTableStart      = 0x1BE
	entrySize                = 16
	typeOffset               = 0x04
	startSectorOffset        = 0x08
	lengthOffset             = 0x0C
)

// ErrPartitionNotFound is returned when the requested index has no entry in
// the primary table and, for n>=5, no extended primary or EBR chain leads
// to it.
var ErrPartitionNotFound = errors.New("partition not found")

// Partition is an immutable record of one partition's location, produced
// once per repair invocation.
type Partition struct {
	Index    int   // 1-based
	Type     Type  // 8-bit MBR type code
	StartSec uint32 // absolute start sector within the image
	Length   uint32 // length in sectors
}

// Base is the byte offset of this partition within the image.
func (p Partition) Base() int64 {
	return int64(p.StartSec) * SectorSize
}

// Size is the length of this partition in bytes.
func (p Partition) Size() int64 {
	return int64(p.Length) * SectorSize
}

// IsExtended reports whether this partition's type marks it as a DOS
// extended container rather than a filesystem-bearing partition.
func (p Partition) IsExtended() bool {
	return isExtendedType(p.Type)
}

// String renders the partition the way the CLI's -p flag reports it:
// "0xTT S L".
func (p Partition) String() string {
	return fmt.Sprintf("0x%02X %d %d", byte(p.Type), p.StartSec, p.Length)
}

func isExtendedType(t Type) bool {
	switch t {
	case TypeExtendedCHS, TypeExtendedLBA, TypeExtendedLinux:
		return true
	default:
		return false
	}
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func readSector(f backend.File, offset int64) ([]byte, error) {
	buf := make([]byte, SectorSize)
	n, err := f.ReadAt(buf, offset)
	if err != nil {
		return nil, fmt.Errorf("reading sector at %d: %w", offset, err)
	}
	if n != SectorSize {
		return nil, fmt.Errorf("read only %d bytes of sector at %d, wanted %d", n, offset, SectorSize)
	}
	return buf, nil
}

// parsePrimaryEntry reads the n'th (1-based, n in [1,4]) primary partition
// table entry out of an already-read MBR sector.
func parsePrimaryEntry(mbr []byte, n int) (Partition, error) {
	off := bootstrapTableStart + (n-1)*entrySize
	typ := Type(mbr[off+typeOffset])
	if typ == 0 {
		return Partition{}, ErrPartitionNotFound
	}
	start := le32(mbr[off+startSectorOffset : off+startSectorOffset+4])
	length := le32(mbr[off+lengthOffset : off+lengthOffset+4])
	return Partition{Index: n, Type: typ, StartSec: start, Length: length}, nil
}

// Resolve walks the MBR primary table for n<=4, or the EBR chain hanging
// off the first DOS-extended primary for n>=5, and returns the partition at
// index n. n is 1-based.
func Resolve(f backend.File, n int) (Partition, error) {
	if n < 1 {
		return Partition{}, fmt.Errorf("%w: partition index must be >= 1, got %d", ErrPartitionNotFound, n)
	}

	mbr, err := readSector(f, 0)
	if err != nil {
		return Partition{}, err
	}

	if n <= 4 {
		return parsePrimaryEntry(mbr, n)
	}

	var ebr0 uint32
	found := false
	for i := 1; i <= 4; i++ {
		pt, err := parsePrimaryEntry(mbr, i)
		if err != nil {
			continue
		}
		if pt.IsExtended() {
			ebr0 = pt.StartSec
			found = true
			break
		}
	}
	if !found {
		return Partition{}, fmt.Errorf("%w: no extended primary for logical partition %d", ErrPartitionNotFound, n)
	}

	hops := n - 5
	currentSector := ebr0
	for {
		ebr, err := readSector(f, int64(currentSector)*SectorSize)
		if err != nil {
			return Partition{}, err
		}
		entry0 := ebr[bootstrapTableStart : bootstrapTableStart+entrySize]
		entry1 := ebr[bootstrapTableStart+entrySize : bootstrapTableStart+2*entrySize]

		if hops == 0 {
			typ := Type(entry0[typeOffset])
			start := currentSector + le32(entry0[startSectorOffset:startSectorOffset+4])
			length := le32(entry0[lengthOffset : lengthOffset+4])
			return Partition{Index: n, Type: typ, StartSec: start, Length: length}, nil
		}

		next := le32(entry1[startSectorOffset : startSectorOffset+4])
		if next == 0 {
			return Partition{}, fmt.Errorf("%w: EBR chain ends before logical partition %d", ErrPartitionNotFound, n)
		}
		currentSector = ebr0 + next
		hops--
	}
}
