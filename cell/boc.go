package cell

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// bocMagic prefixes generic bag-of-cells serialization.
var bocMagic = []byte{0xb5, 0xee, 0x9c, 0x72}

const (
	bocFlagIndex = 0x80
	bocFlagCRC   = 0x40
	bocSizeMask  = 0x07

	bocMaxSize = 4
)

var (
	// ErrInvalidBoC is returned on malformed bag-of-cells.
	ErrInvalidBoC = errors.New("invalid bag of cells")

	crcTable = crc32.MakeTable(crc32.Castagnoli)
)

// SerializeBoC encodes tree of nodes rooted at root in generic bag-of-cells
// format. Identical subtrees are stored once. If withCRC is set, CRC32-C
// checksum is appended.
func SerializeBoC(root *Node, withCRC bool) ([]byte, error) {
	if root == nil {
		return nil, ErrNilReference
	}

	order := topologicalOrder(root)

	index := make(map[util.Uint256]int, len(order))
	for i := range order {
		index[order[i].hash] = i
	}

	refSize := bytesFor(uint64(len(order)))

	var cells bytes.Buffer
	for _, n := range order {
		d1, d2 := n.descriptors()
		cells.WriteByte(d1)
		cells.WriteByte(d2)
		cells.Write(n.paddedData())

		for _, r := range n.refs {
			cells.Write(beUint(uint64(index[r.hash]), refSize))
		}
	}

	offSize := bytesFor(uint64(cells.Len()))

	var flags = byte(refSize)
	if withCRC {
		flags |= bocFlagCRC
	}

	w := io.NewBufBinWriter()
	w.WriteBytes(bocMagic)
	w.WriteB(flags)
	w.WriteB(byte(offSize))
	w.WriteBytes(beUint(uint64(len(order)), refSize))  // cells
	w.WriteBytes(beUint(1, refSize))                   // roots
	w.WriteBytes(beUint(0, refSize))                   // absent
	w.WriteBytes(beUint(uint64(cells.Len()), offSize)) // total cells size
	w.WriteBytes(beUint(0, refSize))                   // root index
	w.WriteBytes(cells.Bytes())
	if w.Err != nil {
		return nil, fmt.Errorf("write bag of cells: %w", w.Err)
	}

	res := w.Bytes()
	if withCRC {
		sum := crc32.Checksum(res, crcTable)
		res = append(res, byte(sum), byte(sum>>8), byte(sum>>16), byte(sum>>24))
	}

	return res, nil
}

// topologicalOrder returns unique nodes of the tree so that every node
// precedes all nodes it references. Root is always first.
func topologicalOrder(root *Node) []*Node {
	var (
		post    []*Node
		visited = make(map[util.Uint256]struct{})
		visit   func(*Node)
	)

	visit = func(n *Node) {
		if _, ok := visited[n.hash]; ok {
			return
		}
		visited[n.hash] = struct{}{}

		for i := len(n.refs) - 1; i >= 0; i-- {
			visit(n.refs[i])
		}

		post = append(post, n)
	}

	visit(root)

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}

	return post
}

// ParseBoC decodes bag-of-cells serialization and returns its first root.
func ParseBoC(data []byte) (*Node, error) {
	roots, err := ParseBoCRoots(data)
	if err != nil {
		return nil, err
	}

	return roots[0], nil
}

// ParseBoCRoots decodes bag-of-cells serialization and returns all roots.
// Only ordinary cells are supported.
func ParseBoCRoots(data []byte) ([]*Node, error) {
	if len(data) < len(bocMagic)+2 || !bytes.Equal(data[:len(bocMagic)], bocMagic) {
		return nil, fmt.Errorf("%w: unknown magic", ErrInvalidBoC)
	}

	flags := data[len(bocMagic)]
	if flags&bocFlagCRC != 0 {
		if len(data) < 4 {
			return nil, fmt.Errorf("%w: missing checksum", ErrInvalidBoC)
		}

		body, tail := data[:len(data)-4], data[len(data)-4:]
		sum := crc32.Checksum(body, crcTable)
		if tail[0] != byte(sum) || tail[1] != byte(sum>>8) || tail[2] != byte(sum>>16) || tail[3] != byte(sum>>24) {
			return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidBoC)
		}

		data = body
	}

	r := io.NewBinReaderFromBuf(data[len(bocMagic)+1:])

	refSize := int(flags & bocSizeMask)
	offSize := int(r.ReadB())
	if r.Err == nil && (refSize < 1 || refSize > bocMaxSize || offSize < 1 || offSize > 8) {
		return nil, fmt.Errorf("%w: unsupported sizes ref=%d offset=%d", ErrInvalidBoC, refSize, offSize)
	}

	var (
		cellsNum  = readBEUint(r, refSize)
		rootsNum  = readBEUint(r, refSize)
		absentNum = readBEUint(r, refSize)
		totalSize = readBEUint(r, offSize)
	)
	if r.Err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrInvalidBoC, r.Err)
	}

	if cellsNum == 0 || rootsNum == 0 || rootsNum > cellsNum || absentNum != 0 ||
		totalSize > uint64(len(data)) || cellsNum > totalSize/2 {
		return nil, fmt.Errorf("%w: inconsistent header (cells=%d roots=%d absent=%d size=%d)",
			ErrInvalidBoC, cellsNum, rootsNum, absentNum, totalSize)
	}

	rootIdx := make([]uint64, rootsNum)
	for i := range rootIdx {
		rootIdx[i] = readBEUint(r, refSize)
	}

	if flags&bocFlagIndex != 0 {
		r.ReadBytes(make([]byte, cellsNum*uint64(offSize)))
	}

	raw := make([]byte, totalSize)
	r.ReadBytes(raw)
	if r.Err != nil {
		return nil, fmt.Errorf("%w: cells: %w", ErrInvalidBoC, r.Err)
	}

	type rawCell struct {
		data []byte
		bits int
		refs []uint64
	}

	var (
		cr    = io.NewBinReaderFromBuf(raw)
		parts = make([]rawCell, cellsNum)
	)

	for i := range parts {
		d1, d2 := cr.ReadB(), cr.ReadB()
		if cr.Err != nil {
			return nil, fmt.Errorf("%w: cell #%d descriptors: %w", ErrInvalidBoC, i, cr.Err)
		}
		if d1&0x18 != 0 || d1>>5 != 0 {
			return nil, fmt.Errorf("%w: cell #%d is exotic, has stored hashes or non-zero level", ErrInvalidBoC, i)
		}

		refsNum := int(d1 & 0x07)
		if refsNum > MaxRefs {
			return nil, fmt.Errorf("%w: cell #%d has %d references", ErrInvalidBoC, i, refsNum)
		}

		c := rawCell{
			data: make([]byte, (int(d2)+1)/2),
			refs: make([]uint64, refsNum),
		}

		cr.ReadBytes(c.data)
		for j := range c.refs {
			c.refs[j] = readBEUint(cr, refSize)
		}
		if cr.Err != nil {
			return nil, fmt.Errorf("%w: cell #%d: %w", ErrInvalidBoC, i, cr.Err)
		}

		c.bits = len(c.data) * 8
		if d2%2 == 1 {
			last := c.data[len(c.data)-1]
			if last == 0 {
				return nil, fmt.Errorf("%w: cell #%d misses completion tag", ErrInvalidBoC, i)
			}

			for last&1 == 0 {
				last >>= 1
				c.bits--
			}
			c.bits--
		}

		parts[i] = c
	}

	nodes := make([]*Node, cellsNum)
	for i := len(parts) - 1; i >= 0; i-- {
		refs := make([]*Node, len(parts[i].refs))
		for j, idx := range parts[i].refs {
			if idx <= uint64(i) || idx >= cellsNum {
				return nil, fmt.Errorf("%w: cell #%d references #%d", ErrInvalidBoC, i, idx)
			}
			refs[j] = nodes[idx]
		}

		n, err := newNode(parts[i].data, parts[i].bits, refs)
		if err != nil {
			return nil, fmt.Errorf("%w: cell #%d: %w", ErrInvalidBoC, i, err)
		}

		nodes[i] = n
	}

	res := make([]*Node, len(rootIdx))
	for i, idx := range rootIdx {
		if idx >= cellsNum {
			return nil, fmt.Errorf("%w: root index %d out of range", ErrInvalidBoC, idx)
		}
		res[i] = nodes[idx]
	}

	return res, nil
}

// bytesFor returns minimum number of bytes to store v, at least 1.
func bytesFor(v uint64) int {
	n := 1
	for v >>= 8; v != 0; v >>= 8 {
		n++
	}

	return n
}

func beUint(v uint64, size int) []byte {
	res := make([]byte, size)
	for i := size - 1; i >= 0; i-- {
		res[i] = byte(v)
		v >>= 8
	}

	return res
}

func readBEUint(r *io.BinReader, size int) uint64 {
	var res uint64
	for i := 0; i < size; i++ {
		res = res<<8 | uint64(r.ReadB())
	}

	return res
}
