/*
Package metadata implements snake encoding of byte strings and off-chain
content pointers built on top of it.

Snake encoding stores an arbitrary long byte string in a chain of nodes: each
node holds up to ChunkSize bytes and references the node with the next chunk
as its first child. Decoding walks the chain from the head concatenating
payloads and stops at the first node with empty payload or without children.
*/
package metadata

import (
	"errors"
	"fmt"

	"github.com/crypto-pepe-dev/nft-minter/cell"
)

// ChunkSize is a number of bytes stored in a single node of the snake chain.
// Deployed programs expect this exact layout.
const ChunkSize = 127

// ErrNotByteAligned is returned when decoded chain carries partial bytes.
var ErrNotByteAligned = errors.New("snake payload is not byte-aligned")

// Encode splits data into chunks of ChunkSize bytes and returns head of the
// resulting chain. Empty data is encoded into a single empty node.
func Encode(data []byte) (*cell.Node, error) {
	var chunks [][]byte
	for len(data) > 0 {
		n := min(len(data), ChunkSize)
		chunks = append(chunks, data[:n])
		data = data[n:]
	}

	if len(chunks) == 0 {
		return cell.Empty(), nil
	}

	var next *cell.Node
	for i := len(chunks) - 1; i >= 0; i-- {
		var refs []*cell.Node
		if next != nil {
			refs = append(refs, next)
		}

		n, err := cell.Build(chunks[i], refs...)
		if err != nil {
			return nil, fmt.Errorf("build chunk #%d: %w", i, err)
		}

		next = n
	}

	return next, nil
}

// Decode concatenates payloads of the chain starting at n. Walking stops at
// the first node with empty payload, references of such node are ignored.
// Only the first reference of every node is followed.
func Decode(n *cell.Node) ([]byte, error) {
	var res cell.BitString

	for n != nil {
		if n.BitsLen() == 0 {
			break
		}

		res.AppendBits(n.Data(), n.BitsLen())

		if n.RefsNum() == 0 {
			break
		}

		n, _ = n.Ref(0)
	}

	if res.Len()%8 != 0 {
		return nil, fmt.Errorf("%w: %d bits", ErrNotByteAligned, res.Len())
	}

	return res.Bytes(), nil
}
