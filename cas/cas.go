// Package cas stores program images by content hash. Identical programs
// share one entry no matter how many names they are registered under.
package cas

import (
	"bytes"
	"fmt"
	"io"

	"github.com/bytebasic-dev/bytebasic/vm"
)

type CAS interface {
	Put(item Hashable) (Hash, error)
	Has(hash Hash) bool
	getValue(hash Hash) (bool, []byte, error)
}

type Serde interface {
	Serialize(w io.Writer) error
	Deserialize(r io.Reader) error
}

type Hashable interface {
	Serde
}

type Hash uint64

func (h Hash) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}

// Retrieve decodes the image stored under hash into a fresh stream.
func Retrieve(c CAS, hash Hash) (*vm.Bytecode, error) {
	has, data, err := c.getValue(hash)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("hash not found in CAS: %s", hash)
	}
	b := &vm.Bytecode{}
	if err := b.Deserialize(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("deserializing image %s: %w", hash, err)
	}
	return b, nil
}
