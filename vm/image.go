package vm

import (
	"fmt"
	"io"
	"sort"

	"github.com/shamaton/msgpack/v2"
)

// imageVersion is bumped whenever the binary layout changes.
const imageVersion = 1

type image struct {
	Version      int
	Name         string
	Linked       bool
	Protected    bool
	PopReturn    bool
	Labels       []Linkage
	Instructions []Instruction
}

// Serialize writes a binary image of the stream. Execution state and
// counters are not part of the image.
func (b *Bytecode) Serialize(w io.Writer) error {
	img := image{
		Version:   imageVersion,
		Name:      b.Name,
		Linked:    b.Linked,
		Protected: b.Protected,
		PopReturn: b.PopReturn,
	}
	for _, l := range b.Labels {
		img.Labels = append(img.Labels, l)
	}
	// Stable order keeps identical programs hashing identically.
	sort.Slice(img.Labels, func(i, j int) bool {
		if img.Labels[i].Address != img.Labels[j].Address {
			return img.Labels[i].Address < img.Labels[j].Address
		}
		return img.Labels[i].Label < img.Labels[j].Label
	})
	img.Instructions = make([]Instruction, len(b.Instructions))
	for i, in := range b.Instructions {
		img.Instructions[i] = *in
		img.Instructions[i].ExecCount = 0
	}
	return msgpack.MarshalWrite(w, img)
}

// Deserialize replaces b's contents with the image read from r.
func (b *Bytecode) Deserialize(r io.Reader) error {
	var img image
	if err := msgpack.UnmarshalRead(r, &img); err != nil {
		return err
	}
	if img.Version != imageVersion {
		return fmt.Errorf("image version %d, expected %d", img.Version, imageVersion)
	}
	*b = Bytecode{
		Name:      img.Name,
		Linked:    img.Linked,
		Protected: img.Protected,
		PopReturn: img.PopReturn,
		Labels:    make(map[string]Linkage, len(img.Labels)),
	}
	for _, l := range img.Labels {
		b.Labels[l.Label] = l
	}
	for i := range img.Instructions {
		in := img.Instructions[i]
		if !in.Op.Valid() {
			return fmt.Errorf("image %s: invalid opcode %d at %d", img.Name, in.Op, i)
		}
		b.Append(&in)
	}
	return nil
}
