package vm

import (
	"fmt"
	"io"
	"sort"
)

// List writes a human readable disassembly. Labels are shown on their own
// line ahead of the instruction they name.
func (b *Bytecode) List(w io.Writer) error {
	byAddr := make(map[int][]string)
	for name, l := range b.Labels {
		byAddr[l.Address] = append(byAddr[l.Address], name)
	}
	for addr, in := range b.Instructions {
		names := byAddr[addr]
		sort.Strings(names)
		for _, n := range names {
			if _, err := fmt.Fprintf(w, "%s:\n", n); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "  %04d: %s\n", addr, in); err != nil {
			return err
		}
	}
	return nil
}

// ProfileEntry is one row of the execution profile.
type ProfileEntry struct {
	Address int
	Count   uint64
	Inst    *Instruction
}

// Profile returns the executed instructions ordered by count, most first.
func (b *Bytecode) Profile() []ProfileEntry {
	var out []ProfileEntry
	for addr, in := range b.Instructions {
		if n := in.Executions(); n > 0 {
			out = append(out, ProfileEntry{Address: addr, Count: n, Inst: in})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// WriteProfile writes the profile as text.
func (b *Bytecode) WriteProfile(w io.Writer) error {
	for _, p := range b.Profile() {
		if _, err := fmt.Fprintf(w, "%10d  %04d: %s\n", p.Count, p.Address, p.Inst); err != nil {
			return err
		}
	}
	return nil
}
