package interp

import (
	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/rs/zerolog/log"
)

type HandlerKind int

const (
	Goto HandlerKind = iota
	Gosub
)

func (k HandlerKind) String() string {
	if k == Gosub {
		return "GOSUB"
	}
	return "GOTO"
}

// OnHandler is one ON ERROR binding.
type OnHandler struct {
	Label string
	Kind  HandlerKind
}

// OnFrame holds the handlers installed by one run of one stream.
type OnFrame struct {
	Description string
	Owner       *vm.Bytecode
	Handlers    map[status.Code]OnHandler
}

func (o *OnFrame) Set(code status.Code, h OnHandler) {
	o.Handlers[code] = h
}

func (o *OnFrame) Clear(code status.Code) {
	delete(o.Handlers, code)
}

// OnStack is the per-thread stack of active error handler frames.
type OnStack struct {
	frames []*OnFrame
}

func (s *OnStack) Push(description string, owner *vm.Bytecode) *OnFrame {
	f := &OnFrame{
		Description: description,
		Owner:       owner,
		Handlers:    make(map[status.Code]OnHandler),
	}
	s.frames = append(s.frames, f)
	log.Debug().Str("program", description).Int("depth", len(s.frames)).Msg("OnStack: push")
	return f
}

func (s *OnStack) Pop() {
	if len(s.frames) == 0 {
		return
	}
	s.frames = s.frames[:len(s.frames)-1]
	log.Debug().Int("depth", len(s.frames)).Msg("OnStack: pop")
}

func (s *OnStack) Depth() int {
	return len(s.frames)
}

// Top returns the frame belonging to owner, which must be the innermost.
func (s *OnStack) Top(owner *vm.Bytecode) (*OnFrame, bool) {
	if len(s.frames) == 0 {
		return nil, false
	}
	f := s.frames[len(s.frames)-1]
	if f.Owner != owner {
		return nil, false
	}
	return f, true
}

// Find looks for a handler for code, then for the wildcard.
func (s *OnStack) Find(owner *vm.Bytecode, code status.Code) (OnHandler, bool) {
	f, ok := s.Top(owner)
	if !ok {
		return OnHandler{}, false
	}
	if h, ok := f.Handlers[code]; ok {
		return h, true
	}
	h, ok := f.Handlers[status.Wildcard]
	return h, ok
}
