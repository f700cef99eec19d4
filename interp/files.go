package interp

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/bytebasic-dev/bytebasic/status"
)

// Console is the FileHandle bound to id 0 of every session.
type Console struct {
	in  *bufio.Reader
	out io.Writer
	eof bool
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{out: out}
	if in != nil {
		c.in = bufio.NewReader(in)
	}
	return c
}

func (c *Console) ReadLine() (string, error) {
	if c.in == nil {
		c.eof = true
		return "", io.EOF
	}
	return readLine(c.in, &c.eof)
}

func (c *Console) Write(s string) error {
	if c.out == nil {
		return nil
	}
	_, err := io.WriteString(c.out, s)
	return err
}

func (c *Console) SeekTo(int64) error {
	return status.New(status.BadFileMode, "CONSOLE")
}

func (c *Console) EOF() bool {
	return c.eof
}

func (c *Console) Close() error {
	return nil
}

func readLine(r *bufio.Reader, eof *bool) (string, error) {
	line, err := r.ReadString('\n')
	if errors.Is(err, io.EOF) {
		*eof = true
		if line == "" {
			return "", io.EOF
		}
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// OSFiles opens files from the local file system.
type OSFiles struct{}

func (OSFiles) Open(name string, mode FileMode) (FileHandle, error) {
	var (
		f   *os.File
		err error
	)
	switch mode {
	case ModeInput:
		f, err = os.Open(name)
	case ModeOutput:
		f, err = os.Create(name)
	case ModeAppend:
		f, err = os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, status.Wrap(status.NoSuchFile, err, name)
	}
	if err != nil {
		return nil, err
	}
	h := &osFile{f: f, mode: mode}
	if mode == ModeInput {
		h.r = bufio.NewReader(f)
	}
	return h, nil
}

type osFile struct {
	f    *os.File
	r    *bufio.Reader
	mode FileMode
	eof  bool
}

func (h *osFile) ReadLine() (string, error) {
	if h.r == nil {
		return "", status.New(status.BadFileMode, h.mode.String())
	}
	return readLine(h.r, &h.eof)
}

func (h *osFile) Write(s string) error {
	if h.mode == ModeInput {
		return status.New(status.BadFileMode, h.mode.String())
	}
	_, err := h.f.WriteString(s)
	return err
}

func (h *osFile) SeekTo(pos int64) error {
	if _, err := h.f.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	h.eof = false
	if h.r != nil {
		h.r.Reset(h.f)
	}
	return nil
}

func (h *osFile) EOF() bool {
	if h.eof || h.r == nil {
		return h.eof
	}
	if _, err := h.r.Peek(1); err != nil {
		h.eof = true
	}
	return h.eof
}

func (h *osFile) Close() error {
	return h.f.Close()
}
