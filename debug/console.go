package debug

import (
	"bufio"
	"io"
	"strings"
)

// Console is the debugger's terminal. It is separate from the session
// console so program output and debugger chatter can be told apart.
type Console interface {
	io.Writer
	ReadLine() (string, error)
}

type lineConsole struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsole reads commands from r and writes to w.
func NewConsole(r io.Reader, w io.Writer) Console {
	if r == nil {
		r = strings.NewReader("")
	}
	if w == nil {
		w = io.Discard
	}
	return &lineConsole{in: bufio.NewReader(r), out: w}
}

func (c *lineConsole) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

func (c *lineConsole) ReadLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
