package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdio реализация IO поверх потоков процесса
type Stdio struct {
	in          *bufio.Reader
	out         io.Writer
	interactive func() bool
}

// NewStdio создает IO на os.Stdin/os.Stdout
func NewStdio() IO {
	return NewStdioWith(os.Stdin, os.Stdout, func() bool {
		return term.IsTerminal(int(os.Stdin.Fd()))
	})
}

// NewStdioWith создает IO на произвольных потоках.
// interactive сообщает, можно ли задавать вопросы пользователю.
func NewStdioWith(in io.Reader, out io.Writer, interactive func() bool) *Stdio {
	return &Stdio{
		in:          bufio.NewReader(in),
		out:         out,
		interactive: interactive,
	}
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	input, err := s.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// Confirm задает вопрос да/нет. Вне терминала возвращает ErrNotInteractive.
func (s *Stdio) Confirm(prompt string) (bool, error) {
	if s.interactive != nil && !s.interactive() {
		return false, ErrNotInteractive
	}

	answer, err := s.ReadInput(prompt + " [y/N]: ")
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
