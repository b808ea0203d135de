package iocli

import "errors"

// ErrNotInteractive подтверждение нельзя запросить: ввод не с терминала
var ErrNotInteractive = errors.New("confirmation required but input is not a terminal")

// IO ввод-вывод команд CLI
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	Confirm(prompt string) (bool, error)
	Write(p []byte) (n int, err error)
}
