package memory

import (
	"errors"

	"github.com/ezrec/chip8/translate"
)

var f = translate.From

var (
	// Memory errors
	ErrAddressOutOfRange = errors.New(f("address out of range"))
	ErrRomTooLarge       = errors.New(f("rom too large"))
)

// ErrAddress carries the faulting address.
type ErrAddress uint16

func (ea ErrAddress) Error() string {
	return f("address 0x%03x", uint16(ea))
}

func (ea ErrAddress) Is(err error) (ok bool) {
	_, ok = err.(ErrAddress)
	return
}
