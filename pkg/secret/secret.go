// Package secret handles the login passphrase: a read-once byte buffer with
// a bounded size, best-effort memory locking, and explicit wiping.
//
// The passphrase arrives on a single-use stream from the authentication
// hook. It must be consumed in full before anything else runs, must never
// be written anywhere, and should live in memory only as long as the
// key-load needs it.
package secret

import (
	"errors"
	"fmt"
	"io"
)

// MaxLen bounds how much of the input stream is accepted. Anything past it
// is a misbehaving caller, not a passphrase.
const MaxLen = 64 * 1024

// ErrEmpty reports that the input stream carried no passphrase at all.
var ErrEmpty = errors.New("secret: input stream was empty")

// ErrTooLong reports input exceeding MaxLen.
var ErrTooLong = errors.New("secret: input exceeds maximum length")

// Secret holds passphrase bytes until Zero is called. The bytes live in a
// single allocation for their whole lifetime.
type Secret struct {
	buf []byte // full allocation, locked where the platform supports it
	n   int
}

// ReadOnce consumes r to EOF (bounded by MaxLen) and returns the bytes as
// a Secret. The stream is read exactly once and in full; r is never
// re-read. The bytes are kept verbatim, trailing newline included, since
// the downstream key-load consumes the same framing the hook produced.
//
// The passphrase is read directly into one preallocated buffer that is
// locked before the first byte arrives; no intermediate copies are made,
// so the wipe in Zero covers everything the passphrase ever touched.
func ReadOnce(r io.Reader) (*Secret, error) {
	buf := make([]byte, MaxLen+1)

	// Best effort: on platforms that support it, keep the buffer out of
	// swap. Failure (e.g. RLIMIT_MEMLOCK) is not fatal.
	_ = lock(buf)

	discard := func() {
		wipe(buf)
		_ = unlock(buf)
	}

	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err == io.EOF {
			break
		}
		if err != nil {
			discard()
			return nil, fmt.Errorf("secret: reading input stream: %w", err)
		}
	}
	if n == 0 {
		discard()
		return nil, ErrEmpty
	}
	if n > MaxLen {
		discard()
		return nil, ErrTooLong
	}

	return &Secret{buf: buf, n: n}, nil
}

// Bytes exposes the passphrase for the duration of a capability call. The
// returned slice aliases the internal buffer and is invalid after Zero.
func (s *Secret) Bytes() []byte {
	if s.buf == nil {
		return nil
	}
	return s.buf[:s.n]
}

// Len reports the passphrase length in bytes.
func (s *Secret) Len() int {
	return s.n
}

// Zero wipes and releases the whole allocation. Safe to call more than
// once.
func (s *Secret) Zero() {
	if s.buf == nil {
		return
	}
	wipe(s.buf)
	_ = unlock(s.buf)
	s.buf = nil
	s.n = 0
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
