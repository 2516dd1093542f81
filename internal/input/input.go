// Package input turns a raw terminal byte stream into per-frame key events.
package input

import (
	"bufio"
)

// Input holds the keys pressed since the previous ReadInput.
type Input struct {
	Quit   bool
	Space  bool
	Enter  bool
	Number int // Last digit pressed, -1 if none
	Closed bool // The underlying reader hit EOF or an error
}

// Stream delivers input bytes via a channel.
type Stream struct {
	ch     chan byte
	closed bool
}

// StartStream spawns a goroutine that reads from r and sends bytes to the stream.
func StartStream(r *bufio.Reader) *Stream {
	s := &Stream{ch: make(chan byte, 128)}
	go func() {
		for {
			b, err := r.ReadByte()
			if err != nil {
				close(s.ch)
				return
			}
			s.ch <- b
		}
	}()
	return s
}

// ReadInput drains all available bytes from the stream (non-blocking).
// Escape sequences (arrow keys and the like) are skipped.
func ReadInput(s *Stream) Input {
	in := Input{Number: -1, Closed: s.closed}
	var buf []byte

drain:
	for !s.closed {
		select {
		case b, ok := <-s.ch:
			if !ok {
				s.closed = true
				in.Closed = true
				break drain
			}
			buf = append(buf, b)
		default:
			break drain
		}
	}

	for i := 0; i < len(buf); i++ {
		b := buf[i]

		// CSI sequence: ESC [ <params> <final>
		if b == '\x1b' && i+1 < len(buf) && buf[i+1] == '[' {
			i += 2
			for i < len(buf) && (buf[i] < 0x40 || buf[i] > 0x7e) {
				i++
			}
			continue
		}

		applyByte(&in, b)
	}
	return in
}

// applyByte records a single key press.
func applyByte(in *Input, b byte) {
	switch b {
	case 'q', 'Q', '\x03': // q or Ctrl-C
		in.Quit = true
	case ' ':
		in.Space = true
	case '\n', '\r':
		in.Enter = true
	case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		in.Number = int(b - '0')
	}
}
