package main

import "errors"

// Messages are bare JSON objects written back to back on the TCP stream, so
// a single read may contain several objects, half an object, or both. The
// splitter finds object boundaries by tracking nested-brace depth (quote and
// escape aware, since nicknames may contain braces) and keeps any trailing
// partial bytes for the next read.

const maxFrameBuffer = 64 * 1024

var (
	errUnbalancedFrame = errors.New("unbalanced closing brace in stream")
	errFrameTooLarge   = errors.New("frame exceeds buffer limit")
)

type streamSplitter struct {
	buf      []byte
	pos      int // next unscanned byte in buf
	start    int // offset of the current object's opening brace
	depth    int
	inString bool
	escaped  bool
}

// Feed appends freshly read bytes and returns every complete JSON object now
// available. Bytes between objects (stray whitespace) are discarded. A
// malformed stream returns an error; the caller drops the connection.
func (s *streamSplitter) Feed(data []byte) ([][]byte, error) {
	s.buf = append(s.buf, data...)

	var frames [][]byte
	for ; s.pos < len(s.buf); s.pos++ {
		c := s.buf[s.pos]
		if s.inString {
			switch {
			case s.escaped:
				s.escaped = false
			case c == '\\':
				s.escaped = true
			case c == '"':
				s.inString = false
			}
			continue
		}
		switch c {
		case '"':
			if s.depth > 0 {
				s.inString = true
			}
		case '{':
			if s.depth == 0 {
				s.start = s.pos
			}
			s.depth++
		case '}':
			s.depth--
			if s.depth < 0 {
				return nil, errUnbalancedFrame
			}
			if s.depth == 0 {
				frame := make([]byte, s.pos+1-s.start)
				copy(frame, s.buf[s.start:s.pos+1])
				frames = append(frames, frame)
			}
		}
	}

	// Compact the buffer: everything already emitted (or skipped) can go,
	// only an in-flight partial object is retained.
	if s.depth == 0 {
		s.buf = s.buf[:0]
		s.pos = 0
	} else {
		s.buf = append(s.buf[:0], s.buf[s.start:]...)
		s.pos = len(s.buf)
		s.start = 0
	}
	if len(s.buf) > maxFrameBuffer {
		return frames, errFrameTooLarge
	}
	return frames, nil
}
