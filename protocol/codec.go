package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// MaxLineBytes is the largest message line either side will accept.
// Oversized driver output is summarized before encoding, so a line beyond
// this limit indicates a broken peer rather than a large result.
const MaxLineBytes = 16 << 20

// Writer encodes messages onto one side of the duplex stream.
//
// Contract:
// - Concurrency: safe for concurrent use; writes are serialized whole-line.
// - Errors: encode failures wrap ErrMalformed; I/O errors pass through.
type Writer struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewWriter wraps w in a line-oriented message writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteCommand encodes one Command line.
func (w *Writer) WriteCommand(c Command) error {
	return w.writeLine(c)
}

// WriteResponse encodes one Response line after validating its shape.
func (w *Writer) WriteResponse(r Response) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return w.writeLine(r)
}

// WriteReply encodes one Reply line.
func (w *Writer) WriteReply(r Reply) error {
	return w.writeLine(r)
}

func (w *Writer) writeLine(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrMalformed, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Reader decodes messages from one side of the duplex stream.
//
// Contract:
// - Concurrency: not safe for concurrent use; the protocol is single-flight.
// - Errors: io.EOF passes through untouched (orderly shutdown signal);
//   malformed or out-of-order lines wrap ErrMalformed.
type Reader struct {
	s *bufio.Scanner
}

// NewReader wraps r in a line-oriented message reader.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), MaxLineBytes)
	return &Reader{s: s}
}

// ReadCommand decodes the next line as a Command.
func (r *Reader) ReadCommand() (Command, error) {
	var c Command
	if err := r.readLine(&c); err != nil {
		return Command{}, err
	}
	return c, nil
}

// ReadResponse decodes the next line as a Response.
func (r *Reader) ReadResponse() (Response, error) {
	var resp Response
	if err := r.readLine(&resp); err != nil {
		return Response{}, err
	}
	if err := resp.Validate(); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// ReadReply decodes the next line as a Reply.
func (r *Reader) ReadReply() (Reply, error) {
	var rep Reply
	if err := r.readLine(&rep); err != nil {
		return Reply{}, err
	}
	return rep, nil
}

func (r *Reader) readLine(v any) error {
	if !r.s.Scan() {
		if err := r.s.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return io.EOF
	}
	line := bytes.TrimSpace(r.s.Bytes())
	if len(line) == 0 {
		return fmt.Errorf("%w: empty line", ErrMalformed)
	}
	dec := json.NewDecoder(bytes.NewReader(line))
	// Unknown fields catch messages of the wrong kind arriving out of order,
	// not just corrupt ones.
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
