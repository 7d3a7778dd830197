package hardware

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// SerialTokenReader drives a UART proximity reader module with a simple
// line protocol: a read command returns the tag payload as one line when a
// tag is in the field, a write command stores a payload on the tag and
// answers OK. An empty response within the read timeout means no tag.
type SerialTokenReader struct {
	port io.ReadWriteCloser
	br   *bufio.Reader
}

var (
	tokenReadCommand  = []byte{0x02, 0x20}
	tokenWriteCommand = []byte{0x02, 0x21}
)

// NewSerialTokenReader wraps an already-open transport.
func NewSerialTokenReader(port io.ReadWriteCloser) *SerialTokenReader {
	return &SerialTokenReader{port: port, br: bufio.NewReader(port)}
}

// Probe issues one read command and waits up to the transport's read
// timeout for a payload line. No data inside that window is reported as
// no tag present, not as an error.
func (r *SerialTokenReader) Probe(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if _, err := r.port.Write(tokenReadCommand); err != nil {
		return "", false, fmt.Errorf("send read command: %w", err)
	}
	line, err := r.br.ReadString('\n')
	if err != nil {
		if len(strings.TrimSpace(line)) == 0 {
			// Read timeout with nothing in the field.
			return "", false, nil
		}
		return "", false, fmt.Errorf("read tag payload: %w", err)
	}
	payload := strings.TrimSpace(line)
	if payload == "" {
		return "", false, nil
	}
	return payload, true, nil
}

// Write stores data on the tag currently in the field.
func (r *SerialTokenReader) Write(ctx context.Context, data string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame := append(append([]byte{}, tokenWriteCommand...), []byte(data+"\n")...)
	if _, err := r.port.Write(frame); err != nil {
		return fmt.Errorf("send write command: %w", err)
	}
	line, err := r.br.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read write ack: %w", err)
	}
	if strings.TrimSpace(line) != "OK" {
		return fmt.Errorf("reader rejected write: %q", strings.TrimSpace(line))
	}
	return nil
}

// Close releases the underlying transport.
func (r *SerialTokenReader) Close() error {
	return r.port.Close()
}

// SerialTokenProvider opens the configured UART and hands out token readers.
type SerialTokenProvider struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
}

// AcquireTokenReader opens the transport and binds it to a session whose
// release closes the port.
func (p *SerialTokenProvider) AcquireTokenReader(ctx context.Context) (TokenReader, *Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewSession(KindTokenReader, nil), err
	}
	port, err := OpenPort(p.Device, p.Baud, p.ReadTimeout)
	if err != nil {
		return nil, NewSession(KindTokenReader, nil), err
	}
	reader := NewSerialTokenReader(port)
	return reader, NewSession(KindTokenReader, reader.Close), nil
}
