package hardware

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/spec-kit/checkpoint-capture/internal/domain"
)

// ZFM-style optical fingerprint sensor speaking the common UART packet
// protocol (0xEF01 framing, 0xFFFFFFFF broadcast address). The sensor owns
// the template store; this driver only sequences commands and maps
// confirmation codes.
const (
	zfmStartCode = 0xEF01
	zfmAddress   = 0xFFFFFFFF

	zfmPacketCommand = 0x01
	zfmPacketAck     = 0x07

	zfmCmdGenImg      = 0x01
	zfmCmdImg2Tz      = 0x02
	zfmCmdSearch      = 0x04
	zfmCmdRegModel    = 0x05
	zfmCmdStore       = 0x06
	zfmCmdDeleteChar  = 0x0C
	zfmCmdTemplateNum = 0x1D

	zfmOK          = 0x00
	zfmNoFinger    = 0x02
	zfmNoMatch     = 0x09
	zfmBadLocation = 0x0B
)

// ZFMSensor drives the sensor over an open serial transport.
type ZFMSensor struct {
	port io.ReadWriteCloser
}

// NewZFMSensor wraps an already-open transport.
func NewZFMSensor(port io.ReadWriteCloser) *ZFMSensor {
	return &ZFMSensor{port: port}
}

// CaptureImage asks the sensor for one frame. A no-finger confirmation is
// reported as captured=false, not as an error.
func (s *ZFMSensor) CaptureImage(ctx context.Context) (bool, error) {
	code, _, err := s.command(ctx, zfmCmdGenImg, nil)
	if err != nil {
		return false, err
	}
	switch code {
	case zfmOK:
		return true, nil
	case zfmNoFinger:
		return false, nil
	default:
		return false, confirmationError("GenImg", code)
	}
}

// ImageToTemplate converts the captured frame into the feature buffer.
func (s *ZFMSensor) ImageToTemplate(ctx context.Context, buffer int) error {
	code, _, err := s.command(ctx, zfmCmdImg2Tz, []byte{byte(buffer)})
	if err != nil {
		return err
	}
	if code != zfmOK {
		return confirmationError("Img2Tz", code)
	}
	return nil
}

// CreateModel fuses the two feature buffers into one template.
func (s *ZFMSensor) CreateModel(ctx context.Context) error {
	code, _, err := s.command(ctx, zfmCmdRegModel, nil)
	if err != nil {
		return err
	}
	if code != zfmOK {
		return confirmationError("RegModel", code)
	}
	return nil
}

// StoreModel persists the fused template at the given page.
func (s *ZFMSensor) StoreModel(ctx context.Context, slot domain.Slot) error {
	params := []byte{BufferFirst, 0x00, byte(slot)}
	code, _, err := s.command(ctx, zfmCmdStore, params)
	if err != nil {
		return err
	}
	if code != zfmOK {
		return confirmationError("Store", code)
	}
	return nil
}

// Search matches the first feature buffer against the whole template store.
func (s *ZFMSensor) Search(ctx context.Context) (domain.Match, bool, error) {
	params := []byte{BufferFirst, 0x00, 0x00, 0x00, byte(domain.SlotMax)}
	code, data, err := s.command(ctx, zfmCmdSearch, params)
	if err != nil {
		return domain.Match{}, false, err
	}
	switch code {
	case zfmOK:
		if len(data) < 4 {
			return domain.Match{}, false, fmt.Errorf("search ack too short: %d bytes", len(data))
		}
		page := binary.BigEndian.Uint16(data[0:2])
		score := binary.BigEndian.Uint16(data[2:4])
		return domain.Match{Slot: domain.Slot(page), Confidence: score}, true, nil
	case zfmNoMatch:
		return domain.Match{}, false, nil
	default:
		return domain.Match{}, false, confirmationError("Search", code)
	}
}

// TemplateCount reports how many templates the store holds.
func (s *ZFMSensor) TemplateCount(ctx context.Context) (int, error) {
	code, data, err := s.command(ctx, zfmCmdTemplateNum, nil)
	if err != nil {
		return 0, err
	}
	if code != zfmOK {
		return 0, confirmationError("TemplateNum", code)
	}
	if len(data) < 2 {
		return 0, fmt.Errorf("template count ack too short: %d bytes", len(data))
	}
	return int(binary.BigEndian.Uint16(data[0:2])), nil
}

// DeleteModel removes one stored template.
func (s *ZFMSensor) DeleteModel(ctx context.Context, slot domain.Slot) error {
	params := []byte{0x00, byte(slot), 0x00, 0x01}
	code, _, err := s.command(ctx, zfmCmdDeleteChar, params)
	if err != nil {
		return err
	}
	if code != zfmOK {
		return confirmationError("DeleteChar", code)
	}
	return nil
}

// Close releases the underlying transport.
func (s *ZFMSensor) Close() error {
	return s.port.Close()
}

// command writes one command packet and reads the ack packet. The serial
// read timeout bounds each read; ctx is checked between transfers so a
// cancelled operation stops at the next packet boundary.
func (s *ZFMSensor) command(ctx context.Context, instruction byte, params []byte) (byte, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	if err := s.writePacket(instruction, params); err != nil {
		return 0, nil, err
	}
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	return s.readAck()
}

func (s *ZFMSensor) writePacket(instruction byte, params []byte) error {
	payload := append([]byte{instruction}, params...)
	length := uint16(len(payload) + 2)

	buf := make([]byte, 0, 9+len(payload)+2)
	buf = binary.BigEndian.AppendUint16(buf, zfmStartCode)
	buf = binary.BigEndian.AppendUint32(buf, zfmAddress)
	buf = append(buf, zfmPacketCommand)
	buf = binary.BigEndian.AppendUint16(buf, length)
	buf = append(buf, payload...)

	var sum uint16 = zfmPacketCommand
	sum += length >> 8
	sum += length & 0xFF
	for _, b := range payload {
		sum += uint16(b)
	}
	buf = binary.BigEndian.AppendUint16(buf, sum)

	_, err := s.port.Write(buf)
	return err
}

func (s *ZFMSensor) readAck() (byte, []byte, error) {
	header := make([]byte, 9)
	if _, err := io.ReadFull(s.port, header); err != nil {
		return 0, nil, fmt.Errorf("read ack header: %w", err)
	}
	if binary.BigEndian.Uint16(header[0:2]) != zfmStartCode {
		return 0, nil, fmt.Errorf("bad start code %#x", header[0:2])
	}
	if binary.BigEndian.Uint32(header[2:6]) != zfmAddress {
		return 0, nil, fmt.Errorf("ack from unexpected address %#x", header[2:6])
	}
	if header[6] != zfmPacketAck {
		return 0, nil, fmt.Errorf("unexpected packet id %#x", header[6])
	}
	length := binary.BigEndian.Uint16(header[7:9])
	if length < 3 {
		return 0, nil, fmt.Errorf("ack length %d too short", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(s.port, body); err != nil {
		return 0, nil, fmt.Errorf("read ack body: %w", err)
	}
	// body = confirmation code, data..., checksum(2). The checksum covers
	// the packet id, the two length bytes, and the payload.
	var sum uint16 = zfmPacketAck
	sum += length >> 8
	sum += length & 0xFF
	for _, b := range body[:length-2] {
		sum += uint16(b)
	}
	if got := binary.BigEndian.Uint16(body[length-2:]); got != sum {
		return 0, nil, fmt.Errorf("ack checksum mismatch: got %#04x want %#04x", got, sum)
	}
	code := body[0]
	data := body[1 : length-2]
	return code, data, nil
}

func confirmationError(op string, code byte) error {
	return fmt.Errorf("%s: sensor confirmation %#02x", op, code)
}

// SerialSensorProvider opens the configured UART and hands out ZFM sensors,
// one session at a time by construction of the calling pattern.
type SerialSensorProvider struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
}

// AcquireSensor opens the transport and binds it to a session whose release
// closes the port.
func (p *SerialSensorProvider) AcquireSensor(ctx context.Context) (FingerprintSensor, *Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewSession(KindFingerprintSensor, nil), err
	}
	port, err := OpenPort(p.Device, p.Baud, p.ReadTimeout)
	if err != nil {
		return nil, NewSession(KindFingerprintSensor, nil), err
	}
	sensor := NewZFMSensor(port)
	return sensor, NewSession(KindFingerprintSensor, sensor.Close), nil
}
