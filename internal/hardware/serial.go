package hardware

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/tarm/serial"
)

// OpenPort opens a serial port with the given settings and flushes any
// stale input.
func OpenPort(device string, baud int, readTimeout time.Duration) (*serial.Port, error) {
	c := &serial.Config{Name: device, Baud: baud, ReadTimeout: readTimeout}
	p, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	_ = p.Flush()
	return p, nil
}

// ListSerialPorts finds likely serial/CDC device paths on the host.
func ListSerialPorts() []string {
	var globs []string
	switch runtime.GOOS {
	case "linux":
		globs = []string{"/dev/ttyACM*", "/dev/ttyUSB*", "/dev/serial*"}
	case "darwin":
		globs = []string{"/dev/tty.usbmodem*", "/dev/tty.usbserial*"}
	case "windows":
		var ports []string
		for i := 1; i <= 40; i++ {
			ports = append(ports, fmt.Sprintf("COM%d", i))
		}
		return ports
	default:
		globs = []string{"/dev/ttyACM*", "/dev/ttyUSB*"}
	}
	m := map[string]bool{}
	for _, g := range globs {
		ms, _ := filepath.Glob(g)
		for _, p := range ms {
			m[p] = true
		}
	}
	ports := make([]string, 0, len(m))
	for p := range m {
		ports = append(ports, p)
	}
	sort.Strings(ports)
	return ports
}
