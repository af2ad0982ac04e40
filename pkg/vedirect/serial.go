package vedirect

import (
	"bufio"
	"time"

	"github.com/tarm/serial"
)

const (
	DefaultDevice      = "/dev/ttyUSB0"
	DefaultBaudRate    = 19200
	DefaultReadTimeout = 4 * time.Second
)

type serialLineSource struct {
	port   *serial.Port
	reader *bufio.Reader
}

// OpenSerialLineSource opens a serial device as a LineSource. The read timeout
// bounds every ReadLine call; it is the only bound on how long a Refresh can
// block waiting for the device.
func OpenSerialLineSource(device string, baud int, timeout time.Duration) (LineSource, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	return &serialLineSource{
		port:   port,
		reader: bufio.NewReader(port),
	}, nil
}

func (s *serialLineSource) ReadLine() ([]byte, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (s *serialLineSource) Close() error {
	return s.port.Close()
}
