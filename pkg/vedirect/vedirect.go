package vedirect

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

var (
	// ErrChecksum is returned by Refresh when the byte sum of a block is not 0 mod 256.
	ErrChecksum = errors.New("vedirect: block checksum mismatch")
	// ErrParse is returned by Refresh when a field line is not valid UTF-8 or is not
	// a single tab-separated tag/value pair.
	ErrParse = errors.New("vedirect: malformed field line")
	// ErrMissingField is returned by an accessor when the requested tag has not been
	// seen in any decoded block. Some firmwares do not emit every tag.
	ErrMissingField = errors.New("vedirect: field not present")
	// ErrInvalidValue is returned by an accessor when a tag holds a value it cannot
	// convert (non-numeric text, enum out of range).
	ErrInvalidValue = errors.New("vedirect: invalid field value")
)

var (
	blockStartTag = []byte("PID")
	checksumTag   = []byte("Checksum")
)

// LineSource yields successive newline-terminated raw lines from a VE.Direct
// byte stream. ReadLine blocks up to the source's own read timeout and fails
// on timeout or disconnect.
type LineSource interface {
	ReadLine() ([]byte, error)
	Close() error
}

// LineSourceFactory opens a fresh LineSource. The decoder holds the source only
// for the duration of one Refresh.
type LineSourceFactory func() (LineSource, error)

// Decoder reads labeled telemetry blocks from a VE.Direct stream and keeps the
// last decoded tag/value mapping. The mapping is merged, not replaced, on each
// successful Refresh, so tags a firmware emits only occasionally stay readable.
//
// A Decoder is not safe for concurrent use; the caller serializes Refresh.
type Decoder struct {
	open   LineSourceFactory
	data   map[string]string
	logger *zap.Logger
}

// CreateDecoder builds a Decoder on the given line source factory and performs
// an initial Refresh. Construction fails if the first block cannot be decoded.
func CreateDecoder(open LineSourceFactory, logger *zap.Logger) (*Decoder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Decoder{
		open:   open,
		data:   make(map[string]string),
		logger: logger,
	}
	if err := d.Refresh(); err != nil {
		return nil, err
	}
	return d, nil
}

// CreateSerialDecoder builds a Decoder over a serial device. Zero values select
// the defaults (/dev/ttyUSB0, 19200 baud, 4s read timeout).
func CreateSerialDecoder(device string, baud int, timeout time.Duration, logger *zap.Logger) (*Decoder, error) {
	if device == "" {
		device = DefaultDevice
	}
	if baud == 0 {
		baud = DefaultBaudRate
	}
	if timeout == 0 {
		timeout = DefaultReadTimeout
	}
	return CreateDecoder(func() (LineSource, error) {
		return OpenSerialLineSource(device, baud, timeout)
	}, logger)
}

// Refresh reads exactly one block from the stream, validates its checksum and
// merges its fields into the mapping. On any error the mapping is left at its
// last successfully merged state. The line source is held only for the duration
// of the call and released on every exit path.
func (d *Decoder) Refresh() error {
	block, err := d.readBlock()
	if err != nil {
		return err
	}
	if !ChecksumValid(block) {
		return fmt.Errorf("%w: %d lines discarded", ErrChecksum, len(block))
	}
	fields, err := parseBlock(block)
	if err != nil {
		return err
	}
	for tag, value := range fields {
		d.data[tag] = value
	}
	d.logger.Debug("vedirect: block decoded", zap.Int("fields", len(fields)))
	return nil
}

// readBlock synchronizes on the product-ID sentinel and collects the raw lines
// of one block. Everything read before the first "PID" line is discarded
// unconditionally; that is what resynchronizes the decoder after a dropped or
// garbled line mid-stream. The "PID" line that opens the next block terminates
// this one and is not part of it.
func (d *Decoder) readBlock() (lines [][]byte, err error) {
	src, err := d.open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	// Wait for start of block.
	var discarded int
	for {
		line, err := src.ReadLine()
		if err != nil {
			return nil, err
		}
		if bytes.HasPrefix(line, blockStartTag) {
			lines = append(lines, line)
			break
		}
		discarded++
	}
	if discarded > 0 {
		d.logger.Debug("vedirect: resynchronized", zap.Int("lines_discarded", discarded))
	}

	// Slurp lines until the next block starts.
	for {
		line, err := src.ReadLine()
		if err != nil {
			return nil, err
		}
		if bytes.HasPrefix(line, blockStartTag) {
			return lines, nil
		}
		lines = append(lines, line)
	}
}

// ChecksumValid reports whether the byte sum of all raw lines of a block,
// terminators included, is 0 mod 256. The device picks the checksum byte so
// that a clean block always sums to 0.
func ChecksumValid(lines [][]byte) bool {
	var sum byte
	for _, line := range lines {
		for _, c := range line {
			sum += c
		}
	}
	return sum == 0
}

// parseBlock tokenizes the field lines of a validated block. The checksum
// carrier line holds no usable value and is skipped. A duplicate tag within
// one block overwrites the earlier occurrence.
func parseBlock(lines [][]byte) (map[string]string, error) {
	fields := make(map[string]string, len(lines))
	for _, line := range lines {
		if bytes.HasPrefix(line, checksumTag) {
			continue
		}
		if !utf8.Valid(line) {
			return nil, fmt.Errorf("%w: not valid UTF-8: %q", ErrParse, line)
		}
		text := strings.TrimRight(string(line), "\r\n \t")
		parts := strings.Split(text, "\t")
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrParse, text)
		}
		fields[parts[0]] = parts[1]
	}
	return fields, nil
}

// Snapshot returns a copy of the current tag/value mapping.
func (d *Decoder) Snapshot() map[string]string {
	out := make(map[string]string, len(d.data))
	for k, v := range d.data {
		out[k] = v
	}
	return out
}

func (d *Decoder) get(tag string) (string, error) {
	value, ok := d.data[tag]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, tag)
	}
	return value, nil
}

func (d *Decoder) floatField(tag string) (float64, error) {
	raw, err := d.get(tag)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, tag, raw)
	}
	return value, nil
}

func (d *Decoder) intField(tag string) (int, error) {
	raw, err := d.get(tag)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, tag, raw)
	}
	return value, nil
}

// milliField converts a mV or mA raw value to V or A.
func (d *Decoder) milliField(tag string) (float64, error) {
	value, err := d.floatField(tag)
	if err != nil {
		return 0, err
	}
	return value / 1000, nil
}

// BatteryVolts returns the battery voltage in Volts (tag "V", mV on the wire).
func (d *Decoder) BatteryVolts() (float64, error) {
	return d.milliField("V")
}

// BatteryAmps returns the battery charging current in Amps (tag "I", mA on the wire).
func (d *Decoder) BatteryAmps() (float64, error) {
	return d.milliField("I")
}

// SolarVolts returns the solar array voltage in Volts (tag "VPV", mV on the wire).
func (d *Decoder) SolarVolts() (float64, error) {
	return d.milliField("VPV")
}

// SolarPowerWatts returns the solar array power in Watts (tag "PPV").
func (d *Decoder) SolarPowerWatts() (float64, error) {
	return d.floatField("PPV")
}

// DeviceSerial returns the device serial number (tag "SER#").
func (d *Decoder) DeviceSerial() (string, error) {
	return d.get("SER#")
}

// MPPTState returns the tracker operating state (tag "MPPT").
func (d *Decoder) MPPTState() (MPPTState, error) {
	value, err := d.intField("MPPT")
	if err != nil {
		return 0, err
	}
	return MPPTStateFromValue(value)
}

// FirmwareVersion returns the firmware version string (tag "FW").
func (d *Decoder) FirmwareVersion() (string, error) {
	return d.get("FW")
}

// ProductID returns the product ID (tag "PID", e.g. "0xA056").
func (d *Decoder) ProductID() (string, error) {
	return d.get("PID")
}

// ChargeState returns the charger operating state code (tag "CS", 0-9).
func (d *Decoder) ChargeState() (int, error) {
	return d.intField("CS")
}

// ErrorCode returns the charger error code (tag "ERR", 0-119).
func (d *Decoder) ErrorCode() (int, error) {
	return d.intField("ERR")
}

// LoadState returns the load output state (tag "LOAD", "ON"/"OFF").
func (d *Decoder) LoadState() (string, error) {
	return d.get("LOAD")
}

// LoadCurrentAmps returns the load current in Amps (tag "IL", mA on the wire).
func (d *Decoder) LoadCurrentAmps() (float64, error) {
	return d.milliField("IL")
}

// TotalYieldKWh returns the lifetime yield in kWh (tag "H19").
func (d *Decoder) TotalYieldKWh() (float64, error) {
	return d.floatField("H19")
}

// YieldTodayKWh returns today's yield in kWh (tag "H20").
func (d *Decoder) YieldTodayKWh() (float64, error) {
	return d.floatField("H20")
}

// MaxPowerTodayWatts returns today's maximum power in Watts (tag "H21").
func (d *Decoder) MaxPowerTodayWatts() (float64, error) {
	return d.floatField("H21")
}

// YieldYesterdayKWh returns yesterday's yield in kWh (tag "H22").
func (d *Decoder) YieldYesterdayKWh() (float64, error) {
	return d.floatField("H22")
}

// MaxPowerYesterdayWatts returns yesterday's maximum power in Watts (tag "H23").
func (d *Decoder) MaxPowerYesterdayWatts() (float64, error) {
	return d.floatField("H23")
}

// DaySequence returns the day sequence number (tag "HSDS", 0-365).
func (d *Decoder) DaySequence() (int, error) {
	return d.intField("HSDS")
}
