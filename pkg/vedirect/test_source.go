package vedirect

import "io"

// TestLineSource replays canned raw lines, then fails like a disconnected device.
type TestLineSource struct {
	Lines  [][]byte
	Closed bool
	pos    int
}

func (s *TestLineSource) ReadLine() ([]byte, error) {
	if s.pos >= len(s.Lines) {
		return nil, io.EOF
	}
	line := s.Lines[s.pos]
	s.pos++
	return line, nil
}

func (s *TestLineSource) Close() error {
	s.Closed = true
	return nil
}

// FieldLine renders one wire-format field line.
func FieldLine(tag, value string) []byte {
	return append([]byte(tag+"\t"+value), '\r', '\n')
}

// ChecksumLine computes the checksum carrier line for a block so that the byte
// sum of the whole block, carrier included, is 0 mod 256.
func ChecksumLine(lines [][]byte) []byte {
	carrier := []byte("Checksum\t")
	var sum byte
	for _, line := range lines {
		for _, c := range line {
			sum += c
		}
	}
	for _, c := range carrier {
		sum += c
	}
	sum += '\r' + '\n'
	carrier = append(carrier, -sum)
	return append(carrier, '\r', '\n')
}

// BuildBlock renders ordered tag/value pairs as a checksummed wire block.
func BuildBlock(fields [][2]string) [][]byte {
	var lines [][]byte
	for _, f := range fields {
		lines = append(lines, FieldLine(f[0], f[1]))
	}
	return append(lines, ChecksumLine(lines))
}

// StreamLines flattens blocks into a replayable line stream. The trailing
// "PID" line stands in for the start of the block that would follow on a real
// device; without it the reader could not tell the last block had ended.
func StreamLines(blocks ...[][]byte) [][]byte {
	var lines [][]byte
	for _, block := range blocks {
		lines = append(lines, block...)
	}
	return append(lines, FieldLine("PID", "0xA056"))
}

// TestBlockFields is a full snapshot of a SmartSolar MPPT 100/30 with load output.
var TestBlockFields = [][2]string{
	{"PID", "0xA056"},
	{"FW", "159"},
	{"SER#", "HQ2132G8D2X"},
	{"V", "12660"},
	{"I", "500"},
	{"VPV", "45000"},
	{"PPV", "23"},
	{"CS", "3"},
	{"MPPT", "2"},
	{"ERR", "0"},
	{"LOAD", "ON"},
	{"IL", "300"},
	{"H19", "1234"},
	{"H20", "15"},
	{"H21", "85"},
	{"H22", "12"},
	{"H23", "70"},
	{"HSDS", "123"},
}

// CreateTestDecoder builds a Decoder over a canned block stream. Each Refresh
// replays the same block.
func CreateTestDecoder() (*Decoder, error) {
	lines := StreamLines(BuildBlock(TestBlockFields))
	return CreateDecoder(func() (LineSource, error) {
		return &TestLineSource{Lines: lines}, nil
	}, nil)
}
