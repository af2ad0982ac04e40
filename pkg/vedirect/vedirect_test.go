package vedirect

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func decoderOverStream(t *testing.T, lines *[][]byte) *Decoder {
	t.Helper()
	d, err := CreateDecoder(func() (LineSource, error) {
		return &TestLineSource{Lines: *lines}, nil
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDecodeFullBlock(t *testing.T) {

	assert := assert.New(t)

	d, err := CreateTestDecoder()
	if err != nil {
		t.Fatal(err)
	}

	volts, err := d.BatteryVolts()
	assert.NoError(err)
	assert.Equal(12.66, volts, "battery volts")

	amps, err := d.BatteryAmps()
	assert.NoError(err)
	assert.Equal(0.5, amps, "battery amps")

	solarVolts, err := d.SolarVolts()
	assert.NoError(err)
	assert.Equal(45.0, solarVolts, "solar volts")

	solarPower, err := d.SolarPowerWatts()
	assert.NoError(err)
	assert.Equal(23.0, solarPower, "solar power")

	serial, err := d.DeviceSerial()
	assert.NoError(err)
	assert.Equal("HQ2132G8D2X", serial, "serial")

	mppt, err := d.MPPTState()
	assert.NoError(err)
	assert.Equal(MPPTActive, mppt, "mppt state")

	fw, err := d.FirmwareVersion()
	assert.NoError(err)
	assert.Equal("159", fw, "firmware")

	pid, err := d.ProductID()
	assert.NoError(err)
	assert.Equal("0xA056", pid, "product id")

	cs, err := d.ChargeState()
	assert.NoError(err)
	assert.Equal(3, cs, "charge state")

	errCode, err := d.ErrorCode()
	assert.NoError(err)
	assert.Equal(0, errCode, "error code")

	load, err := d.LoadState()
	assert.NoError(err)
	assert.Equal("ON", load, "load state")

	loadCurrent, err := d.LoadCurrentAmps()
	assert.NoError(err)
	assert.Equal(0.3, loadCurrent, "load current")

	totalYield, err := d.TotalYieldKWh()
	assert.NoError(err)
	assert.Equal(1234.0, totalYield, "total yield")

	maxToday, err := d.MaxPowerTodayWatts()
	assert.NoError(err)
	assert.Equal(85.0, maxToday, "max power today")

	day, err := d.DaySequence()
	assert.NoError(err)
	assert.Equal(123, day, "day sequence")
}

func TestAccessorIdempotence(t *testing.T) {

	assert := assert.New(t)

	d, err := CreateTestDecoder()
	if err != nil {
		t.Fatal(err)
	}

	first, err := d.BatteryVolts()
	assert.NoError(err)
	second, err := d.BatteryVolts()
	assert.NoError(err)
	assert.Equal(first, second, "same value without intervening refresh")
}

func TestChecksumRoundTrip(t *testing.T) {

	assert := assert.New(t)

	fields := [][2]string{
		{"PID", "0xA043"},
		{"V", "12660"},
		{"I", "500"},
	}
	block := BuildBlock(fields)
	assert.True(ChecksumValid(block), "built block sums to 0 mod 256")

	lines := StreamLines(block)
	d := decoderOverStream(t, &lines)

	snapshot := d.Snapshot()
	assert.Equal(len(fields), len(snapshot), "checksum line not merged")
	for _, f := range fields {
		assert.Equal(f[1], snapshot[f[0]], f[0])
	}
}

func TestChecksumRejectLeavesStateUnchanged(t *testing.T) {

	assert := assert.New(t)

	lines := StreamLines(BuildBlock([][2]string{{"PID", "0xA043"}, {"V", "12660"}}))
	d := decoderOverStream(t, &lines)
	before := d.Snapshot()

	corrupted := BuildBlock([][2]string{{"PID", "0xA043"}, {"V", "13000"}})
	corrupted[1][0] ^= 0xFF
	lines = StreamLines(corrupted)

	err := d.Refresh()
	assert.ErrorIs(err, ErrChecksum)
	assert.Equal(before, d.Snapshot(), "corrupted block not merged")
}

func TestResynchronization(t *testing.T) {

	assert := assert.New(t)

	// Noise before the first PID line must be discarded, including a torn
	// tail of a previous block.
	lines := append([][]byte{
		[]byte("60\r\n"),
		FieldLine("H20", "15"),
		FieldLine("Checksum", "x"),
	}, StreamLines(BuildBlock([][2]string{{"PID", "0xA043"}, {"V", "12660"}}))...)
	d := decoderOverStream(t, &lines)

	volts, err := d.BatteryVolts()
	assert.NoError(err)
	assert.Equal(12.66, volts)
	_, err = d.YieldTodayKWh()
	assert.ErrorIs(err, ErrMissingField, "discarded partial block not merged")
}

func TestDuplicateTagLastWins(t *testing.T) {

	assert := assert.New(t)

	lines := StreamLines(BuildBlock([][2]string{
		{"PID", "0xA043"},
		{"V", "11000"},
		{"V", "12660"},
	}))
	d := decoderOverStream(t, &lines)

	volts, err := d.BatteryVolts()
	assert.NoError(err)
	assert.Equal(12.66, volts)
}

func TestParseErrors(t *testing.T) {

	assert := assert.New(t)

	// A line without a tab separator fails the whole refresh.
	noTab := [][]byte{FieldLine("PID", "0xA043"), []byte("V12660\r\n")}
	noTab = append(noTab, ChecksumLine(noTab))
	lines := StreamLines(noTab)
	_, err := CreateDecoder(func() (LineSource, error) {
		return &TestLineSource{Lines: lines}, nil
	}, nil)
	assert.ErrorIs(err, ErrParse, "no tab")

	// So does one with two separators.
	twoTabs := [][]byte{FieldLine("PID", "0xA043"), []byte("V\t126\t60\r\n")}
	twoTabs = append(twoTabs, ChecksumLine(twoTabs))
	lines = StreamLines(twoTabs)
	_, err = CreateDecoder(func() (LineSource, error) {
		return &TestLineSource{Lines: lines}, nil
	}, nil)
	assert.ErrorIs(err, ErrParse, "two tabs")

	// Invalid UTF-8 in a non-checksum line.
	bad := [][]byte{FieldLine("PID", "0xA043"), append([]byte("V\t126"), 0xFF, 0xFE, '\r', '\n')}
	bad = append(bad, ChecksumLine(bad))
	lines = StreamLines(bad)
	_, err = CreateDecoder(func() (LineSource, error) {
		return &TestLineSource{Lines: lines}, nil
	}, nil)
	assert.ErrorIs(err, ErrParse, "invalid utf-8")
}

func TestMissingField(t *testing.T) {

	assert := assert.New(t)

	lines := StreamLines(BuildBlock([][2]string{{"PID", "0xA043"}, {"V", "12660"}}))
	d := decoderOverStream(t, &lines)

	_, err := d.LoadState()
	assert.ErrorIs(err, ErrMissingField)
	_, err = d.BatteryAmps()
	assert.ErrorIs(err, ErrMissingField)
	_, err = d.MPPTState()
	assert.ErrorIs(err, ErrMissingField)
}

func TestInvalidValues(t *testing.T) {

	assert := assert.New(t)

	lines := StreamLines(BuildBlock([][2]string{
		{"PID", "0xA043"},
		{"V", "twelve"},
		{"MPPT", "3"},
	}))
	d := decoderOverStream(t, &lines)

	_, err := d.BatteryVolts()
	assert.ErrorIs(err, ErrInvalidValue, "non-numeric mV value")

	_, err = d.MPPTState()
	assert.ErrorIs(err, ErrInvalidValue, "MPPT out of enum range")
}

func TestMergeAcrossRefreshes(t *testing.T) {

	assert := assert.New(t)

	lines := StreamLines(BuildBlock([][2]string{
		{"PID", "0xA043"},
		{"V", "11000"},
		{"H19", "1234"},
	}))
	d := decoderOverStream(t, &lines)

	// A later block without H19 must not erase it, and must overwrite V.
	lines = StreamLines(BuildBlock([][2]string{{"PID", "0xA043"}, {"V", "12660"}}))
	if err := d.Refresh(); err != nil {
		t.Fatal(err)
	}

	volts, err := d.BatteryVolts()
	assert.NoError(err)
	assert.Equal(12.66, volts, "overwritten by new block")
	totalYield, err := d.TotalYieldKWh()
	assert.NoError(err)
	assert.Equal(1234.0, totalYield, "stale tag survives merge")
}

func TestSourceClosedOnEveryPath(t *testing.T) {

	assert := assert.New(t)

	good := StreamLines(BuildBlock([][2]string{{"PID", "0xA043"}, {"V", "12660"}}))
	goodSrc := &TestLineSource{Lines: good}
	_, err := CreateDecoder(func() (LineSource, error) { return goodSrc, nil }, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(goodSrc.Closed, "closed after successful refresh")

	// Source runs dry before a full block: the IO error propagates and the
	// source is still released.
	drySrc := &TestLineSource{Lines: [][]byte{FieldLine("PID", "0xA043")}}
	swapped := false
	d, err := CreateDecoder(func() (LineSource, error) {
		if swapped {
			return drySrc, nil
		}
		swapped = true
		return &TestLineSource{Lines: good}, nil
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = d.Refresh()
	assert.ErrorIs(err, io.EOF)
	assert.True(drySrc.Closed, "closed after IO error")
}

func TestConstructionFailsOnFirstRefreshError(t *testing.T) {

	assert := assert.New(t)

	_, err := CreateDecoder(func() (LineSource, error) {
		return &TestLineSource{Lines: [][]byte{[]byte("garbage\r\n")}}, nil
	}, nil)
	assert.ErrorIs(err, io.EOF, "no PID line ever arrives")
}

func TestTelemetrySnapshot(t *testing.T) {

	assert := assert.New(t)

	d, err := CreateTestDecoder()
	if err != nil {
		t.Fatal(err)
	}

	tele, err := d.Telemetry()
	assert.NoError(err)
	if assert.NotNil(tele.BatteryVolts) {
		assert.Equal(12.66, *tele.BatteryVolts)
	}
	if assert.NotNil(tele.MPPTState) {
		assert.Equal(MPPTActive, *tele.MPPTState)
	}
	if assert.NotNil(tele.LoadState) {
		assert.Equal("ON", *tele.LoadState)
	}

	// A sparse block leaves absent fields nil instead of failing.
	lines := StreamLines(BuildBlock([][2]string{{"PID", "0xA043"}, {"V", "12660"}}))
	sparse := decoderOverStream(t, &lines)
	tele, err = sparse.Telemetry()
	assert.NoError(err)
	assert.NotNil(tele.BatteryVolts)
	assert.Nil(tele.LoadCurrentAmps)
	assert.Nil(tele.ChargeState)
}

func TestChargerInfo(t *testing.T) {

	assert := assert.New(t)

	d, err := CreateTestDecoder()
	if err != nil {
		t.Fatal(err)
	}

	info, err := d.Info()
	assert.NoError(err)
	assert.Equal("0xA056", info.ProductID)
	assert.Equal("SmartSolar MPPT 100/30", info.Model)
	assert.Equal("HQ2132G8D2X", info.Serial)
	assert.Equal("159", info.Firmware)
}

func TestStateStrings(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("Bulk", ChargeStateString(3))
	assert.Equal("Unknown (42)", ChargeStateString(42))
	assert.Equal("No error", ErrorString(0))
	assert.Equal("Battery voltage too high", ErrorString(2))
	assert.Equal("Active", MPPTActive.String())
	assert.Equal("0xFFFF", ProductName("0xFFFF"))
}
