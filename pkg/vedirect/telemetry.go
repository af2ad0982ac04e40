package vedirect

import "errors"

// ChargerInfo is the device identity decoded from the identification tags.
type ChargerInfo struct {
	ProductID string
	Model     string
	Serial    string
	Firmware  string
}

// Info returns the charger identity. The product ID is required; serial and
// firmware are filled when the firmware emits them.
func (d *Decoder) Info() (*ChargerInfo, error) {
	pid, err := d.ProductID()
	if err != nil {
		return nil, err
	}
	info := &ChargerInfo{
		ProductID: pid,
		Model:     ProductName(pid),
	}
	if serial, err := d.DeviceSerial(); err == nil {
		info.Serial = serial
	}
	if fw, err := d.FirmwareVersion(); err == nil {
		info.Firmware = fw
	}
	return info, nil
}

// Telemetry is one decoded snapshot of the electrical and history values.
// Nil fields were absent from every block seen so far; which tags a charger
// emits depends on model and firmware.
type Telemetry struct {
	BatteryVolts           *float64
	BatteryAmps            *float64
	SolarVolts             *float64
	SolarPowerWatts        *float64
	LoadState              *string
	LoadCurrentAmps        *float64
	MPPTState              *MPPTState
	ChargeState            *int
	ErrorCode              *int
	TotalYieldKWh          *float64
	YieldTodayKWh          *float64
	MaxPowerTodayWatts     *float64
	YieldYesterdayKWh      *float64
	MaxPowerYesterdayWatts *float64
	DaySequence            *int
}

// Telemetry projects the current mapping into a typed snapshot. A missing tag
// leaves its field nil; a present but unconvertible value is an error.
func (d *Decoder) Telemetry() (*Telemetry, error) {
	t := &Telemetry{}

	floats := []struct {
		dst *(*float64)
		get func() (float64, error)
	}{
		{&t.BatteryVolts, d.BatteryVolts},
		{&t.BatteryAmps, d.BatteryAmps},
		{&t.SolarVolts, d.SolarVolts},
		{&t.SolarPowerWatts, d.SolarPowerWatts},
		{&t.LoadCurrentAmps, d.LoadCurrentAmps},
		{&t.TotalYieldKWh, d.TotalYieldKWh},
		{&t.YieldTodayKWh, d.YieldTodayKWh},
		{&t.MaxPowerTodayWatts, d.MaxPowerTodayWatts},
		{&t.YieldYesterdayKWh, d.YieldYesterdayKWh},
		{&t.MaxPowerYesterdayWatts, d.MaxPowerYesterdayWatts},
	}
	for _, f := range floats {
		value, err := f.get()
		if err != nil {
			if errors.Is(err, ErrMissingField) {
				continue
			}
			return nil, err
		}
		*f.dst = &value
	}

	ints := []struct {
		dst *(*int)
		get func() (int, error)
	}{
		{&t.ChargeState, d.ChargeState},
		{&t.ErrorCode, d.ErrorCode},
		{&t.DaySequence, d.DaySequence},
	}
	for _, f := range ints {
		value, err := f.get()
		if err != nil {
			if errors.Is(err, ErrMissingField) {
				continue
			}
			return nil, err
		}
		*f.dst = &value
	}

	if load, err := d.LoadState(); err == nil {
		t.LoadState = &load
	} else if !errors.Is(err, ErrMissingField) {
		return nil, err
	}
	if mppt, err := d.MPPTState(); err == nil {
		t.MPPTState = &mppt
	} else if !errors.Is(err, ErrMissingField) {
		return nil, err
	}

	return t, nil
}
