package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"vedirect2mqtt/internal/core/domain"
	"vedirect2mqtt/pkg/vedirect"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE        = "bridge"
	SENSOR_ID_BATTERY_VOLTAGE     = "battery_voltage"
	SENSOR_ID_BATTERY_CURRENT     = "battery_current"
	SENSOR_ID_SOLAR_VOLTAGE       = "solar_voltage"
	SENSOR_ID_SOLAR_POWER         = "solar_power"
	SENSOR_ID_LOAD_STATE          = "load_state"
	SENSOR_ID_LOAD_CURRENT        = "load_current"
	SENSOR_ID_MPPT_STATE          = "mppt_state"
	SENSOR_ID_CHARGE_STATE        = "charge_state"
	SENSOR_ID_ERROR               = "charger_error"
	SENSOR_ID_YIELD_TOTAL         = "yield_total"
	SENSOR_ID_YIELD_TODAY         = "yield_today"
	SENSOR_ID_MAX_POWER_TODAY     = "max_power_today"
	SENSOR_ID_YIELD_YESTERDAY     = "yield_yesterday"
	SENSOR_ID_MAX_POWER_YESTERDAY = "max_power_yesterday"
	SENSOR_ID_DAY_SEQUENCE        = "day_sequence"

	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_CURRENT         = "current"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_POWER           = "power"
	DEVICE_CLASS_VOLTAGE         = "voltage"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
)

func BridgeDevice(baseTopic string) domain.Device {
	return domain.Device{
		Id:           fmt.Sprintf("vedirect2mqtt_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "vedirect2mqtt",
		Model:        "VE.Direct bridge",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("VE.Direct bridge %s", md5HashShort(baseTopic)),
	}
}

func ChargerDevice(info *vedirect.ChargerInfo) domain.Device {
	return domain.Device{
		Id:           fmt.Sprintf("ved_charger_%s", md5HashShort(info.Serial+info.ProductID)),
		Version:      info.Firmware,
		Manufacturer: "Victron Energy",
		Model:        info.Model,
		Name:         fmt.Sprintf("%s %s", info.Model, md5HashShort(info.Serial+info.ProductID)),
	}
}

// BridgeSensors describes the bridge's own connectivity sensor.
func BridgeSensors(bridgeDevice domain.Device) []domain.GenericSensor {
	return []domain.GenericSensor{
		{
			Device:         bridgeDevice,
			Id:             SENSOR_ID_BRIDGE_STATE,
			SensorType:     SENSOR_TYPE_BINARY,
			Name:           "Bridge state",
			DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
		},
	}
}

// ChargerSensors describes the sensors a charger exposes. Only fields present
// in the given snapshot are announced; which tags a charger emits depends on
// model and firmware.
func ChargerSensors(chargerDevice domain.Device, tele *vedirect.Telemetry) []domain.GenericSensor {

	var sensors []domain.GenericSensor

	addMeasurement := func(id, name, deviceClass, unit string) {
		sensors = append(sensors, domain.GenericSensor{
			Device:            chargerDevice,
			Id:                id,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              name,
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       deviceClass,
			UnitOfMeasurement: unit,
			UniqueId:          uniqueId(chargerDevice.Id, id),
		})
	}
	addText := func(id, name string) {
		sensors = append(sensors, domain.GenericSensor{
			Device:     chargerDevice,
			Id:         id,
			SensorType: SENSOR_TYPE_SENSOR,
			Name:       name,
			UniqueId:   uniqueId(chargerDevice.Id, id),
		})
	}

	if tele.BatteryVolts != nil {
		addMeasurement(SENSOR_ID_BATTERY_VOLTAGE, "Battery voltage", DEVICE_CLASS_VOLTAGE, "V")
	}
	if tele.BatteryAmps != nil {
		addMeasurement(SENSOR_ID_BATTERY_CURRENT, "Battery current", DEVICE_CLASS_CURRENT, "A")
	}
	if tele.SolarVolts != nil {
		addMeasurement(SENSOR_ID_SOLAR_VOLTAGE, "Solar voltage", DEVICE_CLASS_VOLTAGE, "V")
	}
	if tele.SolarPowerWatts != nil {
		addMeasurement(SENSOR_ID_SOLAR_POWER, "Solar power", DEVICE_CLASS_POWER, "W")
	}
	if tele.LoadState != nil {
		sensors = append(sensors, domain.GenericSensor{
			Device:     chargerDevice,
			Id:         SENSOR_ID_LOAD_STATE,
			SensorType: SENSOR_TYPE_BINARY,
			Name:       "Load output",
			UniqueId:   uniqueId(chargerDevice.Id, SENSOR_ID_LOAD_STATE),
		})
	}
	if tele.LoadCurrentAmps != nil {
		addMeasurement(SENSOR_ID_LOAD_CURRENT, "Load current", DEVICE_CLASS_CURRENT, "A")
	}
	if tele.MPPTState != nil {
		addText(SENSOR_ID_MPPT_STATE, "MPPT state")
	}
	if tele.ChargeState != nil {
		addText(SENSOR_ID_CHARGE_STATE, "Charge state")
	}
	if tele.ErrorCode != nil {
		sensors = append(sensors, domain.GenericSensor{
			Device:         chargerDevice,
			Id:             SENSOR_ID_ERROR,
			SensorType:     SENSOR_TYPE_SENSOR,
			Name:           "Charger error",
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(chargerDevice.Id, SENSOR_ID_ERROR),
		})
	}
	if tele.TotalYieldKWh != nil {
		sensors = append(sensors, domain.GenericSensor{
			Device:            chargerDevice,
			Id:                SENSOR_ID_YIELD_TOTAL,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              "Total yield",
			StateClass:        STATE_CLASS_TOTAL_INCREASING,
			DeviceClass:       DEVICE_CLASS_ENERGY,
			UnitOfMeasurement: "kWh",
			UniqueId:          uniqueId(chargerDevice.Id, SENSOR_ID_YIELD_TOTAL),
		})
	}
	if tele.YieldTodayKWh != nil {
		addMeasurement(SENSOR_ID_YIELD_TODAY, "Yield today", DEVICE_CLASS_ENERGY, "kWh")
	}
	if tele.MaxPowerTodayWatts != nil {
		addMeasurement(SENSOR_ID_MAX_POWER_TODAY, "Max power today", DEVICE_CLASS_POWER, "W")
	}
	if tele.YieldYesterdayKWh != nil {
		addMeasurement(SENSOR_ID_YIELD_YESTERDAY, "Yield yesterday", DEVICE_CLASS_ENERGY, "kWh")
	}
	if tele.MaxPowerYesterdayWatts != nil {
		addMeasurement(SENSOR_ID_MAX_POWER_YESTERDAY, "Max power yesterday", DEVICE_CLASS_POWER, "W")
	}
	if tele.DaySequence != nil {
		addText(SENSOR_ID_DAY_SEQUENCE, "Day sequence")
	}

	return sensors
}

// TelemetryToUpdateEvents converts a decoded snapshot to sensor update events.
// Absent fields produce no event.
func TelemetryToUpdateEvents(tele *vedirect.Telemetry) []domain.SensorUpdateEvent {

	var events []domain.SensorUpdateEvent

	addFloat := func(id string, value *float64, decimals uint) {
		if value == nil {
			return
		}
		events = append(events, domain.FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: id},
			Value:                  *value,
			Decimals:               decimals,
		})
	}
	addText := func(id string, value string) {
		events = append(events, domain.TextSensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: id},
			Value:                  value,
		})
	}

	addFloat(SENSOR_ID_BATTERY_VOLTAGE, tele.BatteryVolts, 2)
	addFloat(SENSOR_ID_BATTERY_CURRENT, tele.BatteryAmps, 3)
	addFloat(SENSOR_ID_SOLAR_VOLTAGE, tele.SolarVolts, 2)
	addFloat(SENSOR_ID_SOLAR_POWER, tele.SolarPowerWatts, 0)
	addFloat(SENSOR_ID_LOAD_CURRENT, tele.LoadCurrentAmps, 3)
	addFloat(SENSOR_ID_YIELD_TOTAL, tele.TotalYieldKWh, 2)
	addFloat(SENSOR_ID_YIELD_TODAY, tele.YieldTodayKWh, 2)
	addFloat(SENSOR_ID_MAX_POWER_TODAY, tele.MaxPowerTodayWatts, 0)
	addFloat(SENSOR_ID_YIELD_YESTERDAY, tele.YieldYesterdayKWh, 2)
	addFloat(SENSOR_ID_MAX_POWER_YESTERDAY, tele.MaxPowerYesterdayWatts, 0)

	if tele.LoadState != nil {
		events = append(events, domain.BinarySensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: SENSOR_ID_LOAD_STATE},
			Value:                  *tele.LoadState == "ON",
		})
	}
	if tele.MPPTState != nil {
		addText(SENSOR_ID_MPPT_STATE, tele.MPPTState.String())
	}
	if tele.ChargeState != nil {
		addText(SENSOR_ID_CHARGE_STATE, vedirect.ChargeStateString(*tele.ChargeState))
	}
	if tele.ErrorCode != nil {
		addText(SENSOR_ID_ERROR, vedirect.ErrorString(*tele.ErrorCode))
	}
	if tele.DaySequence != nil {
		addText(SENSOR_ID_DAY_SEQUENCE, fmt.Sprintf("%d", *tele.DaySequence))
	}

	return events
}

func uniqueId(deviceId, sensorId string) string {
	return fmt.Sprintf("%s_%s", deviceId, sensorId)
}

func md5HashShort(value string) string {
	hash := md5.Sum([]byte(value))
	return hex.EncodeToString(hash[:])[:8]
}
