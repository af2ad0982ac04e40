package mqtt

import (
	"testing"

	"vedirect2mqtt/internal/config"
	"vedirect2mqtt/internal/core/domain"
	"vedirect2mqtt/internal/events"

	"github.com/stretchr/testify/assert"
)

func testClient() *MQTTClient {
	cfg := &config.Config{
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "loremtopic",
		},
	}
	return CreateMQTTClient(cfg, OptsFromConfig(cfg), nil, nil)
}

func TestTopics(t *testing.T) {

	assert := assert.New(t)

	c := testClient()

	assert.Equal("loremtopic/bridge/state", c.BridgeStateTopic(), "bridge state topic")
	assert.Equal("loremtopic/sensor/battery_voltage/state", c.SensorStateTopic("battery_voltage"), "sensor topic")
	assert.Equal("loremtopic/binary_sensor/load_state/state", c.BinarySensorStateTopic("load_state"), "binary sensor topic")
}

func TestWillTopic(t *testing.T) {

	assert := assert.New(t)

	cfg := &config.Config{
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "loremtopic",
		},
	}
	opts := OptsFromConfig(cfg)

	assert.Equal("loremtopic/bridge/state", opts.WillTopic, "LWT topic")
	assert.Equal(MQTT_PAYLOAD_OFFLINE, string(opts.WillPayload), "LWT payload")
	assert.True(opts.WillRetained, "LWT retained")
}

func TestSensorDiscoveryMessage(t *testing.T) {

	assert := assert.New(t)

	c := testClient()
	sensor := domain.GenericSensor{
		Device:            domain.Device{Id: "ved_charger_abc"},
		Id:                events.SENSOR_ID_BATTERY_VOLTAGE,
		SensorType:        events.SENSOR_TYPE_SENSOR,
		Name:              "Battery voltage",
		StateClass:        events.STATE_CLASS_MEASUREMENT,
		DeviceClass:       events.DEVICE_CLASS_VOLTAGE,
		UnitOfMeasurement: "V",
		UniqueId:          "ved_charger_abc_battery_voltage",
	}

	msg := GenericSensorToHADiscoveryMessage(c, sensor)

	assert.Equal("loremtopic/sensor/battery_voltage/state", msg.StateTopic, "state topic")
	assert.Equal("loremtopic/bridge/state", msg.AvTopic, "availability topic")
	assert.Equal("V", msg.UnitOfMeasurement)
	assert.Equal("mqtt", msg.Platform)
	assert.Empty(msg.PayloadOn, "plain sensor has no payloads")

	topic := HADiscoverySensorTopic("homeassistant", sensor)
	assert.Equal("homeassistant/sensor/ved_charger_abc/battery_voltage/config", topic, "discovery topic")
}

func TestBinarySensorDiscoveryMessage(t *testing.T) {

	assert := assert.New(t)

	c := testClient()
	sensor := domain.GenericSensor{
		Device:     domain.Device{Id: "ved_charger_abc"},
		Id:         events.SENSOR_ID_LOAD_STATE,
		SensorType: events.SENSOR_TYPE_BINARY,
		Name:       "Load output",
		UniqueId:   "ved_charger_abc_load_state",
	}

	msg := GenericSensorToHADiscoveryMessage(c, sensor)

	assert.Equal("loremtopic/binary_sensor/load_state/state", msg.StateTopic, "state topic")
	assert.Equal(MQTT_PAYLOAD_ON, msg.PayloadOn)
	assert.Equal(MQTT_PAYLOAD_OFF, msg.PayloadOff)
}

func TestBridgeDiscoveryMessage(t *testing.T) {

	assert := assert.New(t)

	c := testClient()
	bridge := events.BridgeSensors(events.BridgeDevice("loremtopic"))[0]

	msg := GenericSensorToHADiscoveryMessage(c, bridge)

	assert.Equal("loremtopic/bridge/state", msg.StateTopic, "bridge sensor state topic")
	assert.Equal(MQTT_PAYLOAD_ONLINE, msg.PayloadOn)
	assert.Equal(MQTT_PAYLOAD_OFFLINE, msg.PayloadOff)
}
