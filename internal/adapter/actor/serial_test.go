package actor

import (
	"testing"
	"time"

	"vedirect2mqtt/internal/core/domain"
	"vedirect2mqtt/internal/util/actorutil"
	"vedirect2mqtt/pkg/vedirect"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGetDeviceInfoSerialActor(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewSerialActor(vedirect.CreateTestDecoder, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetDeviceInfoRequest{}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetDeviceInfoResponse)

	assert.False(resp.HasResponseError(), "no response error")
	assert.Equal("0xA056", resp.Charger.ProductID, "charger product id")
	assert.Equal("SmartSolar MPPT 100/30", resp.Charger.Model, "charger model")
	assert.Equal("HQ2132G8D2X", resp.Charger.Serial, "charger serial")
	assert.Equal("159", resp.Charger.Firmware, "charger firmware")

	context.Stop(pid)

	as.Shutdown()
}

func TestRefreshTelemetrySerialActor(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewSerialActor(vedirect.CreateTestDecoder, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.RefreshTelemetryRequest{}

	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.RefreshTelemetryResponse)

	assert.False(resp.HasResponseError(), "no response error")
	assert.NotNil(resp.Telemetry, "telemetry present")
	assert.InDelta(12.66, *resp.Telemetry.BatteryVolts, 0.001, "battery voltage")
	assert.InDelta(0.5, *resp.Telemetry.BatteryAmps, 0.001, "battery current")
	assert.InDelta(45.0, *resp.Telemetry.SolarVolts, 0.001, "solar voltage")
	assert.InDelta(23.0, *resp.Telemetry.SolarPowerWatts, 0.001, "solar power")
	assert.Equal(vedirect.MPPTActive, *resp.Telemetry.MPPTState, "mppt state")

	context.Stop(pid)

	as.Shutdown()
}

func TestGetTelemetrySerialActor(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewSerialActor(vedirect.CreateTestDecoder, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	// the decoder reads a block on construction, so a snapshot is available
	// without an explicit refresh
	result, err := context.RequestFuture(pid, domain.GetTelemetryRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetTelemetryResponse)

	assert.False(resp.HasResponseError(), "no response error")
	assert.NotNil(resp.Telemetry, "telemetry present")
	assert.InDelta(12.66, *resp.Telemetry.BatteryVolts, 0.001, "battery voltage")

	context.Stop(pid)

	as.Shutdown()
}
