package actor

import (
	"fmt"
	"time"

	"vedirect2mqtt/internal/core/domain"
	"vedirect2mqtt/internal/util/actorutil"
	"vedirect2mqtt/pkg/vedirect"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

// DecoderProvider builds the VE.Direct decoder. Construction performs the
// initial refresh, so it runs inside the actor Started handler and a failure
// is left to the supervisor.
type DecoderProvider func() (*vedirect.Decoder, error)

type SerialActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	provider DecoderProvider
	decoder  *vedirect.Decoder
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewSerialActor(provider DecoderProvider, logger *zap.Logger) *SerialActor {
	act := &SerialActor{
		provider: provider,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_SERIAL, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *SerialActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *SerialActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("serial@starting started")
		decoder, err := state.provider()
		if err != nil {
			panic(err)
		}
		state.decoder = decoder
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("serial@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *SerialActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("serial@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SERIAL,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetDeviceInfoRequest:
		state.logger.Debug("serial@default: GetDeviceInfoRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		resp := state.getDeviceInfo()
		ctx.Send(sender, resp)
	case domain.GetTelemetryRequest:
		state.logger.Debug("serial@default: GetTelemetryRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		ctx.Send(sender, state.getTelemetry())
	case domain.RefreshTelemetryRequest:
		state.logger.Debug("serial@default: RefreshTelemetryRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.refreshTelemetry),
			mapTaskResult[domain.RefreshTelemetryResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.RefreshTelemetryResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(10 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingSerial)
	default:
		state.logger.Debug("serial@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *SerialActor) WaitingSerial(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("serial@waiting backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("serial@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *SerialActor) getDeviceInfo() domain.GetDeviceInfoResponse {
	info, err := a.decoder.Info()
	if err != nil {
		logger.Error(err)
		return domain.GetDeviceInfoResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	}
	return domain.GetDeviceInfoResponse{
		Charger: info,
	}
}

func (a *SerialActor) getTelemetry() domain.GetTelemetryResponse {
	tele, err := a.decoder.Telemetry()
	if err != nil {
		logger.Error(err)
		return domain.GetTelemetryResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	}
	return domain.GetTelemetryResponse{
		Telemetry: tele,
	}
}

// refreshTelemetry performs one blocking read of the serial device. It runs on
// a background task goroutine; the actor stashes everything else until the
// result comes back, so the decoder is never touched concurrently.
func (a *SerialActor) refreshTelemetry() (*domain.RefreshTelemetryResponse, error) {
	if err := a.decoder.Refresh(); err != nil {
		logger.Error(err)
		return nil, err
	}
	tele, err := a.decoder.Telemetry()
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.RefreshTelemetryResponse{
		Telemetry: tele,
	}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
