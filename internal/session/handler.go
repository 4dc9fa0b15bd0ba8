// Package session owns one conversational session with the speech model
// per media websocket connection. It relays audio in both directions,
// interprets model control events, and dispatches tool calls.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"voicebridge-backend/internal/acs"
	"voicebridge-backend/internal/realtime"
	"voicebridge-backend/pkg/logger"
	"voicebridge-backend/pkg/metrics"
)

// State is the session lifecycle state
type State int32

const (
	StateInitialized State = iota
	StateSessionStarted
	StateStreaming
	StateFunctionCallPending
	StateClosed
)

// ModelConn is the bidirectional channel to the speech model
type ModelConn interface {
	UpdateSession(session realtime.SessionUpdate) error
	CreateConversationItem(item realtime.ConversationItem) error
	AppendInputAudio(audio string) error
	CreateResponse() error
	ReadEvent() (realtime.ServerEvent, error)
	Close() error
}

// MediaSender is the caller-facing channel (the media websocket)
type MediaSender interface {
	SendFrame(frame acs.OutboundFrame) error
}

// ToolInvoker executes model-invoked tool calls against collaborators
type ToolInvoker interface {
	GetTicket(ctx context.Context, ticketID string) (string, error)
	CreateTicket(ctx context.Context, description string) (string, error)
	EndCall(ctx context.Context) (string, error)
}

const welcomePrompt = "Hi! What's your name and who do you work for?"

// Handler relays audio between the caller-facing channel and the model
// session. Model events are processed one at a time on a single
// goroutine; caller audio arrives on the websocket-receive goroutine.
// The two shared flags (welcomed, interrupted) are atomics because the
// loops interleave.
type Handler struct {
	model   ModelConn
	media   MediaSender
	tools   ToolInvoker
	metrics *metrics.Metrics

	state       atomic.Int32
	welcomed    atomic.Bool
	interrupted atomic.Bool

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a handler for one media connection
func New(model ModelConn, media MediaSender, tools ToolInvoker, m *metrics.Metrics) *Handler {
	return &Handler{
		model:   model,
		media:   media,
		tools:   tools,
		metrics: m,
		done:    make(chan struct{}),
	}
}

// State returns the current lifecycle state
func (h *Handler) State() State {
	return State(h.state.Load())
}

// Done is closed when the model event loop exits
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Start configures the model session, requests the first response, and
// spawns the model event loop.
func (h *Handler) Start(ctx context.Context) error {
	if !h.state.CompareAndSwap(int32(StateInitialized), int32(StateSessionStarted)) {
		return ErrAlreadyStarted
	}

	if err := h.model.UpdateSession(realtime.DefaultSessionConfig()); err != nil {
		return err
	}
	if err := h.model.CreateResponse(); err != nil {
		return err
	}

	go h.eventLoop(ctx)
	return nil
}

// eventLoop receives model events one at a time, in emission order.
// Per-event failures are logged and never end the session; only a
// transport error on the model channel does.
func (h *Handler) eventLoop(ctx context.Context) {
	defer close(h.done)

	for {
		event, err := h.model.ReadEvent()
		if err != nil {
			if h.State() != StateClosed {
				logger.Warn("model channel closed", zap.Error(err))
			}
			return
		}
		h.handleEvent(ctx, event)
	}
}

func (h *Handler) handleEvent(ctx context.Context, event realtime.ServerEvent) {
	h.metrics.RecordRealtimeEvent(event.EventType())

	switch ev := event.(type) {
	case *realtime.SessionCreatedEvent:
		logger.Info("model session created", zap.String("session_id", ev.Session.ID))
		h.state.CompareAndSwap(int32(StateSessionStarted), int32(StateStreaming))

	case *realtime.ErrorEvent:
		logger.Error("model session error",
			zap.String("error_type", ev.Error.Type),
			zap.String("message", ev.Error.Message))

	case *realtime.SpeechStartedEvent:
		// Hard interrupt: cut buffered playback and suppress stale deltas
		logger.Debug("caller speech started", zap.Int("audio_start_ms", ev.AudioStartMs))
		h.interrupted.Store(true)
		h.metrics.RecordBargeIn()
		h.stopAudio()

	case *realtime.SpeechStoppedEvent:
		h.interrupted.Store(false)

	case *realtime.InputTranscriptionCompletedEvent:
		logger.Info("caller transcript", zap.String("transcript", ev.Transcript))

	case *realtime.InputTranscriptionFailedEvent:
		logger.Warn("caller transcription failed", zap.String("message", ev.Error.Message))

	case *realtime.ResponseDoneEvent:
		logger.Debug("model response done",
			zap.String("response_id", ev.Response.ID),
			zap.String("status", ev.Response.Status))

	case *realtime.ResponseAudioTranscriptDoneEvent:
		logger.Info("agent transcript", zap.String("transcript", ev.Transcript))

	case *realtime.ResponseAudioDeltaEvent:
		if h.interrupted.Load() {
			return
		}
		if err := h.media.SendFrame(acs.NewAudioDataFrame(ev.Delta)); err != nil {
			logger.Warn("failed to relay model audio", zap.Error(err))
			return
		}
		h.metrics.RecordWebSocketMessage("outbound")

	case *realtime.FunctionCallArgumentsDoneEvent:
		h.state.Store(int32(StateFunctionCallPending))
		h.handleFunctionCall(ctx, ev)
		h.state.Store(int32(StateStreaming))

	case *realtime.UnknownEvent:
		// Forward compatibility: unknown event kinds never cause failure
		logger.Debug("ignoring unknown model event", zap.String("type", ev.Type))
	}
}

// HandleMediaFrame processes one inbound text frame from the caller
// channel. Malformed frames and silent audio are dropped; caller audio
// is forwarded into the model's input buffer.
func (h *Handler) HandleMediaFrame(raw []byte) {
	frame, err := acs.ParseInboundFrame(raw)
	if err != nil {
		logger.Warn("malformed media frame", zap.Error(err))
		return
	}

	if frame.Kind != acs.KindAudioData || frame.AudioData.IsSilent() {
		return
	}

	if err := h.model.AppendInputAudio(frame.AudioData.Data); err != nil {
		logger.Warn("failed to forward caller audio", zap.Error(err))
	}
}

// SendWelcome triggers the opening greeting at most once per session,
// no matter how many inbound frames race to call it.
func (h *Handler) SendWelcome() {
	if !h.welcomed.CompareAndSwap(false, true) {
		return
	}

	if err := h.model.CreateConversationItem(realtime.NewUserMessageItem(welcomePrompt)); err != nil {
		logger.Warn("failed to send welcome prompt", zap.Error(err))
		return
	}
	if err := h.model.CreateResponse(); err != nil {
		logger.Warn("failed to request welcome response", zap.Error(err))
	}
}

// stopAudio emits the control frame that discards in-flight model audio
func (h *Handler) stopAudio() {
	if err := h.media.SendFrame(acs.NewStopAudioFrame()); err != nil {
		logger.Warn("failed to send stop-audio frame", zap.Error(err))
	}
}

// Close releases the model session. Safe on every exit path, including
// errors, and safe to call more than once.
func (h *Handler) Close() {
	h.closeOnce.Do(func() {
		h.state.Store(int32(StateClosed))
		if err := h.model.Close(); err != nil {
			logger.Debug("model session close", zap.Error(err))
		}
	})
}
