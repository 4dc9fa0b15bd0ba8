package session

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebridge-backend/internal/acs"
	"voicebridge-backend/internal/realtime"
	"voicebridge-backend/pkg/logger"
	"voicebridge-backend/pkg/metrics"
)

func TestMain(m *testing.M) {
	logger.InitDefault()
	os.Exit(m.Run())
}

// fakeModelConn records everything sent to the model and replays a
// scripted sequence of server events.
type fakeModelConn struct {
	mu             sync.Mutex
	events         chan realtime.ServerEvent
	closeOnce      sync.Once
	sessionUpdates []realtime.SessionUpdate
	items          []realtime.ConversationItem
	audio          []string
	responseCount  int
}

func newFakeModelConn() *fakeModelConn {
	return &fakeModelConn{events: make(chan realtime.ServerEvent, 32)}
}

func (f *fakeModelConn) UpdateSession(s realtime.SessionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionUpdates = append(f.sessionUpdates, s)
	return nil
}

func (f *fakeModelConn) CreateConversationItem(item realtime.ConversationItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
	return nil
}

func (f *fakeModelConn) AppendInputAudio(audio string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, audio)
	return nil
}

func (f *fakeModelConn) CreateResponse() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responseCount++
	return nil
}

func (f *fakeModelConn) ReadEvent() (realtime.ServerEvent, error) {
	ev, ok := <-f.events
	if !ok {
		return nil, io.EOF
	}
	return ev, nil
}

func (f *fakeModelConn) Close() error {
	f.closeOnce.Do(func() { close(f.events) })
	return nil
}

func (f *fakeModelConn) appendedAudio() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.audio...)
}

func (f *fakeModelConn) sentItems() []realtime.ConversationItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]realtime.ConversationItem(nil), f.items...)
}

func (f *fakeModelConn) responses() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.responseCount
}

// fakeMediaSender records outbound frames
type fakeMediaSender struct {
	mu     sync.Mutex
	frames []acs.OutboundFrame
}

func (f *fakeMediaSender) SendFrame(frame acs.OutboundFrame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeMediaSender) sentFrames() []acs.OutboundFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]acs.OutboundFrame(nil), f.frames...)
}

// fakeTools records invocations and returns canned results
type fakeTools struct {
	mu            sync.Mutex
	getTicketIDs  []string
	descriptions  []string
	endCallCount  int
	getTicketErr  error
	ticketResult  string
	endCallResult string
}

func (f *fakeTools) GetTicket(_ context.Context, ticketID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getTicketIDs = append(f.getTicketIDs, ticketID)
	return f.ticketResult, f.getTicketErr
}

func (f *fakeTools) CreateTicket(_ context.Context, description string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.descriptions = append(f.descriptions, description)
	return f.ticketResult, nil
}

func (f *fakeTools) EndCall(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endCallCount++
	return f.endCallResult, nil
}

func newTestHandler(t *testing.T) (*Handler, *fakeModelConn, *fakeMediaSender, *fakeTools) {
	t.Helper()
	model := newFakeModelConn()
	media := &fakeMediaSender{}
	tools := &fakeTools{ticketResult: "ok", endCallResult: "ended"}
	h := New(model, media, tools, metrics.NewMetrics("test"))
	return h, model, media, tools
}

// runEvents starts the handler, feeds the scripted events, and waits for
// the event loop to drain them.
func runEvents(t *testing.T, h *Handler, model *fakeModelConn, events ...realtime.ServerEvent) {
	t.Helper()
	require.NoError(t, h.Start(context.Background()))
	for _, ev := range events {
		model.events <- ev
	}
	model.Close()
	<-h.Done()
}

func TestStartConfiguresSessionAndRequestsResponse(t *testing.T) {
	h, model, _, _ := newTestHandler(t)
	runEvents(t, h, model)

	require.Len(t, model.sessionUpdates, 1)
	assert.Equal(t, "shimmer", model.sessionUpdates[0].Voice)
	assert.Len(t, model.sessionUpdates[0].Tools, 3)
	assert.Equal(t, 1, model.responses())
}

func TestStartTwiceFails(t *testing.T) {
	h, model, _, _ := newTestHandler(t)
	require.NoError(t, h.Start(context.Background()))
	assert.ErrorIs(t, h.Start(context.Background()), ErrAlreadyStarted)
	model.Close()
	<-h.Done()
}

func TestSilentFramesAreNotForwarded(t *testing.T) {
	h, model, _, _ := newTestHandler(t)

	// Explicitly silent
	h.HandleMediaFrame([]byte(`{"kind":"AudioData","audioData":{"data":"QUJD","silent":true}}`))
	// Missing silent flag must be treated as silent
	h.HandleMediaFrame([]byte(`{"kind":"AudioData","audioData":{"data":"REVG"}}`))
	// Not an audio frame
	h.HandleMediaFrame([]byte(`{"kind":"AudioMetadata"}`))
	// Malformed JSON must not panic or forward
	h.HandleMediaFrame([]byte(`{nope`))
	// Audible audio is forwarded
	h.HandleMediaFrame([]byte(`{"kind":"AudioData","audioData":{"data":"R0hJ","silent":false}}`))

	assert.Equal(t, []string{"R0hJ"}, model.appendedAudio())
}

func TestWelcomeIsSentAtMostOnce(t *testing.T) {
	h, model, _, _ := newTestHandler(t)
	require.NoError(t, h.Start(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.SendWelcome()
		}()
	}
	wg.Wait()
	model.Close()
	<-h.Done()

	var welcomes int
	for _, item := range model.sentItems() {
		if item.Type == "message" {
			welcomes++
		}
	}
	assert.Equal(t, 1, welcomes)
	// One response for session start, one for the greeting
	assert.Equal(t, 2, model.responses())
}

func TestBargeInSuppressesStaleModelAudio(t *testing.T) {
	h, model, media, _ := newTestHandler(t)
	runEvents(t, h, model,
		&realtime.ResponseAudioDeltaEvent{Type: realtime.TypeResponseAudioDelta, Delta: "before"},
		&realtime.SpeechStartedEvent{Type: realtime.TypeSpeechStarted, AudioStartMs: 120},
		&realtime.ResponseAudioDeltaEvent{Type: realtime.TypeResponseAudioDelta, Delta: "stale-1"},
		&realtime.ResponseAudioDeltaEvent{Type: realtime.TypeResponseAudioDelta, Delta: "stale-2"},
		&realtime.SpeechStoppedEvent{Type: realtime.TypeSpeechStopped},
		&realtime.ResponseAudioDeltaEvent{Type: realtime.TypeResponseAudioDelta, Delta: "after"},
	)

	frames := media.sentFrames()
	require.Len(t, frames, 3)

	assert.Equal(t, acs.KindAudioData, frames[0].Kind)
	assert.Equal(t, "before", frames[0].AudioData.Data)

	// The interrupt emits a stop frame and the stale deltas vanish
	assert.Equal(t, acs.KindStopAudio, frames[1].Kind)
	assert.NotNil(t, frames[1].StopAudio)

	assert.Equal(t, acs.KindAudioData, frames[2].Kind)
	assert.Equal(t, "after", frames[2].AudioData.Data)
}

func TestUnknownEventsAreIgnored(t *testing.T) {
	h, model, media, _ := newTestHandler(t)
	runEvents(t, h, model,
		&realtime.UnknownEvent{Type: "response.content_part.added"},
		&realtime.ResponseAudioDeltaEvent{Type: realtime.TypeResponseAudioDelta, Delta: "audio"},
	)

	frames := media.sentFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, "audio", frames[0].AudioData.Data)
}

func TestFunctionCallDispatchesAndReturnsResult(t *testing.T) {
	h, model, _, tools := newTestHandler(t)
	runEvents(t, h, model, &realtime.FunctionCallArgumentsDoneEvent{
		Type:      realtime.TypeFunctionCallArgumentsDone,
		CallID:    "call-1",
		Name:      realtime.ToolGetTicket,
		Arguments: `{"ticket_id":"123"}`,
	})

	assert.Equal(t, []string{"123"}, tools.getTicketIDs)

	items := model.sentItems()
	require.Len(t, items, 1)
	assert.Equal(t, "function_call_output", items[0].Type)
	assert.Equal(t, "call-1", items[0].CallID)
	assert.Equal(t, "ok", items[0].Output)
	// Session start + post-tool response
	assert.Equal(t, 2, model.responses())
}

func TestMalformedToolArgumentsYieldEmptyArguments(t *testing.T) {
	h, model, _, tools := newTestHandler(t)
	runEvents(t, h, model, &realtime.FunctionCallArgumentsDoneEvent{
		Type:      realtime.TypeFunctionCallArgumentsDone,
		CallID:    "call-2",
		Name:      realtime.ToolGetTicket,
		Arguments: `{"ticket_id": not-json`,
	})

	// The tool still runs, with zero-valued arguments
	assert.Equal(t, []string{""}, tools.getTicketIDs)

	items := model.sentItems()
	require.Len(t, items, 1)
	assert.Equal(t, "call-2", items[0].CallID)
}

func TestUnknownFunctionNameReturnsTextResult(t *testing.T) {
	h, model, _, _ := newTestHandler(t)
	runEvents(t, h, model, &realtime.FunctionCallArgumentsDoneEvent{
		Type:   realtime.TypeFunctionCallArgumentsDone,
		CallID: "call-3",
		Name:   "reboot_mainframe",
	})

	items := model.sentItems()
	require.Len(t, items, 1)
	assert.Equal(t, "Unknown function: reboot_mainframe", items[0].Output)
}

func TestFailedToolCallDoesNotReturnResult(t *testing.T) {
	h, model, _, tools := newTestHandler(t)
	tools.getTicketErr = io.ErrUnexpectedEOF

	runEvents(t, h, model, &realtime.FunctionCallArgumentsDoneEvent{
		Type:      realtime.TypeFunctionCallArgumentsDone,
		CallID:    "call-4",
		Name:      realtime.ToolGetTicket,
		Arguments: `{"ticket_id":"123"}`,
	})

	// The failure is logged and swallowed; the session stays up with no
	// output item for the failed call
	assert.Empty(t, model.sentItems())
	assert.Equal(t, StateStreaming, h.State())
}

func TestCloseReleasesModelSession(t *testing.T) {
	h, model, _, _ := newTestHandler(t)
	require.NoError(t, h.Start(context.Background()))

	h.Close()
	h.Close() // idempotent
	<-h.Done()

	assert.Equal(t, StateClosed, h.State())
	_, err := model.ReadEvent()
	assert.ErrorIs(t, err, io.EOF)
}
