package ws

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebridge-backend/internal/realtime"
	"voicebridge-backend/internal/session"
	"voicebridge-backend/pkg/logger"
	"voicebridge-backend/pkg/metrics"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.InitDefault()
	os.Exit(m.Run())
}

type fakeModelConn struct {
	mu        sync.Mutex
	events    chan realtime.ServerEvent
	closeOnce sync.Once
	audio     []string
	items     []realtime.ConversationItem
	updates   int
	responses int
}

func newFakeModelConn() *fakeModelConn {
	return &fakeModelConn{events: make(chan realtime.ServerEvent, 16)}
}

func (f *fakeModelConn) UpdateSession(_ realtime.SessionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
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
	f.responses++
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

func (f *fakeModelConn) snapshot() (audio []string, items []realtime.ConversationItem, updates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.audio...), append([]realtime.ConversationItem(nil), f.items...), f.updates
}

type fakeTools struct{}

func (fakeTools) GetTicket(context.Context, string) (string, error)    { return "", nil }
func (fakeTools) CreateTicket(context.Context, string) (string, error) { return "", nil }
func (fakeTools) EndCall(context.Context) (string, error)              { return "", nil }

func TestServeWSRelaysCallerAudioIntoModelSession(t *testing.T) {
	model := newFakeModelConn()
	handler := NewMediaHandler(func(context.Context) (session.ModelConn, error) {
		return model, nil
	}, fakeTools{}, metrics.NewMetrics("test"))

	router := gin.New()
	router.GET("/ws", handler.ServeWS)
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	// A silent frame triggers the greeting but forwards no audio
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"kind":"AudioData","audioData":{"data":"QUJD","silent":true}}`)))
	// An audible frame is forwarded
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"kind":"AudioData","audioData":{"data":"REVG","silent":false}}`)))

	// The model speaks; the audio must come back as a platform frame
	model.events <- &realtime.ResponseAudioDeltaEvent{
		Type:  realtime.TypeResponseAudioDelta,
		Delta: "bW9kZWw=",
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var outbound map[string]interface{}
	require.NoError(t, json.Unmarshal(frame, &outbound))
	assert.Equal(t, "AudioData", outbound["Kind"])
	assert.Equal(t, "bW9kZWw=", outbound["AudioData"].(map[string]interface{})["Data"])

	conn.Close()

	require.Eventually(t, func() bool {
		audio, _, _ := model.snapshot()
		return len(audio) == 1
	}, 2*time.Second, 10*time.Millisecond)

	audio, items, updates := model.snapshot()
	assert.Equal(t, []string{"REVG"}, audio)
	assert.Equal(t, 1, updates)

	// Exactly one greeting despite two inbound frames
	var welcomes int
	for _, item := range items {
		if item.Type == "message" {
			welcomes++
		}
	}
	assert.Equal(t, 1, welcomes)
}

func TestServeWSDialFailureClosesConnection(t *testing.T) {
	handler := NewMediaHandler(func(context.Context) (session.ModelConn, error) {
		return nil, io.ErrUnexpectedEOF
	}, fakeTools{}, metrics.NewMetrics("test"))

	router := gin.New()
	router.GET("/ws", handler.ServeWS)
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
