package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebridge-backend/internal/acs"
	"voicebridge-backend/internal/domain"
	"voicebridge-backend/internal/gateway"
	"voicebridge-backend/internal/registry"
	"voicebridge-backend/internal/tickets"
	"voicebridge-backend/pkg/logger"
	"voicebridge-backend/pkg/metrics"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.InitDefault()
	os.Exit(m.Run())
}

type fakeCallClient struct {
	answerErr error
	hangUpErr error
	hangUpIDs []string
}

func (f *fakeCallClient) AnswerCall(_ context.Context, _ acs.AnswerCallRequest) (*acs.AnswerCallResult, error) {
	if f.answerErr != nil {
		return nil, f.answerErr
	}
	return &acs.AnswerCallResult{CallConnectionID: "conn-1"}, nil
}

func (f *fakeCallClient) HangUp(_ context.Context, callConnectionID string, _ bool) error {
	f.hangUpIDs = append(f.hangUpIDs, callConnectionID)
	return f.hangUpErr
}

func newTestRouter(t *testing.T) (*gin.Engine, *fakeCallClient, *registry.MemoryRegistry) {
	t.Helper()

	client := &fakeCallClient{}
	reg := registry.NewMemoryRegistry()
	gw := gateway.New(client, reg, "https://bridge.example.com", metrics.NewMetrics("test"))
	h := NewHandler(gw, tickets.NewStore())

	router := gin.New()
	router.GET("/", h.Home)
	api := router.Group("/api")
	{
		api.POST("/incomingCall", h.IncomingCall)
		api.POST("/callbacks/:contextId", h.Callbacks)
		api.POST("/endCall", h.EndCall)
		api.GET("/ticket/:id", h.GetTicket)
		api.POST("/ticket", h.CreateTicket)
	}
	return router, client, reg
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHome(t *testing.T) {
	router, _, _ := newTestRouter(t)
	w := doRequest(router, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello ACS CallAutomation!", w.Body.String())
}

func TestIncomingCallValidationHandshake(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body := `[{"eventType":"Microsoft.EventGrid.SubscriptionValidationEvent","data":{"validationCode":"abc"}}]`
	w := doRequest(router, http.MethodPost, "/api/incomingCall", body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"validationResponse":"abc"}`, w.Body.String())
}

func TestIncomingCallAcceptsSingleEventObject(t *testing.T) {
	router, _, _ := newTestRouter(t)

	// Event Grid may deliver a bare object instead of a batch
	body := `{"eventType":"Microsoft.EventGrid.SubscriptionValidationEvent","data":{"validationCode":"xyz"}}`
	w := doRequest(router, http.MethodPost, "/api/incomingCall", body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"validationResponse":"xyz"}`, w.Body.String())
}

func TestIncomingCallAnswersCall(t *testing.T) {
	router, _, reg := newTestRouter(t)

	body := `[{"eventType":"Microsoft.Communication.IncomingCall","data":{
		"from":{"kind":"phoneNumber","rawId":"4:+15551234567","phoneNumber":{"value":"+15551234567"}},
		"incomingCallContext":"ctx-token"}}]`
	w := doRequest(router, http.MethodPost, "/api/incomingCall", body)

	assert.Equal(t, http.StatusOK, w.Code)

	session, err := reg.Get(context.Background(), "conn-1")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", session.CallerID)
}

func TestIncomingCallMalformedBody(t *testing.T) {
	router, _, _ := newTestRouter(t)
	w := doRequest(router, http.MethodPost, "/api/incomingCall", `{"eventType":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallbacksAlwaysAcknowledge(t *testing.T) {
	router, _, reg := newTestRouter(t)

	body := `[{"type":"Microsoft.Communication.CallConnected","data":{"callConnectionId":"conn-1"}}]`
	w := doRequest(router, http.MethodPost, "/api/callbacks/ctx-1", body)
	assert.Equal(t, http.StatusOK, w.Code)

	active, err := reg.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "conn-1", active)

	// Even a malformed body is acknowledged
	w = doRequest(router, http.MethodPost, "/api/callbacks/ctx-1", `{broken`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEndCallLifecycle(t *testing.T) {
	router, client, reg := newTestRouter(t)
	ctx := context.Background()

	// No active call yet
	w := doRequest(router, http.MethodPost, "/api/endCall", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "CALL_NOT_ACTIVE")

	require.NoError(t, reg.Put(ctx, domain.CallSession{CallConnectionID: "conn-1"}))
	require.NoError(t, reg.SetActive(ctx, "conn-1"))

	w = doRequest(router, http.MethodPost, "/api/endCall", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Call ended"}`, w.Body.String())
	assert.Equal(t, []string{"conn-1"}, client.hangUpIDs)

	// The active call was cleared, so a repeat fails again
	w = doRequest(router, http.MethodPost, "/api/endCall", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEndCallPlatformFailure(t *testing.T) {
	router, client, reg := newTestRouter(t)
	require.NoError(t, reg.SetActive(context.Background(), "conn-1"))
	client.hangUpErr = errors.New("platform error")

	w := doRequest(router, http.MethodPost, "/api/endCall", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "END_CALL_FAILED")
}

func TestGetTicket(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/ticket/123", "")
	require.Equal(t, http.StatusOK, w.Code)

	var ticket domain.Ticket
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticket))
	assert.Equal(t, "123", ticket.TicketID)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, "Printer on floor 3 is not working", ticket.Description)
}

func TestGetTicketNotFound(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/ticket/999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "TICKET_NOT_FOUND")
}

func TestCreateTicket(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/ticket", `{"description":"Broken keyboard"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var ticket domain.Ticket
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticket))
	assert.Equal(t, "124", ticket.TicketID)
	assert.Equal(t, "Broken keyboard", ticket.Description)
}

func TestCreateTicketInvalidBody(t *testing.T) {
	router, _, _ := newTestRouter(t)
	w := doRequest(router, http.MethodPost, "/api/ticket", `{"description":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
