package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"call-relay/internal/auth"
	"call-relay/internal/history"
	"call-relay/internal/push"
	"call-relay/internal/registry"
	"call-relay/internal/relay"
	"call-relay/internal/session"

	"github.com/gin-gonic/gin"
)

type env struct {
	store      *session.MemoryStore
	devices    *registry.MemoryRegistry
	dispatcher *push.FakeDispatcher
	router     *gin.Engine
}

// identityMiddleware stands in for the JWT middleware in tests.
func identityMiddleware(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), userID))
		c.Next()
	}
}

func newEnv(t *testing.T, userID string) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	e := &env{
		store:      session.NewMemoryStore(),
		devices:    registry.NewMemoryRegistry(),
		dispatcher: push.NewFakeDispatcher(),
	}
	hist := history.NewService(history.NewMemoryRepo())
	h := Handlers{
		Relay:    relay.NewService(e.store, e.devices, e.dispatcher, hist, nil),
		Devices:  e.devices,
		Sessions: e.store,
		History:  hist,
	}

	r := gin.New()
	v1 := r.Group("/v1")
	v1.Use(identityMiddleware(userID))
	v1.POST("/calls/initiate", h.Initiate)
	v1.POST("/calls/accept", h.Accept)
	v1.POST("/calls/end", h.End)
	v1.POST("/devices/register", h.RegisterDevice)
	v1.GET("/calls/:call_id", h.GetCall)
	v1.GET("/calls/:call_id/history", h.GetCallHistory)
	e.router = r
	return e
}

func (e *env) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if err := e.store.Put(ctx, session.Session{CallID: "c1", ChannelName: "ch1", MediaToken: "tok1", Status: session.StatusCreated}); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	if err := e.devices.Put(ctx, registry.Registration{UserID: "u2", DeviceID: "d1", PushToken: "dev-abc"}); err != nil {
		t.Fatalf("seed registration: %v", err)
	}
}

func (e *env) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestInitiateEndpoint_ReturnsCredentials(t *testing.T) {
	e := newEnv(t, "u1")
	e.seed(t)

	w := e.do(t, http.MethodPost, "/v1/calls/initiate", `{"call_id":"c1","caller_id":"u1","callee_id":"u2"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var info relay.CallInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.ChannelName != "ch1" || info.MediaToken != "tok1" {
		t.Fatalf("unexpected body: %+v", info)
	}
	if len(e.dispatcher.Sends()) != 1 {
		t.Fatalf("expected one dispatch")
	}
}

func TestInitiateEndpoint_DefaultsCallerFromIdentity(t *testing.T) {
	e := newEnv(t, "u1")
	e.seed(t)

	w := e.do(t, http.MethodPost, "/v1/calls/initiate", `{"call_id":"c1","callee_id":"u2"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	sends := e.dispatcher.Sends()
	if len(sends) != 1 || sends[0].Payload.Data.CallerID != "u1" {
		t.Fatalf("expected caller defaulted from token identity, got %+v", sends)
	}
}

func TestInitiateEndpoint_ErrorMapping(t *testing.T) {
	e := newEnv(t, "u1")
	e.seed(t)

	// Missing callee -> 400.
	if w := e.do(t, http.MethodPost, "/v1/calls/initiate", `{"call_id":"c1"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	// Unknown session -> 404.
	if w := e.do(t, http.MethodPost, "/v1/calls/initiate", `{"call_id":"nope","callee_id":"u2"}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	// Dispatch failure -> 502.
	e.dispatcher.Err = errors.New("transport down")
	w := e.do(t, http.MethodPost, "/v1/calls/initiate", `{"call_id":"c1","callee_id":"u2"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "transport down") {
		t.Fatalf("internal error detail leaked into response body")
	}
}

func TestAcceptEndpoint_NoDispatch(t *testing.T) {
	e := newEnv(t, "u2")
	e.seed(t)

	w := e.do(t, http.MethodPost, "/v1/calls/accept", `{"call_id":"c1","callee_id":"u2"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var info relay.CallInfo
	_ = json.Unmarshal(w.Body.Bytes(), &info)
	if info.ChannelName != "ch1" || info.MediaToken != "tok1" {
		t.Fatalf("unexpected body: %+v", info)
	}
	if len(e.dispatcher.Sends()) != 0 {
		t.Fatalf("accept must not dispatch")
	}
}

func TestEndEndpoint_AcknowledgesAndRecordsActor(t *testing.T) {
	e := newEnv(t, "u2")
	e.seed(t)

	w := e.do(t, http.MethodPost, "/v1/calls/end", `{"call_id":"c1","user_id":"u2","role":"callee"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	got, err := e.store.Get(context.Background(), "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != session.StatusEnded || got.EndedBy != "u2" {
		t.Fatalf("unexpected record after end: %+v", got)
	}
}

func TestEndEndpoint_RejectsUnknownRole(t *testing.T) {
	e := newEnv(t, "u2")
	e.seed(t)
	if w := e.do(t, http.MethodPost, "/v1/calls/end", `{"call_id":"c1","role":"observer"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown role, got %d", w.Code)
	}
}

func TestRegisterDeviceEndpoint_UsesTokenIdentity(t *testing.T) {
	e := newEnv(t, "u2")

	w := e.do(t, http.MethodPost, "/v1/devices/register", `{"device_id":"d9","push_token":"dev-new","platform":"android"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	regs, err := e.devices.List(context.Background(), "u2")
	if err != nil || len(regs) != 1 {
		t.Fatalf("expected one registration for u2, got %v %v", regs, err)
	}
	if regs[0].PushToken != "dev-new" {
		t.Fatalf("unexpected token %q", regs[0].PushToken)
	}
}

func TestRegisterDeviceEndpoint_RequiresFields(t *testing.T) {
	e := newEnv(t, "u2")
	if w := e.do(t, http.MethodPost, "/v1/devices/register", `{"device_id":"d9"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetCallEndpoint_NeverExposesMediaToken(t *testing.T) {
	e := newEnv(t, "u1")
	e.seed(t)

	w := e.do(t, http.MethodGet, "/v1/calls/c1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "tok1") || strings.Contains(body, "media_token") {
		t.Fatalf("media token leaked into status response: %s", body)
	}
	if !strings.Contains(body, `"status":"created"`) {
		t.Fatalf("expected status field, got %s", body)
	}
}

func TestGetCallHistoryEndpoint(t *testing.T) {
	e := newEnv(t, "u1")
	e.seed(t)

	_ = e.do(t, http.MethodPost, "/v1/calls/initiate", `{"call_id":"c1","callee_id":"u2"}`)
	_ = e.do(t, http.MethodPost, "/v1/calls/end", `{"call_id":"c1","role":"caller"}`)

	w := e.do(t, http.MethodGet, "/v1/calls/c1/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		CallID      string               `json:"call_id"`
		Transitions []history.Transition `json:"transitions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(resp.Transitions))
	}
	if resp.Transitions[0].Status != "ringing" || resp.Transitions[1].Status != "ended" {
		t.Fatalf("unexpected trail: %+v", resp.Transitions)
	}
}
