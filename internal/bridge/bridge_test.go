package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonvc/fundcard/internal/fund"
)

type harness struct {
	bridge   *Bridge
	srv      *httptest.Server
	launched []string
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{}
	opts = append([]Option{WithLauncher(func(u string) error {
		h.launched = append(h.launched, u)
		return nil
	})}, opts...)
	h.bridge = New(opts...)
	h.srv = httptest.NewServer(h.bridge.Handler())
	t.Cleanup(h.srv.Close)
	h.bridge.SetBaseURL(h.srv.URL)
	return h
}

func (h *harness) dial(t *testing.T, id string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/popup/" + id + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	f := frame{Type: typ}
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		f.Data = raw
	}
	require.NoError(t, wsjson.Write(context.Background(), conn, f))
}

func next(t *testing.T, b *Bridge) Event {
	t.Helper()
	select {
	case ev := <-b.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for popup event")
		return Event{}
	}
}

var testSize = fund.PopupSize{Width: 460, Height: 712}

func TestOpenLaunchesPopupPage(t *testing.T) {
	h := newHarness(t)

	handle, err := h.bridge.Open(context.Background(), "https://pay.example/buy?sessionToken=tok", testSize)
	require.NoError(t, err)
	require.Len(t, h.launched, 1)
	assert.Equal(t, h.srv.URL+"/popup/"+handle.ID(), h.launched[0])
	assert.False(t, handle.Closed())

	resp, err := http.Get(h.launched[0])
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), handle.ID())
	assert.Contains(t, string(body), "460")
	assert.Contains(t, string(body), "712")
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	_, err := h.bridge.Open(context.Background(), "https://pay.example/buy", testSize)
	require.NoError(t, err)

	resp, err := http.Get(h.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.Popups)
}

func TestPopupPageUnknownID(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.srv.URL + "/popup/not-a-uuid")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(h.srv.URL + "/popup/6f1c1c7e-8a55-4a0e-9d38-3f0b8d7b2c11")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOpenLaunchFailureIsBlocked(t *testing.T) {
	h := newHarness(t, WithLauncher(func(string) error { return errors.New("no browser") }))

	_, err := h.bridge.Open(context.Background(), "https://pay.example/buy", testSize)
	assert.ErrorIs(t, err, fund.ErrPopupBlocked)
	assert.Empty(t, h.bridge.popups)
}

func TestOpenBeforeServing(t *testing.T) {
	b := New(WithLauncher(func(string) error { return nil }))
	_, err := b.Open(context.Background(), "https://pay.example/buy", testSize)
	assert.ErrorIs(t, err, fund.ErrPopupUnavailable)
}

func TestMessagesArriveBeforeClose(t *testing.T) {
	h := newHarness(t)
	handle, err := h.bridge.Open(context.Background(), "https://pay.example/buy", testSize)
	require.NoError(t, err)

	conn := h.dial(t, handle.ID())
	send(t, conn, frameOpened, nil)
	send(t, conn, frameMessage, `{"eventName":"success","data":{"assetSymbol":"BTC"}}`)
	send(t, conn, frameMessage, map[string]string{"origin": "not checkout"})
	send(t, conn, frameClosed, nil)

	relay := fund.NewRelay()
	var got []fund.PopupMessage
	relay.Subscribe(func(m fund.PopupMessage) { got = append(got, m) })

	ev := next(t, h.bridge)
	assert.Equal(t, EventOpened, ev.Kind)

	ev = next(t, h.bridge)
	require.Equal(t, EventMessage, ev.Kind)
	Dispatch(ev, relay)
	require.Len(t, got, 1)
	assert.Equal(t, fund.EventSuccess, got[0].Event)
	assert.Equal(t, handle.ID(), got[0].PopupID)

	ev = next(t, h.bridge)
	require.Equal(t, EventClosed, ev.Kind)
	assert.False(t, handle.Closed(), "close is visible only once dispatched")
	Dispatch(ev, relay)
	assert.True(t, handle.Closed())
	assert.NoError(t, handle.Err())
}

func TestBlockedWindow(t *testing.T) {
	h := newHarness(t)
	handle, err := h.bridge.Open(context.Background(), "https://pay.example/buy", testSize)
	require.NoError(t, err)

	conn := h.dial(t, handle.ID())
	send(t, conn, frameBlocked, nil)

	ev := next(t, h.bridge)
	require.Equal(t, EventClosed, ev.Kind)
	assert.ErrorIs(t, ev.Err, fund.ErrPopupBlocked)
	Dispatch(ev, fund.NewRelay())
	assert.True(t, handle.Closed())
	assert.ErrorIs(t, handle.Err(), fund.ErrPopupBlocked)
}

func TestPageNeverConnects(t *testing.T) {
	h := newHarness(t, WithConnectTimeout(20*time.Millisecond))
	handle, err := h.bridge.Open(context.Background(), "https://pay.example/buy", testSize)
	require.NoError(t, err)

	ev := next(t, h.bridge)
	require.Equal(t, EventClosed, ev.Kind)
	assert.Equal(t, handle.ID(), ev.PopupID)
	assert.ErrorIs(t, ev.Err, fund.ErrPopupBlocked)
}

func TestCloseTellsPage(t *testing.T) {
	h := newHarness(t)
	handle, err := h.bridge.Open(context.Background(), "https://pay.example/buy", testSize)
	require.NoError(t, err)
	conn := h.dial(t, handle.ID())
	send(t, conn, frameOpened, nil)
	assert.Equal(t, EventOpened, next(t, h.bridge).Kind)

	require.NoError(t, handle.Close())
	assert.True(t, handle.Closed())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var f frame
	require.NoError(t, wsjson.Read(ctx, conn, &f))
	assert.Equal(t, frameClose, f.Type)
}

func TestSecondConnectionRejected(t *testing.T) {
	h := newHarness(t)
	handle, err := h.bridge.Open(context.Background(), "https://pay.example/buy", testSize)
	require.NoError(t, err)
	first := h.dial(t, handle.ID())
	send(t, first, frameOpened, nil)
	assert.Equal(t, EventOpened, next(t, h.bridge).Kind)

	second := h.dial(t, handle.ID())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err = second.Read(ctx)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestSupervisorWithBridge(t *testing.T) {
	h := newHarness(t)
	s, err := fund.NewSession(fund.Props{AssetSymbol: "BTC", Country: "US", SessionToken: "tok"})
	require.NoError(t, err)
	s.SetAmount("25", fund.InputFiat)

	relay := fund.NewRelay()
	sv := fund.NewSupervisor(s, h.bridge, relay)
	require.NoError(t, sv.Submit(context.Background()))
	require.Equal(t, fund.StateLoading, s.SubmitState())
	require.Len(t, h.launched, 1)

	id := strings.TrimPrefix(h.launched[0], h.srv.URL+"/popup/")
	conn := h.dial(t, id)
	send(t, conn, frameMessage, map[string]any{"eventName": "success"})
	send(t, conn, frameClosed, nil)

	for s.SubmitState() == fund.StateLoading || sv.Phase() == fund.PopupOpen {
		Dispatch(next(t, h.bridge), relay)
		sv.Poll()
	}
	assert.Equal(t, fund.StateSuccess, s.SubmitState())
	assert.Equal(t, fund.PopupClosed, sv.Phase())
}

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		ok    bool
		event fund.EventName
		err   string
	}{
		{"object", `{"eventName":"exit"}`, true, fund.EventExit, ""},
		{"string encoded", `"{\"eventName\":\"success\"}"`, true, fund.EventSuccess, ""},
		{"error string", `{"eventName":"error","error":"card declined"}`, true, fund.EventError, "card declined"},
		{"error data", `{"eventName":"error","data":{"errorCode":"ERROR_CODE_GUEST_CARD_SOFT_DECLINED","errorMessage":"declined"}}`, true, fund.EventError, "declined"},
		{"error code only", `{"eventName":"error","data":{"errorCode":"E1"}}`, true, fund.EventError, "E1"},
		{"view change", `{"eventName":"transition_view","data":{"pageRoute":"/buy"}}`, true, fund.EventTransitionView, ""},
		{"not checkout", `{"type":"webpackOk"}`, false, "", ""},
		{"garbage", `42`, false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := parseMessage(json.RawMessage(tt.raw))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.event, msg.Event)
			assert.Equal(t, tt.err, msg.Error)
		})
	}
}
