package network

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostbridge/internal/protocol"
)

type echoDispatcher struct {
	mu      sync.Mutex
	sources []string
}

func (d *echoDispatcher) HandleFrom(source string, req protocol.Request) protocol.Result {
	d.mu.Lock()
	d.sources = append(d.sources, source)
	d.mu.Unlock()
	if req.Method == "fail" {
		return protocol.Failure(protocol.CodeUnimplemented, "nope")
	}
	return protocol.Success(req.Method)
}

func TestReplyCommand(t *testing.T) {
	for _, c := range []protocol.Codec{protocol.JSON, protocol.CBOR} {
		t.Run(c.Name(), func(t *testing.T) {
			d := &echoDispatcher{}
			msg, err := protocol.NewMessage(c, protocol.TypeCommand, "req-1",
				protocol.Request{Method: "moveMouse", Args: protocol.Args{"x": 1, "y": 2}})
			require.NoError(t, err)
			msg.SessionID = "sess"

			reply, ok := Reply(d, c, "api", msg)
			require.True(t, ok)
			assert.Equal(t, protocol.TypeCommandResult, reply.Type)
			assert.Equal(t, "req-1", reply.ID)
			assert.Equal(t, "sess", reply.SessionID)

			var res protocol.Result
			require.NoError(t, c.Unmarshal(reply.Data, &res))
			assert.True(t, res.OK)
			assert.Equal(t, "moveMouse", res.Value)
			assert.Equal(t, []string{"api"}, d.sources)
		})
	}
}

func TestReplyMalformedCommand(t *testing.T) {
	d := &echoDispatcher{}
	reply, ok := Reply(d, protocol.JSON, "api", protocol.Message{
		Type: protocol.TypeCommand,
		ID:   "bad",
		Data: []byte(`"not an object"`),
	})
	require.True(t, ok)
	assert.Equal(t, protocol.TypeCommandResult, reply.Type)

	var res protocol.Result
	require.NoError(t, protocol.JSON.Unmarshal(reply.Data, &res))
	assert.False(t, res.OK)
	assert.Equal(t, string(protocol.CodeInvalidArgs), res.Code())
	assert.Empty(t, d.sources, "nothing was dispatched")
}

func TestReplyControlMessages(t *testing.T) {
	d := &echoDispatcher{}

	reply, ok := Reply(d, protocol.JSON, "api", protocol.Message{Type: protocol.TypePing, ID: "p"})
	require.True(t, ok)
	assert.Equal(t, protocol.TypePong, reply.Type)
	assert.Equal(t, "p", reply.ID)

	for _, typ := range []protocol.MessageType{
		protocol.TypePong,
		protocol.TypeDeviceRegisterResponse,
		protocol.TypeCommandResult,
	} {
		_, ok := Reply(d, protocol.JSON, "api", protocol.Message{Type: typ})
		assert.False(t, ok, "%s needs no answer", typ)
	}

	reply, ok = Reply(d, protocol.JSON, "api", protocol.Message{Type: "bogus", ID: "x"})
	require.True(t, ok)
	assert.Equal(t, protocol.TypeError, reply.Type)
	var e protocol.ErrorData
	require.NoError(t, protocol.JSON.Unmarshal(reply.Data, &e))
	assert.Contains(t, e.Error, "bogus")
}

// fakeController accepts one device connection, checks the registration,
// issues a single command and hands back the result envelope.
type fakeController struct {
	codec   protocol.Codec
	reg     chan protocol.DeviceRegisterData
	results chan protocol.Message
}

func (fc *fakeController) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	read := func() (protocol.Message, bool) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return protocol.Message{}, false
		}
		msg, err := fc.codec.Decode(data)
		if err != nil {
			return protocol.Message{}, false
		}
		return msg, true
	}
	write := func(msg protocol.Message) {
		frame, err := fc.codec.Encode(msg)
		if err != nil {
			return
		}
		kind := websocket.TextMessage
		if fc.codec.Binary() {
			kind = websocket.BinaryMessage
		}
		conn.WriteMessage(kind, frame)
	}

	msg, ok := read()
	if !ok || msg.Type != protocol.TypeDeviceRegister {
		return
	}
	var reg protocol.DeviceRegisterData
	if err := fc.codec.Unmarshal(msg.Data, &reg); err != nil {
		return
	}
	fc.reg <- reg

	resp, _ := protocol.NewMessage(fc.codec, protocol.TypeDeviceRegisterResponse, msg.ID, nil)
	resp.SessionID = "session-1"
	write(resp)

	cmd, _ := protocol.NewMessage(fc.codec, protocol.TypeCommand, "cmd-7",
		protocol.Request{Method: "getScreenSize"})
	write(cmd)

	for {
		msg, ok := read()
		if !ok {
			return
		}
		if msg.Type == protocol.TypeCommandResult {
			fc.results <- msg
		}
	}
}

func TestLinkRegistersAndAnswers(t *testing.T) {
	for _, c := range []protocol.Codec{protocol.JSON, protocol.CBOR} {
		t.Run(c.Name(), func(t *testing.T) {
			fc := &fakeController{
				codec:   c,
				reg:     make(chan protocol.DeviceRegisterData, 1),
				results: make(chan protocol.Message, 1),
			}
			srv := httptest.NewServer(fc)
			defer srv.Close()

			d := &echoDispatcher{}
			var stateMu sync.Mutex
			var states []bool

			link := NewLink(LinkConfig{
				Address:           strings.TrimPrefix(srv.URL, "http://"),
				Path:              "/api/ws/device",
				Codec:             c,
				ReconnectInterval: 50 * time.Millisecond,
				Registration: protocol.DeviceRegisterData{
					DeviceID:     "dev-1",
					DeviceName:   "bench",
					Capabilities: []string{"moveMouse", "getScreenSize"},
				},
			}, d, zerolog.Nop())
			link.OnStateChange = func(connected bool) {
				stateMu.Lock()
				states = append(states, connected)
				stateMu.Unlock()
			}
			link.Start()

			select {
			case reg := <-fc.reg:
				assert.Equal(t, "dev-1", reg.DeviceID)
				assert.Equal(t, []string{"moveMouse", "getScreenSize"}, reg.Capabilities)
			case <-time.After(5 * time.Second):
				t.Fatal("no registration received")
			}

			select {
			case msg := <-fc.results:
				assert.Equal(t, "cmd-7", msg.ID)
				assert.Equal(t, "session-1", msg.SessionID)
				var res protocol.Result
				require.NoError(t, c.Unmarshal(msg.Data, &res))
				assert.True(t, res.OK)
				assert.Equal(t, "getScreenSize", res.Value)
			case <-time.After(5 * time.Second):
				t.Fatal("no command result received")
			}

			assert.Eventually(t, link.IsConnected, 2*time.Second, 10*time.Millisecond)
			assert.Equal(t, "session-1", link.SessionID())

			link.Close()
			assert.False(t, link.IsConnected())

			stateMu.Lock()
			defer stateMu.Unlock()
			assert.Equal(t, []bool{true, false}, states)

			d.mu.Lock()
			defer d.mu.Unlock()
			assert.Equal(t, []string{"controller"}, d.sources)
		})
	}
}

func TestLinkCloseWhileUnreachable(t *testing.T) {
	// Grab a free port, then close the listener so dials are refused.
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	link := NewLink(LinkConfig{Address: addr, ReconnectInterval: 10 * time.Millisecond}, &echoDispatcher{}, zerolog.Nop())
	link.Start()
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		link.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return")
	}
	assert.False(t, link.IsConnected())
	link.Close()
}
