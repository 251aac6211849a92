package network

import (
	"fmt"

	"hostbridge/internal/protocol"
)

// Dispatcher runs command requests. *router.Router implements it.
type Dispatcher interface {
	HandleFrom(source string, req protocol.Request) protocol.Result
}

// Reply computes the response to one inbound envelope. The second return
// value is false when the envelope needs no answer.
func Reply(d Dispatcher, c protocol.Codec, source string, msg protocol.Message) (protocol.Message, bool) {
	var (
		reply protocol.Message
		err   error
	)

	switch msg.Type {
	case protocol.TypeCommand:
		var req protocol.Request
		var res protocol.Result
		if uerr := c.Unmarshal(msg.Data, &req); uerr != nil {
			res = protocol.Failuref(protocol.CodeInvalidArgs, "malformed command: %v", uerr)
		} else {
			res = d.HandleFrom(source, req)
		}
		reply, err = protocol.NewMessage(c, protocol.TypeCommandResult, msg.ID, res)

	case protocol.TypePing:
		reply, err = protocol.NewMessage(c, protocol.TypePong, msg.ID, nil)

	case protocol.TypePong, protocol.TypeDeviceRegisterResponse, protocol.TypeCommandResult:
		return protocol.Message{}, false

	default:
		err = fmt.Errorf("unsupported message type %q", msg.Type)
	}

	if err != nil {
		return errorReply(c, msg, err), true
	}
	reply.SessionID = msg.SessionID
	return reply, true
}

func errorReply(c protocol.Codec, msg protocol.Message, cause error) protocol.Message {
	reply, err := protocol.NewMessage(c, protocol.TypeError, msg.ID, protocol.ErrorData{Error: cause.Error()})
	if err != nil {
		reply = protocol.Message{Type: protocol.TypeError, ID: msg.ID}
	}
	reply.SessionID = msg.SessionID
	return reply
}
