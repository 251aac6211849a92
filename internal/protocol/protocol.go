// Package protocol defines the command model shared by the router and the
// transports: methods, arguments, results and the message envelope.
package protocol

import "time"

// MessageType defines the type of an envelope exchanged with a controller
type MessageType string

const (
	// TypeDeviceRegister is sent by the agent right after connecting
	TypeDeviceRegister MessageType = "device_register"

	// TypeDeviceRegisterResponse acknowledges a registration
	TypeDeviceRegisterResponse MessageType = "device_register_response"

	// TypeCommand carries a Request from the controller
	TypeCommand MessageType = "command"

	// TypeCommandResult carries the Result of a command, echoing its ID
	TypeCommandResult MessageType = "command_result"

	// TypePing and TypePong are application-level heartbeats
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"

	// TypeError reports an envelope that could not be handled at all
	TypeError MessageType = "error"
)

// Message is the generic container for everything sent over a socket. Data
// holds the payload already encoded with the codec that produced or decoded
// the envelope; use Codec.Unmarshal to read it.
type Message struct {
	Type      MessageType
	ID        string
	Timestamp int64
	SessionID string
	Data      []byte
}

// DeviceRegisterData is the payload for TypeDeviceRegister
type DeviceRegisterData struct {
	DeviceID     string   `json:"device_id"`
	DeviceName   string   `json:"device_name"`
	DeviceType   string   `json:"device_type"` // windows, macos, linux
	IPAddress    string   `json:"ip_address"`
	Version      string   `json:"version,omitempty"`
	Capabilities []string `json:"capabilities"`
}

// ErrorData is the payload for TypeError
type ErrorData struct {
	Error string `json:"error"`
}

// NewMessage encodes payload with c and wraps it in an envelope stamped with
// the current time.
func NewMessage(c Codec, t MessageType, id string, payload any) (Message, error) {
	msg := Message{Type: t, ID: id, Timestamp: time.Now().Unix()}
	if payload == nil {
		return msg, nil
	}
	data, err := c.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	msg.Data = data
	return msg, nil
}
