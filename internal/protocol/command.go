package protocol

// Method identifies one command the agent knows how to run. Method names are
// parsed once at the edge; everything behind the router switches on this
// closed set instead of comparing strings.
type Method int

const (
	MethodUnknown Method = iota
	MethodMoveMouse
	MethodClickMouse
	MethodScrollMouse
	MethodPressKey
	MethodTypeText
	MethodGetScreenSize
	MethodCaptureScreen
	MethodExecuteCommand
)

var methodNames = map[string]Method{
	"moveMouse":      MethodMoveMouse,
	"clickMouse":     MethodClickMouse,
	"scrollMouse":    MethodScrollMouse,
	"pressKey":       MethodPressKey,
	"typeText":       MethodTypeText,
	"getScreenSize":  MethodGetScreenSize,
	"captureScreen":  MethodCaptureScreen,
	"captureFrame":   MethodCaptureScreen, // name used by the Windows client
	"executeCommand": MethodExecuteCommand,
}

// ParseMethod maps a wire method name to its Method. Names are case
// sensitive; anything unrecognized is MethodUnknown.
func ParseMethod(name string) Method {
	if m, ok := methodNames[name]; ok {
		return m
	}
	return MethodUnknown
}

// String returns the canonical wire name.
func (m Method) String() string {
	switch m {
	case MethodMoveMouse:
		return "moveMouse"
	case MethodClickMouse:
		return "clickMouse"
	case MethodScrollMouse:
		return "scrollMouse"
	case MethodPressKey:
		return "pressKey"
	case MethodTypeText:
		return "typeText"
	case MethodGetScreenSize:
		return "getScreenSize"
	case MethodCaptureScreen:
		return "captureScreen"
	case MethodExecuteCommand:
		return "executeCommand"
	default:
		return "unknown"
	}
}

// Methods lists every known method in declaration order.
func Methods() []Method {
	return []Method{
		MethodMoveMouse,
		MethodClickMouse,
		MethodScrollMouse,
		MethodPressKey,
		MethodTypeText,
		MethodGetScreenSize,
		MethodCaptureScreen,
		MethodExecuteCommand,
	}
}

// Request is a single command call: a method name and its arguments.
type Request struct {
	Method string `json:"method"`
	Args   Args   `json:"args,omitempty"`
}
