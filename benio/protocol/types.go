package protocol

type MessageType uint8

const (
	// MessageTypeRequest opens a transfer: the client asks for a number
	// of bytes and the server answers with the raw data stream.
	MessageTypeRequest MessageType = 1
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeRequest:
		return "REQUEST"
	default:
		return "UNKNOWN"
	}
}
