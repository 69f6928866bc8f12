package wire

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/tradelink/internal/trader/errs"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

var ErrMalformed = errors.New("malformed frame")

// Encode stamps the envelope (type, and a fresh reqId when unset) and
// marshals msg.
func Encode(msg Outbound) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("wire: nil message")
	}

	h := msg.header()
	h.MessageType = msg.Type()
	if h.ReqID == "" {
		h.ReqID = uuid.NewString()
	}

	return json.Marshal(msg)
}

// Decode reads the envelope and decodes the matching concrete message.
// A frame that is not a JSON object with a messageType wraps ErrMalformed;
// a well formed frame of an unknown type wraps errs.ErrUnknownMessage.
func Decode(data []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.MessageType == "" {
		return nil, fmt.Errorf("%w: missing messageType", ErrMalformed)
	}

	var msg Inbound
	switch env.MessageType {
	case TypePositions:
		msg = &Positions{}
	case TypeBalances:
		msg = &Balances{}
	case TypeOrders:
		msg = &Orders{}
	case TypeLogin:
		msg = &LoginAck{}
	case TypeHeartbeat:
		msg = &HeartbeatEcho{}
	case TypeError:
		msg = &VenueError{}
	default:
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownMessage, env.MessageType)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.MessageType, err)
	}
	return msg, nil
}
