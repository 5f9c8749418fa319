package models

import (
	"encoding/json"
	"time"

	"embers/internal/utils"

	"github.com/google/uuid"
)

// Envelope is the wire form of a message: sender metadata plus a payload
// discriminated by Kind. There is no signature; peers are anonymous and
// unauthenticated by design.
type Envelope struct {
	ID         string          `json:"id"`
	SenderID   string          `json:"sender_id"`
	SenderName string          `json:"sender_name,omitempty"`
	Timestamp  int64           `json:"timestamp"` // unix micro
	Kind       MessageKind     `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope wraps a body with fresh id and timestamp.
func NewEnvelope(body Body, senderID, senderName string, at time.Time) (*Envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		SenderName: senderName,
		Timestamp:  at.UnixMicro(),
		Kind:       body.Kind(),
		Payload:    payload,
	}, nil
}

// Decode unpacks the envelope payload into its typed body.
func (env *Envelope) Decode() (*Message, error) {
	var body Body
	switch env.Kind {
	case KindText:
		b := new(TextBody)
		if err := json.Unmarshal(env.Payload, b); err != nil {
			return nil, err
		}
		body = *b
	case KindSystem:
		b := new(SystemBody)
		if err := json.Unmarshal(env.Payload, b); err != nil {
			return nil, err
		}
		body = *b
	case KindJournalShare:
		b := new(JournalShareBody)
		if err := json.Unmarshal(env.Payload, b); err != nil {
			return nil, err
		}
		body = *b
	case KindPurgeUser:
		body = PurgeUserBody{}
	case KindScreenshotAlert:
		b := new(ScreenshotAlertBody)
		if err := json.Unmarshal(env.Payload, b); err != nil {
			return nil, err
		}
		body = *b
	default:
		return nil, utils.ValidationError("unknown message kind").WithDetails(string(env.Kind))
	}

	return &Message{
		ID:         env.ID,
		SenderID:   env.SenderID,
		SenderName: env.SenderName,
		Timestamp:  time.UnixMicro(env.Timestamp),
		Body:       body,
	}, nil
}

func (env *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(env)
}

func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
