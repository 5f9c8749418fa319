package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"embers/internal/models"
	"embers/internal/utils"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTConfig configures the broker-backed Channel. An empty Broker means
// no backend is reachable.
type MQTTConfig struct {
	Broker   string // e.g. "tcp://broker.example.com:1883"
	Username string
	Password string
}

// MQTT is a Channel backed by a standard MQTT broker. Presence uses one
// retained hello per peer under presence/<peerID>; the connection's Last
// Will clears that retained record, which is what gives peers abrupt
// disconnect detection without any server-side logic.
type MQTT struct {
	cfg MQTTConfig
	log zerolog.Logger
}

var _ Channel = (*MQTT)(nil)

func NewMQTT(cfg MQTTConfig, log zerolog.Logger) *MQTT {
	return &MQTT{cfg: cfg, log: log.With().Str("component", "mqtt").Logger()}
}

func (c *MQTT) Configured() bool { return c.cfg.Broker != "" }

func peerPresenceTopic(roomID, peerID string) string {
	return fmt.Sprintf("%s/%s", PresenceTopic(roomID), peerID)
}

func (c *MQTT) Join(ctx context.Context, roomID string, self Peer, opts JoinOptions) (Handle, error) {
	if !c.Configured() {
		return nil, utils.ConfigError("no mqtt broker configured")
	}

	h := &mqttHandle{
		roomID: roomID,
		self:   self,
		log:    c.log.With().Str("room", roomID).Logger(),
		roster: newRoster(opts),
		opts:   opts,
	}
	h.roster.add(self.ID, self.DisplayName)

	popts := paho.NewClientOptions().
		AddBroker(c.cfg.Broker).
		SetClientID("embers-" + self.ID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetOrderMatters(true).
		// The will clears our retained hello so peers learn of an
		// abrupt disconnect from the broker itself.
		SetBinaryWill(peerPresenceTopic(roomID, self.ID), nil, 1, true)
	if c.cfg.Username != "" {
		popts.SetUsername(c.cfg.Username)
	}
	if c.cfg.Password != "" {
		popts.SetPassword(c.cfg.Password)
	}

	h.client = paho.NewClient(popts)
	if token := h.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, utils.JoinRoomError("mqtt connect failed").WithDetails(token.Error().Error())
	}

	if token := h.client.Subscribe(ChatTopic(roomID), 1, h.onChat); token.Wait() && token.Error() != nil {
		h.client.Disconnect(250)
		return nil, token.Error()
	}
	if token := h.client.Subscribe(PresenceTopic(roomID)+"/+", 1, h.onPresence); token.Wait() && token.Error() != nil {
		h.client.Disconnect(250)
		return nil, token.Error()
	}

	// Retained hello: current members see us now, later joiners on
	// subscribe.
	hello, err := json.Marshal(presenceRecord{Event: presenceHello, PeerID: self.ID, Name: self.DisplayName})
	if err == nil {
		h.client.Publish(peerPresenceTopic(roomID, self.ID), 1, true, hello)
	}

	return h, nil
}

type mqttHandle struct {
	roomID string
	self   Peer
	log    zerolog.Logger
	client paho.Client
	roster *roster
	opts   JoinOptions
	once   sync.Once
}

func (h *mqttHandle) onChat(_ paho.Client, msg paho.Message) {
	env, err := models.UnmarshalEnvelope(msg.Payload())
	if err != nil {
		h.log.Debug().Err(err).Msg("dropping undecodable broadcast")
		return
	}
	if h.opts.OnMessage != nil {
		h.opts.OnMessage(env)
	}
}

func (h *mqttHandle) onPresence(_ paho.Client, msg paho.Message) {
	parts := strings.Split(msg.Topic(), "/")
	peerID := parts[len(parts)-1]

	// An empty retained payload is a cleared hello: the peer is gone,
	// whether it left cleanly or its will fired.
	if len(msg.Payload()) == 0 {
		h.roster.remove(peerID)
		return
	}
	var rec presenceRecord
	if err := json.Unmarshal(msg.Payload(), &rec); err != nil || rec.PeerID == "" {
		return
	}
	h.roster.add(rec.PeerID, rec.Name)
}

// Broadcast is fire-and-forget per the Handle contract: the caller is
// often the UI event loop, so waiting for the broker ack here would hang
// the interface on every reconnect window.
func (h *mqttHandle) Broadcast(ctx context.Context, env *models.Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	token := h.client.Publish(ChatTopic(h.roomID), 1, false, data)
	go func() {
		if token.WaitTimeout(10*time.Second) && token.Error() != nil {
			h.log.Debug().Err(token.Error()).Msg("broadcast publish failed")
		}
	}()
	return nil
}

func (h *mqttHandle) Leave() error {
	h.once.Do(func() {
		// Clear our retained hello before the socket closes so peers
		// see the graceful path instead of waiting on the will.
		token := h.client.Publish(peerPresenceTopic(h.roomID, h.self.ID), 1, true, []byte{})
		token.WaitTimeout(2 * time.Second)
		h.client.Disconnect(250)
	})
	return nil
}

func (h *mqttHandle) PresenceCount() int { return h.roster.count() }
