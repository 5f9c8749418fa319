package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"embers/internal/models"
	"embers/internal/utils"

	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog"
)

// PubSubConfig configures the gossipsub backend. An empty Bootstrap list
// means no backend is reachable and the channel stays unconfigured.
type PubSubConfig struct {
	ListenAddrs []string
	Bootstrap   []string
}

// PubSub is the gossipsub-backed Channel. Rooms are topics; presence is
// tracked from hello/leave records on a sibling presence topic plus the
// topic's own peer events for abrupt disconnects.
type PubSub struct {
	host host.Host
	ps   *pubsub.PubSub
	log  zerolog.Logger
}

var _ Channel = (*PubSub)(nil)

// NewPubSub builds the backend. With no bootstrap addresses it returns an
// unconfigured channel and touches nothing network-side.
func NewPubSub(ctx context.Context, cfg PubSubConfig, log zerolog.Logger) (*PubSub, error) {
	c := &PubSub{log: log.With().Str("component", "pubsub").Logger()}
	if len(cfg.Bootstrap) == 0 {
		return c, nil
	}

	addrs := cfg.ListenAddrs
	if len(addrs) == 0 {
		addrs = []string{"/ip4/0.0.0.0/tcp/0"}
	}
	h, err := libp2p.New(libp2p.ListenAddrStrings(addrs...))
	if err != nil {
		return nil, err
	}
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		return nil, err
	}
	for _, b := range cfg.Bootstrap {
		ai, err := peer.AddrInfoFromString(b)
		if err != nil {
			c.log.Warn().Str("addr", b).Err(err).Msg("bad bootstrap address")
			continue
		}
		if err := h.Connect(ctx, *ai); err != nil {
			c.log.Warn().Str("addr", b).Err(err).Msg("bootstrap connect failed")
		}
	}

	c.host = h
	c.ps = ps
	return c, nil
}

func (c *PubSub) Configured() bool { return c.ps != nil }

// Close releases the libp2p host. Call once at process shutdown.
func (c *PubSub) Close() error {
	if c.host == nil {
		return nil
	}
	return c.host.Close()
}

func (c *PubSub) Join(ctx context.Context, roomID string, self Peer, opts JoinOptions) (Handle, error) {
	if !c.Configured() {
		return nil, utils.ConfigError("no pubsub backend configured")
	}

	chatTopic, err := c.ps.Join(ChatTopic(roomID))
	if err != nil {
		return nil, err
	}
	chatSub, err := chatTopic.Subscribe()
	if err != nil {
		chatTopic.Close()
		return nil, err
	}
	presTopic, err := c.ps.Join(PresenceTopic(roomID))
	if err != nil {
		chatSub.Cancel()
		chatTopic.Close()
		return nil, err
	}
	presSub, err := presTopic.Subscribe()
	if err != nil {
		presTopic.Close()
		chatSub.Cancel()
		chatTopic.Close()
		return nil, err
	}
	events, err := chatTopic.EventHandler()
	if err != nil {
		presSub.Cancel()
		presTopic.Close()
		chatSub.Cancel()
		chatTopic.Close()
		return nil, err
	}

	hctx, cancel := context.WithCancel(ctx)
	h := &pubsubHandle{
		self:      self,
		log:       c.log.With().Str("room", roomID).Logger(),
		chatTopic: chatTopic,
		chatSub:   chatSub,
		presTopic: presTopic,
		presSub:   presSub,
		events:    events,
		opts:      opts,
		roster:    newRoster(opts),
		byHost:    make(map[peer.ID]string),
		ctx:       hctx,
		cancel:    cancel,
	}
	h.roster.add(self.ID, self.DisplayName)

	go h.readChat()
	go h.readPresence()
	go h.readPeerEvents()
	h.announce()

	return h, nil
}

type pubsubHandle struct {
	self      Peer
	log       zerolog.Logger
	chatTopic *pubsub.Topic
	chatSub   *pubsub.Subscription
	presTopic *pubsub.Topic
	presSub   *pubsub.Subscription
	events    *pubsub.TopicEventHandler
	opts      JoinOptions
	roster    *roster

	mu     sync.Mutex
	byHost map[peer.ID]string // libp2p peer -> app peer id

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func (h *pubsubHandle) readChat() {
	for {
		msg, err := h.chatSub.Next(h.ctx)
		if err != nil {
			return
		}
		env, err := models.UnmarshalEnvelope(msg.Data)
		if err != nil {
			h.log.Debug().Err(err).Msg("dropping undecodable broadcast")
			continue
		}
		if h.opts.OnMessage != nil {
			h.opts.OnMessage(env)
		}
	}
}

func (h *pubsubHandle) readPresence() {
	for {
		msg, err := h.presSub.Next(h.ctx)
		if err != nil {
			return
		}
		var rec presenceRecord
		if err := json.Unmarshal(msg.Data, &rec); err != nil || rec.PeerID == "" {
			continue
		}
		switch rec.Event {
		case presenceHello:
			h.mu.Lock()
			h.byHost[msg.GetFrom()] = rec.PeerID
			h.mu.Unlock()
			if h.roster.add(rec.PeerID, rec.Name) && rec.PeerID != h.self.ID {
				// A newcomer announced itself; re-announce so it
				// learns about us too.
				h.announce()
			}
		case presenceLeave:
			h.mu.Lock()
			delete(h.byHost, msg.GetFrom())
			h.mu.Unlock()
			h.roster.remove(rec.PeerID)
		}
	}
}

// readPeerEvents watches the mesh itself. A PeerLeave here is the abrupt
// path: the remote never sent a leave record, so presence is reconciled
// from the hello mapping.
func (h *pubsubHandle) readPeerEvents() {
	for {
		ev, err := h.events.NextPeerEvent(h.ctx)
		if err != nil {
			return
		}
		switch ev.Type {
		case pubsub.PeerJoin:
			h.announce()
		case pubsub.PeerLeave:
			h.mu.Lock()
			appID := h.byHost[ev.Peer]
			delete(h.byHost, ev.Peer)
			h.mu.Unlock()
			h.roster.remove(appID)
		}
	}
}

func (h *pubsubHandle) announce() {
	data, err := json.Marshal(presenceRecord{Event: presenceHello, PeerID: h.self.ID, Name: h.self.DisplayName})
	if err != nil {
		return
	}
	if err := h.presTopic.Publish(h.ctx, data); err != nil {
		h.log.Debug().Err(err).Msg("presence announce failed")
	}
}

func (h *pubsubHandle) Broadcast(ctx context.Context, env *models.Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	return h.chatTopic.Publish(ctx, data)
}

func (h *pubsubHandle) Leave() error {
	h.once.Do(func() {
		// Best-effort leave record before tearing anything down, so
		// peers get the graceful path when the network allows it.
		data, err := json.Marshal(presenceRecord{Event: presenceLeave, PeerID: h.self.ID})
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := h.presTopic.Publish(ctx, data); err != nil {
				h.log.Debug().Err(err).Msg("leave record publish failed")
			}
			cancel()
		}
		h.cancel()
		h.events.Cancel()
		h.presSub.Cancel()
		h.chatSub.Cancel()
		h.presTopic.Close()
		h.chatTopic.Close()
	})
	return nil
}

func (h *pubsubHandle) PresenceCount() int { return h.roster.count() }
