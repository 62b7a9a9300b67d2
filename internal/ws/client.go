package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/skillswap/skillswap-backend/internal/domain"
	"github.com/skillswap/skillswap-backend/internal/realtime"
	"github.com/skillswap/skillswap-backend/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 256
)

// Client a single gateway connection. It owns one bridge, so at most one
// conversation feed is live per socket.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	closed  chan struct{}
	once    sync.Once
	userID  string
	viewer  domain.Viewer
	bridge  *realtime.Bridge
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a new gateway client for viewer
func NewClient(hub *Hub, conn *websocket.Conn, viewer domain.Viewer) *Client {
	userID, _ := domain.UserID(viewer)
	fps := hub.cfg.FramesPerSecond
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		closed:  make(chan struct{}),
		userID:  userID,
		viewer:  viewer,
		bridge:  realtime.NewBridge(hub.broker, hub.messages, viewer, hub.cfg.Feed),
		limiter: rate.NewLimiter(rate.Limit(fps), fps*2),
		log:     logger.WithComponent("ws_client").With().Str("user_id", userID).Logger(),
	}
}

// ReadPump reads and dispatches client frames until the connection ends
func (c *Client) ReadPump() {
	defer func() {
		c.bridge.Detach()
		c.hub.Unregister(c)
		c.shutdown()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("connection closed")
			}
			return
		}

		if !c.limiter.Allow() {
			framesRejected.WithLabelValues("rate_limited").Inc()
			c.enqueue(errorFrame("", "RATE_LIMITED", "too many frames"))
			continue
		}

		var in InboundFrame
		if err := json.Unmarshal(data, &in); err != nil {
			framesRejected.WithLabelValues("malformed").Inc()
			c.enqueue(errorFrame("", "BAD_REQUEST", "malformed frame"))
			continue
		}
		c.dispatch(in)
	}
}

func (c *Client) dispatch(in InboundFrame) {
	ctx, cancel := context.WithTimeout(c.hub.ctx, c.hub.cfg.RequestTimeout)
	defer cancel()

	switch in.Type {
	case FrameOpen:
		c.open(ctx, in)
	case FrameClose:
		c.bridge.Detach()
		c.enqueue(OutboundFrame{Type: FrameClosed, RequestID: in.RequestID})
	case FrameSend:
		c.sendMessage(ctx, in)
	case FrameRead:
		c.markRead(ctx, in)
	default:
		framesRejected.WithLabelValues("unknown_type").Inc()
		c.enqueue(errorFrame(in.RequestID, "BAD_REQUEST", "unknown frame type"))
		return
	}
	framesReceived.WithLabelValues(in.Type).Inc()
}

// open attaches before loading history so nothing sent in between is lost
func (c *Client) open(ctx context.Context, in InboundFrame) {
	conv, err := c.hub.conversations.GetConversation(ctx, c.viewer, in.ConversationID)
	if err != nil {
		c.enqueue(failureFrame(in.RequestID, err))
		return
	}

	feed, err := c.bridge.Attach(conv.ID)
	if err != nil {
		c.enqueue(failureFrame(in.RequestID, err))
		return
	}

	history, err := c.hub.messages.OpenConversation(ctx, c.viewer, conv.ID)
	if err != nil {
		c.bridge.Detach()
		c.enqueue(failureFrame(in.RequestID, err))
		return
	}
	feed.Prime(history)

	c.enqueue(OutboundFrame{
		Type:           FrameHistory,
		RequestID:      in.RequestID,
		ConversationID: conv.ID,
		Messages:       history,
	})
	go c.forward(feed)
}

func (c *Client) sendMessage(ctx context.Context, in InboundFrame) {
	feed := c.bridge.Current()
	if feed == nil {
		c.enqueue(errorFrame(in.RequestID, "BAD_REQUEST", "no conversation is open"))
		return
	}

	msg, err := c.hub.messages.SendMessage(ctx, c.viewer, feed.ConversationID(), in.Content, in.ReplyTo)
	if err != nil {
		c.enqueue(failureFrame(in.RequestID, err))
		return
	}
	c.enqueue(OutboundFrame{
		Type:           FrameSent,
		RequestID:      in.RequestID,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
	})
}

func (c *Client) markRead(ctx context.Context, in InboundFrame) {
	feed := c.bridge.Current()
	if feed == nil {
		c.enqueue(errorFrame(in.RequestID, "BAD_REQUEST", "no conversation is open"))
		return
	}

	n, err := c.hub.messages.MarkMessagesAsRead(ctx, c.viewer, feed.ConversationID())
	if err != nil {
		c.enqueue(failureFrame(in.RequestID, err))
		return
	}
	c.enqueue(OutboundFrame{
		Type:           FrameMarked,
		RequestID:      in.RequestID,
		ConversationID: feed.ConversationID(),
		Marked:         &n,
	})
}

// forward relays one feed until it is detached
func (c *Client) forward(feed *realtime.Feed) {
	for d := range feed.Deliveries() {
		if c.bridge.Current() != feed {
			continue
		}
		switch d.Kind {
		case realtime.DeliveryMessage:
			c.enqueue(OutboundFrame{Type: FrameMessage, ConversationID: d.ConversationID, Message: d.Message})
		case realtime.DeliveryOutOfSync:
			c.enqueue(OutboundFrame{Type: FrameOutOfSync, ConversationID: d.ConversationID, Reason: d.Reason})
		}
	}
}

// enqueue hands a frame to WritePump; a full buffer closes the connection
func (c *Client) enqueue(frame OutboundFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		c.log.Error().Err(err).Str("type", frame.Type).Msg("encode frame failed")
		return
	}

	select {
	case <-c.closed:
		return
	default:
	}

	select {
	case c.send <- data:
	case <-c.closed:
	default:
		framesRejected.WithLabelValues("slow_consumer").Inc()
		c.log.Warn().Msg("send buffer full, closing connection")
		c.shutdown()
	}
}

func (c *Client) shutdown() {
	c.once.Do(func() { close(c.closed) })
}

// WritePump sends queued frames and keepalive pings to the WebSocket
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message) //nolint:errcheck
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closed:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
			return
		}
	}
}
