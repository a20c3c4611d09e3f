package gateway

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/agromesh/realtime-gateway/internal/dispatch"
	"github.com/agromesh/realtime-gateway/internal/room"
	"github.com/agromesh/realtime-gateway/internal/session"
	"github.com/agromesh/realtime-gateway/internal/topic"
)

// handleFrame dispatches one parsed client frame. Faults are answered
// with error frames; it reports whether the frame was a protocol fault
// so the read loop can close repeat offenders.
func (s *Server) handleFrame(sess *session.Session, data []byte) (faulted bool) {
	var f clientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		s.sendError(sess, errBadFrame, "frame is not valid JSON")
		return true
	}

	switch f.Type {
	case frameSubscribe:
		s.handleSubscribe(sess, f.Topics)
	case frameUnsubscribe:
		s.handleUnsubscribe(sess, f.Topics)
	case frameJoinRoom:
		if f.Room == "" {
			s.sendError(sess, errMissingField, "join_room requires room")
			return true
		}
		s.handleSubscribe(sess, []string{f.Room})
	case frameLeaveRoom:
		if f.Room == "" {
			s.sendError(sess, errMissingField, "leave_room requires room")
			return true
		}
		s.handleUnsubscribe(sess, []string{f.Room})
	case frameBroadcast:
		s.handleBroadcast(sess, f.Room, f.Message)
	case framePing:
		s.sendFrame(sess, pongFrame{Type: "pong", Timestamp: time.Now().UTC()})
	case frameTyping:
		s.handleTyping(sess, f.Room, f.Typing)
	case frameRead:
		s.handleRead(sess, f.Room, f.MessageID)
	case "":
		s.sendError(sess, errMissingField, "frame requires type")
		return true
	default:
		s.sendError(sess, errUnknownType, "unknown frame type "+f.Type)
		return true
	}
	return false
}

// handleSubscribe applies each requested topic independently and acks
// with per-topic outcomes. A failed topic never blocks the others.
func (s *Server) handleSubscribe(sess *session.Session, topics []string) {
	if len(topics) == 0 {
		s.sendError(sess, errMissingField, "subscribe requires topics")
		return
	}

	ack := ackFrame{
		Type:     "subscribed",
		Accepted: make([]string, 0, len(topics)),
		Failed:   make([]failedTopic, 0),
	}
	for _, t := range topics {
		if reason := s.authorizeSubscription(sess, t); reason != "" {
			ack.Failed = append(ack.Failed, failedTopic{Topic: t, Reason: reason})
			continue
		}
		if _, err := s.index.Subscribe(sess.ID, t); err != nil {
			reason := "limit_exceeded"
			if !errors.Is(err, room.ErrTooManySubscriptions) {
				reason = err.Error()
			}
			ack.Failed = append(ack.Failed, failedTopic{Topic: t, Reason: reason})
			continue
		}
		ack.Accepted = append(ack.Accepted, t)
	}
	s.sendFrame(sess, ack)
}

func (s *Server) authorizeSubscription(sess *session.Session, t string) (reason string) {
	if err := topic.Validate(t, true); err != nil {
		return "invalid_topic"
	}
	if err := topic.Authorize(t, sess.Identity.Tenant, sess.Identity.Subject); err != nil {
		return "forbidden"
	}
	return ""
}

func (s *Server) handleUnsubscribe(sess *session.Session, topics []string) {
	if len(topics) == 0 {
		s.sendError(sess, errMissingField, "unsubscribe requires topics")
		return
	}

	ack := ackFrame{
		Type:     "unsubscribed",
		Accepted: make([]string, 0, len(topics)),
		Failed:   make([]failedTopic, 0),
	}
	for _, t := range topics {
		// Unsubscribing from a topic the session never held is not an
		// error; the outcome is the same.
		s.index.Unsubscribe(sess.ID, t)
		ack.Accepted = append(ack.Accepted, t)
	}
	s.sendFrame(sess, ack)
}

// handleBroadcast publishes a client message to a room the session is a
// member of. The message fans out through the dispatcher so it follows
// the same priority and backpressure path as bus events.
func (s *Server) handleBroadcast(sess *session.Session, roomTopic string, message json.RawMessage) {
	if roomTopic == "" || len(message) == 0 {
		s.sendError(sess, errMissingField, "broadcast requires room and message")
		return
	}
	if !sess.Limiter.Allow() {
		s.sendError(sess, errRateLimited, "broadcast rate exceeded")
		return
	}
	if err := topic.Validate(roomTopic, false); err != nil {
		s.sendError(sess, errInvalidTopic, "invalid room "+roomTopic)
		return
	}
	if err := topic.Authorize(roomTopic, sess.Identity.Tenant, sess.Identity.Subject); err != nil {
		s.sendError(sess, errInvalidTopic, "room not permitted")
		return
	}
	if !s.index.CoveredBy(sess.ID, roomTopic) {
		s.sendError(sess, errNotSubscribed, "not a member of "+roomTopic)
		return
	}

	eventType := "broadcast"
	if topic.Namespace(roomTopic) == "chat" {
		eventType = "chat.message"
	}

	s.dispatcher.Publish(dispatch.Event{
		Topic:      roomTopic,
		EventType:  eventType,
		Payload:    message,
		Priority:   topic.PriorityMedium,
		Subject:    sess.Identity.Subject,
		IngestTime: time.Now().UTC(),
	})
}

// handleTyping fans a typing indicator out to the chat room. Indicators
// are low priority: a dropped one is superseded by the next.
func (s *Server) handleTyping(sess *session.Session, roomTopic string, typing *bool) {
	if roomTopic == "" || typing == nil {
		s.sendError(sess, errMissingField, "typing requires room and typing")
		return
	}
	payload, _ := json.Marshal(map[string]any{
		"room":    roomTopic,
		"subject": sess.Identity.Subject,
		"typing":  *typing,
	})
	s.publishChat(sess, roomTopic, "chat.typing", payload, topic.PriorityLow)
}

func (s *Server) handleRead(sess *session.Session, roomTopic, messageID string) {
	if roomTopic == "" || messageID == "" {
		s.sendError(sess, errMissingField, "read requires room and message_id")
		return
	}
	payload, _ := json.Marshal(map[string]any{
		"room":       roomTopic,
		"subject":    sess.Identity.Subject,
		"message_id": messageID,
	})
	s.publishChat(sess, roomTopic, "chat.read", payload, topic.PriorityLow)
}

func (s *Server) publishChat(sess *session.Session, roomTopic, eventType string, payload json.RawMessage, prio topic.Priority) {
	if err := topic.Validate(roomTopic, false); err != nil {
		s.sendError(sess, errInvalidTopic, "invalid room "+roomTopic)
		return
	}
	if err := topic.Authorize(roomTopic, sess.Identity.Tenant, sess.Identity.Subject); err != nil {
		s.sendError(sess, errInvalidTopic, "room not permitted")
		return
	}
	if !s.index.CoveredBy(sess.ID, roomTopic) {
		s.sendError(sess, errNotSubscribed, "not a member of "+roomTopic)
		return
	}

	s.dispatcher.Publish(dispatch.Event{
		Topic:      roomTopic,
		EventType:  eventType,
		Payload:    payload,
		Priority:   prio,
		Subject:    sess.Identity.Subject,
		IngestTime: time.Now().UTC(),
	})
}

// sendFrame enqueues a control-plane response at critical priority so it
// survives queue pressure ahead of data events.
func (s *Server) sendFrame(sess *session.Session, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode control frame", "error", err)
		return
	}
	sess.Queue.Enqueue(session.Frame{
		Data:     data,
		Priority: topic.PriorityCritical,
	})
}

func (s *Server) sendError(sess *session.Session, code, message string) {
	s.sendFrame(sess, errorFrame{Type: "error", Code: code, Message: message})
}
