package ws

import (
	"net/http"

	"github.com/skillswap/skillswap-backend/internal/common"
	"github.com/skillswap/skillswap-backend/internal/domain"
)

// Client frame types
const (
	FrameOpen  = "open"  // attach to conversation_id and receive its history
	FrameClose = "close" // detach from the open conversation
	FrameSend  = "send"  // send content to the open conversation
	FrameRead  = "read"  // mark the open conversation read
)

// Server frame types
const (
	FrameHistory   = "history"
	FrameMessage   = "message"
	FrameSent      = "sent"
	FrameMarked    = "marked"
	FrameClosed    = "closed"
	FrameOutOfSync = "out_of_sync"
	FrameError     = "error"
)

// InboundFrame a client to server frame
type InboundFrame struct {
	Type           string  `json:"type"`
	RequestID      string  `json:"request_id,omitempty"`
	ConversationID string  `json:"conversation_id,omitempty"`
	Content        string  `json:"content,omitempty"`
	ReplyTo        *string `json:"reply_to,omitempty"`
}

// OutboundFrame a server to client frame; request_id echoes the frame it answers
type OutboundFrame struct {
	Type           string            `json:"type"`
	RequestID      string            `json:"request_id,omitempty"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Message        *domain.Message   `json:"message,omitempty"`
	Messages       []*domain.Message `json:"messages,omitempty"`
	MessageID      string            `json:"message_id,omitempty"`
	Marked         *int64            `json:"marked,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	Error          *common.ErrorInfo `json:"error,omitempty"`
}

func errorFrame(requestID, code, message string) OutboundFrame {
	return OutboundFrame{
		Type:      FrameError,
		RequestID: requestID,
		Error:     &common.ErrorInfo{Code: code, Message: message},
	}
}

// failureFrame maps a service error; internal causes are not exposed
func failureFrame(requestID string, err error) OutboundFrame {
	message := err.Error()
	if common.StatusFor(err) >= http.StatusInternalServerError {
		message = "internal error"
	}
	return errorFrame(requestID, common.CodeFor(err), message)
}
