package models

// OutboundMessageRequest is a manual operator message sent through the alert channel.
type OutboundMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message" binding:"required"`
}

// OutboundMessageResponse identifies the delivered message.
type OutboundMessageResponse struct {
	MessageID string `json:"message_id"`
	To        string `json:"to,omitempty"`
}
