package clients

import (
	"context"
	"fmt"

	ws "agreepay/internal/transport/websocket"
)

// WebSocketClient pushes payment lifecycle events to connected participants.
type WebSocketClient struct {
	hub *ws.Hub
}

func NewWebSocketClient(hub *ws.Hub) *WebSocketClient {
	return &WebSocketClient{hub: hub}
}

// NotifyPaymentReceived tells every participant that one of them paid their
// share.
func (c *WebSocketClient) NotifyPaymentReceived(ctx context.Context, participants []int64, agreementID string, payerID int64, amount float64) error {
	if c.hub == nil {
		return nil
	}

	for _, userID := range participants {
		message := &ws.Message{
			Type:    "payment_received",
			Channel: fmt.Sprintf("agreement_payments#%s", agreementID),
			Data: map[string]any{
				"agreement_id": agreementID,
				"payer_id":     payerID,
				"amount":       amount,
			},
		}
		c.hub.Broadcast(userID, message)
	}
	return nil
}

// NotifyAgreementPaid announces that every required share is covered and the
// agreement may be finalized.
func (c *WebSocketClient) NotifyAgreementPaid(ctx context.Context, participants []int64, agreementID string) error {
	if c.hub == nil {
		return nil
	}

	for _, userID := range participants {
		message := &ws.Message{
			Type:    "payment_completed",
			Channel: fmt.Sprintf("agreement_payments#%s", agreementID),
			Data: map[string]any{
				"agreement_id": agreementID,
				"can_finalize": true,
			},
		}
		c.hub.Broadcast(userID, message)
	}
	return nil
}

// NotifyPaymentRefunded tells participants that a completed share was
// refunded and the agreement is no longer fully paid.
func (c *WebSocketClient) NotifyPaymentRefunded(ctx context.Context, participants []int64, agreementID string, payerID int64, amount float64) error {
	if c.hub == nil {
		return nil
	}

	for _, userID := range participants {
		message := &ws.Message{
			Type:    "payment_refunded",
			Channel: fmt.Sprintf("agreement_payments#%s", agreementID),
			Data: map[string]any{
				"agreement_id": agreementID,
				"payer_id":     payerID,
				"amount":       amount,
			},
		}
		c.hub.Broadcast(userID, message)
	}
	return nil
}

// NotifyStatementProgress reports statement export progress to its owner.
func (c *WebSocketClient) NotifyStatementProgress(ctx context.Context, userID int64, exportID string, progress float64, stage string) error {
	if c.hub == nil {
		return nil
	}

	data := map[string]any{
		"id":       exportID,
		"progress": progress,
	}
	if stage != "" {
		data["stage"] = stage
	}

	c.hub.Broadcast(userID, &ws.Message{
		Type:    "statement_progress",
		Channel: fmt.Sprintf("statement_exports#%d", userID),
		Data:    data,
	})
	return nil
}

// NotifyStatementComplete delivers the download URL for a finished export.
func (c *WebSocketClient) NotifyStatementComplete(ctx context.Context, userID int64, exportID, url, filename string) error {
	if c.hub == nil {
		return nil
	}

	c.hub.Broadcast(userID, &ws.Message{
		Type:    "statement_complete",
		Channel: fmt.Sprintf("statement_exports#%d", userID),
		Data: map[string]any{
			"id":       exportID,
			"url":      url,
			"filename": filename,
			"user_id":  userID,
		},
	})
	return nil
}

// NotifyStatementFailed reports a failed export with the error message.
func (c *WebSocketClient) NotifyStatementFailed(ctx context.Context, userID int64, exportID, errMsg string) error {
	if c.hub == nil {
		return nil
	}

	c.hub.Broadcast(userID, &ws.Message{
		Type:    "statement_failed",
		Channel: fmt.Sprintf("statement_exports#%d", userID),
		Data: map[string]any{
			"id":      exportID,
			"message": errMsg,
			"user_id": userID,
		},
	})
	return nil
}
