package webhooks

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"line-register-bot/middleware"
	"line-register-bot/models"
)

// MessageProcessor handles one inbound message
type MessageProcessor interface {
	HandleMessage(ctx context.Context, msg models.InboundMessage) string
}

// Dispatch runs processing for a decoded webhook. The default runs it in a
// new goroutine so LINE gets its 200 right away; tests swap it for a
// synchronous call
type Dispatch func(func())

// Async is the production Dispatch
func Async(fn func()) { go fn() }

// RegisterRoutes mounts POST /webhook, guarded by the LINE signature check
func RegisterRoutes(app *fiber.App, channelSecret string, processor MessageProcessor, dispatch Dispatch, timeout time.Duration) {
	webhook := app.Group("/webhook")
	webhook.Post("/", middleware.VerifyLineSignature(channelSecret), handleWebhookEvent(processor, dispatch, timeout))
}

// handleWebhookEvent acknowledges the delivery and hands the events off
func handleWebhookEvent(processor MessageProcessor, dispatch Dispatch, timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body WebhookEvent
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			slog.Error("Failed to parse webhook body", "error", err)
			return c.SendStatus(fiber.StatusBadRequest)
		}

		// LINE sends an empty event list when verifying the webhook URL
		if len(body.Events) == 0 {
			return c.SendStatus(fiber.StatusOK)
		}

		received := time.Now()
		dispatch(func() { processWebhookEvent(processor, body, received, timeout) })

		return c.SendStatus(fiber.StatusOK)
	}
}

// processWebhookEvent handles the events of one delivery in order
func processWebhookEvent(processor MessageProcessor, body WebhookEvent, received time.Time, timeout time.Duration) {
	for _, event := range body.Events {
		msg, ok := ToInboundMessage(event, received)
		if !ok {
			slog.Debug("Ignoring event", "type", event.Type, "sourceType", event.Source.Type)
			continue
		}

		slog.Info("Handling message",
			"userID", msg.UserID,
			"isImage", msg.IsImage,
			"eventID", event.WebhookEventID,
		)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		processor.HandleMessage(ctx, msg)
		cancel()
	}
}

// ToInboundMessage converts a LINE event into the bot's input. Only text and
// image messages from one-to-one chats are accepted
func ToInboundMessage(event Event, received time.Time) (models.InboundMessage, bool) {
	if event.Type != "message" || event.Message == nil {
		return models.InboundMessage{}, false
	}
	if event.Source.Type != "user" || event.Source.UserID == "" {
		return models.InboundMessage{}, false
	}

	msg := models.InboundMessage{
		UserID:     event.Source.UserID,
		ReplyToken: event.ReplyToken,
		ReceivedAt: received,
	}
	// Redeliveries carry no usable reply token
	if event.DeliveryContext != nil && event.DeliveryContext.IsRedelivery {
		msg.ReplyToken = ""
	}

	switch event.Message.Type {
	case "text":
		msg.Text = event.Message.Text
	case "image":
		msg.IsImage = true
	default:
		return models.InboundMessage{}, false
	}
	return msg, true
}
