package fcm

import (
	"context"
	"fmt"

	"aura-backend/pkg/logger"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Client wraps Firebase Cloud Messaging functionality
type Client struct {
	messagingClient *messaging.Client
	log             *zap.Logger
}

// NewClient creates a new FCM client using the provided credentials file
func NewClient(ctx context.Context, credentialsFile string, log *zap.Logger) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	log.Info("FCM client initialized")
	return &Client{
		messagingClient: messagingClient,
		log:             log,
	}, nil
}

// NotificationData contains the data to send in a push notification
type NotificationData struct {
	Title string
	Body  string
	// Data is delivered to the device untouched; Data["type"] drives client-side routing.
	Data map[string]string
	// CollapseKey lets a newer push for the same conversation replace an older one.
	CollapseKey string
}

// SendResult reports per-token delivery problems from a multicast send.
type SendResult struct {
	SuccessCount int
	// Unregistered tokens were rejected by FCM as no longer valid and should be revoked.
	Unregistered []string
	// Failed tokens hit a transient error and may be retried later.
	Failed []string
}

// SendToDevices sends a push notification to multiple device tokens
func (c *Client) SendToDevices(ctx context.Context, tokens []string, notification NotificationData) (*SendResult, error) {
	if len(tokens) == 0 {
		return &SendResult{}, nil
	}

	response, err := c.messagingClient.SendEachForMulticast(ctx, buildMulticast(tokens, notification))
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	c.log.Debug("Multicast sent",
		zap.Int("success", response.SuccessCount),
		zap.Int("failure", response.FailureCount))

	result := &SendResult{SuccessCount: response.SuccessCount}
	for i, resp := range response.Responses {
		if resp.Success {
			continue
		}
		if messaging.IsUnregistered(resp.Error) || messaging.IsInvalidArgument(resp.Error) {
			result.Unregistered = append(result.Unregistered, tokens[i])
		} else {
			result.Failed = append(result.Failed, tokens[i])
		}
		c.log.Warn("Failed to send to token",
			zap.String("token", logger.MaskToken(tokens[i])),
			zap.Error(resp.Error))
	}

	return result, nil
}

func buildMulticast(tokens []string, notification NotificationData) *messaging.MulticastMessage {
	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   notification.Data,
		Android: &messaging.AndroidConfig{
			Priority:    "high",
			CollapseKey: notification.CollapseKey,
		},
	}
	if notification.Title != "" || notification.Body != "" {
		msg.Notification = &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		}
	}
	return msg
}
