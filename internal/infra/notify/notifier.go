package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
	"github.com/dadyutenga/driver-app-backend/internal/core/port"
	"github.com/dadyutenga/driver-app-backend/internal/infra/logger"
)

// purposeLabels drive the message copy per challenge flow.
var purposeLabels = map[domain.ChallengePurpose]string{
	domain.PurposeEmailVerify:   "email verification",
	domain.PurposePhoneVerify:   "phone verification",
	domain.PurposePasswordReset: "password reset",
	domain.PurposeLogin:         "login verification",
}

// BuildDelivery renders the outbound message for a challenge. The code is the
// only secret in the body; everything else is static copy.
func BuildDelivery(challenge domain.Challenge) port.Delivery {
	label := purposeLabels[challenge.Purpose]
	if label == "" {
		label = "verification"
	}

	minutes := int(challenge.ExpiresAt.Sub(challenge.CreatedAt).Minutes())
	if minutes <= 0 {
		minutes = 10
	}

	return port.Delivery{
		Recipient: challenge.Recipient,
		Subject:   fmt.Sprintf("Your %s code", label),
		Body:      fmt.Sprintf("Your %s code is: %s. Valid for %d minutes.", label, challenge.Code, minutes),
	}
}

// ChannelNotifier routes a delivery to the email or SMS sender based on the
// recipient shape.
type ChannelNotifier struct {
	email port.Notifier
	sms   port.Notifier
}

// NewChannelNotifier constructs a notifier that fans out by recipient format.
func NewChannelNotifier(email, sms port.Notifier) *ChannelNotifier {
	return &ChannelNotifier{email: email, sms: sms}
}

// Send picks the channel by looking for an '@' in the recipient.
func (n *ChannelNotifier) Send(ctx context.Context, delivery port.Delivery) error {
	if strings.Contains(delivery.Recipient, "@") {
		if n.email == nil {
			return fmt.Errorf("email notifier not configured")
		}
		return n.email.Send(ctx, delivery)
	}

	if n.sms == nil {
		return fmt.Errorf("sms notifier not configured")
	}
	return n.sms.Send(ctx, delivery)
}

// LoggingNotifier writes deliveries to the log with the code masked out.
// It stands in for real providers in development environments.
type LoggingNotifier struct {
	channel string
	logger  *zap.Logger
}

// NewLoggingNotifier constructs a development notifier for the named channel.
func NewLoggingNotifier(channel string, log *zap.Logger) *LoggingNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingNotifier{channel: channel, logger: log}
}

// Send logs the delivery instead of contacting a provider.
func (n *LoggingNotifier) Send(_ context.Context, delivery port.Delivery) error {
	n.logger.Info("delivery dispatched",
		zap.String("channel", n.channel),
		zap.String("recipient", logger.MaskRecipient(delivery.Recipient)),
		zap.String("subject", delivery.Subject),
	)
	return nil
}

var (
	_ port.Notifier = (*ChannelNotifier)(nil)
	_ port.Notifier = (*LoggingNotifier)(nil)
)
