package notifications

import (
	"context"
	"fmt"

	"github.com/recicar/marketplace-backend/pkg/logger"
)

// LogSender writes notifications to the structured log instead of an email
// provider. It keeps the delivery path observable until a real provider is
// wired in.
type LogSender struct {
	logg *logger.Logger
}

// NewLogSender builds the log-backed sender.
func NewLogSender(logg *logger.Logger) (*LogSender, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &LogSender{logg: logg}, nil
}

// Send logs the message payload.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	fields := map[string]any{
		"kind":      msg.Kind.String(),
		"recipient": msg.Recipient,
		"subject":   msg.Subject,
	}
	for k, v := range msg.Fields {
		fields["field_"+k] = v
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "notification sent")
	return nil
}
