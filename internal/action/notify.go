package action

import (
	"context"
	"log/slog"

	"github.com/tombee/docflow/internal/log"
)

// NewNotifyHandler creates the send_email handler. Delivery is
// declarative: the handler logs the notification and reports success
// without guaranteeing the message left the machine, matching the
// notify contract of the workflow model.
func NewNotifyHandler(logger *slog.Logger) Handler {
	notifyLogger := log.WithComponent(logger, "notify")

	return func(ctx context.Context, config, state map[string]interface{}) (map[string]interface{}, error) {
		to := stringValue(config, "to", "")
		subject := stringValue(config, "subject", "")

		notifyLogger.Info("sending email",
			slog.String("to", to),
			slog.String("subject", subject))

		return map[string]interface{}{
			"status":  "success",
			"sent_to": to,
			"subject": subject,
		}, nil
	}
}
