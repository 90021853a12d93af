package inquiry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Result is what the visitor is sent on to.
type Result struct {
	Submission   Submission
	WhatsAppLink string
}

// Service accepts visitor submissions.
type Service struct {
	relay  *Relay
	logger *zap.Logger
	now    func() time.Time
}

// NewService builds a Service. A nil relay skips the webhook.
func NewService(relay *Relay, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{relay: relay, logger: logger, now: time.Now}
}

// Submit validates raw, hands it to the webhook relay without waiting and
// returns the WhatsApp link. Validation failures are FieldErrors.
func (s *Service) Submit(ctx context.Context, raw Submission) (Result, error) {
	sub := raw.Normalize()
	if err := sub.Validate(); err != nil {
		return Result{}, err
	}
	s.relay.Dispatch(ctx, NewPayload(sub, s.now()))
	s.logger.Info("inquiry accepted",
		zap.String("mode", string(sub.Mode)),
		zap.String("product", sub.ProductName),
		zap.Bool("relayed", s.relay.Enabled()),
	)
	return Result{Submission: sub, WhatsAppLink: WhatsAppLink(sub)}, nil
}
