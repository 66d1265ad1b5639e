package email

import (
	"context"
	"log/slog"

	"github.com/FrontGate/FrontGate/pkg/common"
)

// StubMailer records the last message of each kind instead of dialing SMTP.
type StubMailer struct {
	ReviewRequests []string
	PasscodeEmails []string
	LastCode       string
	Err            error
}

var _ common.Mailer = (*StubMailer)(nil)

func (sm *StubMailer) SendReviewRequest(ctx context.Context, identity string, photo *common.PhotoRef) error {
	if sm.Err != nil {
		return sm.Err
	}

	slog.InfoContext(ctx, "Sent review request", "identity", identity)
	sm.ReviewRequests = append(sm.ReviewRequests, identity)
	return nil
}

func (sm *StubMailer) SendPasscode(ctx context.Context, email, code string) error {
	if sm.Err != nil {
		return sm.Err
	}

	slog.InfoContext(ctx, "Sent passcode via email", "email", email)
	sm.PasscodeEmails = append(sm.PasscodeEmails, email)
	sm.LastCode = code
	return nil
}
