package email

import (
	"context"
	"fmt"
	"net/url"

	"github.com/FrontGate/FrontGate/pkg/common"
	"github.com/FrontGate/FrontGate/pkg/config"
)

// VisitorMailer sends the two pipeline notifications: the operator review
// request for unauthorized visitors and the access code for authorized ones.
type VisitorMailer struct {
	mailer        *SimpleMailer
	operatorEmail string
	reviewBaseURL string
}

var _ common.Mailer = (*VisitorMailer)(nil)

func NewVisitorMailer(cfg *config.Config) *VisitorMailer {
	return &VisitorMailer{
		mailer: &SimpleMailer{
			URL:      cfg.SMTPServerURL(),
			Username: cfg.SMTPUsername(),
			Password: cfg.SMTPPassword(),
			Sender:   cfg.SMTPSender(),
		},
		operatorEmail: cfg.OperatorEmail(),
		reviewBaseURL: cfg.ReviewBaseURL(),
	}
}

// reviewLink reproduces the operator frontend contract: identity and the
// enrollment photo key travel as query parameters.
func (vm *VisitorMailer) reviewLink(identity string, photo *common.PhotoRef) string {
	values := url.Values{}
	values.Set(common.ParamFaceID, identity)
	if photo != nil {
		values.Set(common.ParamObjectKey, photo.ObjectKey)
	}

	return fmt.Sprintf("%s/?%s", vm.reviewBaseURL, values.Encode())
}

func (vm *VisitorMailer) SendReviewRequest(ctx context.Context, identity string, photo *common.PhotoRef) error {
	msg := &Message{
		TextBody: fmt.Sprintf("A visitor is at the door. Review and approve them here:\n\n%s\n",
			vm.reviewLink(identity, photo)),
		Subject: fmt.Sprintf("[%s] New visitor", common.FrontGate),
		Email:   vm.operatorEmail,
	}

	return vm.mailer.SendEmail(ctx, msg)
}

func (vm *VisitorMailer) SendPasscode(ctx context.Context, email, code string) error {
	msg := &Message{
		TextBody: fmt.Sprintf("Your one-time access code is %s\n", code),
		Subject:  fmt.Sprintf("[%s] Your access code", common.FrontGate),
		Email:    email,
	}

	return vm.mailer.SendEmail(ctx, msg)
}
