package notify

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/gomail.v2"

	"event-ticketing-core/internal/config"
)

// mailSender is the part of gomail.Dialer the notifier uses
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier mails tickets with their QR codes attached
type SMTPNotifier struct {
	sender   mailSender
	from     string
	fromName string
}

// NewSMTPNotifier creates a notifier that sends through the configured SMTP relay
func NewSMTPNotifier(cfg config.EmailConfig) *SMTPNotifier {
	return &SMTPNotifier{
		sender:   gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:     cfg.FromEmail,
		fromName: cfg.FromName,
	}
}

// Deliver sends one message per order
func (n *SMTPNotifier) Deliver(ctx context.Context, d *Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := n.buildMessage(d)
	if err != nil {
		return err
	}

	if err := n.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send tickets for order %s: %w", d.OrderNumber, err)
	}
	return nil
}

func (n *SMTPNotifier) buildMessage(d *Delivery) (*gomail.Message, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", n.from, n.fromName)
	m.SetAddressHeader("To", d.RecipientEmail, d.RecipientName)
	m.SetHeader("Subject", fmt.Sprintf("Your tickets for %s - %s", d.EventTitle, d.OrderNumber))
	m.SetBody("text/plain", plainBody(d))

	for _, ticket := range d.Tickets {
		if len(ticket.PNG) == 0 {
			continue
		}
		img := ticket.PNG
		m.Attach(
			fmt.Sprintf("%s-ticket-%d.png", d.OrderNumber, ticket.Sequence),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(img)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {"image/png"}}),
		)
	}

	return m, nil
}

func plainBody(d *Delivery) string {
	var b strings.Builder

	name := d.RecipientName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Order %s for %s is confirmed. Present the attached QR codes at the entrance.\n\n", d.OrderNumber, d.EventTitle)
	for _, ticket := range d.Tickets {
		fmt.Fprintf(&b, "  #%d %s\n", ticket.Sequence, ticket.TypeName)
		if ticket.ImageURL != "" {
			fmt.Fprintf(&b, "     %s\n", ticket.ImageURL)
		}
	}

	return b.String()
}
