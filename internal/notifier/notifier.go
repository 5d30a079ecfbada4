package notifier

import (
	"context"
	"fmt"
	"log"

	"github.com/gopawz/booking/config"
	"github.com/gopawz/booking/internal/kafka"
)

// Sender dispatches notification events to email and SMS. Channel enable
// flags come from config at construction, not from env lookups.
type Sender struct {
	emailEnabled bool
	smsEnabled   bool
	fromEmail    string
}

func NewSender(cfg config.NotificationsConfig) *Sender {
	return &Sender{
		emailEnabled: cfg.EmailEnabled,
		smsEnabled:   cfg.SMSEnabled,
		fromEmail:    cfg.FromEmail,
	}
}

func (s *Sender) Send(ctx context.Context, event kafka.NotificationEvent) error {
	subject, body := compose(event)
	if subject == "" {
		log.Printf("skipping notification with unknown kind %q for booking %s", event.Kind, event.BookingID)
		return nil
	}

	if s.emailEnabled && event.Email != "" {
		fmt.Printf("send email from %s to %s subject %q: %s\n", s.fromEmail, event.Email, subject, body)
	}
	if s.smsEnabled && event.Phone != "" {
		fmt.Printf("send sms to %s: GoPAWZ: %s\n", event.Phone, body)
	}
	return nil
}

func compose(event kafka.NotificationEvent) (subject, body string) {
	date := event.Date.Format("January 2, 2006 at 3:04 PM")

	switch event.Kind {
	case kafka.NotificationBookingConfirmed:
		return fmt.Sprintf("Booking Confirmed - %s's Session", event.PetName),
			fmt.Sprintf("%s's session is confirmed for %s (%s). You'll receive a QR code 24 hours before.", event.PetName, date, event.TimeSlot)
	case kafka.NotificationReminder:
		return fmt.Sprintf("Reminder: %s's Session Tomorrow", event.PetName),
			fmt.Sprintf("%s's session is coming up on %s (%s). Your check-in QR code is available now.", event.PetName, date, event.TimeSlot)
	case kafka.NotificationCancelled:
		body := fmt.Sprintf("%s's session on %s has been cancelled.", event.PetName, date)
		if event.RefundCents > 0 {
			body += fmt.Sprintf(" A refund of $%.2f is on its way.", float64(event.RefundCents)/100)
		}
		return "Booking Cancelled", body
	case kafka.NotificationRescheduled:
		return "Booking Rescheduled",
			fmt.Sprintf("%s's session moved from %s to %s (%s).", event.PetName, event.OldDate.Format("January 2, 2006 at 3:04 PM"), date, event.TimeSlot)
	case kafka.NotificationCompleted:
		body := fmt.Sprintf("%s crushed it today! The session on %s is complete.", event.PetName, date)
		if event.MediaURL != "" {
			body += " Photos and videos: " + event.MediaURL
		}
		return fmt.Sprintf("Session Complete - %s", event.PetName), body
	}
	return "", ""
}
