// Package notification delivers rendered messages to users.
//
// The Notifier interface is the only thing the token services know about
// delivery. A Message carries a recipient, a subject and an HTML body that
// has already been rendered; notifiers never see tokens or templates.
//
// # Email Notifications (SMTP)
//
//	notifier, err := notification.NewEmailNotifier(notification.SMTPConfig{
//	    Host:     "smtp.example.com",
//	    Port:     587,
//	    TLS:      true,
//	    Username: "mailer",
//	    Password: "secret",
//	    From:     "noreply@example.com",
//	})
//	if err != nil {
//	    return err
//	}
//	err = notifier.Send(ctx, notification.Message{
//	    To:      "user@example.com",
//	    Subject: "Verify your email",
//	    HTML:    body,
//	})
//
// # Testing
//
// MockNotifier records every message and can be told to fail:
//
//	mock := notification.NewMockNotifier()
//	mock.FailWith(errors.New("smtp down"))
package notification
