package utils

import "github.com/sirupsen/logrus"

// Mailer is the outbound email collaborator. Actual delivery is
// external to this service; the default implementation only logs.
type Mailer interface {
	SendVerificationCode(to, code string) error
}

// DefaultMailer is swapped for a real delivery implementation at
// startup when one is configured.
var DefaultMailer Mailer = &LogMailer{}

// LogMailer writes would-be emails to the log
type LogMailer struct{}

func (m *LogMailer) SendVerificationCode(to, code string) error {
	logrus.WithFields(logrus.Fields{
		"to": to,
	}).Infof("verification code issued: %s", code)
	return nil
}
