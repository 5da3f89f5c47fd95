package utils

import (
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskhive/models"
)

// PendingNotification is one fan-out target computed by a mutation.
// Controllers collect these while applying the change and hand them to
// the dispatcher only after the mutation has been persisted.
type PendingNotification struct {
	RecipientID uint
	SenderID    uint
	TeamID      *uint
	Type        string
	Title       string
	Message     string
}

// Notifier writes notification records produced by task and team
// mutations
type Notifier struct {
	DB *gorm.DB
}

func NewNotifier(db *gorm.DB) *Notifier {
	return &Notifier{DB: db}
}

// Dispatch creates one notification per pending record. Records for
// independent recipients are written concurrently. Delivery is
// best-effort: a failed write is logged and reported, never surfaced to
// the caller, so the triggering mutation still succeeds. Callers must
// only invoke Dispatch after the mutation has committed.
func (n *Notifier) Dispatch(pending []PendingNotification) {
	var wg sync.WaitGroup
	for _, p := range pending {
		// Zero self-notifications in every fan-out
		if p.RecipientID == p.SenderID {
			continue
		}

		wg.Add(1)
		go func(p PendingNotification) {
			defer wg.Done()

			notification := models.Notification{
				RecipientID: p.RecipientID,
				SenderID:    p.SenderID,
				TeamID:      p.TeamID,
				Type:        p.Type,
				Title:       p.Title,
				Message:     p.Message,
			}
			if err := n.DB.Create(&notification).Error; err != nil {
				logrus.WithFields(logrus.Fields{
					"recipient_id": p.RecipientID,
					"sender_id":    p.SenderID,
					"type":         p.Type,
				}).WithError(err).Error("notification write failed")
				sentry.CaptureException(err)
			}
		}(p)
	}
	wg.Wait()
}
