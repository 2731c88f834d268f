package scheduling

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medibook/booking/internal/platform/websocket"
)

// Feed publishes committed changes to the patient's, the doctor's and the
// admin topic.
type Feed struct {
	pub    websocket.EventPublisher
	logger zerolog.Logger
}

func NewFeed(pub websocket.EventPublisher, logger zerolog.Logger) *Feed {
	return &Feed{pub: pub, logger: logger}
}

func (f *Feed) AppointmentChanged(ctx context.Context, a Appointment, change StatusChange) {
	data, err := json.Marshal(a)
	if err != nil {
		f.logger.Error().Err(err).Msg("marshal appointment event")
		return
	}
	topics := []string{
		websocket.PatientTopic(a.PatientID.String()),
		websocket.DoctorTopic(a.DoctorID.String()),
		websocket.AdminTopic,
	}
	for _, topic := range topics {
		ev := websocket.Event{
			Type:          "appointment." + strings.ToLower(string(change.To)),
			Topic:         topic,
			AppointmentID: a.ID.String(),
			From:          string(change.From),
			To:            string(change.To),
			Timestamp:     change.ChangedAt,
			Data:          data,
		}
		if err := f.pub.Publish(ctx, ev); err != nil {
			f.logger.Warn().Err(err).Str("topic", topic).Msg("publish appointment event")
		}
	}
}
