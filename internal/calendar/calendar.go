package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"regsync/internal/models"
)

const productID = "-//regsync//EN"

// Build renders maintenance windows as a VCALENDAR with one VEVENT per window.
// now is used as the DTSTAMP of every event.
func Build(windows []models.MaintenanceWindow, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, w := range windows {
		cal.Children = append(cal.Children, event(w, now))
	}
	return cal
}

// Write encodes the calendar in iCalendar format.
func Write(cal *ical.Calendar, w io.Writer) error {
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func event(w models.MaintenanceWindow, now time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, UID(w))
	ve.Props.SetText(ical.PropSummary, summary(w))
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, w.FromTime)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, w.ToTime)

	description := w.Reason
	if w.Remark != "" {
		if description != "" {
			description += "\n"
		}
		description += w.Remark
	}
	if description != "" {
		ve.Props.SetText(ical.PropDescription, description)
	}
	return ve
}

func summary(w models.MaintenanceWindow) string {
	return "Registry maintenance: " + strings.Join(w.Systems, ", ")
}

// UID derives a stable identifier from the window's start instant, so
// repeated exports do not churn subscribed calendars.
func UID(w models.MaintenanceWindow) string {
	seed := "regsync:" + w.FromTime.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}
