package report

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"Pointage/internal/attendance"
)

const prodID = "-//Pointage//Attendance History//EN"

// ErrNoEvents 没有可导出的记录
var ErrNoEvents = errors.New("no attendance records to export")

// HistoryCalendar 每条记录导出为一个 VEVENT，未签退或时钟异常的记录不写 DTEND
func HistoryCalendar(records []attendance.Record, loc *time.Location, now time.Time) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNoEvents
	}
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)

	for _, r := range records {
		event, err := recordEvent(r, loc, now)
		if err != nil {
			return nil, err
		}
		cal.Children = append(cal.Children, event.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

func recordEvent(r attendance.Record, loc *time.Location, now time.Time) (*ical.Event, error) {
	start, err := localTime(r.Date, r.CheckInTime, loc)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", r.ID, err)
	}

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, r.ID+"@pointage")
	event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())

	summary := "Attendance"
	if r.TotalDurationText != "" {
		summary = "Attendance " + r.TotalDurationText
	}
	event.Props.SetText(ical.PropSummary, summary)

	if r.CheckOutTime != "" && !r.ClockInconsistent {
		end, err := localTime(r.Date, r.CheckOutTime, loc)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		event.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
	}

	desc := fmt.Sprintf("Status: %s", r.Status)
	if r.PauseDurationText != "" {
		desc += fmt.Sprintf("\nPause: %s (%s-%s)", r.PauseDurationText, r.PauseStartTime, r.PauseEndTime)
	}
	if r.ClockInconsistent {
		desc += "\nClock inconsistency detected"
	}
	event.Props.SetText(ical.PropDescription, desc)

	if addr := address(r.CheckInLocation); addr != "" {
		event.Props.SetText(ical.PropLocation, addr)
	}
	return event, nil
}

func localTime(date, hhmm string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(attendance.DateLayout+" "+attendance.TimeOfDayLayout, date+" "+hhmm, loc)
}
