package mattermost

import (
	"context"
	"fmt"
	"time"

	"hrm-attendance/internal/i18n"
	"hrm-attendance/internal/model"
)

const (
	colorCheckIn  = "#3DB887"
	colorCheckOut = "#2389D7"

	// Notifiers run inside the check-in/out request, so a slow chat server
	// delays the response by at most this much.
	announceTimeout = 3 * time.Second
)

// Announcer posts check-in and check-out lines to a team channel in a single
// channel locale, whatever language the requester uses.
// Admin edits and deletions are not announced.
type Announcer struct {
	client    *Client
	channelID string
	loc       *time.Location
	locale    string
	timeout   time.Duration
}

func NewAnnouncer(client *Client, channelID string, loc *time.Location, locale string) *Announcer {
	if loc == nil {
		loc = time.Local
	}
	return &Announcer{client: client, channelID: channelID, loc: loc, locale: locale, timeout: announceTimeout}
}

func (a *Announcer) Notify(ctx context.Context, ev model.AttendanceEvent) error {
	post, ok := a.post(i18n.WithLocale(ctx, a.locale), ev)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	if _, err := a.client.CreatePost(ctx, post); err != nil {
		return fmt.Errorf("announce %s: %w", ev.Type, err)
	}
	return nil
}

func (a *Announcer) post(ctx context.Context, ev model.AttendanceEvent) (*Post, bool) {
	r := ev.Record
	if r == nil {
		return nil, false
	}

	var (
		key   string
		at    *time.Time
		color string
	)
	switch ev.Type {
	case model.EventCheckIn:
		key, at, color = "attendance.announce.checkin", r.CheckIn, colorCheckIn
	case model.EventCheckOut:
		key, at, color = "attendance.announce.checkout", r.CheckOut, colorCheckOut
	default:
		return nil, false
	}
	if at == nil {
		return nil, false
	}

	text := i18n.T(ctx, key, map[string]any{
		"Employee": r.EmployeeID,
		"Time":     at.In(a.loc).Format("15:04"),
		"Hours":    fmt.Sprintf("%.2f", r.TotalHours),
		"Status":   string(r.Status),
	})
	return &Post{
		ChannelID: a.channelID,
		Props: Props{Attachments: []Attachment{{
			Text:  text,
			Color: color,
			Fields: []Field{
				{Title: "Date", Value: r.Date, Short: true},
				{Title: "Status", Value: string(r.Status), Short: true},
			},
		}}},
	}, true
}
