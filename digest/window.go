// Package digest implements the daily radio digest pipeline: fetch a day's
// channel messages, summarize them into a narration, render the narration to
// audio, and publish the result back to the channel.
package digest

import "time"

// The bot reports on a Japanese workspace; the calendar day is fixed to JST.
var jst = time.FixedZone("JST", 9*60*60)

// Window is the inclusive calendar-day range messages are fetched for.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowFor computes the window for the day dayOffset days from now in JST:
// 0 is today, -1 is yesterday. Start is midnight and End is 23:59:59 of the
// target day. Pure function of its inputs.
func WindowFor(dayOffset int, now time.Time) Window {
	target := now.In(jst).AddDate(0, 0, dayOffset)
	y, m, d := target.Date()
	return Window{
		Start: time.Date(y, m, d, 0, 0, 0, 0, jst),
		End:   time.Date(y, m, d, 23, 59, 59, 0, jst),
	}
}

// Day returns the target calendar day (midnight JST).
func (w Window) Day() time.Time {
	return w.Start
}

// DayWord names the target day as it should appear in the narration prompt.
func DayWord(dayOffset int) string {
	if dayOffset == -1 {
		return "昨日"
	}
	return "今日"
}
