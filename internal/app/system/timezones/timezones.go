// Package timezones validates IANA zone names stored in agency settings.
package timezones

import (
	"strings"
	"time"
	_ "time/tzdata" // bundled zone database; hosts without /usr/share/zoneinfo still validate
)

// Valid reports whether id names an IANA time zone. The empty string and
// "Local" are rejected since they do not name a portable zone.
func Valid(id string) bool {
	if id == "" || id == "Local" || strings.TrimSpace(id) != id {
		return false
	}
	_, err := time.LoadLocation(id)
	return err == nil
}

// Label returns a display label such as "Europe/Paris (UTC+01:00)" using the
// zone's standard offset at t, or id itself when it is not a valid zone.
func Label(id string, t time.Time) string {
	if !Valid(id) {
		return id
	}
	loc, _ := time.LoadLocation(id)
	return id + " (UTC" + t.In(loc).Format("-07:00") + ")"
}
