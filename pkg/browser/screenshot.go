package browser

import (
	"fmt"
	"regexp"
	"time"
)

var unsafeTagChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// screenshotFilename builds screenshot_<sid>_<NNN>_<tag>_<YYYYmmdd_HHMMSS_mmm>.png.
// The per session counter makes names unique within a session, the session id
// across sessions.
func screenshotFilename(sessionID string, count int, tag string, at time.Time) string {
	tag = unsafeTagChars.ReplaceAllString(tag, "_")
	if tag == "" {
		tag = "general"
	}

	at = at.UTC()

	return fmt.Sprintf("screenshot_%s_%03d_%s_%s_%03d.png",
		sessionID, count, tag, at.Format("20060102_150405"), at.Nanosecond()/int(time.Millisecond))
}
