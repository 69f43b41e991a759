package memo

import (
	"fmt"
	"math"
	"time"
)

// FormatElapsed renders d as minutes:seconds.tenths, e.g. 0:07.4 or 12:00.0.
// Minutes are not wrapped at an hour.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	minutes := ms / 60000
	seconds := (ms / 1000) % 60
	tenths := (ms / 100) % 10
	return fmt.Sprintf("%d:%02d.%d", minutes, seconds, tenths)
}

const defaultBitrate = 96000

// QualityBitrate maps a star rating to an encoding bitrate. The rating is
// rounded to the nearest whole star; anything outside 1..3 gets the default.
func QualityBitrate(rating float64) int {
	switch int(math.Round(rating)) {
	case 1:
		return 64000
	case 2:
		return 96000
	case 3:
		return 128000
	}
	return defaultBitrate
}
