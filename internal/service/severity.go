package service

import (
	"strings"

	"github.com/roadwatch/backend/internal/domain"
)

// EstimateSeverity maps session counters and conditions to a severity tier.
// Tiers are checked HIGH first; the first match wins.
func EstimateSeverity(collisionTotal int, peakSpeed, speedThreshold float64, weatherDescription string) domain.Severity {
	desc := strings.ToLower(weatherDescription)

	if collisionTotal > 5 ||
		peakSpeed > speedThreshold*1.5 ||
		strings.Contains(desc, "rain") ||
		strings.Contains(desc, "fog") {
		return domain.SeverityHigh
	}
	if collisionTotal > 3 || peakSpeed > speedThreshold {
		return domain.SeverityMedium
	}
	return domain.SeverityLow
}
