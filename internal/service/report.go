package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roadwatch/backend/internal/domain"
)

// ReportInput carries everything the report builder needs. The builder does
// no I/O and is deterministic given its inputs.
type ReportInput struct {
	ID              uuid.UUID
	Timestamp       time.Time
	Latitude        float64
	Longitude       float64
	CollisionTotal  int
	PeakSpeed       float64
	SpeedThreshold  float64
	Weather         domain.Weather
	VehicleEvents   []string
	NearestPolice   *domain.ServiceLocation
	NearestHospital *domain.ServiceLocation
}

// BuildReport assembles the immutable incident report. Vehicle events are
// deduplicated and sorted so equal inputs produce equal reports.
func BuildReport(in ReportInput) domain.IncidentReport {
	seen := make(map[string]struct{}, len(in.VehicleEvents))
	events := make([]string, 0, len(in.VehicleEvents))
	for _, e := range in.VehicleEvents {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		events = append(events, e)
	}
	sort.Strings(events)

	return domain.IncidentReport{
		ID:                 in.ID,
		Timestamp:          in.Timestamp,
		Latitude:           in.Latitude,
		Longitude:          in.Longitude,
		CollisionTotal:     in.CollisionTotal,
		PeakSpeed:          in.PeakSpeed,
		WeatherDescription: in.Weather.Description,
		Temperature:        in.Weather.Temperature,
		VehicleEvents:      events,
		NearestPolice:      in.NearestPolice,
		NearestHospital:    in.NearestHospital,
		Severity:           EstimateSeverity(in.CollisionTotal, in.PeakSpeed, in.SpeedThreshold, in.Weather.Description),
	}
}

// RenderReport formats the report as the notification body text.
func RenderReport(r domain.IncidentReport) string {
	var b strings.Builder

	b.WriteString("Accident Detection System - Detailed Report\n")
	b.WriteString("============================================\n\n")

	b.WriteString("Incident Details:\n-----------------\n")
	fmt.Fprintf(&b, "Report ID: %s\n", r.ID)
	fmt.Fprintf(&b, "Date and Time: %s\n", r.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Location: Latitude %.4f, Longitude %.4f\n\n", r.Latitude, r.Longitude)

	b.WriteString("Collision Metrics:\n-----------------\n")
	fmt.Fprintf(&b, "Total Collision Count: %d\n", r.CollisionTotal)
	fmt.Fprintf(&b, "Maximum Detected Speed: %.2f px/s\n\n", r.PeakSpeed)

	b.WriteString("Weather Conditions:\n------------------\n")
	fmt.Fprintf(&b, "Description: %s\n", r.WeatherDescription)
	fmt.Fprintf(&b, "Temperature: %.1f C\n\n", r.Temperature)

	b.WriteString("Vehicle Events:\n--------------\n")
	if len(r.VehicleEvents) > 0 {
		fmt.Fprintf(&b, "Detected Events: %s\n\n", strings.Join(r.VehicleEvents, ", "))
	} else {
		b.WriteString("Detected Events: No significant events\n\n")
	}

	b.WriteString("Nearest Emergency Services:\n--------------------------\n")
	writeService(&b, "Police Station", r.NearestPolice)
	writeService(&b, "Hospital", r.NearestHospital)
	b.WriteString("\n")

	b.WriteString("Severity Assessment:\n-------------------\n")
	fmt.Fprintf(&b, "%s\n\n", severityLine(r.Severity))

	b.WriteString("Emergency Response Recommendation:\n----------------------------------\n")
	b.WriteString("Immediate medical and law enforcement assistance is strongly recommended.\n")
	b.WriteString("Please verify the exact location and proceed with caution.\n\n")
	b.WriteString("Note: This is an automated system-generated report. Always confirm details with on-site assessment.\n")

	return b.String()
}

func writeService(b *strings.Builder, label string, loc *domain.ServiceLocation) {
	if loc == nil {
		fmt.Fprintf(b, "%s: Not available\n", label)
		fmt.Fprintf(b, "%s Distance: N/A\n", label)
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, loc.Name)
	fmt.Fprintf(b, "%s Distance: %.2f km\n", label, loc.DistanceKm)
}

func severityLine(s domain.Severity) string {
	switch s {
	case domain.SeverityHigh:
		return "HIGH SEVERITY: Immediate emergency response required"
	case domain.SeverityMedium:
		return "MEDIUM SEVERITY: Urgent medical attention recommended"
	default:
		return "LOW SEVERITY: Standard medical check recommended"
	}
}
