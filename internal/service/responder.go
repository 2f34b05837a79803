package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roadwatch/backend/internal/detect"
	"github.com/roadwatch/backend/internal/domain"
	"github.com/roadwatch/backend/internal/video"
)

// Incident is the self-contained payload handed to the response workflow.
// It owns copies of everything it needs so it shares no mutable state with
// the frame loop that produced it.
type Incident struct {
	VideoPath string
	FPS       float64
	Counters  detect.SessionSnapshot
	Images    []string
	Latitude  float64
	Longitude float64
	Notifier  *Notifier
}

// Outcome is what the response workflow produced for the session result.
type Outcome struct {
	Report   domain.IncidentReport
	Notified bool
	SendErr  error
}

// Responder runs the incident-response workflow once per confirmed
// accident: weather and nearest-service lookups, severity, report
// assembly, clip extraction, notification and persistence.
type Responder struct {
	weatherSvc     *WeatherService
	locatorSvc     *LocatorService
	clipExtractor  video.ClipExtractor
	repo           domain.IncidentRepository
	telemetry      domain.TelemetryProvider
	speedThreshold float64

	wgBg sync.WaitGroup // tracks background persistence for graceful shutdown
}

// NewResponder creates a responder. telemetry may be nil.
func NewResponder(
	weatherSvc *WeatherService,
	locatorSvc *LocatorService,
	clipExtractor video.ClipExtractor,
	repo domain.IncidentRepository,
	telemetry domain.TelemetryProvider,
	speedThreshold float64,
) *Responder {
	return &Responder{
		weatherSvc:     weatherSvc,
		locatorSvc:     locatorSvc,
		clipExtractor:  clipExtractor,
		repo:           repo,
		telemetry:      telemetry,
		speedThreshold: speedThreshold,
	}
}

// WaitBackground blocks until background persistence completes. Call during
// graceful shutdown to avoid dropped writes.
func (r *Responder) WaitBackground() {
	r.wgBg.Wait()
}

// Respond executes the workflow. Every external dependency degrades rather
// than aborts: missing weather becomes the placeholder, missing services
// stay nil in the report, a failed clip means no video attachment, and a
// failed send is surfaced as a non-fatal warning in the outcome.
func (r *Responder) Respond(ctx context.Context, inc Incident) Outcome {
	var (
		weather  domain.Weather
		police   *domain.ServiceLocation
		hospital *domain.ServiceLocation
		wg       sync.WaitGroup
	)

	// Fetch weather and emergency services concurrently; each writes to
	// its own variables.
	wg.Add(1)
	go func() {
		defer wg.Done()
		weather = r.weatherSvc.GetWeather(ctx, inc.Latitude, inc.Longitude)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		police, hospital = r.locatorSvc.FindNearestServices(ctx, inc.Latitude, inc.Longitude)
	}()

	wg.Wait()

	var events []string
	if r.telemetry != nil {
		ev, err := r.telemetry.VehicleEvents(ctx)
		if err != nil {
			log.Printf("telemetry fetch failed: %v", err)
		} else {
			events = ev
		}
	}

	report := BuildReport(ReportInput{
		ID:              uuid.New(),
		Timestamp:       time.Now(),
		Latitude:        inc.Latitude,
		Longitude:       inc.Longitude,
		CollisionTotal:  inc.Counters.CollisionTotal,
		PeakSpeed:       inc.Counters.PeakSpeed,
		SpeedThreshold:  r.speedThreshold,
		Weather:         weather,
		VehicleEvents:   events,
		NearestPolice:   police,
		NearestHospital: hospital,
	})

	clipPath := ""
	if inc.Counters.WindowStart >= 0 {
		path, err := r.clipExtractor.Extract(ctx, inc.VideoPath, inc.Counters.WindowStart, inc.Counters.WindowEnd, inc.FPS)
		if err != nil {
			log.Printf("clip extraction failed, notifying without video: %v", err)
		} else {
			clipPath = path
		}
	}
	report.ClipPath = clipPath

	sendErr := inc.Notifier.Notify(ctx, report, inc.Images, clipPath)
	report.Notified = inc.Notifier.Notified()

	// Persist asynchronously (tracked for graceful shutdown).
	saved := report
	r.wgBg.Add(1)
	go func() {
		defer r.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.repo.SaveIncident(bgCtx, saved); err != nil {
			log.Printf("failed to save incident report: %v", err)
		}
	}()

	return Outcome{
		Report:   report,
		Notified: report.Notified,
		SendErr:  sendErr,
	}
}
