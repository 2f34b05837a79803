// Package pipeline drives the per-frame accident decision loop and hands
// confirmed incidents to the background response workflow.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roadwatch/backend/internal/config"
	"github.com/roadwatch/backend/internal/delivery/ws"
	"github.com/roadwatch/backend/internal/detect"
	"github.com/roadwatch/backend/internal/domain"
	"github.com/roadwatch/backend/internal/metrics"
	"github.com/roadwatch/backend/internal/service"
	"github.com/roadwatch/backend/internal/video"
)

// Detector is the external object-detection contract.
type Detector interface {
	Detect(ctx context.Context, frame []byte, frameIndex int) ([]domain.Detection, error)
}

// Broadcaster publishes per-frame verdicts to live subscribers.
type Broadcaster interface {
	BroadcastStatus(s ws.FrameStatus)
}

// Result is what one full run over a video produces.
type Result struct {
	AccidentDetected bool                   `json:"accident_detected"`
	Report           *domain.IncidentReport `json:"report,omitempty"`
	Notified         bool                   `json:"notified"`
	NotificationErr  string                 `json:"notification_error,omitempty"`
	FramesProcessed  int                    `json:"frames_processed"`
}

// Pipeline wires the decision core to its collaborators. One Pipeline
// serves many sessions; per-session state lives in ProcessVideo.
type Pipeline struct {
	cfg       *config.Config
	detector  Detector
	responder *service.Responder
	mailer    service.Mailer
	opener    video.Opener
	hub       Broadcaster
	metrics   *metrics.Metrics
}

// New creates a pipeline. hub and metrics may be nil.
func New(
	cfg *config.Config,
	detector Detector,
	responder *service.Responder,
	mailer service.Mailer,
	opener video.Opener,
	hub Broadcaster,
	m *metrics.Metrics,
) *Pipeline {
	if opener == nil {
		opener = video.Open
	}
	return &Pipeline{
		cfg:       cfg,
		detector:  detector,
		responder: responder,
		mailer:    mailer,
		opener:    opener,
		hub:       hub,
		metrics:   m,
	}
}

// ProcessVideo runs the full pipeline to completion over one video. The
// only fatal error is an unopenable source; everything downstream degrades
// and is reflected in the result instead.
func (p *Pipeline) ProcessVideo(ctx context.Context, path string) (*Result, error) {
	source, err := p.opener(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	defer source.Close()

	fps := source.FPS()
	if fps <= 0 {
		fps = 30
	}

	tuning := p.cfg.Tuning
	tracker := detect.NewTracker(detect.TrackerConfig{
		MinIoU:            tuning.TrackerMinIoU,
		MaxCenterDistance: tuning.TrackerMaxCenterDist,
		MaxMisses:         tuning.TrackerMaxMisses,
	})
	evaluator := detect.Evaluator{
		OverlapThreshold: tuning.OverlapThreshold,
		MinDistance:      tuning.MinDistance,
	}
	machine := detect.NewStateMachine(detect.Thresholds{
		ProlongedFrames:     tuning.ProlongedFrames,
		ContinuousFrames:    tuning.ContinuousFrames,
		CollisionPercentage: tuning.CollisionPercentage,
	})
	notifier := service.NewNotifier(p.mailer, p.cfg.MaxAttachments, p.cfg.RetryAttempts, p.cfg.RetryBase)

	session := uuid.New().String()
	var (
		frameIndex   int
		capturedImgs []string
		dispatchOnce sync.Once
		outcomeMu    sync.Mutex
		outcome      *service.Outcome
		responseWG   sync.WaitGroup
	)
	defer p.cleanupImages(&capturedImgs, &responseWG)

	for {
		if err := ctx.Err(); err != nil {
			log.Printf("session %s cancelled at frame %d", session, frameIndex)
			break
		}

		frame, err := source.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("frame read error at %d: %v", frameIndex, err)
			break
		}

		timestamp := float64(frameIndex) / fps
		detections, err := p.detector.Detect(ctx, frame, frameIndex)
		if err != nil {
			log.Printf("detector error at frame %d: %v", frameIndex, err)
			if p.metrics != nil {
				p.metrics.DetectorErrors.Add(1)
			}
			detections = nil
		}

		tracked := tracker.Update(detections, timestamp)
		maxSpeed := 0.0
		for _, td := range tracked {
			if td.Speed > maxSpeed {
				maxSpeed = td.Speed
			}
		}

		collisions := evaluator.Evaluate(detections)
		status := machine.Observe(detect.Observation{
			FrameIndex:      frameIndex,
			DetectionCount:  len(detections),
			QualifyingPairs: collisions.QualifyingPairs,
			AnyCollision:    collisions.AnyCollision,
			MaxSpeed:        maxSpeed,
		})

		if p.metrics != nil {
			p.metrics.FramesProcessed.Add(1)
			p.metrics.CollisionPairs.Add(uint64(collisions.QualifyingPairs))
		}
		if p.hub != nil {
			p.hub.BroadcastStatus(ws.FrameStatus{
				FrameIndex:     frameIndex,
				Detections:     len(detections),
				CollisionPairs: collisions.QualifyingPairs,
				Status:         status.String(),
			})
		}

		if status == detect.StatusAccidentConfirmed {
			if len(capturedImgs) < p.cfg.MaxAttachments {
				if imgPath, err := p.saveFrame(session, frameIndex, frame); err == nil {
					capturedImgs = append(capturedImgs, imgPath)
				} else {
					log.Printf("failed to capture frame %d: %v", frameIndex, err)
				}
			}

			if len(capturedImgs) >= 1 {
				dispatchOnce.Do(func() {
					if p.metrics != nil {
						p.metrics.IncidentsConfirmed.Add(1)
					}
					log.Printf("session %s: accident confirmed at frame %d", session, frameIndex)

					inc := service.Incident{
						VideoPath: path,
						FPS:       fps,
						Counters:  machine.Snapshot(),
						Images:    append([]string(nil), capturedImgs...),
						Latitude:  p.cfg.AccidentLat,
						Longitude: p.cfg.AccidentLon,
						Notifier:  notifier,
					}
					responseWG.Add(1)
					go func() {
						defer responseWG.Done()
						// Detached from the frame loop's ctx so an
						// in-flight delivery may finish after shutdown.
						rctx, cancel := context.WithTimeout(context.Background(), p.cfg.ResponderAwait)
						defer cancel()
						out := p.responder.Respond(rctx, inc)
						p.recordOutcome(&out)
						outcomeMu.Lock()
						outcome = &out
						outcomeMu.Unlock()
					}()
				})
			}
		}

		frameIndex++
	}

	// Await the in-flight response with a bounded timeout before building
	// the result and reclaiming temp images.
	waitDone := make(chan struct{})
	go func() {
		responseWG.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(p.cfg.ResponderAwait):
		log.Printf("session %s: incident response still running at session end", session)
	}

	result := &Result{
		AccidentDetected: machine.Status() == detect.StatusAccidentConfirmed,
		FramesProcessed:  frameIndex,
	}
	outcomeMu.Lock()
	if outcome != nil {
		report := outcome.Report
		result.Report = &report
		result.Notified = outcome.Notified
		if outcome.SendErr != nil {
			result.NotificationErr = outcome.SendErr.Error()
		}
	}
	outcomeMu.Unlock()

	return result, nil
}

func (p *Pipeline) recordOutcome(out *service.Outcome) {
	if p.metrics == nil {
		return
	}
	if out.SendErr != nil {
		p.metrics.NotificationsFailed.Add(1)
	} else if out.Notified {
		p.metrics.NotificationsSent.Add(1)
	}
}

// saveFrame writes a captured frame image for attachment.
func (p *Pipeline) saveFrame(session string, frameIndex int, frame []byte) (string, error) {
	dir := filepath.Join(p.cfg.UploadDir, session)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("frame_%d.jpg", frameIndex))
	if err := os.WriteFile(path, frame, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// cleanupImages reclaims temp frame images after outstanding background
// work has had its bounded chance to attach them.
func (p *Pipeline) cleanupImages(paths *[]string, responseWG *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		responseWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(p.cfg.ResponderAwait):
	}

	for _, img := range *paths {
		if err := os.Remove(img); err != nil && !os.IsNotExist(err) {
			log.Printf("failed to remove temp image %s: %v", img, err)
		}
	}
	if len(*paths) > 0 {
		_ = os.Remove(filepath.Dir((*paths)[0]))
	}
}
