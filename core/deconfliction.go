package core

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/uav-deconfliction/internal/logging"
	"github.com/signalsfoundry/uav-deconfliction/kb"
	"github.com/signalsfoundry/uav-deconfliction/model"
	"github.com/signalsfoundry/uav-deconfliction/timectrl"
)

const tracerName = "github.com/signalsfoundry/uav-deconfliction/core"

const (
	// DefaultSafetyBuffer is the minimum acceptable separation in metres.
	DefaultSafetyBuffer = 50.0
	// DefaultTimeResolution is the target sampling interval in seconds.
	DefaultTimeResolution = 0.1
	// MinSamples is the least number of sampling intervals used for any
	// overlap window, however short.
	MinSamples = 10
)

// ErrNilMission is returned when a check is asked for a nil primary.
var ErrNilMission = errors.New("primary mission is nil")

// CheckResult is the outcome of checking one primary mission.
type CheckResult struct {
	DroneID   string     `json:"drone_id"`
	Safe      bool       `json:"safe"`
	Conflicts []Conflict `json:"conflicts"`
	// PairsChecked is the number of registered missions compared against
	// the primary.
	PairsChecked int `json:"pairs_checked"`
}

// MetricsRecorder receives one observation per completed check.
type MetricsRecorder interface {
	RecordCheck(result CheckResult, elapsed time.Duration)
}

// DeconflictionService checks a primary mission against every mission in
// its registry. It owns the registry it is constructed with; callers
// mutate it through RegisterMission / ClearMissions or the registry
// directly.
type DeconflictionService struct {
	registry *kb.MissionRegistry

	safetyBuffer   float64
	timeResolution float64
	mergeThreshold float64
	workers        int

	log     logging.Logger
	metrics MetricsRecorder
}

// Option customises DeconflictionService construction.
type Option func(*DeconflictionService)

// WithSafetyBuffer sets the minimum separation in metres. Non-positive
// and NaN values are accepted and disable conflict detection.
func WithSafetyBuffer(meters float64) Option {
	return func(s *DeconflictionService) {
		s.safetyBuffer = meters
	}
}

// WithTimeResolution sets the target sampling interval in seconds.
// Non-positive values fall back to the MinSamples floor.
func WithTimeResolution(seconds float64) Option {
	return func(s *DeconflictionService) {
		s.timeResolution = seconds
	}
}

// WithMergeThreshold overrides the conflict merge window in seconds.
func WithMergeThreshold(seconds float64) Option {
	return func(s *DeconflictionService) {
		s.mergeThreshold = seconds
	}
}

// WithWorkers bounds how many mission pairs are evaluated concurrently.
// Values below 1 mean sequential evaluation.
func WithWorkers(n int) Option {
	return func(s *DeconflictionService) {
		s.workers = n
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(s *DeconflictionService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics attaches a recorder that observes every completed check.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *DeconflictionService) {
		s.metrics = m
	}
}

// NewDeconflictionService constructs a service over registry. A nil
// registry is replaced by a fresh, empty one.
func NewDeconflictionService(registry *kb.MissionRegistry, opts ...Option) *DeconflictionService {
	if registry == nil {
		registry = kb.NewMissionRegistry()
	}
	s := &DeconflictionService{
		registry:       registry,
		safetyBuffer:   DefaultSafetyBuffer,
		timeResolution: DefaultTimeResolution,
		mergeThreshold: DefaultMergeThreshold,
		workers:        runtime.GOMAXPROCS(0),
		log:            logging.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DeconflictionService) SafetyBuffer() float64         { return s.safetyBuffer }
func (s *DeconflictionService) TimeResolution() float64       { return s.timeResolution }
func (s *DeconflictionService) Registry() *kb.MissionRegistry { return s.registry }

// RegisterMission adds m to the registry, replacing any mission with the
// same drone id.
func (s *DeconflictionService) RegisterMission(m *model.Mission) {
	s.registry.Register(m)
}

// ClearMissions empties the registry.
func (s *DeconflictionService) ClearMissions() {
	s.registry.Clear()
}

// CheckMission compares primary against every registered mission with a
// different drone id. Registered missions are never compared with each
// other. Conflicts are grouped by registered mission in registration order
// and are time-ordered within each group.
//
// The only errors are ErrNilMission and ctx.Err() when the context ends
// before every pair has been evaluated; the partial result is still
// returned in that case.
func (s *DeconflictionService) CheckMission(ctx context.Context, primary *model.Mission) (CheckResult, error) {
	if primary == nil {
		return CheckResult{Safe: true}, ErrNilMission
	}
	return s.check(ctx, primary, s.registry.List())
}

// CheckFleet runs CheckMission for every registered mission in turn, each
// one acting as primary against the rest of the same registry snapshot.
func (s *DeconflictionService) CheckFleet(ctx context.Context) ([]CheckResult, error) {
	snapshot := s.registry.List()
	results := make([]CheckResult, 0, len(snapshot))
	for _, primary := range snapshot {
		res, err := s.check(ctx, primary, snapshot)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (s *DeconflictionService) check(ctx context.Context, primary *model.Mission, snapshot []*model.Mission) (CheckResult, error) {
	started := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Deconfliction/CheckMission",
		trace.WithAttributes(
			attribute.String("drone_id", primary.DroneID()),
			attribute.Float64("safety_buffer", s.safetyBuffer),
			attribute.Float64("time_resolution", s.timeResolution),
		),
	)
	defer span.End()

	log := logging.LoggerFromContext(ctx, s.log).With(logging.String("drone_id", primary.DroneID()))

	others := make([]*model.Mission, 0, len(snapshot))
	for _, m := range snapshot {
		if m.DroneID() == primary.DroneID() {
			continue
		}
		others = append(others, m)
	}

	perPair, err := s.checkPairs(ctx, primary, others)

	var conflicts []Conflict
	for i, sub := range perPair {
		if len(sub) > 0 {
			log.Debug(ctx, "pair conflicts",
				logging.String("conflicting_drone", others[i].DroneID()),
				logging.Int("conflicts", len(sub)),
			)
		}
		conflicts = append(conflicts, sub...)
	}
	if conflicts == nil {
		conflicts = []Conflict{}
	}

	res := CheckResult{
		DroneID:      primary.DroneID(),
		Safe:         len(conflicts) == 0,
		Conflicts:    conflicts,
		PairsChecked: len(others),
	}

	span.SetAttributes(
		attribute.Int("pairs_checked", res.PairsChecked),
		attribute.Int("conflicts", len(conflicts)),
		attribute.Bool("safe", res.Safe),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn(ctx, "mission check interrupted", logging.Err(err))
		return res, err
	}

	elapsed := time.Since(started)
	if s.metrics != nil {
		s.metrics.RecordCheck(res, elapsed)
	}
	log.Info(ctx, "mission check complete",
		logging.Bool("safe", res.Safe),
		logging.Int("conflicts", len(conflicts)),
		logging.Int("pairs_checked", res.PairsChecked),
		logging.String("elapsed", elapsed.String()),
	)
	return res, nil
}

// checkPairs evaluates primary against each of others, writing each pair's
// conflicts into its own slot so the output order does not depend on
// scheduling.
func (s *DeconflictionService) checkPairs(ctx context.Context, primary *model.Mission, others []*model.Mission) ([][]Conflict, error) {
	out := make([][]Conflict, len(others))

	workers := s.workers
	if workers > len(others) {
		workers = len(others)
	}
	if workers <= 1 {
		for i, other := range others {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			out[i] = s.CheckPair(primary, other)
		}
		return out, nil
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = s.CheckPair(primary, others[i])
			}
		}()
	}

	var err error
feed:
	for i := range others {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return out, err
}

// CheckPair returns the merged conflicts between primary a and other b.
// Missions whose time windows do not overlap never conflict.
func (s *DeconflictionService) CheckPair(a, b *model.Mission) []Conflict {
	overlap, ok := timectrl.Overlap(a.Window(), b.Window())
	if !ok {
		return nil
	}

	n := timectrl.SampleCount(overlap.Duration(), s.timeResolution, MinSamples)

	var candidates []Conflict
	for i := 0; i <= n; i++ {
		t := overlap.At(i, n)
		posA, _, okA := a.PositionAt(t)
		posB, _, okB := b.PositionAt(t)
		if !okA || !okB {
			continue
		}

		d := posA.DistanceTo(posB)
		if !(d < s.safetyBuffer) {
			continue
		}
		candidates = append(candidates, Conflict{
			PrimaryDrone:     a.DroneID(),
			ConflictingDrone: b.DroneID(),
			Time:             t,
			Location:         posA,
			Distance:         d,
			Severity:         ClassifySeverity(d, s.safetyBuffer),
		})
	}

	return MergeConflicts(candidates, s.mergeThreshold)
}
