package controller

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/oshokin/lvc/internal/domain/voltvar"
	"github.com/oshokin/lvc/internal/logger"
	"github.com/oshokin/lvc/internal/repository/snapshot"
	"github.com/oshokin/lvc/internal/repository/state"
	"github.com/oshokin/lvc/internal/service/sink"
	"github.com/oshokin/lvc/internal/service/verifier"
)

var (
	// ErrReportUndelivered stops the loop when a belly-up report could not be delivered
	// and the host asked to terminate in that case.
	ErrReportUndelivered = errors.New("belly-up report not delivered")
	// errNoSource is returned when the service is built without an acquisition source.
	errNoSource = errors.New("acquisition source is required")
	// errNoSink is returned when the service is built without a sink.
	errNoSink = errors.New("event sink is required")
)

// Balancer runs tie-based reactive balancing for a substation whose tie is closed.
type Balancer interface {
	Balance(ctx context.Context, substation *voltvar.SubstationControlState) error
}

// EventLister returns recently emitted events, oldest first.
// A non-positive limit lets the lister choose its own bound.
type EventLister interface {
	Recent(ctx context.Context, limit int) ([]voltvar.Event, error)
}

// Deps are the collaborators of the Service.
type Deps struct {
	// Source provides the readings of every cycle. Required.
	Source snapshot.Source
	// Sink receives routine and belly-up events. Required.
	Sink sink.Emitter
	// Repository carries state over between runs. Optional.
	Repository state.Repository
	// Events backs ListEvents. Optional.
	Events EventLister
	// EventLimit caps the number of events returned by RecentEvents.
	EventLimit int
	// Balancer runs after a successful tie check. Optional.
	Balancer Balancer
	// TerminateOnReportFailure makes Loop return when a belly-up report is not delivered.
	TerminateOnReportFailure bool
}

// CycleReport summarises one control cycle.
type CycleReport struct {
	// CycleID correlates the cycle's log records and events.
	CycleID string
	// Substations is the number of substations processed.
	Substations int
	// Verified is the number of pending controls checked.
	Verified int
	// Failed is the number of controls classified as failures.
	Failed int
	// Deferred is the number of pending controls left for a later cycle.
	Deferred int
	// Blocked lists substations whose tie check blocked balancing.
	Blocked []string
}

// unit is one substation and the lock that serialises work on it.
type unit struct {
	// mu guards state.
	mu sync.Mutex
	// state is the live control state of the substation.
	state *voltvar.SubstationControlState
	// armed maps device IDs to the acquisition counter value seen when their control was issued.
	armed map[string]uint64
}

// Service owns the fleet state and runs control cycles over it.
type Service struct {
	// deps are the collaborators supplied by the host.
	deps Deps
	// mu guards units.
	mu sync.RWMutex
	// units maps substation IDs to their state.
	units map[string]*unit
	// cycleMu prevents overlapping cycles.
	cycleMu sync.Mutex
	// persistMu orders snapshot-and-save so an older copy never overwrites a newer one.
	persistMu sync.Mutex
	// acquisitions counts started acquisitions.
	acquisitions atomic.Uint64
}

// New creates a service and restores the state saved by a previous run, if any.
func New(ctx context.Context, deps Deps) (*Service, error) {
	if deps.Source == nil {
		return nil, errNoSource
	}

	if deps.Sink == nil {
		return nil, errNoSink
	}

	s := &Service{
		deps:  deps,
		units: make(map[string]*unit),
	}

	if deps.Repository == nil {
		return s, nil
	}

	states, err := deps.Repository.Load(ctx)
	switch {
	case err == nil:
		for _, st := range states {
			s.units[st.SubstationID] = &unit{state: st}
		}

		logger.InfoKV(ctx, "Restored previous run", "substations", len(states))
	case errors.Is(err, state.ErrNotFound):
		// First run.
	default:
		return nil, fmt.Errorf("load state: %w", err)
	}

	return s, nil
}

// RunCycle performs one control cycle over every substation present in the snapshot.
//
// Substations are processed in parallel; each one is verified before its tie is checked,
// and the balancer only runs when the tie is closed. Per-substation errors are joined.
// The fleet state is saved even when some substations failed.
func (s *Service) RunCycle(ctx context.Context) (*CycleReport, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	report := &CycleReport{
		CycleID: uuid.NewString(),
	}

	ctx = logger.WithKV(ctx, "cycle_id", report.CycleID)

	// Controls issued from here on may postdate the readings and are verified next cycle.
	acquisition := s.acquisitions.Add(1)

	snap, err := s.deps.Source.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("acquire snapshot: %w", err)
	}

	var (
		units   = s.ensureUnits(snap)
		results = make([]substationResult, len(snap.Substations))
		emitter = sink.WithCycle(report.CycleID, s.deps.Sink)
		g       errgroup.Group
	)

	for i := range snap.Substations {
		readings := &snap.Substations[i]
		u := units[i]

		g.Go(func() error {
			results[i] = s.processSubstation(ctx, u, readings, acquisition, emitter)

			return nil
		})
	}

	_ = g.Wait()

	var errs []error

	for i := range results {
		r := &results[i]
		report.Substations++
		report.Verified += r.verify.Verified
		report.Failed += r.verify.Failed
		report.Deferred += r.deferred

		if !r.permitted {
			report.Blocked = append(report.Blocked, snap.Substations[i].ID)
		}

		if r.err != nil {
			errs = append(errs, fmt.Errorf("substation %s: %w", snap.Substations[i].ID, r.err))
		}
	}

	if err = s.persist(ctx); err != nil {
		errs = append(errs, err)
	}

	logger.InfoKV(ctx, "Control cycle finished",
		"substations", report.Substations,
		"verified", report.Verified,
		"failed", report.Failed,
		"deferred", report.Deferred,
		"blocked", len(report.Blocked))

	return report, errors.Join(errs...)
}

// substationResult is the outcome of one substation within a cycle.
type substationResult struct {
	// verify is the verification summary.
	verify verifier.Result
	// deferred is the number of pending controls kept for a later cycle.
	deferred int
	// permitted reports whether the tie check allowed balancing.
	permitted bool
	// err joins sink and balancer errors.
	err error
}

// processSubstation applies readings, verifies pending controls and checks the tie.
//
// A pending control is verified only when its transformer got fresh readings this cycle
// and it was issued before the acquisition started. Other pending controls stay pending.
func (s *Service) processSubstation(
	ctx context.Context,
	u *unit,
	readings *snapshot.Substation,
	acquisition uint64,
	emitter sink.Emitter,
) substationResult {
	u.mu.Lock()
	defer u.mu.Unlock()

	ctx = logger.WithKV(ctx, "substation_id", readings.ID)

	refreshed := applyReadings(ctx, u.state, readings)

	var (
		result   substationResult
		errs     []error
		err      error
		deferred []*voltvar.TransformerControlRecord
	)

	for i := range u.state.Transformers {
		record := &u.state.Transformers[i]
		if !record.ControlPending {
			continue
		}

		_, fresh := refreshed[record.DeviceID]
		if armedAt, ok := u.armed[record.DeviceID]; fresh && (!ok || armedAt < acquisition) {
			delete(u.armed, record.DeviceID)

			continue
		}

		// Hidden from the verifier for this cycle.
		record.ControlPending = false
		deferred = append(deferred, record)
	}

	result.verify, err = verifier.VerifyCycle(ctx, u.state, emitter)
	if err != nil {
		errs = append(errs, err)
	}

	for _, record := range deferred {
		record.ControlPending = true

		logger.DebugKV(ctx, "Control verification deferred", "device_id", record.DeviceID)
	}

	result.deferred = len(deferred)

	result.permitted, err = verifier.GuardTie(ctx, u.state, emitter)
	if err != nil {
		errs = append(errs, err)
	}

	if !result.permitted {
		logger.WarnKV(ctx, "Tie-based balancing blocked", "tie_breaker_state", u.state.TieBreakerState.String())
	} else if s.deps.Balancer != nil {
		if err = s.deps.Balancer.Balance(ctx, u.state); err != nil {
			errs = append(errs, fmt.Errorf("balance: %w", err))
		}
	}

	result.err = errors.Join(errs...)

	return result
}

// applyReadings copies the latest readings into the substation state and returns
// the device IDs that received finite readings.
// Unknown transformers are commissioned with the readings as both before and after values.
// Non-finite readings are ignored.
func applyReadings(
	ctx context.Context,
	st *voltvar.SubstationControlState,
	readings *snapshot.Substation,
) map[string]struct{} {
	st.TieBreakerState = voltvar.ParseTieBreakerState(readings.TieBreaker)

	refreshed := make(map[string]struct{}, len(readings.Transformers))

	for i := range readings.Transformers {
		r := &readings.Transformers[i]
		if !r.Finite() {
			logger.WarnKV(ctx, "Ignoring non-finite readings",
				"device_id", r.DeviceID,
				"tap_position", r.TapPosition,
				"mvar", r.MVAR)

			continue
		}

		refreshed[r.DeviceID] = struct{}{}

		record := st.Transformer(r.DeviceID)
		if record == nil {
			st.Transformers = append(st.Transformers, voltvar.TransformerControlRecord{
				DeviceID:          r.DeviceID,
				ControlID:         r.ControlID,
				TapPositionBefore: r.TapPosition,
				TapPositionAfter:  r.TapPosition,
				MVARBefore:        r.MVAR,
				MVARAfter:         r.MVAR,
			})

			continue
		}

		if r.ControlID != "" {
			record.ControlID = r.ControlID
		}

		record.TapPositionAfter = r.TapPosition
		record.MVARAfter = r.MVAR
	}

	return refreshed
}

// ensureUnits returns the unit of every snapshot substation, creating missing ones.
// The result is indexed like snap.Substations.
func (s *Service) ensureUnits(snap *snapshot.Snapshot) []*unit {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*unit, 0, len(snap.Substations))

	for i := range snap.Substations {
		id := snap.Substations[i].ID

		u, ok := s.units[id]
		if !ok {
			u = &unit{
				state: &voltvar.SubstationControlState{SubstationID: id},
			}
			s.units[id] = u
		}

		result = append(result, u)
	}

	return result
}

// IssueControl records that a control was sent to a transformer so the next cycle verifies it.
// The latest readings become the before values.
func (s *Service) IssueControl(
	ctx context.Context,
	substationID, deviceID string,
	kind voltvar.ControlKind,
	actor *voltvar.Actor,
) (*voltvar.SubstationControlState, error) {
	if kind == voltvar.ControlNone {
		return nil, voltvar.ErrNoControl
	}

	u, err := s.unit(substationID)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()

	record := u.state.Transformer(deviceID)
	if record == nil {
		u.mu.Unlock()

		return nil, fmt.Errorf("%w: %s/%s", voltvar.ErrUnknownDevice, substationID, deviceID)
	}

	if record.ControlPending {
		u.mu.Unlock()

		return nil, fmt.Errorf("%w: %s/%s", voltvar.ErrControlPending, substationID, deviceID)
	}

	record.PreviousControlKind = kind
	record.ControlPending = true
	record.TapPositionBefore = record.TapPositionAfter
	record.MVARBefore = record.MVARAfter

	if u.armed == nil {
		u.armed = make(map[string]uint64)
	}

	u.armed[deviceID] = s.acquisitions.Load()

	event := voltvar.Routine(substationID, voltvar.ControlDecisionMessage(record))
	result := u.state.Clone()

	u.mu.Unlock()

	logger.InfoKV(ctx, "Control issued",
		"substation_id", substationID,
		"device_id", deviceID,
		"control", kind.String(),
		"actor", actor.String())

	if err = s.deps.Sink.Emit(ctx, event); err != nil {
		logger.WarnKV(ctx, "Control decision not recorded", "error", err)
	}

	if err = s.persist(ctx); err != nil {
		return nil, err
	}

	return result, nil
}

// Substation returns a copy of one substation's state.
func (s *Service) Substation(_ context.Context, substationID string) (*voltvar.SubstationControlState, error) {
	u, err := s.unit(substationID)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	return u.state.Clone(), nil
}

// Substations returns copies of every substation's state ordered by ID.
func (s *Service) Substations(_ context.Context) []*voltvar.SubstationControlState {
	return s.snapshotAll()
}

// RecentEvents returns up to EventLimit events from the configured EventLister, oldest first.
func (s *Service) RecentEvents(ctx context.Context) ([]voltvar.Event, error) {
	if s.deps.Events == nil {
		return nil, nil
	}

	events, err := s.deps.Events.Recent(ctx, s.deps.EventLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}

	return events, nil
}

// unit looks up a substation.
func (s *Service) unit(substationID string) (*unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.units[substationID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", voltvar.ErrUnknownSubstation, substationID)
	}

	return u, nil
}

// snapshotAll clones every substation's state ordered by ID.
func (s *Service) snapshotAll() []*voltvar.SubstationControlState {
	s.mu.RLock()

	units := make([]*unit, 0, len(s.units))
	for _, u := range s.units {
		units = append(units, u)
	}

	s.mu.RUnlock()

	result := make([]*voltvar.SubstationControlState, 0, len(units))

	for _, u := range units {
		u.mu.Lock()
		result = append(result, u.state.Clone())
		u.mu.Unlock()
	}

	slices.SortFunc(result, func(a, b *voltvar.SubstationControlState) int {
		return strings.Compare(a.SubstationID, b.SubstationID)
	})

	return result
}

// persist saves the fleet state when a repository is configured.
func (s *Service) persist(ctx context.Context) error {
	if s.deps.Repository == nil {
		return nil
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if err := s.deps.Repository.Save(ctx, s.snapshotAll()); err != nil {
		logger.Errorf(ctx, "Failed to persist fleet state: %v", err)

		return fmt.Errorf("persist state: %w", err)
	}

	return nil
}
