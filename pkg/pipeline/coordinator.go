// Package pipeline orchestrates the full sync cycle — scrape, reconcile,
// train, predict — behind a coordinator that guarantees at most one run
// is in flight per process. The advisory lock is process-local; running
// multiple instances against one store needs external exclusivity.
package pipeline

import (
	"sync"
	"time"

	"github.com/lotwatch/lotwatch/pkg/errors"
)

// Stage names one step of a sync run.
type Stage string

// Pipeline stages, in execution order.
const (
	StageScraping   Stage = "scraping"
	StageSyncing    Stage = "syncing"
	StageTraining   Stage = "training"
	StagePredicting Stage = "predicting"
	StageDone       Stage = "done"
)

// State is the coordinator's coarse run state.
type State string

// Coordinator states.
const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateFailed  State = "failed"
)

// Status is a point-in-time snapshot of the coordinator.
type Status struct {
	State      State      `json:"state"`
	Stage      Stage      `json:"stage,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Running reports whether a run is in flight.
func (s Status) Running() bool {
	return s.State == StateRunning
}

// Coordinator is the explicit state machine replacing an ambient
// "is_syncing" flag: Idle -> Running(stage) -> Idle or Failed(reason).
// Start from Running is rejected; a failed run does not block the next
// attempt.
type Coordinator struct {
	mu         sync.Mutex
	state      State
	stage      Stage
	reason     string
	startedAt  *time.Time
	finishedAt *time.Time
}

// NewCoordinator creates an idle coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{state: StateIdle}
}

// Start moves the machine to Running(scraping). It fails with a
// ConflictError when a run is already in flight.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRunning {
		return &errors.ConflictError{Stage: string(c.stage)}
	}
	now := time.Now().UTC()
	c.state = StateRunning
	c.stage = StageScraping
	c.reason = ""
	c.startedAt = &now
	c.finishedAt = nil
	return nil
}

// Advance records progress to the named stage. No-op unless running.
func (c *Coordinator) Advance(stage Stage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRunning {
		c.stage = stage
	}
}

// Finish returns the machine to Idle, keeping the terminal stage for
// status queries.
func (c *Coordinator) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return
	}
	now := time.Now().UTC()
	c.state = StateIdle
	c.stage = StageDone
	c.finishedAt = &now
}

// Fail records the failure reason and the stage the run died in.
func (c *Coordinator) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return
	}
	now := time.Now().UTC()
	c.state = StateFailed
	c.finishedAt = &now
	if err != nil {
		c.reason = err.Error()
	}
}

// Status returns a snapshot of the current state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:      c.state,
		Stage:      c.stage,
		Reason:     c.reason,
		StartedAt:  c.startedAt,
		FinishedAt: c.finishedAt,
	}
}

// Running reports whether a run is in flight.
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateRunning
}
