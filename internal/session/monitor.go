package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"imgclass/pkg/types"
)

// DefaultPollInterval is the retrain status cadence.
const DefaultPollInterval = 5 * time.Second

var (
	// ErrJobActive is returned by Start while another job is being monitored.
	ErrJobActive = errors.New("a retraining job is already being monitored")
	// ErrNotStarted is returned when the server did not create a job.
	ErrNotStarted = errors.New("retraining job not started")
)

// MonitorState is the lifecycle state of the retrain monitor.
type MonitorState string

const (
	MonitorIdle      MonitorState = "idle"
	MonitorStarting  MonitorState = "starting"
	MonitorPolling   MonitorState = "polling"
	MonitorCompleted MonitorState = "completed"
	MonitorFailed    MonitorState = "failed"
	// MonitorLost means monitoring stopped on a client-side failure; the
	// job's server-side state is unknown.
	MonitorLost MonitorState = "monitoring_failed"
)

// Active reports whether a job is being started or polled.
func (s MonitorState) Active() bool { return s == MonitorStarting || s == MonitorPolling }

// MetricsTable is server-formatted text, rendered verbatim.
type MetricsTable string

// RetrainJob is the last known view of a retraining job. Only status reads
// mutate it.
type RetrainJob struct {
	ID       string
	Status   string
	Progress float64
	Message  string
	Metrics  *MetricsTable
}

// RetrainAPI creates retraining jobs and reads their status.
type RetrainAPI interface {
	StartRetrain(ctx context.Context) (types.RetrainStartResponse, error)
	RetrainStatus(ctx context.Context, id string) (types.RetrainStatusResponse, error)
}

// RetrainJobMonitor starts a retraining job and polls it until a terminal
// status. Only one job is monitored at a time. Polls never overlap: the next
// read is scheduled only after the previous one has been processed.
type RetrainJobMonitor struct {
	api      RetrainAPI
	view     View
	events   EventPublisher
	log      zerolog.Logger
	interval time.Duration

	mu    sync.Mutex
	state MonitorState
	job   *RetrainJob
	polls int
	done  chan struct{}
}

// State returns the current lifecycle state.
func (m *RetrainJobMonitor) State() MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Job returns a snapshot of the monitored job, if one was created.
func (m *RetrainJobMonitor) Job() (RetrainJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.job == nil {
		return RetrainJob{}, false
	}
	out := *m.job
	if m.job.Metrics != nil {
		t := *m.job.Metrics
		out.Metrics = &t
	}
	return out, true
}

// Polls returns how many status reads the current job has issued.
func (m *RetrainJobMonitor) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls
}

// Done is closed when the most recent Start has reached a final state.
// Before any Start it is already closed.
func (m *RetrainJobMonitor) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return m.done
}

// Wait blocks until monitoring ends or ctx is done and returns the state.
func (m *RetrainJobMonitor) Wait(ctx context.Context) (MonitorState, error) {
	select {
	case <-m.Done():
		return m.State(), nil
	case <-ctx.Done():
		return m.State(), ctx.Err()
	}
}

// Start creates a retraining job and, when the server returns a job id,
// begins polling it in the background. Polling stops on a terminal status,
// on a failed status read, or when ctx is canceled.
func (m *RetrainJobMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Active() {
		m.mu.Unlock()
		m.view.Alert(MsgJobActive)
		return ErrJobActive
	}
	done := make(chan struct{})
	m.state = MonitorStarting
	m.job = nil
	m.polls = 0
	m.done = done
	m.mu.Unlock()

	res, err := m.api.StartRetrain(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("retrain start failed")
		m.view.Alert(MsgRetrainFailed)
		m.events.Publish(Event{Name: EventMonitoringFailed, Fields: map[string]any{"phase": "start", "error": err.Error()}})
		m.setState(MonitorLost)
		close(done)
		return fmt.Errorf("start retrain: %w", err)
	}
	if res.RetrainID == "" {
		msg := res.Message
		if msg == "" {
			msg = MsgRetrainFailed
		}
		m.log.Warn().Str("message", res.Message).Msg("server did not create a retrain job")
		m.view.Alert(msg)
		m.setState(MonitorIdle)
		close(done)
		return fmt.Errorf("%w: %s", ErrNotStarted, msg)
	}

	m.mu.Lock()
	m.state = MonitorPolling
	m.job = &RetrainJob{ID: res.RetrainID, Status: types.RetrainStatusRunning}
	m.mu.Unlock()
	m.log.Info().Str("retrain_id", res.RetrainID).Dur("interval", m.interval).Msg("retrain started, polling status")
	m.events.Publish(Event{Name: EventRetrainStarted, Fields: map[string]any{"retrain_id": res.RetrainID}})

	go m.poll(ctx, res.RetrainID, done)
	return nil
}

func (m *RetrainJobMonitor) poll(parent context.Context, id string, done chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer close(done)

	t := time.NewTimer(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.lose(id, ctx.Err())
			return
		case <-t.C:
		}

		m.mu.Lock()
		m.polls++
		m.mu.Unlock()
		st, err := m.api.RetrainStatus(ctx, id)
		if err != nil {
			m.lose(id, err)
			return
		}
		m.observe(id, st)
		if st.Terminal() {
			m.finish(id, st)
			return
		}
		t.Reset(m.interval)
	}
}

func (m *RetrainJobMonitor) observe(id string, st types.RetrainStatusResponse) {
	m.mu.Lock()
	m.job.Status = st.Status
	m.job.Progress = st.Progress
	m.job.Message = st.Message
	if st.Metrics != nil && st.Metrics.MetricsTable != "" {
		t := MetricsTable(st.Metrics.MetricsTable)
		m.job.Metrics = &t
	}
	m.mu.Unlock()
	m.log.Info().Str("retrain_id", id).Str("status", st.Status).Float64("progress", st.Progress).Msg("retrain status")
	m.events.Publish(Event{Name: EventRetrainProgress, Fields: map[string]any{"retrain_id": id, "status": st.Status, "progress": st.Progress}})
}

func (m *RetrainJobMonitor) finish(id string, st types.RetrainStatusResponse) {
	final := MonitorCompleted
	fallback := MsgRetrainCompleted
	if st.Status == types.RetrainStatusFailed {
		final = MonitorFailed
		fallback = MsgRetrainFailed
	}

	msg := st.Message
	if msg == "" {
		msg = fallback
	}
	m.view.Alert(msg)
	if st.Metrics != nil && st.Metrics.MetricsTable != "" {
		m.view.ShowMetricsTable(st.Metrics.MetricsTable)
	}
	m.events.Publish(Event{Name: EventRetrainFinished, Fields: map[string]any{"retrain_id": id, "status": st.Status}})
	// stays active until the outcome is rendered
	m.setState(final)
}

func (m *RetrainJobMonitor) lose(id string, err error) {
	m.log.Error().Str("retrain_id", id).Err(err).Msg("retrain monitoring failed")
	m.view.Alert(MsgMonitoringFailed)
	m.events.Publish(Event{Name: EventMonitoringFailed, Fields: map[string]any{"retrain_id": id, "phase": "poll", "error": err.Error()}})
	m.setState(MonitorLost)
}

func (m *RetrainJobMonitor) setState(s MonitorState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
