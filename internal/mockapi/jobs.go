package mockapi

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"imgclass/pkg/types"
)

// job is one simulated retraining run. Progress advances on every status read
// rather than on a clock so tests stay deterministic.
type job struct {
	id       string
	images   int
	progress float64
	status   string
	message  string
	metrics  string
}

type jobStore struct {
	mu     sync.Mutex
	jobs   map[string]*job
	step   float64
	failAt float64 // 0 disables simulated failure
}

func newJobStore(step, failAt float64) *jobStore {
	return &jobStore{jobs: make(map[string]*job), step: step, failAt: failAt}
}

func (s *jobStore) create(images int) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.jobs[id] = &job{id: id, images: images, status: types.RetrainStatusRunning}
	s.mu.Unlock()
	retrainJobsTotal.WithLabelValues("created").Inc()
	return id
}

// advance moves the job forward one step and returns the status the client
// should see.
func (s *jobStore) advance(id string) (types.RetrainStatusResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return types.RetrainStatusResponse{}, false
	}
	if j.status == types.RetrainStatusRunning {
		j.progress += s.step
		switch {
		case s.failAt > 0 && j.progress >= s.failAt:
			j.status = types.RetrainStatusFailed
			j.message = "Retraining failed: validation loss diverged"
			retrainJobsTotal.WithLabelValues("failed").Inc()
		case j.progress >= 100:
			j.progress = 100
			j.status = types.RetrainStatusCompleted
			j.message = "Retraining successful"
			j.metrics = metricsTable(j.images)
			retrainJobsTotal.WithLabelValues("completed").Inc()
		}
	}
	out := types.RetrainStatusResponse{Status: j.status, Progress: j.progress, Message: j.message}
	if j.metrics != "" {
		out.Metrics = &types.RetrainMetrics{MetricsTable: j.metrics}
	}
	return out, true
}

func metricsTable(images int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %8s %8s\n", "epoch", "loss", "accuracy")
	loss, acc := 0.69, 0.55
	for e := 1; e <= 3; e++ {
		loss *= 0.6
		acc += (1 - acc) * 0.45
		fmt.Fprintf(&b, "%-10d %8.4f %8.3f\n", e, loss, acc)
	}
	fmt.Fprintf(&b, "%-10s %8d", "images", images)
	return b.String()
}
