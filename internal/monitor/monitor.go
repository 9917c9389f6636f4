// Package monitor periodically snapshots how many sessions are live and how
// much has been drawn in them.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/OCAP2/mapdraw/internal/influx"
	"github.com/OCAP2/mapdraw/internal/session"
	"github.com/OCAP2/mapdraw/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
)

// MeasurementStatus is the measurement status points are written under.
const MeasurementStatus = "server_status"

// DefaultInterval is used when Dependencies.Interval is not positive.
const DefaultInterval = 30 * time.Second

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Sessions *session.Registry
	// Usage receives one status point per tick when set.
	Usage influx.PointWriter
	// StatusFile is rewritten with the latest status on every tick when set.
	StatusFile string
	Interval   time.Duration
	Logger     zerolog.Logger
}

// Status is one snapshot of the server.
type Status struct {
	Time     time.Time `json:"time"`
	Sessions int       `json:"sessions"`
	Markers  int       `json:"markers"`
	Lines    int       `json:"lines"`
	Drawing  int       `json:"drawing"`
}

// Point converts the snapshot into a status point.
func (st Status) Point() *influxdb2_write.Point {
	return influxdb2_write.NewPoint(MeasurementStatus, nil, map[string]any{
		"sessions": st.Sessions,
		"markers":  st.Markers,
		"lines":    st.Lines,
		"drawing":  st.Drawing,
	}, st.Time)
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current server status. Drawing counts sessions
// whose draw mode is not none.
func (s *Service) GetStatus() Status {
	st := Status{Time: time.Now().UTC()}
	for _, sess := range s.deps.Sessions.Snapshot() {
		st.Sessions++
		st.Markers += sess.Store().MarkerCount()
		st.Lines += sess.Store().LineCount()
		if sess.Store().DrawMode() != core.ModeNone {
			st.Drawing++
		}
	}
	return st
}

// Tick takes one snapshot and records it.
func (s *Service) Tick() Status {
	st := s.GetStatus()

	if s.deps.StatusFile != "" {
		if err := writeStatusFile(s.deps.StatusFile, st); err != nil {
			s.deps.Logger.Error().Err(err).Str("path", s.deps.StatusFile).Msg("Error writing status file")
		}
	}
	if s.deps.Usage != nil {
		if err := s.deps.Usage.WritePoint(st.Point()); err != nil {
			s.deps.Logger.Error().Err(err).Msg("Error writing status point")
		}
	}
	s.deps.Logger.Debug().
		Int("sessions", st.Sessions).
		Int("markers", st.Markers).
		Int("lines", st.Lines).
		Msg("Status")
	return st
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug().Dur("interval", s.deps.Interval).Msg("Starting status monitor")
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Tick()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()
	<-done
}

func writeStatusFile(path string, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
