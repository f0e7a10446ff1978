// Package gormstorage implements the storage.Backend interface on top of any
// GORM dialect with internal queues and a background DB writer goroutine.
// The postgres and sqlite backends wrap it.
package gormstorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/intersim/intersim/internal/database"
	"github.com/intersim/intersim/internal/model"
	"github.com/intersim/intersim/internal/model/convert"
	"github.com/intersim/intersim/internal/queue"
	"github.com/intersim/intersim/internal/storage"
	"github.com/intersim/intersim/pkg/core"
)

// DefaultFlushInterval is how often queued records are written.
const DefaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger

	// Projector maps positions to stored geometry; nil stores raw units.
	Projector convert.Projector
	// Center is the junction center in simulation units.
	Center core.Position

	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Vehicles      *queue.Queue[model.Vehicle]
	VehicleStates *queue.Queue[model.VehicleState]
	VehicleExits  *queue.Queue[model.VehicleExit]
	LightStates   *queue.Queue[model.LightState]
	LaneCounts    *queue.Queue[model.LaneCount]
}

func newQueues() *queues {
	return &queues{
		Vehicles:      queue.New[model.Vehicle](),
		VehicleStates: queue.New[model.VehicleState](),
		VehicleExits:  queue.New[model.VehicleExit](),
		LightStates:   queue.New[model.LightState](),
		LaneCounts:    queue.New[model.LaneCount](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	queues *queues
	log    *slog.Logger

	mu    sync.RWMutex
	runID uuid.UUID
	run   *core.Run

	flushMu   sync.Mutex
	lastFlush time.Duration
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Projector == nil {
		deps.Projector = convert.Planar{}
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
		log:    log.With("component", "gorm-storage"),
	}
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm storage: no database connection")
	}

	b.log.Info("Migrating schema", "dialect", b.deps.DB.Dialector.Name())
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writer()
	return nil
}

// Close stops the DB writer goroutine after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	b.Flush()
	return nil
}

// StartRun inserts the run row synchronously so every queued record can
// reference it.
func (b *Backend) StartRun(run *core.Run) error {
	row := convert.CoreToRun(*run, b.deps.Center, b.deps.Projector)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert new run: %w", err)
	}

	b.mu.Lock()
	b.run = run
	b.runID = run.ID
	b.mu.Unlock()

	b.log.Info("Run started", "run", run.ID, "name", run.Name)
	return nil
}

// EndRun flushes all queued records and stamps the run's end.
func (b *Backend) EndRun(endTick uint64) error {
	runID, ok := b.currentRun()
	if !ok {
		return storage.ErrNoRun
	}

	b.Flush()

	end := time.Now()
	if err := b.deps.DB.Model(&model.Run{}).Where("id = ?", runID).Updates(map[string]any{
		"end_tick": endTick,
		"end_time": end,
	}).Error; err != nil {
		return fmt.Errorf("failed to close run %s: %w", runID, err)
	}

	b.mu.Lock()
	b.run.EndTick = endTick
	b.run.EndTime = end
	b.run = nil
	b.runID = uuid.Nil
	b.mu.Unlock()
	return nil
}

func (b *Backend) currentRun() (uuid.UUID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.runID, b.run != nil
}

// AddVehicle converts a core vehicle to GORM and pushes to the write queue.
func (b *Backend) AddVehicle(v *core.Vehicle) error {
	runID, ok := b.currentRun()
	if !ok {
		return storage.ErrNoRun
	}
	b.queues.Vehicles.Push(convert.CoreToVehicle(runID, *v, b.deps.Projector))
	return nil
}

// RecordVehicleState converts and queues a vehicle state.
func (b *Backend) RecordVehicleState(s *core.VehicleState) error {
	runID, ok := b.currentRun()
	if !ok {
		return storage.ErrNoRun
	}
	b.queues.VehicleStates.Push(convert.CoreToVehicleState(runID, *s, b.deps.Projector))
	return nil
}

// RecordVehicleExit converts and queues a vehicle exit with its track.
func (b *Backend) RecordVehicleExit(e *core.VehicleExit) error {
	runID, ok := b.currentRun()
	if !ok {
		return storage.ErrNoRun
	}
	b.queues.VehicleExits.Push(convert.CoreToVehicleExit(runID, *e, b.deps.Projector))
	return nil
}

// RecordLightState converts and queues a light change.
func (b *Backend) RecordLightState(l *core.LightState) error {
	runID, ok := b.currentRun()
	if !ok {
		return storage.ErrNoRun
	}
	b.queues.LightStates.Push(convert.CoreToLightState(runID, *l))
	return nil
}

// RecordLaneCounts converts and queues a lane count report.
func (b *Backend) RecordLaneCounts(c *core.LaneCounts) error {
	runID, ok := b.currentRun()
	if !ok {
		return storage.ErrNoRun
	}
	b.queues.LaneCounts.Push(convert.CoreToLaneCount(runID, *c))
	return nil
}

// Pending returns the number of records waiting to be written.
func (b *Backend) Pending() int {
	q := b.queues
	return q.Vehicles.Len() + q.VehicleStates.Len() + q.VehicleExits.Len() + q.LightStates.Len() + q.LaneCounts.Len()
}

// Flush writes every queue once. Vehicles go first so states and exits
// never reference a missing row.
func (b *Backend) Flush() {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	start := time.Now()
	defer func() { b.lastFlush = time.Since(start) }()

	db := b.deps.DB
	writeQueue(db, b.queues.Vehicles, "vehicles", b.log)
	writeQueue(db, b.queues.VehicleStates, "vehicle states", b.log)
	writeQueue(db, b.queues.VehicleExits, "vehicle exits", b.log)
	writeQueue(db, b.queues.LightStates, "light states", b.log)
	writeQueue(db, b.queues.LaneCounts, "lane counts", b.log)
}

// GetLastDBWriteDuration returns how long the last flush took.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	return b.lastFlush
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items go back on the queue for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Error creating records", "table", name, "count", len(items), "error", err)
		tx.Rollback()
		q.Push(items...)
		return
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Error committing records", "table", name, "count", len(items), "error", err)
		q.Push(items...)
		return
	}
	log.Debug("Wrote records", "table", name, "count", len(items))
}

// writer periodically drains queues into the DB.
func (b *Backend) writer() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.Flush()
		}
	}
}
