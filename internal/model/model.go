package model

import (
	"time"

	"github.com/google/uuid"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema.
// Order matters: parents migrate before the tables referencing them.
var DatabaseModels = []interface{}{
	&Run{},
	&Vehicle{},
	&VehicleState{},
	&VehicleExit{},
	&LightState{},
	&LaneCount{},
}

////////////////////////
// RUN MODELS
////////////////////////

// Run is one recorded simulation session
type Run struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string         `json:"name" gorm:"size:200"`
	Seed      int64          `json:"seed"`
	StartTime time.Time      `json:"startTime" gorm:"type:timestamptz;index:idx_run_start"`
	EndTime   *time.Time     `json:"endTime" gorm:"type:timestamptz"`
	EndTick   uint64         `json:"endTick"`
	TickRate  int64          `json:"tickRateNs"`
	Params    datatypes.JSON `json:"params"`
	Anchor    Anchor         `json:"anchor" gorm:"embedded;embeddedPrefix:anchor_"`
	Location  geom.Point     `json:"location"` // junction center, EPSG:3857
}

func (*Run) TableName() string {
	return "runs"
}

// Anchor places the junction center on the globe
type Anchor struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	MetersPerUnit float64 `json:"metersPerUnit"`
}

////////////////////////
// VEHICLE MODELS
////////////////////////

// Vehicle is inserted once when a vehicle enters the junction
type Vehicle struct {
	RunID     uuid.UUID  `json:"runId" gorm:"type:uuid;primaryKey"`
	Run       Run        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	VehicleID uint64     `json:"vehicleId" gorm:"primaryKey;autoIncrement:false"`
	Origin    string     `json:"origin" gorm:"size:8;index:idx_vehicle_origin"`
	Lane      uint8      `json:"lane"`
	Intent    string     `json:"intent" gorm:"size:8"`
	SpawnTick uint64     `json:"spawnTick" gorm:"index:idx_vehicle_spawn_tick"`
	SpawnTime time.Time  `json:"spawnTime" gorm:"type:timestamptz"`
	Position  geom.Point `json:"position"`
	Heading   float64    `json:"heading"`
}

func (*Vehicle) TableName() string {
	return "vehicles"
}

// VehicleState is a sampled pose
type VehicleState struct {
	ID        uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time  `json:"time" gorm:"type:timestamptz;"`
	RunID     uuid.UUID  `json:"runId" gorm:"type:uuid;index:idx_vehiclestate_run_id"`
	Run       Run        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Tick      uint64     `json:"tick" gorm:"index:idx_vehiclestate_tick"`
	VehicleID uint64     `json:"vehicleId" gorm:"index:idx_vehiclestate_vehicle_id"`
	Vehicle   Vehicle    `gorm:"foreignkey:RunID,VehicleID;references:RunID,VehicleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	State     string     `json:"state" gorm:"size:8"`
	Position  geom.Point `json:"position"`
	Heading   float64    `json:"heading"`
}

func (*VehicleState) TableName() string {
	return "vehicle_states"
}

// VehicleExit closes a vehicle's lifetime with its full sampled track
type VehicleExit struct {
	ID          uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time       `json:"time" gorm:"type:timestamptz;"`
	RunID       uuid.UUID       `json:"runId" gorm:"type:uuid;index:idx_vehicleexit_run_id"`
	Run         Run             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Tick        uint64          `json:"tick"`
	VehicleID   uint64          `json:"vehicleId" gorm:"index:idx_vehicleexit_vehicle_id"`
	Vehicle     Vehicle         `gorm:"foreignkey:RunID,VehicleID;references:RunID,VehicleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	TravelTicks uint64          `json:"travelTicks"`
	Position    geom.Point      `json:"position"`
	Track       geom.LineString `json:"track"`
}

func (*VehicleExit) TableName() string {
	return "vehicle_exits"
}

////////////////////////
// JUNCTION MODELS
////////////////////////

// LightState is written whenever the signal phase changes
type LightState struct {
	ID    uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time  time.Time `json:"time" gorm:"type:timestamptz;"`
	RunID uuid.UUID `json:"runId" gorm:"type:uuid;index:idx_lightstate_run_id"`
	Run   Run       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Tick  uint64    `json:"tick" gorm:"index:idx_lightstate_tick"`
	Phase string    `json:"phase" gorm:"size:16"`
	NS    string    `json:"ns" gorm:"size:8"`
	EW    string    `json:"ew" gorm:"size:8"`
}

func (*LightState) TableName() string {
	return "light_states"
}

// LaneCount is a periodic occupancy report
type LaneCount struct {
	ID      uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time    time.Time `json:"time" gorm:"type:timestamptz;"`
	RunID   uuid.UUID `json:"runId" gorm:"type:uuid;index:idx_lanecount_run_id"`
	Run     Run       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Tick    uint64    `json:"tick" gorm:"index:idx_lanecount_tick"`
	North   int       `json:"north"`
	South   int       `json:"south"`
	East    int       `json:"east"`
	West    int       `json:"west"`
	Active  int       `json:"active"`
	Braking int       `json:"braking"`
}

func (*LaneCount) TableName() string {
	return "lane_counts"
}
