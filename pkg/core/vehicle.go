package core

import "time"

// Vehicle is recorded once, when the vehicle enters the simulation.
type Vehicle struct {
	ID        uint64    `json:"id"`
	Origin    string    `json:"origin"`
	Lane      int       `json:"lane"`
	Intent    string    `json:"intent"`
	SpawnTick uint64    `json:"spawnTick"`
	SpawnTime time.Time `json:"spawnTime"`
	Position  Position  `json:"position"`
	Heading   float64   `json:"heading"`
}

// VehicleState is a sampled pose of a live vehicle.
type VehicleState struct {
	VehicleID uint64    `json:"vehicleId"`
	Tick      uint64    `json:"tick"`
	Time      time.Time `json:"time"`
	State     string    `json:"state"`
	Position  Position  `json:"position"`
	Heading   float64   `json:"heading"`
}

// VehicleExit closes a vehicle's record when it is reaped.
type VehicleExit struct {
	VehicleID   uint64     `json:"vehicleId"`
	Tick        uint64     `json:"tick"`
	Time        time.Time  `json:"time"`
	TravelTicks uint64     `json:"travelTicks"`
	Position    Position   `json:"position"`
	Track       []Position `json:"track"`
}
