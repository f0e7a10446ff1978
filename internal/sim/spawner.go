package sim

// Rand is the source of randomness for spawning. *math/rand.Rand satisfies
// it; seeding is up to the caller.
type Rand interface {
	Intn(n int) int
}

// Spawn activates a vehicle with a random origin and lane. It is a no-op
// returning false when the pool is full.
func (s *Simulation) Spawn() bool {
	origin := Origins[s.rng.Intn(len(Origins))]
	lane := s.rng.Intn(LaneCount)
	return s.SpawnFrom(origin, lane)
}

// SpawnFrom activates a vehicle in the given approach and lane.
func (s *Simulation) SpawnFrom(origin Origin, lane int) bool {
	if int(origin) >= len(Origins) || lane < 0 || lane >= LaneCount {
		return false
	}

	pos, heading := entryPose(s.params, origin, lane)
	v, ok := s.pool.acquire()
	if !ok {
		return false
	}

	s.nextID++
	v.ID = s.nextID
	v.Origin = origin
	v.Lane = lane
	v.Intent = IntentForLane(lane)
	v.SpawnTick = s.clock
	v.Position = pos
	v.Heading = heading
	v.state = StateDrive

	s.emit(Event{Kind: EventSpawned, Vehicle: v.View(), From: StateSpawn, To: StateDrive})
	return true
}

// entryPose places a vehicle just outside the visible area on its approach,
// offset from the centerline toward its own side of the road.
func entryPose(p Params, origin Origin, lane int) (Vec2, float64) {
	c := p.Center()
	off := p.LaneOffset(lane)

	var pos Vec2
	switch origin {
	case North:
		pos = Vec2{c.X + off, -p.SpawnMargin}
	case South:
		pos = Vec2{c.X - off, p.Height + p.SpawnMargin}
	case East:
		pos = Vec2{p.Width + p.SpawnMargin, c.Y + off}
	case West:
		pos = Vec2{-p.SpawnMargin, c.Y - off}
	}
	return pos, origin.Heading()
}

// EntryClear reports whether a vehicle spawned on origin and lane would
// start out unblocked. Neighbours in adjacent lanes do not count. SpawnFrom
// does not check it; queued arrivals wait for a clear entry.
func (s *Simulation) EntryClear(origin Origin, lane int) bool {
	if int(origin) >= len(Origins) || lane < 0 || lane >= LaneCount {
		return false
	}
	pos, heading := entryPose(s.params, origin, lane)
	for _, slot := range s.pool.dense {
		if s.inCone(pos, heading, s.pool.slots[slot].Position) {
			return false
		}
	}
	return true
}
