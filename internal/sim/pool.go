package sim

// pool is a fixed arena of vehicle slots. Free slots sit on a stack, live
// slots are kept in a dense list so iteration touches only active vehicles.
type pool struct {
	slots [Capacity]Vehicle
	free  []int
	dense []int
	// where[slot] is the index of slot in dense, or -1 when free.
	where [Capacity]int
}

func newPool() *pool {
	p := &pool{
		free:  make([]int, 0, Capacity),
		dense: make([]int, 0, Capacity),
	}
	for i := Capacity - 1; i >= 0; i-- {
		p.free = append(p.free, i)
		p.where[i] = -1
		p.slots[i].Slot = i
	}
	return p
}

// acquire takes a free slot and resets it. It returns false when the pool
// is exhausted.
func (p *pool) acquire() (*Vehicle, bool) {
	n := len(p.free)
	if n == 0 {
		return nil, false
	}
	slot := p.free[n-1]
	p.free = p.free[:n-1]

	p.where[slot] = len(p.dense)
	p.dense = append(p.dense, slot)

	p.slots[slot] = Vehicle{Slot: slot}
	return &p.slots[slot], true
}

// release returns slot to the free stack. Releasing a free slot is a no-op.
func (p *pool) release(slot int) {
	if slot < 0 || slot >= Capacity {
		return
	}
	i := p.where[slot]
	if i < 0 {
		return
	}

	last := len(p.dense) - 1
	moved := p.dense[last]
	p.dense[i] = moved
	p.where[moved] = i
	p.dense = p.dense[:last]

	p.where[slot] = -1
	p.free = append(p.free, slot)
}

func (p *pool) get(slot int) (*Vehicle, bool) {
	if slot < 0 || slot >= Capacity || p.where[slot] < 0 {
		return nil, false
	}
	return &p.slots[slot], true
}

func (p *pool) len() int {
	return len(p.dense)
}

func (p *pool) available() int {
	return len(p.free)
}
