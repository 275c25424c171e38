package tap

// Pool is a fixed size collection of persistent magnetizations. Each slot seeds one descent per gradient computation
// and is replaced by that descent's result. A slot that has never been filled is nil and gets a random seed.
//
// Pool is not safe for concurrent use; a Machine guards its pool with its own lock.
type Pool struct {
	slots []*Magnetization
}

func NewPool(size int) *Pool {
	return &Pool{slots: make([]*Magnetization, size)}
}

func (p *Pool) Len() int { return len(p.slots) }

// Slot returns a copy of the i-th magnetization, and false if the slot is still empty.
func (p *Pool) Slot(i int) (Magnetization, bool) {
	if p.slots[i] == nil {
		return Magnetization{}, false
	}
	return p.slots[i].Clone(), true
}

func (p *Pool) set(i int, m Magnetization) {
	p.slots[i] = &m
}
