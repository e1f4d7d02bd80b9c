package timecontrol

// Budget is the time account of one player
type Budget struct {
	Time         int64 // remaining (or, counting up, consumed) time in milliseconds
	Delay        int64 // remaining delay, meaning depends on the method
	InitialTime  int64
	InitialDelay int64
	HasDelay     bool // false when no delay was configured
}

// Budgets holds the two players' budgets, white first
type Budgets [2]Budget

// NewBudgets builds budgets from configured values. An absent delay is
// stored as zero with HasDelay unset.
func NewBudgets(time [2]int64, delay [2]*int64) Budgets {
	var b Budgets
	for i := range b {
		b[i].InitialTime = time[i]
		if delay[i] != nil {
			b[i].InitialDelay = *delay[i]
			b[i].HasDelay = true
		}
	}
	b.Reset()

	return b
}

// Reset restores the initial time and delay of both players
func (b *Budgets) Reset() {
	for i := range b {
		b[i].Time = b[i].InitialTime
		b[i].Delay = b[i].InitialDelay
	}
}

// Flagged reports whether any player's time has reached zero or below
func (b *Budgets) Flagged() bool {
	return b[0].Time <= 0 || b[1].Time <= 0
}

// Times returns the remaining times of both players
func (b *Budgets) Times() [2]int64 {
	return [2]int64{b[0].Time, b[1].Time}
}

// Delays returns the delays of both players, nil where none was configured
func (b *Budgets) Delays() [2]*int64 {
	var d [2]*int64
	for i := range b {
		if b[i].HasDelay {
			d[i] = Millis(b[i].Delay)
		}
	}

	return d
}
