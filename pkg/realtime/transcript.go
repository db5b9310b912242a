package realtime

import "sync"

// Transcript is one logical message and its accumulated text.
type Transcript struct {
	ItemID string
	Text   string
}

// Accumulator stitches delta fragments into the text of the current item.
// A delta for the current item appends; a delta for any other item replaces
// the state with a fresh message.
type Accumulator struct {
	mu     sync.Mutex
	cur    Transcript
	active bool
}

// Apply merges delta into the accumulator and returns a snapshot. started
// reports whether itemID opened a new message.
func (a *Accumulator) Apply(itemID, delta string) (snap Transcript, started bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active || a.cur.ItemID != itemID {
		a.cur = Transcript{ItemID: itemID, Text: delta}
		a.active = true
		return a.cur, true
	}
	a.cur.Text += delta
	return a.cur, false
}

// Set replaces the accumulator with the final text for itemID.
func (a *Accumulator) Set(itemID, text string) Transcript {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cur = Transcript{ItemID: itemID, Text: text}
	a.active = true
	return a.cur
}

// Snapshot returns the current message.
func (a *Accumulator) Snapshot() Transcript {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cur
}

// Reset clears the accumulator.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	a.cur = Transcript{}
	a.active = false
	a.mu.Unlock()
}
