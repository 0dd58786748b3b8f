package ingest

import "log"

// State is the coordinator's position in a run.
type State int

const (
	Idle State = iota
	Decoding
	Reconciling
	SchemaCreated
	Ingesting
	Done
	Failed
)

var stateNames = [...]string{
	Idle:          "idle",
	Decoding:      "decoding",
	Reconciling:   "reconciling",
	SchemaCreated: "schema_created",
	Ingesting:     "ingesting",
	Done:          "done",
	Failed:        "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// setState moves to next and logs the transition. Failed is terminal.
func (c *Coordinator) setState(next State) {
	c.mu.Lock()
	prev := c.state
	if prev == Failed || prev == next {
		c.mu.Unlock()
		return
	}
	c.state = next
	c.mu.Unlock()

	log.Printf("ingest: state %s -> %s", prev, next)
}
