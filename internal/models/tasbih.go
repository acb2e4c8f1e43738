package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTasbihTarget is the count of one round of dhikr.
const DefaultTasbihTarget = 33

// TasbihTargets lists the round sizes a counter can be set to.
var TasbihTargets = []int{33, 99, 100}

func ValidTasbihTarget(n int) bool {
	for _, t := range TasbihTargets {
		if t == n {
			return true
		}
	}
	return false
}

type TasbihCounter struct {
	UserID    uuid.UUID `json:"user_id"`
	Count     int       `json:"count"`
	Target    int       `json:"target"`
	Cycle     int       `json:"cycle"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Increment advances the counter by one bead. Passing the target starts the
// next round at 1.
func (c *TasbihCounter) Increment() {
	next := c.Count + 1
	if next > c.Target {
		c.Cycle++
		next = 1
	}
	c.Count = next
}

func (c *TasbihCounter) Reset() {
	c.Count = 0
	c.Cycle = 0
}

// SetTarget switches round size and restarts the current round.
func (c *TasbihCounter) SetTarget(target int) {
	c.Target = target
	c.Count = 0
}
