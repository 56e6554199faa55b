package cohesion

import "math"

// Score returns the class's cohesion percentage: the share of
// (variable, method) pairs in which the method uses the variable, rounded to
// two decimals. A class without variables or without methods scores 0.
// The value is computed on first call and cached.
func (c *Class) Score() float64 {
	if !c.score.computed {
		c.score = scoreState{computed: true, value: c.computeScore()}
	}
	return c.score.value
}

func (c *Class) computeScore() float64 {
	slots := len(c.Variables) * len(c.methods)
	if slots == 0 {
		return 0
	}
	used := 0
	for _, m := range c.methods {
		used += len(m.Variables)
	}
	return roundPercent(float64(used) / float64(slots) * 100)
}

// roundPercent rounds to two decimal places, halves to even.
func roundPercent(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
