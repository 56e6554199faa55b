package cohesion

// FilterBelow removes every class scoring above threshold.
func (s *Structure) FilterBelow(threshold float64) {
	s.retain(func(c *Class) bool { return c.Score() <= threshold })
}

// FilterAbove removes every class scoring below threshold.
func (s *Structure) FilterAbove(threshold float64) {
	s.retain(func(c *Class) bool { return c.Score() >= threshold })
}
