package app

// TrendRing keeps the most recent fatigue readings, oldest first, for the
// trend sparkline.
type TrendRing struct {
	values []float64
	limit  int
}

// NewTrendRing creates a ring holding at most capacity readings.
func NewTrendRing(capacity int) *TrendRing {
	capacity = max(capacity, 1)
	return &TrendRing{
		values: make([]float64, 0, capacity),
		limit:  capacity,
	}
}

// Push appends a reading, shifting out the oldest once full.
func (r *TrendRing) Push(fatigue float64) {
	if len(r.values) < r.limit {
		r.values = append(r.values, fatigue)
		return
	}
	copy(r.values, r.values[1:])
	r.values[len(r.values)-1] = fatigue
}

// Values returns a copy of the readings in chronological order, or nil.
func (r *TrendRing) Values() []float64 {
	if len(r.values) == 0 {
		return nil
	}
	out := make([]float64, len(r.values))
	copy(out, r.values)
	return out
}

// Clear drops all readings.
func (r *TrendRing) Clear() {
	r.values = r.values[:0]
}
