package telemetry

// HistorySample is one end-of-tick population sample.
type HistorySample struct {
	Tick       uint32  `csv:"tick"`
	Population int     `csv:"population"`
	MeanEnergy float64 `csv:"mean_energy"`
}

// History is a fixed-size ring of the most recent samples.
type History struct {
	samples []HistorySample
	next    int
	full    bool
}

// NewHistory creates a history holding up to size samples. A size of 0
// keeps nothing.
func NewHistory(size int) *History {
	return &History{samples: make([]HistorySample, max(size, 0))}
}

// Add appends a sample, evicting the oldest one when full.
func (h *History) Add(s HistorySample) {
	if len(h.samples) == 0 {
		return
	}
	h.samples[h.next] = s
	h.next = (h.next + 1) % len(h.samples)
	if h.next == 0 {
		h.full = true
	}
}

// Len returns the number of stored samples.
func (h *History) Len() int {
	if h.full {
		return len(h.samples)
	}
	return h.next
}

// Samples returns the stored samples, oldest first.
func (h *History) Samples() []HistorySample {
	if !h.full {
		return append([]HistorySample(nil), h.samples[:h.next]...)
	}
	out := make([]HistorySample, 0, len(h.samples))
	out = append(out, h.samples[h.next:]...)
	return append(out, h.samples[:h.next]...)
}
