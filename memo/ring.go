package memo

// AmplitudeRing keeps the most recent peak amplitude samples in a fixed
// array; once full, each push overwrites the oldest slot.
type AmplitudeRing struct {
	buf  []int
	next int
	n    int
}

func NewAmplitudeRing(capacity int) *AmplitudeRing {
	if capacity < 1 {
		capacity = 1
	}
	return &AmplitudeRing{buf: make([]int, capacity)}
}

func (r *AmplitudeRing) Push(v int) {
	r.buf[r.next] = v
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
	}
	if r.n < len(r.buf) {
		r.n++
	}
}

// Index is the slot the next Push writes to.
func (r *AmplitudeRing) Index() int { return r.next }

func (r *AmplitudeRing) Len() int { return r.n }

func (r *AmplitudeRing) Cap() int { return len(r.buf) }

// Samples returns the stored values oldest first.
func (r *AmplitudeRing) Samples() []int {
	out := make([]int, 0, r.n)
	start := r.next - r.n
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.n; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// Last returns the most recent sample, or 0 when empty.
func (r *AmplitudeRing) Last() int {
	if r.n == 0 {
		return 0
	}
	i := r.next - 1
	if i < 0 {
		i = len(r.buf) - 1
	}
	return r.buf[i]
}

func (r *AmplitudeRing) Peak() int {
	peak := 0
	for _, v := range r.Samples() {
		if v > peak {
			peak = v
		}
	}
	return peak
}

func (r *AmplitudeRing) Reset() {
	clear(r.buf)
	r.next, r.n = 0, 0
}
