package phase

// Trail is a ring of the most recently appended points. When full, each
// append evicts the oldest point. Not safe for concurrent use; the render
// loop owns it.
type Trail struct {
	buf  []Point
	head int // index of the oldest point
	size int
}

// NewTrail returns an empty trail holding at most capacity points.
// Capacities below 1 are treated as 1.
func NewTrail(capacity int) *Trail {
	return &Trail{buf: make([]Point, max(capacity, 1))}
}

func (t *Trail) Len() int { return t.size }

func (t *Trail) Cap() int { return len(t.buf) }

// Append pushes points in order, evicting from the oldest end.
func (t *Trail) Append(points ...Point) {
	c := len(t.buf)
	// Only the last c points can survive.
	if len(points) > c {
		points = points[len(points)-c:]
	}
	for _, p := range points {
		if t.size < c {
			t.buf[(t.head+t.size)%c] = p
			t.size++
			continue
		}
		t.buf[t.head] = p
		t.head = (t.head + 1) % c
	}
}

// Resize changes the capacity. Shrinking drops the oldest excess points;
// growing keeps every point and leaves the new slots empty.
func (t *Trail) Resize(capacity int) {
	capacity = max(capacity, 1)
	if capacity == len(t.buf) {
		return
	}
	pts := t.Points()
	if len(pts) > capacity {
		pts = pts[len(pts)-capacity:]
	}
	t.buf = make([]Point, capacity)
	t.head = 0
	t.size = copy(t.buf, pts)
}

// Points returns a copy of the trail, oldest first.
func (t *Trail) Points() []Point {
	out := make([]Point, 0, t.size)
	t.Each(func(p Point, _ int) {
		out = append(out, p)
	})
	return out
}

// Each calls fn for every point from oldest to newest. age is 0 for the most
// recently appended point and Len()-1 for the oldest.
func (t *Trail) Each(fn func(p Point, age int)) {
	c := len(t.buf)
	for i := 0; i < t.size; i++ {
		fn(t.buf[(t.head+i)%c], t.size-1-i)
	}
}

// Reset empties the trail without changing its capacity.
func (t *Trail) Reset() {
	t.head = 0
	t.size = 0
}
