package crawler

// VisitedSet holds the URLs a session has dequeued for fetching. It only
// grows.
type VisitedSet struct {
	urls map[string]struct{}
}

// NewVisitedSet returns an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{urls: make(map[string]struct{})}
}

// Add inserts u.
func (v *VisitedSet) Add(u string) {
	v.urls[u] = struct{}{}
}

// Contains implements Membership.
func (v *VisitedSet) Contains(u string) bool {
	_, ok := v.urls[u]
	return ok
}

// Len returns the number of URLs in the set.
func (v *VisitedSet) Len() int {
	return len(v.urls)
}

// Frontier is a FIFO queue of pending URLs with a companion set of every
// URL ever pushed. Push is the only dedup checkpoint: a URL enters the
// queue at most once for the lifetime of the frontier.
type Frontier struct {
	queue []string
	head  int

	seen map[string]struct{}
}

// NewFrontier returns an empty frontier. expected is a capacity hint for
// the number of distinct URLs.
func NewFrontier(expected int) *Frontier {
	return &Frontier{seen: make(map[string]struct{}, max(expected, 0))}
}

// Push appends u unless it was pushed before. It reports whether u was added.
func (f *Frontier) Push(u string) bool {
	if _, ok := f.seen[u]; ok {
		return false
	}
	f.seen[u] = struct{}{}
	f.queue = append(f.queue, u)
	return true
}

// Pop removes and returns the head of the queue.
func (f *Frontier) Pop() (string, bool) {
	if f.head >= len(f.queue) {
		return "", false
	}
	u := f.queue[f.head]
	f.queue[f.head] = ""
	f.head++

	if f.head > len(f.queue)/2 && f.head > 64 {
		f.queue = append([]string(nil), f.queue[f.head:]...)
		f.head = 0
	}
	return u, true
}

// Len returns the number of pending URLs.
func (f *Frontier) Len() int {
	return len(f.queue) - f.head
}
