package browser

import "sync"

// loadingTracker is the shared loading flag. It counts outstanding operations
// and reads true while any is in flight. Only begin and end change it.
type loadingTracker struct {
	mu          sync.Mutex
	outstanding int
	onChange    func()
}

func (l *loadingTracker) begin() {
	l.mu.Lock()
	l.outstanding++
	changed := l.outstanding == 1
	l.mu.Unlock()

	if changed && l.onChange != nil {
		l.onChange()
	}
}

func (l *loadingTracker) end() {
	l.mu.Lock()
	if l.outstanding > 0 {
		l.outstanding--
	}
	changed := l.outstanding == 0
	l.mu.Unlock()

	if changed && l.onChange != nil {
		l.onChange()
	}
}

func (l *loadingTracker) loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.outstanding > 0
}
