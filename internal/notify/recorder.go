package notify

import "sync"

// Recorder implements Notifier and Navigator by recording every call.
type Recorder struct {
	mu        sync.Mutex
	location  string
	Warnings  []string
	Errors    []string
	Redirects []string
}

// NewRecorder starts at location.
func NewRecorder(location string) *Recorder {
	return &Recorder{location: location}
}

func (r *Recorder) Warning(message string) {
	r.mu.Lock()
	r.Warnings = append(r.Warnings, message)
	r.mu.Unlock()
}

func (r *Recorder) Error(message string) {
	r.mu.Lock()
	r.Errors = append(r.Errors, message)
	r.mu.Unlock()
}

func (r *Recorder) Location() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.location
}

func (r *Recorder) Redirect(target string) {
	r.mu.Lock()
	r.Redirects = append(r.Redirects, target)
	r.mu.Unlock()
}
