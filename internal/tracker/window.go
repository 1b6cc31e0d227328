package tracker

import "time"

// Window is the admission rule for the filtered series.
//
// A reading is admitted when its key has no filtered entry yet, or when no
// more than Size has elapsed since that key's last filtered entry. This is
// not a debounce: once a key falls silent for longer than Size it stops
// being admitted.
type Window struct {
	Size time.Duration
}

// NewWindow returns a Window of the given size
func NewWindow(size time.Duration) Window {
	return Window{Size: size}
}

// Enabled reports whether filtered-series recording is configured
func (w Window) Enabled() bool {
	return w.Size > 0
}

// Admit decides whether a reading at now joins the filtered series.
// last is the timestamp of the key's most recent filtered entry; ok is false when there is none.
func (w Window) Admit(now, last time.Time, ok bool) bool {
	if !ok {
		return true
	}
	return now.Sub(last) <= w.Size
}
