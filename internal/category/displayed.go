package category

import "sync/atomic"

// Displayed holds the category currently on screen. Suggestions skip it on a
// best-effort basis: a read may happen before the pipeline writes the new value.
type Displayed struct {
	v atomic.Value
}

// Set records the displayed category
func (d *Displayed) Set(title string) {
	d.v.Store(title)
}

// Get returns the displayed category, "" if none yet. A nil receiver returns "".
func (d *Displayed) Get() string {
	if d == nil {
		return ""
	}
	s, _ := d.v.Load().(string)
	return s
}
