package clock

import "time"

// Backoff produces exponentially growing delays between retries.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration

	next time.Duration
}

// Next returns the delay to wait before the next attempt and doubles the
// following one, up to Max.
func (b *Backoff) Next() time.Duration {
	if b.next <= 0 {
		b.next = b.Initial
	}
	d := b.next
	b.next *= 2
	if b.Max > 0 && b.next > b.Max {
		b.next = b.Max
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return d
}

// Reset starts the sequence over from Initial.
func (b *Backoff) Reset() {
	b.next = 0
}
