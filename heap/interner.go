package heap

import "sync"

// Interner maps strings (file paths, haste names) to stable Handles so
// records can carry a small handle instead of repeating the string, and so
// equal strings always compare equal by handle. Thread-safe.
type Interner struct {
	mu  sync.Mutex
	ids map[string]Handle
	rev []string
}

// NewInterner returns an empty interner with the nil sentinel reserved so
// that an interned Handle of NilHandle never aliases a real string.
func NewInterner() *Interner {
	return &Interner{
		ids: make(map[string]Handle),
		rev: []string{""},
	}
}

// Intern returns the stable handle for s, allocating one if s has not been
// seen before.
func (in *Interner) Intern(s string) Handle {
	in.mu.Lock()
	defer in.mu.Unlock()
	if h, ok := in.ids[s]; ok {
		return h
	}
	h := Handle(len(in.rev))
	in.rev = append(in.rev, s)
	in.ids[s] = h
	return h
}

// Lookup returns the string behind h, or "" if h is unknown.
func (in *Interner) Lookup(h Handle) string {
	in.mu.Lock()
	defer in.mu.Unlock()
	if int(h) <= 0 || int(h) >= len(in.rev) {
		return ""
	}
	return in.rev[h]
}
