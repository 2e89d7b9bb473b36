package core

// Teardown collects release functions while objects are created and runs
// them in the opposite order. A failing release is logged and the remaining
// ones still run.
type Teardown struct {
	entries []teardownEntry
}

type teardownEntry struct {
	name    string
	release func() error
}

func NewTeardown() *Teardown {
	return &Teardown{}
}

// Push registers the release function for an object that was just created.
func (t *Teardown) Push(name string, release func() error) {
	t.entries = append(t.entries, teardownEntry{name: name, release: release})
}

func (t *Teardown) Len() int {
	return len(t.entries)
}

// Release runs every registered function, newest first, and empties the
// stack. It returns the number of releases that failed.
func (t *Teardown) Release() int {
	failed := 0
	for i := len(t.entries) - 1; i >= 0; i-- {
		e := t.entries[i]
		LogDebug("Destroying %s...", e.name)
		if err := e.release(); err != nil {
			LogError("failed to destroy %s: %s", e.name, err)
			failed++
		}
	}
	t.entries = nil
	return failed
}
