package session

// ForceSubmitAfter is the hidden-tab count that forces submission.
const ForceSubmitAfter = 2

// TabOutcome is what a hidden-tab event caused.
type TabOutcome int

const (
	TabIgnored TabOutcome = iota
	TabWarned
	TabForceSubmit
)

func (o TabOutcome) String() string {
	switch o {
	case TabWarned:
		return "warned"
	case TabForceSubmit:
		return "forceSubmit"
	default:
		return "ignored"
	}
}

// TabMonitor counts visibility-hidden events. It only listens while attached,
// and attaching twice is a no-op, so each event counts exactly once.
type TabMonitor struct {
	attached bool
	count    int
}

// Attach starts listening. It reports false if already attached.
func (m *TabMonitor) Attach() bool {
	if m.attached {
		return false
	}
	m.attached = true
	return true
}

func (m *TabMonitor) Detach() {
	m.attached = false
}

func (m *TabMonitor) Attached() bool {
	return m.attached
}

func (m *TabMonitor) Count() int {
	return m.count
}

// Hidden records one visibility-hidden event.
func (m *TabMonitor) Hidden() TabOutcome {
	if !m.attached {
		return TabIgnored
	}
	m.count++
	if m.count < ForceSubmitAfter {
		return TabWarned
	}
	return TabForceSubmit
}
