package metrics

import "sync/atomic"

// ID indexes one counter slot.
type ID uint16

const (
	LoginSuccess ID = iota
	LoginFailure
	LoginCaptchaRequired
	LoginLocked
	RefreshSuccess
	RefreshFailure
	RefreshReuseDetected
	Logout
	LogoutAll
	RegisterSuccess
	RegisterDuplicate
	ValidateSuccess
	ValidateBlacklisted
	ValidateFailure
	CaptchaGenerated
	CaptchaSuccess
	CaptchaFailure
	VerificationRequest
	VerificationSuccess
	VerificationFailure
	ResetRequest
	ResetSuccess
	ResetFailure
	ResetRateLimited
	KeyRotation
	BackendError
	idCount
)

// Config controls whether counters are recorded at all.
type Config struct {
	Enabled bool
}

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed array of atomic counters. A nil or disabled Metrics
// accepts increments and reports zeros.
type Metrics struct {
	enabled  bool
	counters [idCount]paddedCounter
}

func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id ID) {
	if m == nil || !m.enabled || id >= idCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot returns a point-in-time copy of every counter.
func (m *Metrics) Snapshot() map[ID]uint64 {
	if m == nil || !m.enabled {
		return map[ID]uint64{}
	}

	s := make(map[ID]uint64, int(idCount))
	for id := ID(0); id < idCount; id++ {
		s[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
