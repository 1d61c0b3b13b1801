package domain

// ReadinessState is a state of the model readiness gate.
type ReadinessState int

// Readiness states, in the order the gate moves through them.
const (
	ReadinessUnchecked ReadinessState = iota
	ReadinessWaitingForBackend
	ReadinessCheckingModel
	ReadinessPullingModel
	ReadinessReady
	ReadinessDegraded
)

// String returns the state name.
func (s ReadinessState) String() string {
	switch s {
	case ReadinessUnchecked:
		return "unchecked"
	case ReadinessWaitingForBackend:
		return "waiting_for_backend"
	case ReadinessCheckingModel:
		return "checking_model"
	case ReadinessPullingModel:
		return "pulling_model"
	case ReadinessReady:
		return "ready"
	case ReadinessDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Settled reports whether the gate has finished: generation may proceed
// once the gate is Ready or Degraded.
func (s ReadinessState) Settled() bool {
	return s == ReadinessReady || s == ReadinessDegraded
}
