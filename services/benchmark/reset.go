package benchmark

// The portal challenges a fresh session once, then lets a handful of
// lookups through before it starts challenging every single one.
// Dropping the cookies just before that point trades one cheap
// challenge for another unchallenged batch.
const defaultResetThreshold = 5

// resetPolicy decides when the session cookies should be cleared,
// counting successfully resolved cases. Members of an associated set
// count one each.
type resetPolicy struct {
	threshold int
	resolved  int
}

func newResetPolicy(threshold int) *resetPolicy {
	if threshold <= 0 {
		threshold = defaultResetThreshold
	}
	return &resetPolicy{threshold: threshold}
}

// CaseResolved records one resolved case and reports whether the
// cookies should be cleared now. Exactly every threshold-th case
// triggers a clear.
func (p *resetPolicy) CaseResolved() bool {
	p.resolved++
	if p.resolved >= p.threshold {
		p.resolved = 0
		return true
	}
	return false
}
