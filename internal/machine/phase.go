// Package machine implements the abstract machine Γ that the
// verifier drives forward one instruction at a time: the current
// phase, the outstanding fence multiset, the resource table, the
// registered checkpoint labels, and the active-snapshot flag.
//
// Every mutation is localized to one method per judgment rule so the
// state machine stays easy to audit. A Machine carries no
// process-global state: it is safe to run many independent Machines
// concurrently.
package machine

// Phase is the discrete operational state of Γ.
type Phase int

const (
	PhaseBuild Phase = iota
	PhaseRecord
	PhaseSubmitted
	PhaseIdle
	PhaseFinished

	// PhaseCount is the number of distinct phases; used to size
	// phase-indexed arrays such as opcode.Info.validIn.
	PhaseCount = int(PhaseFinished) + 1
)

// String renders the phase the way diagnostics name it, so messages
// never depend on Go's default Stringer formatting for an int type.
func (p Phase) String() string {
	switch p {
	case PhaseBuild:
		return "Build"
	case PhaseRecord:
		return "Record"
	case PhaseSubmitted:
		return "Submitted"
	case PhaseIdle:
		return "Idle"
	case PhaseFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// Domain is where a resource is currently readable/writable.
type Domain int

const (
	DomainDevice Domain = iota
	DomainHost
	DomainCoherent
)

func (d Domain) String() string {
	switch d {
	case DomainDevice:
		return "Device"
	case DomainHost:
		return "Host"
	case DomainCoherent:
		return "Coherent"
	default:
		return "Unknown"
	}
}
