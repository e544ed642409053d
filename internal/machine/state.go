package machine

import "github.com/streamsafe/gdsl/internal/diagnostic"

// Transition records a BARRIER's declared intent to move a resource
// from src to dst. It becomes effective only when a later FENCE_WAIT
// commits it (invariant I4).
type Transition struct {
	Src Domain
	Dst Domain
}

// Resource is one entry of Γ.resources.
type Resource struct {
	Domain        Domain
	Pending       *Transition
	Allocated     bool
	EverAllocated bool // never re-ALLOC'd once set, enforcing I5
	PersistFlag   bool
	HeapID        uint32
}

// Checkpoint is one entry of Γ.checkpoints.
type Checkpoint struct {
	LabelID                 uint32
	HeapMerkleRoot          [32]byte
	PipelineTableMerkleRoot [32]byte
	StreamPtr               uint64
}

// Machine is the abstract machine Γ. Zero value is not valid; use New.
type Machine struct {
	phase          Phase
	fences         map[uint32]struct{}
	resources      map[uint32]*Resource
	labels         map[uint32]struct{}
	checkpoints    []Checkpoint
	snapshotActive bool
}

// New returns a freshly initialized Γ: phase Build, no fences, no
// resources, no labels, no checkpoints.
func New() *Machine {
	return &Machine{
		phase:     PhaseBuild,
		fences:    make(map[uint32]struct{}),
		resources: make(map[uint32]*Resource),
		labels:    make(map[uint32]struct{}),
	}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// SnapshotActive reports whether a snapshot region is currently open.
func (m *Machine) SnapshotActive() bool { return m.snapshotActive }

// OutstandingFences returns the currently outstanding fence ids, in no
// particular order; callers that need determinism should sort.
func (m *Machine) OutstandingFences() []uint32 {
	ids := make([]uint32, 0, len(m.fences))
	for id := range m.fences {
		ids = append(ids, id)
	}
	return ids
}

// Resource looks up a resource by id.
func (m *Machine) Resource(id uint32) (*Resource, bool) {
	r, ok := m.resources[id]
	return r, ok
}

// Checkpoints returns the registered checkpoint records.
func (m *Machine) Checkpoints() []Checkpoint { return m.checkpoints }

// --- Judgment rules ---
//
// Each method below is the operational realization of one judgment
// rule. It mutates Γ and returns the Findings (possibly none) that
// resulted. idx is the instruction index, used only for diagnostic
// attribution.

// BeginStream implements BEGIN_STREAM: requires phase ∈ {Build, Idle}
// and no active snapshot region; sets phase := Record.
func (m *Machine) BeginStream(idx uint64, checkPhase bool) []diagnostic.Finding {
	var out []diagnostic.Finding
	if checkPhase {
		if m.snapshotActive {
			out = append(out, diagnostic.Err(idx, diagnostic.CodePhaseSnapshotBusy,
				"cannot BEGIN_STREAM while a snapshot region is active"))
		}
		if m.phase != PhaseBuild && m.phase != PhaseIdle {
			out = append(out, badTransition(idx, "BEGIN_STREAM", m.phase, "Build or Idle"))
		}
	}
	m.phase = PhaseRecord
	return out
}

// EndStream implements END_STREAM. Per the reference implementation
// (original_source/src/gdsl/verify.c), legal in Record or Idle; a
// warning is emitted if GPU work is still notionally pending (phase
// was Record), and the implementation folds end-of-stream handling
// into a transition to Finished.
func (m *Machine) EndStream(idx uint64, checkPhase bool) []diagnostic.Finding {
	var out []diagnostic.Finding
	if checkPhase {
		if m.phase != PhaseIdle && m.phase != PhaseRecord {
			out = append(out, badTransition(idx, "END_STREAM", m.phase, "Idle or Record"))
		}
		if m.phase == PhaseRecord {
			out = append(out, diagnostic.Warn(idx, diagnostic.CodePhaseBadTransition,
				"END_STREAM while GPU work still pending; assuming idle transition"))
		}
	}
	m.phase = PhaseFinished
	return out
}

// Submit implements SUBMIT: requires phase = Record and no active
// snapshot; introduces a fresh fence id derived from idx; sets
// phase := Submitted. Returns the findings and the introduced fence id.
func (m *Machine) Submit(idx uint64, checkPhase bool) ([]diagnostic.Finding, uint32) {
	var out []diagnostic.Finding
	if checkPhase {
		if m.phase != PhaseRecord {
			out = append(out, badTransition(idx, "SUBMIT", m.phase, "Record"))
		}
		if m.snapshotActive {
			out = append(out, diagnostic.Err(idx, diagnostic.CodePhaseSnapshotBusy,
				"cannot SUBMIT inside an active snapshot region"))
		}
	}
	fenceID := uint32(idx)
	m.fences[fenceID] = struct{}{}
	m.phase = PhaseSubmitted
	return out, fenceID
}

// FenceWait implements FENCE_WAIT(f): requires phase = Submitted and
// f ∈ fences; commits every resource's pending transition; removes f;
// sets phase := Idle.
func (m *Machine) FenceWait(idx uint64, f uint32, checkPhase bool) []diagnostic.Finding {
	var out []diagnostic.Finding
	if checkPhase {
		if m.phase != PhaseSubmitted {
			out = append(out, badTransition(idx, "FENCE_WAIT", m.phase, "Submitted"))
		}
		if _, ok := m.fences[f]; !ok {
			out = append(out, diagnostic.Err(idx, diagnostic.CodeFenceUnknown,
				"FENCE_WAIT references unknown fence id %d", f))
		}
	}
	delete(m.fences, f)
	for _, r := range m.resources {
		if r.Pending != nil {
			r.Domain = r.Pending.Dst
			r.Pending = nil
		}
	}
	m.phase = PhaseIdle
	return out
}

// Barrier implements BARRIER(r, src, dst): requires phase = Record, r
// allocated, resources[r].domain = src, and no pending transition
// already recorded for r. On success records Pending := (src, dst).
func (m *Machine) Barrier(idx uint64, id uint32, src, dst Domain, checkPhase, checkDomain bool) []diagnostic.Finding {
	var out []diagnostic.Finding
	if checkPhase && m.phase != PhaseRecord {
		out = append(out, badTransition(idx, "BARRIER", m.phase, "Record"))
	}

	r, ok := m.resources[id]
	if !ok || !r.Allocated {
		out = append(out, diagnostic.Err(idx, diagnostic.CodeResUnknown,
			"BARRIER references unallocated resource %d", id))
		return out
	}

	if checkDomain {
		if r.Pending != nil {
			out = append(out, diagnostic.Err(idx, diagnostic.CodeDomainBarrierLayer,
				"BARRIER on resource %d before a matching FENCE_WAIT; insert FENCE_WAIT first", id))
			return out
		}
		if r.Domain != src {
			out = append(out, diagnostic.Err(idx, diagnostic.CodeDomainMismatch,
				"BARRIER src domain %s does not match resource %d's current domain %s", src, id, r.Domain))
			return out
		}
	}

	r.Pending = &Transition{Src: src, Dst: dst}
	return out
}

// AllocResource implements ALLOC_BUFFER/ALLOC_IMAGE: requires phase ∈
// {Idle, Record}, an unused id (never allocated before, or allocated
// and since freed is still rejected per I5's "not re-ALLOC'd"), and
// no active snapshot region (a conservative default: an allocation
// during an open snapshot region has no well-defined restore point).
func (m *Machine) AllocResource(idx uint64, id uint32, persist bool, heapID uint32, checkPhase, checkDomain bool) []diagnostic.Finding {
	var out []diagnostic.Finding
	if checkPhase && m.phase != PhaseIdle && m.phase != PhaseRecord {
		out = append(out, badTransition(idx, "ALLOC", m.phase, "Idle or Record"))
	}
	if checkDomain && m.snapshotActive {
		out = append(out, diagnostic.Err(idx, diagnostic.CodeResSnapshotAlloc,
			"cannot allocate resource %d while a snapshot region is active", id))
	}

	if existing, ok := m.resources[id]; ok && existing.EverAllocated {
		out = append(out, diagnostic.Err(idx, diagnostic.CodeResDoubleAlloc,
			"resource %d already allocated (or allocated and freed; ids are never reused)", id))
		return out
	}

	m.resources[id] = &Resource{
		Domain:        DomainDevice,
		Allocated:     true,
		EverAllocated: true,
		PersistFlag:   persist,
		HeapID:        heapID,
	}
	return out
}

// FreeResource implements FREE_BUFFER/FREE_IMAGE: requires phase ∈
// {Idle, Record} and the resource currently allocated.
func (m *Machine) FreeResource(idx uint64, id uint32, checkPhase bool) []diagnostic.Finding {
	var out []diagnostic.Finding
	if checkPhase && m.phase != PhaseIdle && m.phase != PhaseRecord {
		out = append(out, badTransition(idx, "FREE", m.phase, "Idle or Record"))
	}

	r, ok := m.resources[id]
	if !ok || !r.Allocated {
		code := diagnostic.CodeResUnknown
		if ok && r.EverAllocated {
			code = diagnostic.CodeResDoubleFree
		}
		out = append(out, diagnostic.Err(idx, code,
			"FREE references resource %d that is not currently allocated", id))
		return out
	}
	r.Allocated = false
	return out
}

// RegisterCheckpoint implements CHECKPOINT: requires phase = Idle and
// an unused label id.
func (m *Machine) RegisterCheckpoint(idx uint64, cp Checkpoint, checkPhase bool) []diagnostic.Finding {
	var out []diagnostic.Finding
	if checkPhase && m.phase != PhaseIdle {
		out = append(out, badTransition(idx, "CHECKPOINT", m.phase, "Idle"))
	}
	if _, dup := m.labels[cp.LabelID]; dup {
		out = append(out, diagnostic.Err(idx, diagnostic.CodeLabelDuplicate,
			"label %d registered more than once", cp.LabelID))
		return out
	}
	m.labels[cp.LabelID] = struct{}{}
	m.checkpoints = append(m.checkpoints, cp)
	return out
}

// SnapshotBegin implements SNAPSHOT_BEGIN: requires phase = Idle, no
// already-active snapshot, and every persistent resource both in Host
// domain and free of a pending transition. Emits one diagnostic per
// offending resource.
func (m *Machine) SnapshotBegin(idx uint64, checkPhase, checkDomain bool) []diagnostic.Finding {
	var out []diagnostic.Finding
	if checkDomain {
		if m.snapshotActive {
			out = append(out, diagnostic.Err(idx, diagnostic.CodeSnapNested,
				"nested SNAPSHOT_BEGIN is not allowed"))
		}
		if m.phase != PhaseIdle {
			out = append(out, badTransition(idx, "SNAPSHOT_BEGIN", m.phase, "Idle"))
		}
		for id, r := range m.resources {
			if !r.Allocated || !r.PersistFlag {
				continue
			}
			if r.Domain != DomainHost {
				out = append(out, diagnostic.Err(idx, diagnostic.CodeDomainPersistHost,
					"persistent resource %d is in domain %s, not Host, at SNAPSHOT_BEGIN", id, r.Domain))
			}
			if r.Pending != nil {
				out = append(out, diagnostic.Err(idx, diagnostic.CodeDomainPersistPend,
					"persistent resource %d has a pending domain transition at SNAPSHOT_BEGIN", id))
			}
		}
	} else if checkPhase && m.phase != PhaseIdle {
		out = append(out, badTransition(idx, "SNAPSHOT_BEGIN", m.phase, "Idle"))
	}
	m.snapshotActive = true
	return out
}

// SnapshotEnd implements SNAPSHOT_END: requires an active snapshot region.
func (m *Machine) SnapshotEnd(idx uint64, checkDomain bool) []diagnostic.Finding {
	var out []diagnostic.Finding
	if checkDomain && !m.snapshotActive {
		out = append(out, diagnostic.Err(idx, diagnostic.CodeSnapEndWithoutBeg,
			"SNAPSHOT_END without a matching SNAPSHOT_BEGIN"))
	}
	m.snapshotActive = false
	return out
}

// EndProgram implements END_PROGRAM: requires phase = Finished, per the
// reference implementation (original_source/src/gdsl/verify.c). It
// performs no mutation; it only validates, since it is the stream
// terminator.
func (m *Machine) EndProgram(idx uint64, checkPhase bool) []diagnostic.Finding {
	var out []diagnostic.Finding
	if checkPhase && m.phase != PhaseFinished {
		out = append(out, badTransition(idx, "END_PROGRAM", m.phase, "Finished"))
	}
	return out
}

func badTransition(idx uint64, op string, actual Phase, expected string) diagnostic.Finding {
	return diagnostic.Err(idx, diagnostic.CodePhaseBadTransition,
		"%s not allowed in %s phase (expected %s)", op, actual, expected)
}
