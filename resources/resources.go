// Package resources implements the ergs/native-cycle/pubdata resource
// model described in spec §3 and §4.1: a single token of "ergs" owned
// exclusively by the active frame, with stipend slicing for nested calls.
package resources

import (
	"errors"
	"fmt"
)

// ErgsPerGas is the fixed scaling ratio between a gas unit and an erg,
// per spec GLOSSARY ("Ergs: a scaled gas unit; ERGS_PER_GAS is a fixed
// integer").
const ErgsPerGas = 256

// ErrOutOfGas is returned when a spend would underflow the remaining
// resource. It is a normal exit per spec §7, not an InternalError.
var ErrOutOfGas = errors.New("resources: out of gas")

// Resources tracks the compute budget ("ergs"), an optional native-cycle
// counter, and the pubdata-bytes counter for a single frame. It is
// exclusively owned by that frame; nested frames receive a stipend sliced
// from the parent via Reserve.
type Resources struct {
	ergs       uint64
	native     uint64
	pubdata    uint64
	hasNative  bool
}

// New constructs a Resources with the given starting erg budget. Native
// cycle accounting is disabled unless WithNative is used.
func New(ergs uint64) *Resources {
	return &Resources{ergs: ergs}
}

// WithNative enables the native-cycle counter, starting at the given value.
func (r *Resources) WithNative(native uint64) *Resources {
	r.hasNative = true
	r.native = native
	return r
}

// ErgsLeft returns the remaining erg budget.
func (r *Resources) ErgsLeft() uint64 { return r.ergs }

// NativeLeft returns the remaining native-cycle budget. Zero if native
// accounting was never enabled.
func (r *Resources) NativeLeft() uint64 { return r.native }

// PubdataBytes returns the pubdata bytes charged against this resource so far.
func (r *Resources) PubdataBytes() uint64 { return r.pubdata }

// SpendGas deducts amount ergs, saturating-to-fail: on underflow the
// resource is left unchanged and ErrOutOfGas is returned.
func (r *Resources) SpendGas(amount uint64) error {
	if amount > r.ergs {
		return fmt.Errorf("%w: need %d, have %d", ErrOutOfGas, amount, r.ergs)
	}
	r.ergs -= amount
	return nil
}

// SpendNative deducts amount native cycles under the same saturating rule.
// A no-op (always succeeds) if native accounting is disabled.
func (r *Resources) SpendNative(amount uint64) error {
	if !r.hasNative {
		return nil
	}
	if amount > r.native {
		return fmt.Errorf("%w: native cycles need %d, have %d", ErrOutOfGas, amount, r.native)
	}
	r.native -= amount
	return nil
}

// SpendGasAndNative spends both resources atomically: if either would
// underflow, neither is deducted.
func (r *Resources) SpendGasAndNative(gas, native uint64) error {
	if gas > r.ergs {
		return fmt.Errorf("%w: need %d ergs, have %d", ErrOutOfGas, gas, r.ergs)
	}
	if r.hasNative && native > r.native {
		return fmt.Errorf("%w: need %d native cycles, have %d", ErrOutOfGas, native, r.native)
	}
	r.ergs -= gas
	if r.hasNative {
		r.native -= native
	}
	return nil
}

// SpendPubdata charges diffBytes * gasPerPubdata * ErgsPerGas ergs for a
// storage write's pubdata contribution, per spec §4.1. It returns
// ErrOutOfGas (not deducting) if the charge cannot be afforded.
func (r *Resources) SpendPubdata(diffBytes, gasPerPubdata uint64) error {
	gasCost := diffBytes * gasPerPubdata
	ergsCost := gasCost * ErgsPerGas
	if err := r.SpendGas(ergsCost); err != nil {
		return err
	}
	r.pubdata += diffBytes
	return nil
}

// Refund credits ergs back to the resource at commit time. Refunds never
// exceed what was originally spent by the caller; that invariant is
// enforced by whoever computes the refund amount (the execution
// dispatcher), not by Resources itself.
func (r *Resources) Refund(amount uint64) {
	r.ergs += amount
}

// Stipend is a sub-resource reserved from a parent Resources for a nested
// call frame. It satisfies the same spending surface so the execution
// dispatcher can treat top-level and nested resources uniformly.
type Stipend struct {
	*Resources
	parent *Resources
}

// StipendNumerator and StipendDenominator implement the "send at most
// 63/64ths" stipend rule referenced by spec §4.10, parameterized so EVM
// and WASM execution environments can share it.
const (
	StipendNumerator   = 63
	StipendDenominator = 64
)

// Reserve atomically deducts a stipend from the parent. The nested call
// receives min(requested, parentErgsLeft * Numerator/Denominator) ergs,
// per the EIP-150-style rule in spec §4.10. Native cycles, if enabled on
// the parent, are reserved in full up to availability (no 63/64 haircut —
// native cycles are a RISC-V step budget, not an EVM gas concept).
func (r *Resources) Reserve(requestedErgs uint64) (*Stipend, error) {
	cap := (r.ergs * StipendNumerator) / StipendDenominator
	grant := requestedErgs
	if grant > cap {
		grant = cap
	}
	if err := r.SpendGas(grant); err != nil {
		return nil, err
	}
	sub := &Stipend{Resources: New(grant), parent: r}
	if r.hasNative {
		sub.Resources.hasNative = true
		sub.Resources.native = r.native
		r.native = 0
	}
	return sub, nil
}

// Reclaim returns the unspent remainder of a stipend to its parent and
// adds the pubdata bytes charged against the stipend to the parent's
// counter. It is the caller's responsibility to call Reclaim exactly once
// per Reserve, mirroring the frame-scoped discipline of the snapshot
// controller (C8).
func (s *Stipend) Reclaim() {
	s.parent.ergs += s.Resources.ergs
	s.parent.pubdata += s.Resources.pubdata
	if s.parent.hasNative {
		s.parent.native += s.Resources.native
	}
	s.Resources = nil
}
