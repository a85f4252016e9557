// Package execution implements component C11, the execution dispatcher
// of spec §4.10: it selects an Execution Environment by the callee's
// code prefix, owns frame begin/end around every interpreter invocation,
// allocates the EIP-150-style stipend, and interprets the inner EE's
// exit code into a commit or rollback.
package execution

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/execore/bootloader/iostate"
	"github.com/holiman/uint256"
)

// ExitCode is one of the fixed exit states of spec §4.10.
type ExitCode uint8

const (
	Success ExitCode = iota
	Revert
	OutOfGas
	Exception
	Preemption
	DidNotComplete
)

func (c ExitCode) String() string {
	switch c {
	case Success:
		return "Success"
	case Revert:
		return "Revert"
	case OutOfGas:
		return "OutOfGas"
	case Exception:
		return "Exception"
	case Preemption:
		return "Preemption"
	case DidNotComplete:
		return "DidNotComplete"
	default:
		return "Unknown"
	}
}

// Scheme identifies which Execution Environment a callee's code targets.
type Scheme uint8

const (
	SchemeEVM Scheme = iota
	SchemeWASM
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// DetectScheme selects an EE by the callee's code prefix, per spec §4.10.
func DetectScheme(code []byte) Scheme {
	if len(code) >= 4 {
		match := true
		for i, b := range wasmMagic {
			if code[i] != b {
				match = false
				break
			}
		}
		if match {
			return SchemeWASM
		}
	}
	return SchemeEVM
}

// Call is a single invocation of an Execution Environment.
type Call struct {
	Caller   common.Address
	Address  common.Address
	Value    *uint256.Int
	Input    []byte
	Code     []byte
	GasLimit uint64
	IsStatic bool
	Depth    int
}

// Result is what an Execution Environment reports back to the dispatcher.
type Result struct {
	Exit         ExitCode
	ReturnData   []byte
	ExceptionMsg string
	GasUsed      uint64
}

// Environment is the pluggable interpreter contract of spec §4.10: it
// consumes bytecode and calldata and produces state effects through the
// IO façade (sys), never touching caches directly.
type Environment interface {
	Execute(ctx context.Context, sys *iostate.System, call Call) (Result, error)
}

// Dispatcher selects an Environment by Scheme and owns the frame
// lifecycle and stipend accounting around every invocation.
type Dispatcher struct {
	evm  Environment
	wasm Environment
}

func NewDispatcher(evm, wasm Environment) *Dispatcher {
	return &Dispatcher{evm: evm, wasm: wasm}
}

// Dispatch begins a new frame, reserves a stipend off the caller's
// remaining ergs (min(requested, left*63/64), spec §4.10), runs the
// selected Environment, and commits or rolls back based on its exit
// code. Any unspent stipend is reclaimed to the caller's resources
// whether the frame commits or rolls back.
func (d *Dispatcher) Dispatch(ctx context.Context, sys *iostate.System, call Call) (Result, error) {
	env := d.environmentFor(call.Code)
	if env == nil {
		return Result{Exit: Exception, ExceptionMsg: "no execution environment for code scheme"}, nil
	}

	parent := sys.Resources
	stipend, err := parent.Reserve(call.GasLimit)
	if err != nil {
		return Result{Exit: OutOfGas}, nil
	}

	// The callee spends against its own stipend, not the caller's full
	// remaining budget: swap it in for the duration of the call.
	sys.Resources = stipend.Resources
	frame := sys.BeginFrame()
	res, err := env.Execute(ctx, sys, call)
	sys.Resources = parent
	stipend.Reclaim()

	if err != nil {
		sys.FinishFrame(frame, true)
		return Result{Exit: Exception, ExceptionMsg: err.Error()}, fmt.Errorf("execution: %w", err)
	}

	rollback := res.Exit != Success
	sys.FinishFrame(frame, rollback)
	return res, nil
}

func (d *Dispatcher) environmentFor(code []byte) Environment {
	switch DetectScheme(code) {
	case SchemeWASM:
		return d.wasm
	default:
		return d.evm
	}
}
