package execution

import (
	"context"

	"github.com/execore/bootloader/iostate"
)

// WASMStub is the experimental WASM EE of spec §4.10 / SPEC_FULL.md §4.14.
// The WASM interpreter itself is an external collaborator (spec §1
// Non-goals); this stub satisfies the Environment contract so the
// dispatcher can route WASM-scheme code somewhere deterministic instead
// of panicking, while reporting that no interpreter is actually wired.
type WASMStub struct{}

func (WASMStub) Execute(ctx context.Context, sys *iostate.System, call Call) (Result, error) {
	return Result{
		Exit:         Exception,
		ExceptionMsg: "wasm: unsupported, no interpreter wired",
	}, nil
}
