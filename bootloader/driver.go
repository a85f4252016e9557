// Package bootloader implements component C13, the block driver: the
// per-block outer loop of spec §4.12, grounded on the teacher's
// miner/worker.go commit/applyTransaction/commitTransaction shape —
// snapshot before, apply, revert-to-snapshot on failure — generalized
// from a single EVM-only core.ApplyTransaction call to decode (C9) ->
// validate (C10) -> dispatch (C11) against the pluggable IO façade (C8).
package bootloader

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/execore/bootloader/execution"
	"github.com/execore/bootloader/iostate"
	"github.com/execore/bootloader/oracle"
	"github.com/execore/bootloader/resources"
	"github.com/execore/bootloader/resultkeeper"
	"github.com/execore/bootloader/txtypes"
	"github.com/execore/bootloader/validation"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// intrinsicGasTransfer is the fixed gas cost of a plain value transfer to a
// codeless account — no EVM/WASM dispatch runs, so this is the entire
// charge (spec §8 scenario 2).
const intrinsicGasTransfer = 21_000

// systemNonceAddress and systemBalanceAddress are well-known storage
// addresses the driver writes nonce/balance bookkeeping through, the way
// zkSync-style account models keep nonce/balance in ordinary storage
// slots of system contracts rather than in a side structure — which is
// also why spec's only account-state cache is the generic warm storage
// slot (C5), with no separate "account" component.
var (
	systemNonceAddress   = common.HexToAddress("0x0000000000000000000000000000000000008003")
	systemBalanceAddress = common.HexToAddress("0x0000000000000000000000000000000000008004")
)

func accountKey(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

// Config parameterizes a Driver's per-block resource budget and gas schedule.
type Config struct {
	ChainID            uint64
	BlockGasLimit      uint64
	ErgsBudget         uint64
	PreimageCacheBytes int
	Schedule           iostate.GasSchedule
}

// Driver runs the block loop of spec §4.12 over a single oracle, per the
// "the block driver's loop is the only scheduler" rule of spec §5.
type Driver struct {
	oracle     oracle.Oracle
	dispatcher *execution.Dispatcher
	keeper     resultkeeper.Keeper
	cfg        Config
	runID      uuid.UUID
}

// NewDriver wires a Driver over the given oracle, execution dispatcher,
// and result sink.
func NewDriver(o oracle.Oracle, dispatcher *execution.Dispatcher, keeper resultkeeper.Keeper, cfg Config) *Driver {
	return &Driver{
		oracle:     o,
		dispatcher: dispatcher,
		keeper:     keeper,
		cfg:        cfg,
		runID:      uuid.New(),
	}
}

// RunBlock drives the loop of spec §4.12: query NextTx; on SealBatch,
// compute the block header and report block_sealed; otherwise decode,
// validate, dispatch, commit or rollback, and report.
func (d *Driver) RunBlock(ctx context.Context, blockNumber uint64) error {
	sys := iostate.NewSystem(d.oracle, d.cfg.ErgsBudget, d.cfg.PreimageCacheBytes, d.cfg.Schedule)
	logger := log.New("run", d.runID, "block", blockNumber)

	txCount := 0
	for {
		next, err := d.oracle.NextTx()
		if err != nil {
			return fmt.Errorf("bootloader: NextTx: %w", err)
		}
		if next.SealBatch {
			header := resultkeeper.BlockHeader{
				Number:       blockNumber,
				TxCount:      txCount,
				PubdataBytes: sys.Resources.PubdataBytes(),
			}
			d.keeper.Pubdata(header.PubdataBytes)
			d.keeper.BlockSealed(header)
			logger.Info("block sealed", "txs", txCount, "pubdataBytes", header.PubdataBytes)
			return nil
		}
		d.processTx(ctx, sys, logger, next.TxBytes)
		txCount++
	}
}

// processTx implements spec §4.12's failure atomicity: a validation
// failure is skip-not-abort and leaves the IO layer untouched; a
// validated-but-reverted execution still consumes the sender's nonce and
// fee, since those are committed in a frame separate from the dispatch
// frame that execution itself rolls back.
func (d *Driver) processTx(ctx context.Context, sys *iostate.System, logger log.Logger, raw []byte) {
	tx, err := txtypes.Decode(raw)
	if err != nil {
		logger.Warn("tx decode failed, reporting as invalid", "err", err)
		d.keeper.TxProcessed(nil, resultkeeper.TxResult{InvalidErr: &validation.Error{
			Kind:    validation.KindMalformedEncoding,
			Message: err.Error(),
		}})
		return
	}
	// The AA wire format carries no chain id field, so a decoded AA
	// transaction is bound to the chain of the block that includes it.
	if tx.IsAA() {
		tx.ChainID = d.cfg.ChainID
	}

	acct, err := d.oracle.AccountProperties(tx.From)
	if err != nil {
		logger.Error("account properties query failed, skipping", "tx", tx.Hash(), "err", err)
		return
	}

	if verr := validation.Validate(tx, d.cfg.ChainID, d.cfg.BlockGasLimit, acct, d.oracle); verr != nil {
		logger.Debug("tx invalid, skipping", "tx", tx.Hash(), "err", verr)
		d.keeper.TxProcessed(tx, resultkeeper.TxResult{InvalidErr: verr})
		return
	}

	sys.BeginNewTx()

	feeFrame := sys.BeginFrame()
	d.chargeNonceAndFee(sys, tx)
	sys.FinishFrame(feeFrame, false)

	if tx.To != nil {
		transferFrame := sys.BeginFrame()
		d.transferValue(sys, tx)
		sys.FinishFrame(transferFrame, false)
	}

	if err := d.resolveFactoryDeps(sys, tx); err != nil {
		logger.Error("factory dep resolution failed", "tx", tx.Hash(), "err", err)
		d.keeper.TxProcessed(tx, resultkeeper.TxResult{InvalidErr: err})
		return
	}

	res, execErr := d.dispatch(ctx, sys, acct, tx)
	if execErr != nil {
		logger.Error("dispatch failed", "tx", tx.Hash(), "err", execErr)
		d.keeper.TxProcessed(tx, resultkeeper.TxResult{InvalidErr: execErr})
		return
	}

	d.keeper.TxProcessed(tx, resultkeeper.TxResult{Output: &resultkeeper.Output{
		TxHash:     tx.Hash(),
		Exit:       res.Exit,
		ReturnData: res.ReturnData,
		GasUsed:    res.GasUsed,
	}})
	sys.Storage.Diffs(func(addr common.Address, key, value common.Hash) {
		d.keeper.StorageDiff(resultkeeper.StorageDiff{Address: addr, Key: key, Value: value})
	})
	for _, p := range sys.Preimages.DrainNewPreimages() {
		d.keeper.NewPreimage(p)
	}
}

// chargeNonceAndFee applies the account-model nonce increment and
// worst-case fee debit. It is never rolled back by a reverted execution
// (spec §4.12), only by an outer block-level failure, which this driver
// does not model (a fee-frame write cannot itself fail validation-wise
// since balance sufficiency was already checked by C10).
func (d *Driver) chargeNonceAndFee(sys *iostate.System, tx *txtypes.Transaction) {
	nonceVal := common.BigToHash(new(uint256.Int).AddUint64(uint256.NewInt(tx.Nonce), 1).ToBig())
	sys.StorageWrite(systemNonceAddress, accountKey(tx.From), nonceVal)

	fee := new(uint256.Int).Mul(uint256.NewInt(tx.GasLimit), tx.MaxFeePerGas)
	balanceBefore, _, _ := sys.StorageRead(systemBalanceAddress, accountKey(tx.From))
	balance := new(uint256.Int).SetBytes(balanceBefore[:])
	if balance.Lt(fee) {
		balance.Clear()
	} else {
		balance.Sub(balance, fee)
	}
	sys.StorageWrite(systemBalanceAddress, accountKey(tx.From), common.BytesToHash(balance.Bytes()))
}

// transferValue debits tx.Value from the sender's balance slot and
// credits it to the callee's, independent of whether the callee has code
// to run — value moves on every call per EVM CALL semantics, not just
// ones that dispatch into an execution environment (spec §8 scenario 2).
func (d *Driver) transferValue(sys *iostate.System, tx *txtypes.Transaction) {
	if tx.Value == nil || tx.Value.IsZero() {
		return
	}

	fromBefore, _, _ := sys.StorageRead(systemBalanceAddress, accountKey(tx.From))
	fromBalance := new(uint256.Int).SetBytes(fromBefore[:])
	if fromBalance.Lt(tx.Value) {
		fromBalance.Clear()
	} else {
		fromBalance.Sub(fromBalance, tx.Value)
	}
	sys.StorageWrite(systemBalanceAddress, accountKey(tx.From), common.BytesToHash(fromBalance.Bytes()))

	toBefore, _, _ := sys.StorageRead(systemBalanceAddress, accountKey(*tx.To))
	toBalance := new(uint256.Int).SetBytes(toBefore[:])
	toBalance.Add(toBalance, tx.Value)
	sys.StorageWrite(systemBalanceAddress, accountKey(*tx.To), common.BytesToHash(toBalance.Bytes()))
}

// resolveFactoryDeps pre-resolves every factory-dependency hash an AA
// transaction declares, caching each through the preimage cache before
// dispatch so a later PreimageFor call for deployed bytecode never
// reaches the oracle cold (spec §3's factory_deps field).
func (d *Driver) resolveFactoryDeps(sys *iostate.System, tx *txtypes.Transaction) error {
	for _, hash := range tx.FactoryDeps {
		if _, err := sys.PreimageFor(hash); err != nil {
			return fmt.Errorf("resolving factory dep %s: %w", hash, err)
		}
	}
	return nil
}

// dispatch resolves the callee's code (if any) and runs it through the
// execution dispatcher. A to-less or codeless call is a plain value
// transfer: the value itself was already moved by transferValue, so only
// the intrinsic gas charge remains.
func (d *Driver) dispatch(ctx context.Context, sys *iostate.System, acct oracle.AccountProperties, tx *txtypes.Transaction) (execution.Result, error) {
	if tx.To == nil || acct.CodeHash == (common.Hash{}) {
		if err := sys.Resources.SpendGas(intrinsicGasTransfer * resources.ErgsPerGas); err != nil {
			return execution.Result{}, fmt.Errorf("charging intrinsic transfer gas: %w", err)
		}
		return execution.Result{Exit: execution.Success, GasUsed: intrinsicGasTransfer}, nil
	}
	code, err := sys.PreimageFor(acct.CodeHash)
	if err != nil {
		return execution.Result{}, fmt.Errorf("resolving callee code: %w", err)
	}
	call := execution.Call{
		Caller:   tx.From,
		Address:  *tx.To,
		Value:    tx.Value,
		Input:    tx.Calldata,
		Code:     code,
		GasLimit: tx.GasLimit,
	}
	return d.dispatcher.Dispatch(ctx, sys, call)
}
