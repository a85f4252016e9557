// Package validation implements component C10: the decode -> recover
// sender -> check chain id / nonce / balance pipeline of spec §4.9. A
// validation failure is "skip, don't abort" — the bootloader driver
// moves on to the next oracle-provided transaction rather than failing
// the whole block, mirroring how the teacher's core/tx_pool rejects an
// individual transaction without tearing down the pool.
package validation

import (
	"fmt"

	"github.com/execore/bootloader/oracle"
	"github.com/execore/bootloader/txtypes"
	"github.com/holiman/uint256"
)

type Kind uint8

const (
	KindChainIDMismatch Kind = iota
	KindNonceTooLow
	KindNonceTooHigh
	KindInsufficientBalance
	KindGasLimitExceedsBlock
	KindUnknownTxType
	KindMalformedEncoding
	KindPaymasterRejected
)

func (k Kind) String() string {
	switch k {
	case KindChainIDMismatch:
		return "ChainIDMismatch"
	case KindNonceTooLow:
		return "NonceTooLow"
	case KindNonceTooHigh:
		return "NonceTooHigh"
	case KindInsufficientBalance:
		return "InsufficientBalance"
	case KindGasLimitExceedsBlock:
		return "GasLimitExceedsBlock"
	case KindUnknownTxType:
		return "UnknownTxType"
	case KindMalformedEncoding:
		return "MalformedEncoding"
	case KindPaymasterRejected:
		return "PaymasterRejected"
	default:
		return "Unknown"
	}
}

// Error is InvalidTransaction::<Kind> of spec §4.9/§7: the transaction
// is skipped, its oracle-assigned slot is consumed, and the driver
// advances to the next tx_index without charging any resources.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Kind, e.Message)
}

// Validate runs the decode -> recover sender -> check chain id / nonce /
// balance pipeline of spec §4.9 against an already-decoded transaction and
// the sender's account properties. When tx carries a paymaster, o is
// consulted for the paymaster's own account properties so its balance can
// be checked in place of the sender's (spec §4.9's "paymaster
// authorization" step).
func Validate(tx *txtypes.Transaction, chainID uint64, blockGasLimit uint64, account oracle.AccountProperties, o oracle.Oracle) error {
	if tx.ChainID != chainID {
		return &Error{KindChainIDMismatch, fmt.Sprintf("tx chain id %d, block chain id %d", tx.ChainID, chainID)}
	}
	if tx.GasLimit > blockGasLimit {
		return &Error{KindGasLimitExceedsBlock, fmt.Sprintf("gas limit %d exceeds block limit %d", tx.GasLimit, blockGasLimit)}
	}
	if tx.Nonce < account.Nonce {
		return &Error{KindNonceTooLow, fmt.Sprintf("tx nonce %d, account nonce %d", tx.Nonce, account.Nonce)}
	}
	if tx.Nonce > account.Nonce {
		return &Error{KindNonceTooHigh, fmt.Sprintf("tx nonce %d, account nonce %d", tx.Nonce, account.Nonce)}
	}

	if tx.RequiresPaymaster() {
		pmAccount, err := o.AccountProperties(*tx.Paymaster)
		if err != nil {
			return &Error{KindPaymasterRejected, fmt.Sprintf("paymaster %s lookup failed: %v", tx.Paymaster, err)}
		}
		required := requiredBalance(tx)
		pmBalance := new(uint256.Int).SetBytes(pmAccount.Balance)
		if pmBalance.Lt(required) {
			return &Error{KindPaymasterRejected, fmt.Sprintf("paymaster %s needs %s, has %s", tx.Paymaster, required, pmBalance)}
		}
		return nil
	}

	required := requiredBalance(tx)
	balance := new(uint256.Int).SetBytes(account.Balance)
	if balance.Lt(required) {
		return &Error{KindInsufficientBalance, fmt.Sprintf("need %s, have %s", required, balance)}
	}
	return nil
}

// requiredBalance computes gas_limit * max_fee_per_gas + value, the
// worst-case amount the sender must be able to cover up front.
func requiredBalance(tx *txtypes.Transaction) *uint256.Int {
	feeBudget := new(uint256.Int).Mul(uint256.NewInt(tx.GasLimit), tx.MaxFeePerGas)
	return feeBudget.Add(feeBudget, tx.Value)
}
