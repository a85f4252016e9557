package validation

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/execore/bootloader/oracle"
	"github.com/execore/bootloader/txtypes"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func baseTx() *txtypes.Transaction {
	return &txtypes.Transaction{
		Type:                 txtypes.AccountAbstractionType,
		GasLimit:             100_000,
		MaxFeePerGas:         uint256.NewInt(1_000_000_000),
		MaxPriorityFeePerGas: uint256.NewInt(100_000_000),
		Nonce:                5,
		Value:                uint256.NewInt(0),
		ChainID:              9,
	}
}

func TestValidateChainIDMismatch(t *testing.T) {
	tx := baseTx()
	err := Validate(tx, 1, 30_000_000, oracle.AccountProperties{Nonce: 5}, oracle.NewTestOracle())
	require.Error(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, KindChainIDMismatch, verr.Kind)
}

func TestValidateNonceTooLowAndTooHigh(t *testing.T) {
	tx := baseTx()

	e := Validate(tx, 9, 30_000_000, oracle.AccountProperties{Nonce: 6}, oracle.NewTestOracle())
	require.Error(t, e)
	var verr *Error
	require.ErrorAs(t, e, &verr)
	require.Equal(t, KindNonceTooLow, verr.Kind)

	e2 := Validate(tx, 9, 30_000_000, oracle.AccountProperties{Nonce: 4}, oracle.NewTestOracle())
	require.ErrorAs(t, e2, &verr)
	require.Equal(t, KindNonceTooHigh, verr.Kind)
}

func TestValidateInsufficientBalance(t *testing.T) {
	tx := baseTx()
	acct := oracle.AccountProperties{Nonce: 5, Balance: uint256.NewInt(1).Bytes()}
	err := Validate(tx, 9, 30_000_000, acct, oracle.NewTestOracle())
	require.Error(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, KindInsufficientBalance, verr.Kind)
}

func TestValidateSufficientBalancePasses(t *testing.T) {
	tx := baseTx()
	need := new(uint256.Int).Mul(uint256.NewInt(tx.GasLimit), tx.MaxFeePerGas)
	acct := oracle.AccountProperties{Nonce: 5, Balance: need.Bytes()}
	require.NoError(t, Validate(tx, 9, 30_000_000, acct, oracle.NewTestOracle()))
}

func TestValidatePaymasterWithSufficientBalancePasses(t *testing.T) {
	tx := baseTx()
	pm := common.HexToAddress("0x01")
	tx.Paymaster = &pm

	o := oracle.NewTestOracle()
	need := new(uint256.Int).Mul(uint256.NewInt(tx.GasLimit), tx.MaxFeePerGas)
	o.Accounts[pm] = oracle.AccountProperties{Balance: need.Bytes()}

	require.NoError(t, Validate(tx, 9, 30_000_000, oracle.AccountProperties{Nonce: 5}, o))
}

func TestValidatePaymasterRejectedWhenUnderfunded(t *testing.T) {
	tx := baseTx()
	pm := common.HexToAddress("0x01")
	tx.Paymaster = &pm

	o := oracle.NewTestOracle()
	o.Accounts[pm] = oracle.AccountProperties{Balance: uint256.NewInt(1).Bytes()}

	err := Validate(tx, 9, 30_000_000, oracle.AccountProperties{Nonce: 5}, o)
	require.Error(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, KindPaymasterRejected, verr.Kind)
}
