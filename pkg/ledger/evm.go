package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/exwaizedd/exam-pass/pkg/config"
)

// ABI of the pass token contract. Token IDs are assigned by the contract
// sequentially from 0; PassMinted carries the assigned ID.
const passTokenABI = `[
	{"inputs":[{"internalType":"string","name":"owner","type":"string"}],"name":"mint","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"passId","type":"uint256"}],"name":"ownerOf","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"totalMinted","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"internalType":"uint256","name":"passId","type":"uint256"},{"indexed":false,"internalType":"string","name":"owner","type":"string"}],"name":"PassMinted","type":"event"}
]`

// EVMLedger talks to the pass token contract over JSON-RPC.
type EVMLedger struct {
	client    *ethclient.Client
	contract  *bind.BoundContract
	parsedABI abi.ABI
	address   common.Address
	chainID   *big.Int
	minterKey *ecdsa.PrivateKey
	minter    common.Address
	logger    *zap.Logger
}

// NewEVMLedger connects to the configured RPC endpoint and binds the pass
// token contract.
func NewEVMLedger(cfg *config.LedgerConfig, logger *zap.Logger) (*EVMLedger, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger RPC: %w", err)
	}

	minterKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.MinterKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to load minter key: %w", err)
	}
	minter := crypto.PubkeyToAddress(minterKey.PublicKey)

	parsedABI, err := abi.JSON(strings.NewReader(passTokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pass token ABI: %w", err)
	}

	address := common.HexToAddress(cfg.ContractAddress)
	contract := bind.NewBoundContract(address, parsedABI, client, client, client)

	logger.Info("Connected to pass ledger",
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("rpc_url", cfg.RPCURL),
		zap.String("contract", address.Hex()),
		zap.String("minter", minter.Hex()))

	return &EVMLedger{
		client:    client,
		contract:  contract,
		parsedABI: parsedABI,
		address:   address,
		chainID:   big.NewInt(cfg.ChainID),
		minterKey: minterKey,
		minter:    minter,
		logger:    logger,
	}, nil
}

// Close closes the RPC client.
func (l *EVMLedger) Close() {
	if l.client != nil {
		l.client.Close()
	}
}

// Mint submits a mint transaction, waits for it to be mined, and returns
// the pass ID assigned by the contract.
func (l *EVMLedger) Mint(ctx context.Context, owner string) (uint64, error) {
	opts, err := l.transactor(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := l.contract.Transact(opts, "mint", owner)
	if err != nil {
		return 0, fmt.Errorf("failed to submit mint transaction: %w", err)
	}

	l.logger.Debug("Mint transaction submitted",
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.String("owner", owner))

	receipt, err := bind.WaitMined(ctx, l.client, tx)
	if err != nil {
		return 0, fmt.Errorf("failed to wait for mint transaction: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return 0, fmt.Errorf("mint transaction reverted: %s", tx.Hash().Hex())
	}

	passID, err := l.passIDFromReceipt(receipt)
	if err != nil {
		return 0, err
	}

	l.logger.Info("Pass minted on ledger",
		zap.Uint64("pass_id", passID),
		zap.String("owner", owner),
		zap.String("tx_hash", tx.Hash().Hex()))
	return passID, nil
}

// OwnerOf resolves the owner of a pass via an eth_call.
func (l *EVMLedger) OwnerOf(ctx context.Context, passID uint64) (string, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	err := l.contract.Call(opts, &out, "ownerOf", new(big.Int).SetUint64(passID))
	if err != nil {
		// The contract reverts for IDs that were never minted.
		return "", ErrUnknownPass
	}
	owner, ok := out[0].(string)
	if !ok || owner == "" {
		return "", ErrUnknownPass
	}
	return owner, nil
}

// TotalMinted returns the contract's mint counter.
func (l *EVMLedger) TotalMinted(ctx context.Context) (uint64, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := l.contract.Call(opts, &out, "totalMinted"); err != nil {
		return 0, fmt.Errorf("failed to query totalMinted: %w", err)
	}
	total, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected totalMinted result type %T", out[0])
	}
	return total.Uint64(), nil
}

func (l *EVMLedger) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(l.minterKey, l.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	nonce, err := l.client.PendingNonceAt(ctx, l.minter)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	opts.Nonce = big.NewInt(int64(nonce))
	opts.Context = ctx
	return opts, nil
}

func (l *EVMLedger) passIDFromReceipt(receipt *types.Receipt) (uint64, error) {
	mintedTopic := l.parsedABI.Events["PassMinted"].ID
	for _, logEntry := range receipt.Logs {
		if logEntry.Address != l.address || len(logEntry.Topics) < 2 {
			continue
		}
		if logEntry.Topics[0] != mintedTopic {
			continue
		}
		return new(big.Int).SetBytes(logEntry.Topics[1].Bytes()).Uint64(), nil
	}
	return 0, fmt.Errorf("mint receipt missing PassMinted event")
}
