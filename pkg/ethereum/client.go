package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/chainsafe/stacks-relayer/pkg/config"
	"github.com/chainsafe/stacks-relayer/pkg/ethereum/contracts"
	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"
)

// ErrNoSubscription is returned when no websocket endpoint is configured
var ErrNoSubscription = errors.New("log subscriptions require a websocket endpoint")

// Client represents an Ethereum client bound to the destination bridge contract
type Client struct {
	config     *config.DestinationConfig
	client     *ethclient.Client
	wsClient   *ethclient.Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
	logger     *zap.Logger

	bridgeAddress common.Address
	bridge        *contracts.StacksBridge
	wsFilterer    *contracts.StacksBridgeFilterer
	bridgeABI     *abi.ABI

	// serializes nonce assignment
	sendMu sync.Mutex
}

// NewClient creates a new Ethereum client
func NewClient(cfg *config.DestinationConfig, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to destination RPC: %v", bridge.ErrFatalStartup, err)
	}

	// WebSocket is only used for confirmation subscriptions
	var wsClient *ethclient.Client
	if cfg.WSURL != "" {
		wsClient, err = ethclient.Dial(cfg.WSURL)
		if err != nil {
			logger.Warn("Failed to connect to destination WebSocket, falling back to polling",
				zap.Error(err))
			wsClient = nil
		}
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.RelayerPrivateKey, "0x"))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to load private key: %v", bridge.ErrFatalStartup, err)
	}

	address := crypto.PubkeyToAddress(privateKey.PublicKey)
	bridgeAddress := common.HexToAddress(cfg.BridgeContract)

	bridgeContract, err := contracts.NewStacksBridge(bridgeAddress, client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to load bridge contract: %w", err)
	}

	parsed, err := contracts.StacksBridgeMetaData.GetAbi()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to parse bridge ABI: %w", err)
	}

	c := &Client{
		config:        cfg,
		client:        client,
		wsClient:      wsClient,
		privateKey:    privateKey,
		address:       address,
		chainID:       big.NewInt(cfg.ChainID),
		bridgeAddress: bridgeAddress,
		bridge:        bridgeContract,
		bridgeABI:     parsed,
		logger:        logger,
	}

	if wsClient != nil {
		c.wsFilterer, err = contracts.NewStacksBridgeFilterer(bridgeAddress, wsClient)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to bind bridge filterer: %w", err)
		}
	}

	logger.Info("Connected to destination chain",
		zap.String("network", cfg.Network),
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("bridge_contract", bridgeAddress.Hex()),
		zap.String("relayer_address", address.Hex()),
		zap.Bool("websocket", wsClient != nil))

	return c, nil
}

// Close closes the Ethereum clients
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
	if c.wsClient != nil {
		c.wsClient.Close()
	}
}

// Address returns the relayer account
func (c *Client) Address() common.Address {
	return c.address
}

func (c *Client) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: c.address}
}

// BlockNumber gets the latest block number
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get latest block: %v", bridge.ErrTransientNetwork, err)
	}
	return n, nil
}

// SuggestGasPrice returns the node's gas price quote
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.client.SuggestGasPrice(ctx)
}

// TransactionReceipt returns the receipt of a mined transaction or geth.NotFound
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return c.client.TransactionReceipt(ctx, hash)
}

// EmergencyPaused reports the contract's pause flag
func (c *Client) EmergencyPaused(ctx context.Context) (bool, error) {
	return c.bridge.EmergencyPaused(c.callOpts(ctx))
}

// PriceAndValidity returns the oracle price and whether it is fresh
func (c *Client) PriceAndValidity(ctx context.Context) (*big.Int, bool, error) {
	out, err := c.bridge.GetPriceAndValidity(c.callOpts(ctx))
	if err != nil {
		return nil, false, err
	}
	return out.Price, out.IsValid, nil
}

// ExpectedPayout returns the destination amount for a source amount
func (c *Client) ExpectedPayout(ctx context.Context, amount *big.Int) (*big.Int, error) {
	return c.bridge.CalculateExpectedPayout(c.callOpts(ctx), amount)
}

// PoolBalance returns the liquidity available for payouts
func (c *Client) PoolBalance(ctx context.Context) (*big.Int, error) {
	return c.bridge.GetPoolBalance(c.callOpts(ctx))
}

// IsMessageProcessed reports whether the contract already consumed the message id
func (c *Client) IsMessageProcessed(ctx context.Context, messageID [32]byte) (bool, error) {
	return c.bridge.IsMessageProcessed(c.callOpts(ctx), messageID)
}

// IsSourceTxHashUsed reports whether the contract already consumed the source tx hash
func (c *Client) IsSourceTxHashUsed(ctx context.Context, txHash [32]byte) (bool, error) {
	return c.bridge.IsStacksTxHashUsed(c.callOpts(ctx), txHash)
}

// EstimateProcessGas estimates processCrossChainMessage for msg from the relayer account
func (c *Client) EstimateProcessGas(ctx context.Context, msg *bridge.CrossChainMessage) (uint64, error) {
	data, err := c.bridgeABI.Pack("processCrossChainMessage",
		msg.MessageID,
		uint8(msg.MessageType),
		msg.DestinationCustodian,
		msg.SourceAddress,
		msg.Amount,
		msg.SourceTxHash,
		msg.Proof,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to pack call: %w", err)
	}
	return c.client.EstimateGas(ctx, geth.CallMsg{
		From: c.address,
		To:   &c.bridgeAddress,
		Data: data,
	})
}

// SendProcessMessage signs and sends processCrossChainMessage with the given fees
func (c *Client) SendProcessMessage(ctx context.Context, msg *bridge.CrossChainMessage, fees Fees) (*types.Transaction, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	auth, err := bind.NewKeyedTransactorWithChainID(c.privateKey, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get nonce: %v", bridge.ErrTransientNetwork, err)
	}

	auth.Context = ctx
	auth.Nonce = new(big.Int).SetUint64(nonce)
	auth.GasLimit = fees.GasLimit
	auth.GasPrice = fees.GasPrice

	tx, err := c.bridge.ProcessCrossChainMessage(auth,
		msg.MessageID,
		uint8(msg.MessageType),
		msg.DestinationCustodian,
		msg.SourceAddress,
		msg.Amount,
		msg.SourceTxHash,
		msg.Proof,
	)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("processCrossChainMessage sent",
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.Uint64("nonce", nonce))
	return tx, nil
}

// FilterConfirmations returns the bridge's confirmation events in [from, to]
func (c *Client) FilterConfirmations(ctx context.Context, from, to uint64) ([]*bridge.Confirmation, error) {
	opts := &bind.FilterOpts{Start: from, End: &to, Context: ctx}
	var out []*bridge.Confirmation

	processed, err := c.bridge.FilterCrossChainMessageProcessed(opts, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to filter CrossChainMessageProcessed: %v", bridge.ErrTransientNetwork, err)
	}
	for processed.Next() {
		out = append(out, processedConfirmation(processed.Event))
	}
	err = processed.Error()
	processed.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: CrossChainMessageProcessed iterator: %v", bridge.ErrTransientNetwork, err)
	}

	deposits, err := c.bridge.FilterDepositReceived(opts, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to filter DepositReceived: %v", bridge.ErrTransientNetwork, err)
	}
	for deposits.Next() {
		out = append(out, depositConfirmation(deposits.Event))
	}
	err = deposits.Error()
	deposits.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: DepositReceived iterator: %v", bridge.ErrTransientNetwork, err)
	}

	return out, nil
}

// SubscribeConfirmations streams confirmation events over the websocket client.
// The returned subscription fails if either underlying log subscription fails.
func (c *Client) SubscribeConfirmations(ctx context.Context, sink chan<- *bridge.Confirmation) (event.Subscription, error) {
	if c.wsFilterer == nil {
		return nil, ErrNoSubscription
	}

	processedCh := make(chan *contracts.StacksBridgeCrossChainMessageProcessed, 16)
	depositCh := make(chan *contracts.StacksBridgeDepositReceived, 16)
	opts := &bind.WatchOpts{Context: ctx}

	processedSub, err := c.wsFilterer.WatchCrossChainMessageProcessed(opts, processedCh, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to watch CrossChainMessageProcessed: %w", err)
	}
	depositSub, err := c.wsFilterer.WatchDepositReceived(opts, depositCh, nil)
	if err != nil {
		processedSub.Unsubscribe()
		return nil, fmt.Errorf("failed to watch DepositReceived: %w", err)
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer processedSub.Unsubscribe()
		defer depositSub.Unsubscribe()
		for {
			var conf *bridge.Confirmation
			select {
			case ev := <-processedCh:
				conf = processedConfirmation(ev)
			case ev := <-depositCh:
				conf = depositConfirmation(ev)
			case err := <-processedSub.Err():
				return err
			case err := <-depositSub.Err():
				return err
			case <-quit:
				return nil
			}
			select {
			case sink <- conf:
			case <-quit:
				return nil
			}
		}
	}), nil
}

func processedConfirmation(ev *contracts.StacksBridgeCrossChainMessageProcessed) *bridge.Confirmation {
	return &bridge.Confirmation{
		Kind:        bridge.ConfirmationMessageProcessed,
		MessageID:   ev.MessageId,
		MessageType: bridge.MessageType(ev.MessageType),
		TxHash:      ev.Raw.TxHash,
		BlockNumber: ev.Raw.BlockNumber,
	}
}

func depositConfirmation(ev *contracts.StacksBridgeDepositReceived) *bridge.Confirmation {
	return &bridge.Confirmation{
		Kind:              bridge.ConfirmationDepositReceived,
		SourceTxHash:      ev.SourceTxHash,
		User:              ev.User,
		SourceAmount:      ev.SourceAmount,
		DestinationAmount: ev.DestinationAmount,
		TxHash:            ev.Raw.TxHash,
		BlockNumber:       ev.Raw.BlockNumber,
	}
}
