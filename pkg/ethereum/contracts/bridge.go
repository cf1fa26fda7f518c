// Package contracts holds Go bindings for the destination bridge contract.
// The layout follows abigen output; only the ABI surface used by the relayer is bound.
package contracts

import (
	"errors"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// Reference imports to suppress errors if they are not otherwise used.
var (
	_ = errors.New
	_ = big.NewInt
	_ = strings.NewReader
	_ = ethereum.NotFound
	_ = common.Big1
	_ = types.BloomLookup
	_ = event.NewSubscription
	_ = abi.ConvertType
)

// StacksBridgeMetaData contains the ABI of the StacksBridge contract.
var StacksBridgeMetaData = &bind.MetaData{
	ABI: "[{\"anonymous\":false,\"inputs\":[{\"indexed\":true,\"internalType\":\"bytes32\",\"name\":\"messageId\",\"type\":\"bytes32\"},{\"indexed\":false,\"internalType\":\"uint8\",\"name\":\"messageType\",\"type\":\"uint8\"}],\"name\":\"CrossChainMessageProcessed\",\"type\":\"event\"},{\"anonymous\":false,\"inputs\":[{\"indexed\":true,\"internalType\":\"address\",\"name\":\"user\",\"type\":\"address\"},{\"indexed\":false,\"internalType\":\"uint256\",\"name\":\"sourceAmount\",\"type\":\"uint256\"},{\"indexed\":false,\"internalType\":\"uint256\",\"name\":\"destinationAmount\",\"type\":\"uint256\"},{\"indexed\":false,\"internalType\":\"bytes32\",\"name\":\"sourceTxHash\",\"type\":\"bytes32\"}],\"name\":\"DepositReceived\",\"type\":\"event\"},{\"inputs\":[{\"internalType\":\"uint256\",\"name\":\"sourceAmount\",\"type\":\"uint256\"}],\"name\":\"calculateExpectedPayout\",\"outputs\":[{\"internalType\":\"uint256\",\"name\":\"\",\"type\":\"uint256\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[],\"name\":\"emergencyPaused\",\"outputs\":[{\"internalType\":\"bool\",\"name\":\"\",\"type\":\"bool\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[],\"name\":\"getPoolBalance\",\"outputs\":[{\"internalType\":\"uint256\",\"name\":\"\",\"type\":\"uint256\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[],\"name\":\"getPriceAndValidity\",\"outputs\":[{\"internalType\":\"uint256\",\"name\":\"price\",\"type\":\"uint256\"},{\"internalType\":\"bool\",\"name\":\"isValid\",\"type\":\"bool\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[{\"internalType\":\"bytes32\",\"name\":\"messageId\",\"type\":\"bytes32\"}],\"name\":\"isMessageProcessed\",\"outputs\":[{\"internalType\":\"bool\",\"name\":\"\",\"type\":\"bool\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[{\"internalType\":\"bytes32\",\"name\":\"txHash\",\"type\":\"bytes32\"}],\"name\":\"isStacksTxHashUsed\",\"outputs\":[{\"internalType\":\"bool\",\"name\":\"\",\"type\":\"bool\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[{\"internalType\":\"bytes32\",\"name\":\"messageId\",\"type\":\"bytes32\"},{\"internalType\":\"uint8\",\"name\":\"messageType\",\"type\":\"uint8\"},{\"internalType\":\"address\",\"name\":\"custodian\",\"type\":\"address\"},{\"internalType\":\"string\",\"name\":\"sourceAddress\",\"type\":\"string\"},{\"internalType\":\"uint256\",\"name\":\"amount\",\"type\":\"uint256\"},{\"internalType\":\"bytes32\",\"name\":\"sourceTxHash\",\"type\":\"bytes32\"},{\"internalType\":\"bytes\",\"name\":\"proof\",\"type\":\"bytes\"}],\"name\":\"processCrossChainMessage\",\"outputs\":[],\"stateMutability\":\"nonpayable\",\"type\":\"function\"}]",
}

// StacksBridgeABI is the input ABI used to build the binding.
var StacksBridgeABI = StacksBridgeMetaData.ABI

// StacksBridge is a Go binding around the StacksBridge contract.
type StacksBridge struct {
	StacksBridgeCaller     // Read-only binding to the contract
	StacksBridgeTransactor // Write-only binding to the contract
	StacksBridgeFilterer   // Log filterer for contract events
}

// StacksBridgeCaller is a read-only binding around the contract.
type StacksBridgeCaller struct {
	contract *bind.BoundContract
}

// StacksBridgeTransactor is a write-only binding around the contract.
type StacksBridgeTransactor struct {
	contract *bind.BoundContract
}

// StacksBridgeFilterer is a log filtering binding around the contract events.
type StacksBridgeFilterer struct {
	contract *bind.BoundContract
}

// NewStacksBridge creates a new instance of StacksBridge, bound to a specific deployed contract.
func NewStacksBridge(address common.Address, backend bind.ContractBackend) (*StacksBridge, error) {
	contract, err := bindStacksBridge(address, backend, backend, backend)
	if err != nil {
		return nil, err
	}
	return &StacksBridge{
		StacksBridgeCaller:     StacksBridgeCaller{contract: contract},
		StacksBridgeTransactor: StacksBridgeTransactor{contract: contract},
		StacksBridgeFilterer:   StacksBridgeFilterer{contract: contract},
	}, nil
}

// NewStacksBridgeFilterer creates a log filterer instance bound to a specific deployed contract.
func NewStacksBridgeFilterer(address common.Address, filterer bind.ContractFilterer) (*StacksBridgeFilterer, error) {
	contract, err := bindStacksBridge(address, nil, nil, filterer)
	if err != nil {
		return nil, err
	}
	return &StacksBridgeFilterer{contract: contract}, nil
}

func bindStacksBridge(address common.Address, caller bind.ContractCaller, transactor bind.ContractTransactor, filterer bind.ContractFilterer) (*bind.BoundContract, error) {
	parsed, err := StacksBridgeMetaData.GetAbi()
	if err != nil {
		return nil, err
	}
	return bind.NewBoundContract(address, *parsed, caller, transactor, filterer), nil
}

// CalculateExpectedPayout is a free data retrieval call.
//
// Solidity: function calculateExpectedPayout(uint256 sourceAmount) view returns(uint256)
func (_StacksBridge *StacksBridgeCaller) CalculateExpectedPayout(opts *bind.CallOpts, sourceAmount *big.Int) (*big.Int, error) {
	var out []interface{}
	err := _StacksBridge.contract.Call(opts, &out, "calculateExpectedPayout", sourceAmount)
	if err != nil {
		return *new(*big.Int), err
	}
	out0 := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return out0, err
}

// EmergencyPaused is a free data retrieval call.
//
// Solidity: function emergencyPaused() view returns(bool)
func (_StacksBridge *StacksBridgeCaller) EmergencyPaused(opts *bind.CallOpts) (bool, error) {
	var out []interface{}
	err := _StacksBridge.contract.Call(opts, &out, "emergencyPaused")
	if err != nil {
		return *new(bool), err
	}
	out0 := *abi.ConvertType(out[0], new(bool)).(*bool)
	return out0, err
}

// GetPoolBalance is a free data retrieval call.
//
// Solidity: function getPoolBalance() view returns(uint256)
func (_StacksBridge *StacksBridgeCaller) GetPoolBalance(opts *bind.CallOpts) (*big.Int, error) {
	var out []interface{}
	err := _StacksBridge.contract.Call(opts, &out, "getPoolBalance")
	if err != nil {
		return *new(*big.Int), err
	}
	out0 := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return out0, err
}

// GetPriceAndValidity is a free data retrieval call.
//
// Solidity: function getPriceAndValidity() view returns(uint256 price, bool isValid)
func (_StacksBridge *StacksBridgeCaller) GetPriceAndValidity(opts *bind.CallOpts) (struct {
	Price   *big.Int
	IsValid bool
}, error) {
	var out []interface{}
	err := _StacksBridge.contract.Call(opts, &out, "getPriceAndValidity")

	outstruct := new(struct {
		Price   *big.Int
		IsValid bool
	})
	if err != nil {
		return *outstruct, err
	}

	outstruct.Price = *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	outstruct.IsValid = *abi.ConvertType(out[1], new(bool)).(*bool)

	return *outstruct, err
}

// IsMessageProcessed is a free data retrieval call.
//
// Solidity: function isMessageProcessed(bytes32 messageId) view returns(bool)
func (_StacksBridge *StacksBridgeCaller) IsMessageProcessed(opts *bind.CallOpts, messageId [32]byte) (bool, error) {
	var out []interface{}
	err := _StacksBridge.contract.Call(opts, &out, "isMessageProcessed", messageId)
	if err != nil {
		return *new(bool), err
	}
	out0 := *abi.ConvertType(out[0], new(bool)).(*bool)
	return out0, err
}

// IsStacksTxHashUsed is a free data retrieval call.
//
// Solidity: function isStacksTxHashUsed(bytes32 txHash) view returns(bool)
func (_StacksBridge *StacksBridgeCaller) IsStacksTxHashUsed(opts *bind.CallOpts, txHash [32]byte) (bool, error) {
	var out []interface{}
	err := _StacksBridge.contract.Call(opts, &out, "isStacksTxHashUsed", txHash)
	if err != nil {
		return *new(bool), err
	}
	out0 := *abi.ConvertType(out[0], new(bool)).(*bool)
	return out0, err
}

// ProcessCrossChainMessage is a paid mutator transaction.
//
// Solidity: function processCrossChainMessage(bytes32 messageId, uint8 messageType, address custodian, string sourceAddress, uint256 amount, bytes32 sourceTxHash, bytes proof) returns()
func (_StacksBridge *StacksBridgeTransactor) ProcessCrossChainMessage(opts *bind.TransactOpts, messageId [32]byte, messageType uint8, custodian common.Address, sourceAddress string, amount *big.Int, sourceTxHash [32]byte, proof []byte) (*types.Transaction, error) {
	return _StacksBridge.contract.Transact(opts, "processCrossChainMessage", messageId, messageType, custodian, sourceAddress, amount, sourceTxHash, proof)
}

// StacksBridgeCrossChainMessageProcessed represents a CrossChainMessageProcessed event.
type StacksBridgeCrossChainMessageProcessed struct {
	MessageId   [32]byte
	MessageType uint8
	Raw         types.Log // Blockchain specific contextual infos
}

// StacksBridgeCrossChainMessageProcessedIterator iterates over CrossChainMessageProcessed logs.
type StacksBridgeCrossChainMessageProcessedIterator struct {
	Event *StacksBridgeCrossChainMessageProcessed

	contract *bind.BoundContract
	event    string

	logs chan types.Log
	sub  ethereum.Subscription
	done bool
	fail error
}

// Next advances the iterator to the subsequent event, returning whether there
// are any more events found.
func (it *StacksBridgeCrossChainMessageProcessedIterator) Next() bool {
	if it.fail != nil {
		return false
	}
	if it.done {
		select {
		case log := <-it.logs:
			it.Event = new(StacksBridgeCrossChainMessageProcessed)
			if err := it.contract.UnpackLog(it.Event, it.event, log); err != nil {
				it.fail = err
				return false
			}
			it.Event.Raw = log
			return true
		default:
			return false
		}
	}
	select {
	case log := <-it.logs:
		it.Event = new(StacksBridgeCrossChainMessageProcessed)
		if err := it.contract.UnpackLog(it.Event, it.event, log); err != nil {
			it.fail = err
			return false
		}
		it.Event.Raw = log
		return true
	case err := <-it.sub.Err():
		it.done = true
		it.fail = err
		return it.Next()
	}
}

// Error returns any retrieval or parsing error occurred during filtering.
func (it *StacksBridgeCrossChainMessageProcessedIterator) Error() error {
	return it.fail
}

// Close terminates the iteration process.
func (it *StacksBridgeCrossChainMessageProcessedIterator) Close() error {
	it.sub.Unsubscribe()
	return nil
}

// FilterCrossChainMessageProcessed is a free log retrieval operation.
//
// Solidity: event CrossChainMessageProcessed(bytes32 indexed messageId, uint8 messageType)
func (_StacksBridge *StacksBridgeFilterer) FilterCrossChainMessageProcessed(opts *bind.FilterOpts, messageId [][32]byte) (*StacksBridgeCrossChainMessageProcessedIterator, error) {
	var messageIdRule []interface{}
	for _, messageIdItem := range messageId {
		messageIdRule = append(messageIdRule, messageIdItem)
	}

	logs, sub, err := _StacksBridge.contract.FilterLogs(opts, "CrossChainMessageProcessed", messageIdRule)
	if err != nil {
		return nil, err
	}
	return &StacksBridgeCrossChainMessageProcessedIterator{contract: _StacksBridge.contract, event: "CrossChainMessageProcessed", logs: logs, sub: sub}, nil
}

// WatchCrossChainMessageProcessed is a free log subscription operation.
//
// Solidity: event CrossChainMessageProcessed(bytes32 indexed messageId, uint8 messageType)
func (_StacksBridge *StacksBridgeFilterer) WatchCrossChainMessageProcessed(opts *bind.WatchOpts, sink chan<- *StacksBridgeCrossChainMessageProcessed, messageId [][32]byte) (event.Subscription, error) {
	var messageIdRule []interface{}
	for _, messageIdItem := range messageId {
		messageIdRule = append(messageIdRule, messageIdItem)
	}

	logs, sub, err := _StacksBridge.contract.WatchLogs(opts, "CrossChainMessageProcessed", messageIdRule)
	if err != nil {
		return nil, err
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case log := <-logs:
				event := new(StacksBridgeCrossChainMessageProcessed)
				if err := _StacksBridge.contract.UnpackLog(event, "CrossChainMessageProcessed", log); err != nil {
					return err
				}
				event.Raw = log

				select {
				case sink <- event:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

// ParseCrossChainMessageProcessed is a log parse operation.
//
// Solidity: event CrossChainMessageProcessed(bytes32 indexed messageId, uint8 messageType)
func (_StacksBridge *StacksBridgeFilterer) ParseCrossChainMessageProcessed(log types.Log) (*StacksBridgeCrossChainMessageProcessed, error) {
	event := new(StacksBridgeCrossChainMessageProcessed)
	if err := _StacksBridge.contract.UnpackLog(event, "CrossChainMessageProcessed", log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}

// StacksBridgeDepositReceived represents a DepositReceived event.
type StacksBridgeDepositReceived struct {
	User              common.Address
	SourceAmount      *big.Int
	DestinationAmount *big.Int
	SourceTxHash      [32]byte
	Raw               types.Log // Blockchain specific contextual infos
}

// StacksBridgeDepositReceivedIterator iterates over DepositReceived logs.
type StacksBridgeDepositReceivedIterator struct {
	Event *StacksBridgeDepositReceived

	contract *bind.BoundContract
	event    string

	logs chan types.Log
	sub  ethereum.Subscription
	done bool
	fail error
}

// Next advances the iterator to the subsequent event, returning whether there
// are any more events found.
func (it *StacksBridgeDepositReceivedIterator) Next() bool {
	if it.fail != nil {
		return false
	}
	if it.done {
		select {
		case log := <-it.logs:
			it.Event = new(StacksBridgeDepositReceived)
			if err := it.contract.UnpackLog(it.Event, it.event, log); err != nil {
				it.fail = err
				return false
			}
			it.Event.Raw = log
			return true
		default:
			return false
		}
	}
	select {
	case log := <-it.logs:
		it.Event = new(StacksBridgeDepositReceived)
		if err := it.contract.UnpackLog(it.Event, it.event, log); err != nil {
			it.fail = err
			return false
		}
		it.Event.Raw = log
		return true
	case err := <-it.sub.Err():
		it.done = true
		it.fail = err
		return it.Next()
	}
}

// Error returns any retrieval or parsing error occurred during filtering.
func (it *StacksBridgeDepositReceivedIterator) Error() error {
	return it.fail
}

// Close terminates the iteration process.
func (it *StacksBridgeDepositReceivedIterator) Close() error {
	it.sub.Unsubscribe()
	return nil
}

// FilterDepositReceived is a free log retrieval operation.
//
// Solidity: event DepositReceived(address indexed user, uint256 sourceAmount, uint256 destinationAmount, bytes32 sourceTxHash)
func (_StacksBridge *StacksBridgeFilterer) FilterDepositReceived(opts *bind.FilterOpts, user []common.Address) (*StacksBridgeDepositReceivedIterator, error) {
	var userRule []interface{}
	for _, userItem := range user {
		userRule = append(userRule, userItem)
	}

	logs, sub, err := _StacksBridge.contract.FilterLogs(opts, "DepositReceived", userRule)
	if err != nil {
		return nil, err
	}
	return &StacksBridgeDepositReceivedIterator{contract: _StacksBridge.contract, event: "DepositReceived", logs: logs, sub: sub}, nil
}

// WatchDepositReceived is a free log subscription operation.
//
// Solidity: event DepositReceived(address indexed user, uint256 sourceAmount, uint256 destinationAmount, bytes32 sourceTxHash)
func (_StacksBridge *StacksBridgeFilterer) WatchDepositReceived(opts *bind.WatchOpts, sink chan<- *StacksBridgeDepositReceived, user []common.Address) (event.Subscription, error) {
	var userRule []interface{}
	for _, userItem := range user {
		userRule = append(userRule, userItem)
	}

	logs, sub, err := _StacksBridge.contract.WatchLogs(opts, "DepositReceived", userRule)
	if err != nil {
		return nil, err
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case log := <-logs:
				event := new(StacksBridgeDepositReceived)
				if err := _StacksBridge.contract.UnpackLog(event, "DepositReceived", log); err != nil {
					return err
				}
				event.Raw = log

				select {
				case sink <- event:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

// ParseDepositReceived is a log parse operation.
//
// Solidity: event DepositReceived(address indexed user, uint256 sourceAmount, uint256 destinationAmount, bytes32 sourceTxHash)
func (_StacksBridge *StacksBridgeFilterer) ParseDepositReceived(log types.Log) (*StacksBridgeDepositReceived, error) {
	event := new(StacksBridgeDepositReceived)
	if err := _StacksBridge.contract.UnpackLog(event, "DepositReceived", log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}
