package stacks

// Stacks Blockchain API payloads. Only the fields the relayer reads are declared.

// NodeInfo is the /v2/info response
type NodeInfo struct {
	NetworkID       uint32 `json:"network_id"`
	StacksTipHeight uint64 `json:"stacks_tip_height"`
	BurnBlockHeight uint64 `json:"burn_block_height"`
}

// Transaction is a confirmed transaction as returned by the extended API
type Transaction struct {
	TxID          string  `json:"tx_id"`
	TxType        string  `json:"tx_type"`
	TxStatus      string  `json:"tx_status"`
	SenderAddress string  `json:"sender_address"`
	BlockHeight   uint64  `json:"block_height"`
	BurnBlockTime int64   `json:"burn_block_time"`
	EventCount    int     `json:"event_count"`
	Events        []Event `json:"events"`
}

// Event is one transaction event
type Event struct {
	EventIndex int    `json:"event_index"`
	EventType  string `json:"event_type"`
	Asset      *Asset `json:"asset,omitempty"`
}

// Asset carries the payload of a token event
type Asset struct {
	AssetEventType string `json:"asset_event_type"`
	AssetID        string `json:"asset_id"`
	Sender         string `json:"sender"`
	Recipient      string `json:"recipient"`
	Amount         string `json:"amount"`
}

// TransactionList is a page of transactions
type TransactionList struct {
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	Total   int           `json:"total"`
	Results []Transaction `json:"results"`
}

// ReadOnlyRequest is the body of a read-only contract call
type ReadOnlyRequest struct {
	Sender    string   `json:"sender"`
	Arguments []string `json:"arguments"`
}

// ReadOnlyResponse is the result of a read-only contract call
type ReadOnlyResponse struct {
	Okay   bool   `json:"okay"`
	Result string `json:"result,omitempty"`
	Cause  string `json:"cause,omitempty"`
}

// BlockNotification is the payload of a streamed "block" event
type BlockNotification struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}

const (
	TxStatusSuccess     = "success"
	EventTypeFungible   = "fungible_token_asset"
	AssetEventTransfer  = "transfer"
	defaultPageLimit    = 50
	defaultRequestLimit = 10
	maxEventPage        = 200
)
