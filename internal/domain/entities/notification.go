package entities

// NotificationKind identifies which payload a Notification carries
type NotificationKind string

const (
	NotificationTransfer NotificationKind = "transfer"
	NotificationSwap     NotificationKind = "swap"
	NotificationGeneric  NotificationKind = "generic"
)

// Notification is the structured event handed to delivery sinks
type Notification struct {
	Kind          NotificationKind  `json:"kind"`
	WalletAddress string            `json:"wallet_address"`
	WalletAlias   string            `json:"wallet_alias"`
	TxType        string            `json:"tx_type"`
	Timestamp     int64             `json:"timestamp"`
	Signature     string            `json:"signature"`
	Transfer      *TransferEvent    `json:"transfer,omitempty"`
	Swap          *SwapEvent        `json:"swap,omitempty"`
	Labels        map[string]string `json:"labels,omitempty"` // monitored address -> alias
}

// Label returns the alias of a monitored address or its shortened form
func (n *Notification) Label(address string) string {
	if alias, ok := n.Labels[address]; ok && alias != "" {
		return alias
	}
	return ShortAddress(address)
}
