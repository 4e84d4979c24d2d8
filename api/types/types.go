package types

// ErrorResponse is the body of every failed API request
type ErrorResponse struct {
	Error     string `json:"error"`
	Codespace string `json:"codespace,omitempty"`
	Code      uint32 `json:"code,omitempty"`
}

// ListResponse wraps a page of results
type ListResponse[T any] struct {
	Items  []T    `json:"items"`
	Total  uint64 `json:"total"`
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// EncryptRequest asks the gateway oracle to encrypt a contribution for a
// pool and attest it against the pool minimum
type EncryptRequest struct {
	PoolID uint64 `json:"pool_id"`
	Amount string `json:"amount"`
}

// EncryptResponse carries the fields an investor puts into MsgInvest
type EncryptResponse struct {
	EncryptedAmount []byte `json:"encrypted_amount"`
	MinimumProof    []byte `json:"minimum_proof"`
}

// LedgerEvent is one committed ledger event as streamed to clients
type LedgerEvent struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	PoolID     uint64            `json:"pool_id,omitempty"`
	Height     int64             `json:"height"`
	Timestamp  int64             `json:"timestamp"`
	Attributes map[string]string `json:"attributes"`
}

// HealthResponse reports gateway liveness
type HealthResponse struct {
	Status    string `json:"status"`
	Height    int64  `json:"height"`
	BlockTime int64  `json:"block_time"`
	Oracle    string `json:"oracle,omitempty"`
	Clients   int    `json:"clients"`
}
