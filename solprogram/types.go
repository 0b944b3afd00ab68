package solprogram

// ItemStruct is one submitted GIF as stored on chain.
type ItemStruct struct {
	GifLink string `json:"gif_link"`
}

// BaseAccount is the program account holding every submission.
type BaseAccount struct {
	TotalGifs uint64       `json:"total_gifs"`
	GifList   []ItemStruct `json:"gif_list"`
}

// TransactionStatus - Status transaksi
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusProcessed TransactionStatus = "processed"
	StatusConfirmed TransactionStatus = "confirmed"
	StatusFinalized TransactionStatus = "finalized"
	StatusFailed    TransactionStatus = "failed"
)

// TransactionResult - Hasil transaksi
type TransactionResult struct {
	Signature   string            `json:"signature"`
	Status      TransactionStatus `json:"status"`
	Error       *string           `json:"error,omitempty"`
	ExplorerURL string            `json:"explorer_url"`
}
