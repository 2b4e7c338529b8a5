package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a credit-card account of record with its outstanding balance.
type Account struct {
	AccountID      string          `json:"accountId"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Transaction is one committed bill payment.
type Transaction struct {
	TransactionID           string          `json:"transactionId"`
	TransactionTypeCode     string          `json:"transactionTypeCode"`
	TransactionCategoryCode int             `json:"transactionCategoryCode"`
	TransactionSource       string          `json:"transactionSource"`
	TransactionDescription  string          `json:"transactionDescription"`
	TransactionAmount       decimal.Decimal `json:"transactionAmount"`
	CardNumber              string          `json:"cardNumber"`
	MerchantID              int64           `json:"merchantId"`
	MerchantName            string          `json:"merchantName"`
	MerchantCity            string          `json:"merchantCity"`
	MerchantZip             string          `json:"merchantZip"`
	OriginTimestamp         time.Time       `json:"originTimestamp"`
	ProcessTimestamp        time.Time       `json:"processTimestamp"`
	AccountID               string          `json:"accountId"`
}

// CardCrossReference links an account to the card number payments post under.
type CardCrossReference struct {
	AccountID  string `json:"accountId"`
	CardNumber string `json:"cardNumber"`
}
