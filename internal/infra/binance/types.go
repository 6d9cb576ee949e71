package binance

import "time"

const (
	readTimeout       = 5 * time.Minute
	maxRetries        = 10
	keepAliveInterval = 30 * time.Minute
)

// apiError is the business-error envelope of the REST API.
type apiError struct {
	Code int64  `json:"code"`
	Msg  string `json:"msg"`
}

type fillData struct {
	Price           string `json:"price"`
	Qty             string `json:"qty"`
	Commission      string `json:"commission"`
	CommissionAsset string `json:"commissionAsset"`
}

type orderResponse struct {
	OrderID int64      `json:"orderId"`
	Status  string     `json:"status"`
	Fills   []fillData `json:"fills"`
}

type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type symbolFilter struct {
	FilterType  string `json:"filterType"`
	StepSize    string `json:"stepSize"`
	MinQty      string `json:"minQty"`
	TickSize    string `json:"tickSize"`
	MinPrice    string `json:"minPrice"`
	MinNotional string `json:"minNotional"`
}

type symbolInfo struct {
	Symbol  string         `json:"symbol"`
	Status  string         `json:"status"`
	Filters []symbolFilter `json:"filters"`
}

type exchangeInfoResponse struct {
	Symbols []symbolInfo `json:"symbols"`
}

type listenKeyResponse struct {
	ListenKey string `json:"listenKey"`
}

// aggTradeMessage is one aggregated trade pushed on the public stream.
type aggTradeMessage struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

// executionReport is one order-status update on the user-data stream.
// CommissionAsset is null until an execution carries a commission.
type executionReport struct {
	EventType       string  `json:"e"`
	EventTime       int64   `json:"E"`
	Symbol          string  `json:"s"`
	Side            string  `json:"S"`
	OrderType       string  `json:"o"`
	Status          string  `json:"X"`
	RejectReason    string  `json:"r"`
	OrderID         int64   `json:"i"`
	LastPrice       string  `json:"L"`
	CumQty          string  `json:"z"`
	CommissionAsset *string `json:"N"`
}
