package publisher

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderConfirmedEvent struct {
	OrderGroupNumber string          `json:"order_group_number"`
	UserID           int64           `json:"user_id"`
	OrderNumbers     []string        `json:"order_numbers"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Currency         string          `json:"currency"`
	PlacedAt         time.Time       `json:"placed_at"`
}

type ShopNewOrderEvent struct {
	OrderNumber      string          `json:"order_number"`
	OrderGroupNumber string          `json:"order_group_number"`
	ShopID           int64           `json:"shop_id"`
	ItemCount        int             `json:"item_count"`
	Total            decimal.Decimal `json:"total"`
	Currency         string          `json:"currency"`
	PlacedAt         time.Time       `json:"placed_at"`
}

type OrderStatusChangedEvent struct {
	OrderNumber      string    `json:"order_number"`
	OrderGroupNumber string    `json:"order_group_number"`
	ShopID           int64     `json:"shop_id"`
	From             string    `json:"from"`
	To               string    `json:"to"`
	MasterStatus     string    `json:"master_status"`
	ChangedBy        int64     `json:"changed_by"`
	ChangedAt        time.Time `json:"changed_at"`
}
