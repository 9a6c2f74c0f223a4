package service

import (
	"context"

	"github.com/damon-houk/coin-exchange-widget/internal/domain/entity"
)

// CoinAPI defines the interface for the remote coin and conversion API
type CoinAPI interface {
	// ListCoins retrieves every tradable asset
	ListCoins(ctx context.Context) ([]entity.Coin, error)

	// GetConversionRate retrieves the To-per-From rate for FromAmount units
	GetConversionRate(ctx context.Context, params entity.ConversionParams) (float64, error)
}
