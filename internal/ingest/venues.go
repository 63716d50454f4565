package ingest

import (
	"fmt"

	"fundingflow/internal/models"
	"fundingflow/internal/reader"
	"fundingflow/internal/reader/binance"
	"fundingflow/internal/reader/bybit"
	"fundingflow/internal/reader/coinbase"
	"fundingflow/internal/reader/derive"
	"fundingflow/internal/reader/hyperliquid"
	"fundingflow/internal/reader/lighter"
	"fundingflow/internal/reader/okx"
)

// VenueFor builds the wire protocol of an exchange with its default symbol
// table. An empty url selects the venue's public endpoint.
func VenueFor(id models.ExchangeID, url string) (reader.Venue, error) {
	switch id {
	case models.ExchangeBinance:
		return binance.New(url, nil), nil
	case models.ExchangeBybit:
		return bybit.New(url, nil), nil
	case models.ExchangeOkx:
		return okx.New(url, nil), nil
	case models.ExchangeHyperliquid:
		return hyperliquid.New(url, nil), nil
	case models.ExchangeDerive:
		return derive.New(url, nil), nil
	case models.ExchangeLighter:
		return lighter.New(url, nil), nil
	case models.ExchangeCoinbase:
		return coinbase.New(url, nil), nil
	default:
		return nil, fmt.Errorf("unsupported exchange %q", id)
	}
}
