package symbols

import "fundingflow/internal/models"

// Binance USDⓈ-M perpetual tickers. Low-priced coins trade in 1000x units.
var Binance = NewNameTable(map[models.Asset]string{
	models.AssetBTC:  "BTCUSDT",
	models.AssetETH:  "ETHUSDT",
	models.AssetSOL:  "SOLUSDT",
	models.AssetXRP:  "XRPUSDT",
	models.AssetDOGE: "DOGEUSDT",
	models.AssetBNB:  "BNBUSDT",
	models.AssetAVAX: "AVAXUSDT",
	models.AssetLINK: "LINKUSDT",
	models.AssetSUI:  "SUIUSDT",
	models.AssetARB:  "ARBUSDT",
	models.AssetPEPE: "1000PEPEUSDT",
	models.AssetWIF:  "WIFUSDT",
}, nil)

// Bybit linear perpetual tickers.
var Bybit = NewNameTable(map[models.Asset]string{
	models.AssetBTC:  "BTCUSDT",
	models.AssetETH:  "ETHUSDT",
	models.AssetSOL:  "SOLUSDT",
	models.AssetXRP:  "XRPUSDT",
	models.AssetDOGE: "DOGEUSDT",
	models.AssetBNB:  "BNBUSDT",
	models.AssetAVAX: "AVAXUSDT",
	models.AssetLINK: "LINKUSDT",
	models.AssetSUI:  "SUIUSDT",
	models.AssetARB:  "ARBUSDT",
	models.AssetPEPE: "1000PEPEUSDT",
	models.AssetWIF:  "WIFUSDT",
}, nil)

// Okx USDT-margined swap instrument ids.
var Okx = NewNameTable(map[models.Asset]string{
	models.AssetBTC:  "BTC-USDT-SWAP",
	models.AssetETH:  "ETH-USDT-SWAP",
	models.AssetSOL:  "SOL-USDT-SWAP",
	models.AssetXRP:  "XRP-USDT-SWAP",
	models.AssetDOGE: "DOGE-USDT-SWAP",
	models.AssetBNB:  "BNB-USDT-SWAP",
	models.AssetAVAX: "AVAX-USDT-SWAP",
	models.AssetLINK: "LINK-USDT-SWAP",
	models.AssetSUI:  "SUI-USDT-SWAP",
	models.AssetARB:  "ARB-USDT-SWAP",
	models.AssetPEPE: "PEPE-USDT-SWAP",
	models.AssetWIF:  "WIF-USDT-SWAP",
}, nil)

// Hyperliquid coin names. Sub-cent coins are quoted per 1000 units with a
// "k" prefix; the table is case-insensitive so "kPEPE" resolves as "KPEPE".
var Hyperliquid = NewNameTable(map[models.Asset]string{
	models.AssetBTC:  "BTC",
	models.AssetETH:  "ETH",
	models.AssetSOL:  "SOL",
	models.AssetXRP:  "XRP",
	models.AssetDOGE: "DOGE",
	models.AssetBNB:  "BNB",
	models.AssetAVAX: "AVAX",
	models.AssetLINK: "LINK",
	models.AssetSUI:  "SUI",
	models.AssetARB:  "ARB",
	models.AssetPEPE: "kPEPE",
	models.AssetWIF:  "WIF",
}, nil)

// Derive perpetual instrument names. Derive lists fewer perps than the
// centralised venues.
var Derive = NewNameTable(map[models.Asset]string{
	models.AssetBTC:  "BTC-PERP",
	models.AssetETH:  "ETH-PERP",
	models.AssetSOL:  "SOL-PERP",
	models.AssetXRP:  "XRP-PERP",
	models.AssetDOGE: "DOGE-PERP",
	models.AssetSUI:  "SUI-PERP",
}, nil)

// Lighter identifies perpetual markets by numeric market index.
var Lighter = NewTable(map[models.Asset]int{
	models.AssetETH:  0,
	models.AssetBTC:  1,
	models.AssetSOL:  2,
	models.AssetDOGE: 3,
	models.AssetPEPE: 4,
	models.AssetWIF:  5,
	models.AssetXRP:  7,
	models.AssetLINK: 8,
	models.AssetAVAX: 9,
	models.AssetSUI:  16,
	models.AssetBNB:  25,
	models.AssetARB:  50,
})

// Coinbase spot products used for the zero-funding baseline.
var Coinbase = NewNameTable(map[models.Asset]string{
	models.AssetBTC:  "BTC-USD",
	models.AssetETH:  "ETH-USD",
	models.AssetSOL:  "SOL-USD",
	models.AssetXRP:  "XRP-USD",
	models.AssetDOGE: "DOGE-USD",
	models.AssetAVAX: "AVAX-USD",
	models.AssetLINK: "LINK-USD",
	models.AssetSUI:  "SUI-USD",
	models.AssetARB:  "ARB-USD",
	models.AssetPEPE: "PEPE-USD",
	models.AssetWIF:  "WIF-USD",
}, nil)
