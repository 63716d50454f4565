package models

// Asset is a canonical ticker shared by every venue mapping.
type Asset string

const (
	AssetBTC  Asset = "BTC"
	AssetETH  Asset = "ETH"
	AssetSOL  Asset = "SOL"
	AssetXRP  Asset = "XRP"
	AssetDOGE Asset = "DOGE"
	AssetBNB  Asset = "BNB"
	AssetAVAX Asset = "AVAX"
	AssetLINK Asset = "LINK"
	AssetSUI  Asset = "SUI"
	AssetARB  Asset = "ARB"
	AssetPEPE Asset = "PEPE"
	AssetWIF  Asset = "WIF"
)

var assetOrder = []Asset{
	AssetBTC, AssetETH, AssetSOL, AssetXRP, AssetDOGE, AssetBNB,
	AssetAVAX, AssetLINK, AssetSUI, AssetARB, AssetPEPE, AssetWIF,
}

var assetRank = func() map[Asset]int {
	m := make(map[Asset]int, len(assetOrder))
	for i, a := range assetOrder {
		m[a] = i
	}
	return m
}()

// Assets returns the canonical asset set in display order.
func Assets() []Asset {
	out := make([]Asset, len(assetOrder))
	copy(out, assetOrder)
	return out
}

// ParseAsset resolves a canonical ticker. Lookup is exact (upper case).
func ParseAsset(s string) (Asset, bool) {
	a := Asset(s)
	_, ok := assetRank[a]
	return a, ok
}

// Rank is the display position of the asset; unknown assets sort last.
func (a Asset) Rank() int {
	if r, ok := assetRank[a]; ok {
		return r
	}
	return len(assetOrder)
}

func (a Asset) String() string { return string(a) }
