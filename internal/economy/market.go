package economy

import (
	"empires-server/internal/empire"
	"empires-server/internal/rng"
	"empires-server/internal/ruleset"
	"empires-server/internal/shared/errors"
)

// Tradable lists the market resources in update order.
var Tradable = []empire.ResourceType{empire.ResourceFood, empire.ResourceOre, empire.ResourceFuel}

type Market struct {
	Prices map[empire.ResourceType]float64 `json:"prices"`
}

func NewMarket(rs *ruleset.Ruleset) Market {
	m := Market{Prices: make(map[empire.ResourceType]float64, len(Tradable))}
	for _, r := range Tradable {
		m.Prices[r] = rs.Market.InitialPrices[r]
	}
	return m
}

func (m Market) Clone() Market {
	c := Market{Prices: make(map[empire.ResourceType]float64, len(m.Prices))}
	for k, v := range m.Prices {
		c.Prices[k] = v
	}
	return c
}

// BuyPrice and SellPrice apply the market spread around the mid price.
func (m Market) BuyPrice(r empire.ResourceType, rs *ruleset.Ruleset) float64 {
	return m.Prices[r] * (1 + rs.Market.Spread)
}

func (m Market) SellPrice(r empire.ResourceType, rs *ruleset.Ruleset) float64 {
	return m.Prices[r] * (1 - rs.Market.Spread)
}

// UpdateMarket moves each price against the aggregate stock held by living
// empires, adds bounded noise, and clamps to the configured range.
func UpdateMarket(m *Market, empires []*empire.Empire, rs *ruleset.Ruleset, stream *rng.Stream) {
	alive := 0
	for _, e := range empires {
		if e.Alive() {
			alive++
		}
	}
	for _, r := range Tradable {
		var stock int64
		for _, e := range empires {
			if e.Alive() {
				stock += e.Resources.Get(r)
			}
		}
		target := float64(rs.Market.TargetStock[r] * int64(max(alive, 1)))
		p := m.Prices[r]
		if target > 0 {
			pressure := (target - float64(stock)) / target
			p *= 1 + rs.Market.Elasticity*max(-1, min(1, pressure))
		}
		p *= 1 + stream.Range(-rs.Market.Noise, rs.Market.Noise)
		m.Prices[r] = max(rs.Market.MinPrice, min(rs.Market.MaxPrice, p))
	}
}

type TradeResult struct {
	Resource empire.ResourceType `json:"resource"`
	Quantity int64               `json:"quantity"`
	Sell     bool                `json:"sell"`
	Price    float64             `json:"price"`
	Credits  int64               `json:"credits"`
}

// Trade buys or sells quantity units of a resource against credits.
func Trade(e *empire.Empire, m Market, r empire.ResourceType, quantity int64, sell bool, rs *ruleset.Ruleset) (TradeResult, error) {
	if _, ok := m.Prices[r]; !ok {
		return TradeResult{}, errors.Validationf("resource %q is not traded", r)
	}
	if quantity <= 0 {
		return TradeResult{}, errors.Validation("trade quantity must be positive")
	}

	res := TradeResult{Resource: r, Quantity: quantity, Sell: sell}
	if sell {
		if e.Resources.Get(r) < quantity {
			return TradeResult{}, errors.Preconditionf("insufficient %s: have %d, need %d", r, e.Resources.Get(r), quantity)
		}
		res.Price = m.SellPrice(r, rs)
		res.Credits = round(float64(quantity) * res.Price)
		e.Resources.Add(r, -quantity)
		e.Resources.Credits += res.Credits
		return res, nil
	}

	res.Price = m.BuyPrice(r, rs)
	res.Credits = round(float64(quantity) * res.Price)
	if e.Resources.Credits < res.Credits {
		return TradeResult{}, errors.Preconditionf("insufficient credits: have %d, need %d", e.Resources.Credits, res.Credits)
	}
	e.Resources.Credits -= res.Credits
	e.Resources.Add(r, quantity)
	return res, nil
}
