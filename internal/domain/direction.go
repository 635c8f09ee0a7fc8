package domain

// Direction represents the trade side announced by a signal.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// String returns the string representation of Direction.
func (d Direction) String() string {
	return string(d)
}

// IsValid checks if the direction is a known value. Empty means unset.
func (d Direction) IsValid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// RiskLevel classifies how risky the author declares a signal to be.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// DefaultRiskLevel is applied when no risk keyword is present.
const DefaultRiskLevel = RiskMedium

// IsValid checks if the risk level is a known value.
func (r RiskLevel) IsValid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// Category classifies the asset class a signal refers to.
type Category string

const (
	CategoryCrypto     Category = "Crypto"
	CategoryStocks     Category = "Stocks"
	CategoryRealEstate Category = "RealEstate"
	CategoryStartups   Category = "Startups"
	CategoryOther      Category = "Other"
)

// DefaultCategory is applied when no category keyword is present.
const DefaultCategory = CategoryOther

// IsValid checks if the category is a known value.
func (c Category) IsValid() bool {
	switch c {
	case CategoryCrypto, CategoryStocks, CategoryRealEstate, CategoryStartups, CategoryOther:
		return true
	}
	return false
}
