package store

import (
	"github.com/shopspring/decimal"
)

// BuyOutcome is the ledger effect of a purchase.
type BuyOutcome struct {
	Cost        decimal.Decimal
	CashBefore  decimal.Decimal
	CashAfter   decimal.Decimal
	HoldingNext decimal.Decimal
}

// SellOutcome is the ledger effect of a sale.
type SellOutcome struct {
	Proceeds    decimal.Decimal
	CashBefore  decimal.Decimal
	CashAfter   decimal.Decimal
	HoldingNext decimal.Decimal
}

// ApplyBuy computes a purchase of quantity at price against cash and the
// current holding.
func ApplyBuy(cash, holding, price, quantity decimal.Decimal) (BuyOutcome, error) {
	if !quantity.IsPositive() {
		return BuyOutcome{}, ErrInvalidQuantity
	}
	if !price.IsPositive() {
		return BuyOutcome{}, ErrPriceUnavailable
	}

	cost := quantity.Mul(price)
	if cash.LessThan(cost) {
		return BuyOutcome{}, ErrInsufficientFunds
	}

	return BuyOutcome{
		Cost:        cost,
		CashBefore:  cash,
		CashAfter:   cash.Sub(cost),
		HoldingNext: holding.Add(quantity),
	}, nil
}

// ApplySell computes a sale of quantity at price. HoldingNext is zero when
// the whole position is sold.
func ApplySell(cash, holding, price, quantity decimal.Decimal) (SellOutcome, error) {
	if !quantity.IsPositive() {
		return SellOutcome{}, ErrInvalidQuantity
	}
	if holding.LessThan(quantity) {
		return SellOutcome{}, ErrInsufficientHoldings
	}
	if !price.IsPositive() {
		return SellOutcome{}, ErrPriceUnavailable
	}

	proceeds := quantity.Mul(price)
	return SellOutcome{
		Proceeds:    proceeds,
		CashBefore:  cash,
		CashAfter:   cash.Add(proceeds),
		HoldingNext: holding.Sub(quantity),
	}, nil
}

// PortfolioValue sums quantity × current price over wallets. Coins without
// a price count as zero.
func PortfolioValue(wallets []Wallet) decimal.Decimal {
	total := decimal.Zero
	for _, w := range wallets {
		if w.Coin.CurrentPrice.Valid {
			total = total.Add(w.Quantity.Mul(w.Coin.CurrentPrice.Decimal))
		}
	}
	return total
}
