package store

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApplyBuy(t *testing.T) {
	out, err := ApplyBuy(dec("500000"), dec("1.5"), dec("30000.25"), dec("2"))
	if err != nil {
		t.Fatalf("ApplyBuy() error = %v", err)
	}
	if !out.Cost.Equal(dec("60000.5")) {
		t.Errorf("Cost = %s, want 60000.5", out.Cost)
	}
	if !out.CashBefore.Equal(dec("500000")) || !out.CashAfter.Equal(dec("439999.5")) {
		t.Errorf("cash %s -> %s", out.CashBefore, out.CashAfter)
	}
	if !out.HoldingNext.Equal(dec("3.5")) {
		t.Errorf("HoldingNext = %s, want 3.5", out.HoldingNext)
	}
}

func TestApplyBuy_ExactBalance(t *testing.T) {
	out, err := ApplyBuy(dec("100"), decimal.Zero, dec("25"), dec("4"))
	if err != nil {
		t.Fatalf("ApplyBuy() error = %v", err)
	}
	if !out.CashAfter.IsZero() {
		t.Errorf("CashAfter = %s, want 0", out.CashAfter)
	}
}

func TestApplyBuy_Errors(t *testing.T) {
	tests := []struct {
		name     string
		cash     string
		price    string
		quantity string
		want     error
	}{
		{"zero quantity", "100", "1", "0", ErrInvalidQuantity},
		{"negative quantity", "100", "1", "-1", ErrInvalidQuantity},
		{"zero price", "100", "0", "1", ErrPriceUnavailable},
		{"insufficient funds", "100", "50.01", "2", ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyBuy(dec(tt.cash), decimal.Zero, dec(tt.price), dec(tt.quantity))
			if !errors.Is(err, tt.want) {
				t.Errorf("ApplyBuy() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestApplySell(t *testing.T) {
	out, err := ApplySell(dec("1000"), dec("3"), dec("12.5"), dec("2"))
	if err != nil {
		t.Fatalf("ApplySell() error = %v", err)
	}
	if !out.Proceeds.Equal(dec("25")) {
		t.Errorf("Proceeds = %s, want 25", out.Proceeds)
	}
	if !out.CashAfter.Equal(dec("1025")) {
		t.Errorf("CashAfter = %s, want 1025", out.CashAfter)
	}
	if !out.HoldingNext.Equal(dec("1")) {
		t.Errorf("HoldingNext = %s, want 1", out.HoldingNext)
	}
}

func TestApplySell_WholePosition(t *testing.T) {
	out, err := ApplySell(decimal.Zero, dec("0.75"), dec("4"), dec("0.75"))
	if err != nil {
		t.Fatalf("ApplySell() error = %v", err)
	}
	if !out.HoldingNext.IsZero() {
		t.Errorf("HoldingNext = %s, want 0", out.HoldingNext)
	}
	if !out.CashAfter.Equal(dec("3")) {
		t.Errorf("CashAfter = %s, want 3", out.CashAfter)
	}
}

func TestApplySell_Errors(t *testing.T) {
	tests := []struct {
		name     string
		holding  string
		price    string
		quantity string
		want     error
	}{
		{"zero quantity", "1", "1", "0", ErrInvalidQuantity},
		{"more than held", "1", "1", "1.0001", ErrInsufficientHoldings},
		{"no price", "1", "0", "1", ErrPriceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplySell(dec("10"), dec(tt.holding), dec(tt.price), dec(tt.quantity))
			if !errors.Is(err, tt.want) {
				t.Errorf("ApplySell() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPortfolioValue(t *testing.T) {
	wallets := []Wallet{
		{Quantity: dec("2"), Coin: Coin{CurrentPrice: decimal.NewNullDecimal(dec("10.5"))}},
		{Quantity: dec("3"), Coin: Coin{}},
		{Quantity: dec("0.5"), Coin: Coin{CurrentPrice: decimal.NewNullDecimal(dec("4"))}},
	}
	if got := PortfolioValue(wallets); !got.Equal(dec("23")) {
		t.Errorf("PortfolioValue() = %s, want 23", got)
	}
	if got := PortfolioValue(nil); !got.IsZero() {
		t.Errorf("PortfolioValue(nil) = %s, want 0", got)
	}
}

func TestTranslate(t *testing.T) {
	if translate(nil) != nil {
		t.Error("translate(nil) should be nil")
	}
	other := errors.New("boom")
	if translate(other) != other {
		t.Error("unrelated errors should pass through")
	}
}
