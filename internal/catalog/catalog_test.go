package catalog

import (
	"errors"
	"testing"

	"balancehub/internal/config"
)

func testConfig() *config.CatalogConfig {
	return &config.CatalogConfig{
		BalanceType: "Credits",
		Currency:    config.CurrencyConfig{Unit: "$", Decimals: 2},
		Packs: []config.PackConfig{
			{ID: "small", Name: "Small Pack", Size: 10, PriceCents: 500},
			{ID: "large", Name: "Large Pack", Size: 60, PriceCents: 2000},
		},
		Coupons: []config.CouponConfig{
			{Code: "SAVE20", DiscountPercent: 20, ApplicablePacks: []string{"small"}},
			{Code: "HALFOFF", DiscountPercent: 50, ApplicablePacks: []string{"large"}},
		},
	}
}

func mustCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := New(testConfig())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return cat
}

func TestQuote_NoCoupon(t *testing.T) {
	cat := mustCatalog(t)

	pack, charged, err := cat.Quote("small", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if pack.Size != 10 {
		t.Fatalf("expected size 10, got %d", pack.Size)
	}
	if charged != 500 {
		t.Fatalf("expected charged 500, got %d", charged)
	}
}

func TestQuote_ApplicableCoupon(t *testing.T) {
	cat := mustCatalog(t)

	_, charged, err := cat.Quote("small", "SAVE20")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if charged != 400 {
		t.Fatalf("expected charged 400, got %d", charged)
	}
}

func TestQuote_CouponNotApplicable(t *testing.T) {
	cat := mustCatalog(t)

	_, _, err := cat.Quote("large", "SAVE20")
	if !errors.Is(err, ErrCouponNotApplicable) {
		t.Fatalf("expected ErrCouponNotApplicable, got %v", err)
	}
}

func TestQuote_UnknownPack(t *testing.T) {
	cat := mustCatalog(t)

	_, _, err := cat.Quote("no-such-pack", "")
	if !errors.Is(err, ErrUnknownPack) {
		t.Fatalf("expected ErrUnknownPack, got %v", err)
	}
}

func TestQuote_UnknownCoupon(t *testing.T) {
	cat := mustCatalog(t)

	_, _, err := cat.Quote("small", "NOPE")
	if !errors.Is(err, ErrUnknownCoupon) {
		t.Fatalf("expected ErrUnknownCoupon, got %v", err)
	}
}

func TestQuote_RoundsDown(t *testing.T) {
	cfg := testConfig()
	cfg.Packs = append(cfg.Packs, config.PackConfig{ID: "odd", Name: "Odd", Size: 3, PriceCents: 999})
	cfg.Coupons = append(cfg.Coupons, config.CouponConfig{Code: "TEN", DiscountPercent: 10, ApplicablePacks: []string{"odd"}})

	cat, err := New(cfg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// 999 * 90 / 100 = 899.1 -> 899
	_, charged, err := cat.Quote("odd", "TEN")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if charged != 899 {
		t.Fatalf("expected charged 899, got %d", charged)
	}
}

func TestNew_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.CatalogConfig)
	}{
		{"duplicate pack id", func(c *config.CatalogConfig) {
			c.Packs = append(c.Packs, config.PackConfig{ID: "small", Name: "Dup", Size: 1, PriceCents: 1})
		}},
		{"non-positive size", func(c *config.CatalogConfig) {
			c.Packs[0].Size = 0
		}},
		{"negative price", func(c *config.CatalogConfig) {
			c.Packs[0].PriceCents = -1
		}},
		{"discount over 100", func(c *config.CatalogConfig) {
			c.Coupons[0].DiscountPercent = 101
		}},
		{"dangling pack reference", func(c *config.CatalogConfig) {
			c.Coupons[0].ApplicablePacks = []string{"ghost"}
		}},
		{"duplicate coupon code", func(c *config.CatalogConfig) {
			c.Coupons = append(c.Coupons, config.CouponConfig{Code: "SAVE20", DiscountPercent: 5})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			if _, err := New(cfg); err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}

func TestPacksAndCoupons_PreserveOrder(t *testing.T) {
	cat := mustCatalog(t)

	packs := cat.Packs()
	if len(packs) != 2 || packs[0].ID != "small" || packs[1].ID != "large" {
		t.Fatalf("unexpected pack order: %+v", packs)
	}

	coupons := cat.Coupons()
	if len(coupons) != 2 || coupons[0].Code != "SAVE20" || coupons[1].Code != "HALFOFF" {
		t.Fatalf("unexpected coupon order: %+v", coupons)
	}
}

func TestFormatAmount(t *testing.T) {
	cat := mustCatalog(t)

	tests := []struct {
		cents int64
		want  string
	}{
		{500, "$5.00"},
		{400, "$4.00"},
		{1, "$0.01"},
		{0, "$0.00"},
		{12345, "$123.45"},
	}

	for _, tt := range tests {
		if got := cat.FormatAmount(tt.cents); got != tt.want {
			t.Errorf("FormatAmount(%d) = %s, want %s", tt.cents, got, tt.want)
		}
	}
}

func TestFormatAmount_NoDecimals(t *testing.T) {
	cfg := testConfig()
	cfg.Currency = config.CurrencyConfig{Unit: "¥", Decimals: 0}

	cat, err := New(cfg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := cat.FormatAmount(500); got != "¥500" {
		t.Fatalf("expected ¥500, got %s", got)
	}
}
