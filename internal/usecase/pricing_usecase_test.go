package usecase_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/usecase"
	"github.com/iho/numrent/internal/usecase/mocks"
)

func TestPricingUseCase_Quote(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	issuer := mocks.NewMockNumberIssuer(ctrl)
	config := mocks.NewMockPricingConfigSource(ctrl)

	cfg := &domain.PricingConfig{
		MarkupPercentage: dec("30"),
		ExchangeRate:     dec("1600"),
		Overrides:        domain.PriceOverrides{domain.NewRouteService("0", "wa"): "0.99"},
	}
	config.EXPECT().Snapshot(gomock.Any()).Return(cfg, nil).Times(2)
	issuer.EXPECT().Quote(gomock.Any(), "0", "tg").Return(dec("0.20"), nil)
	issuer.EXPECT().Quote(gomock.Any(), "0", "wa").Return(dec("0.20"), nil)

	uc := usecase.NewPricingUseCase(issuer, config)

	quote, err := uc.Quote(context.Background(), "0", "TG")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertDecimal(t, "price", "0.26", quote.Price)
	assertDecimal(t, "secondary price", "416", quote.PriceSecondary)
	if quote.IsOverride {
		t.Error("expected markup price")
	}

	quote, err = uc.Quote(context.Background(), "0", "wa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertDecimal(t, "price", "0.99", quote.Price)
	if !quote.IsOverride {
		t.Error("expected override price")
	}
}

func TestPricingUseCase_Quote_ReadsConfigEveryCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	issuer := mocks.NewMockNumberIssuer(ctrl)
	config := mocks.NewMockPricingConfigSource(ctrl)

	gomock.InOrder(
		config.EXPECT().Snapshot(gomock.Any()).Return(&domain.PricingConfig{MarkupPercentage: dec("30"), ExchangeRate: dec("1600")}, nil),
		config.EXPECT().Snapshot(gomock.Any()).Return(&domain.PricingConfig{MarkupPercentage: dec("50"), ExchangeRate: dec("1600")}, nil),
	)
	issuer.EXPECT().Quote(gomock.Any(), "0", "wa").Return(dec("0.20"), nil).Times(2)

	uc := usecase.NewPricingUseCase(issuer, config)

	first, err := uc.Quote(context.Background(), "0", "wa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := uc.Quote(context.Background(), "0", "wa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertDecimal(t, "first price", "0.26", first.Price)
	assertDecimal(t, "second price", "0.30", second.Price)
}

func TestPricingUseCase_Quote_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	issuer := mocks.NewMockNumberIssuer(ctrl)
	config := mocks.NewMockPricingConfigSource(ctrl)
	uc := usecase.NewPricingUseCase(issuer, config)

	if _, err := uc.Quote(context.Background(), "", "wa"); !errors.Is(err, domain.ErrInvalidRoute) {
		t.Errorf("expected ErrInvalidRoute, got %v", err)
	}

	config.EXPECT().Snapshot(gomock.Any()).Return(nil, errors.New("redis down"))
	if _, err := uc.Quote(context.Background(), "0", "wa"); !errors.Is(err, domain.ErrPricingConfigUnavailable) {
		t.Errorf("expected ErrPricingConfigUnavailable, got %v", err)
	}

	config.EXPECT().Snapshot(gomock.Any()).Return(&domain.PricingConfig{MarkupPercentage: dec("30")}, nil)
	issuer.EXPECT().Quote(gomock.Any(), "0", "wa").Return(dec("0"), domain.ErrNumberUnavailable)
	if _, err := uc.Quote(context.Background(), "0", "wa"); !errors.Is(err, domain.ErrNumberUnavailable) {
		t.Errorf("expected ErrNumberUnavailable, got %v", err)
	}
}
