package barcode

import (
	"context"
	"fmt"
	"testing"

	"github.com/okanvural/pickflow-backend/pkg/config"
	"github.com/okanvural/pickflow-backend/pkg/db/models"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubAliasSource struct {
	aliases map[string][]models.BarcodeAlias
	calls   int
	err     error
}

func (s *stubAliasSource) FindByBarcode(ctx context.Context, barcode string) ([]models.BarcodeAlias, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.aliases[barcode], nil
}

type memoryResolveCache struct {
	entries map[string]Resolution
	getErr  error
	sets    int
}

func (c *memoryResolveCache) key(orderID uuid.UUID, rawCode string) string {
	return orderID.String() + "|" + rawCode
}

func (c *memoryResolveCache) GetResolution(ctx context.Context, orderID uuid.UUID, rawCode string) (*Resolution, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	if res, ok := c.entries[c.key(orderID, rawCode)]; ok {
		return &res, nil
	}
	return nil, nil
}

func (c *memoryResolveCache) SetResolution(ctx context.Context, orderID uuid.UUID, rawCode string, res Resolution) error {
	if c.entries == nil {
		c.entries = make(map[string]Resolution)
	}
	c.entries[c.key(orderID, rawCode)] = res
	c.sets++
	return nil
}

func scannerConfigFixture() config.ScannerConfig {
	return config.ScannerConfig{
		WarehousePrefixes: map[string]string{"D1-": "0", "D3-": "1", "D4-": "2", "D5-": "3"},
		MinCodeLength:     2,
	}
}

func candidateLines() []models.OrderLine {
	return []models.OrderLine{
		{ID: uuid.New(), ItemCode: "STK-100", WarehouseID: "0", QtyOrdered: decimal.NewFromInt(4)},
		{ID: uuid.New(), ItemCode: "STK-200", WarehouseID: "1", QtyOrdered: decimal.NewFromInt(10)},
	}
}

func newTestResolver(t *testing.T, aliases *stubAliasSource, cache ResolveCache) *Resolver {
	t.Helper()
	if cache == nil {
		cache = &memoryResolveCache{}
	}
	resolver, err := NewResolver(aliases, cache, scannerConfigFixture(), nil)
	if err != nil {
		t.Fatalf("resolver constructor failed: %v", err)
	}
	return resolver
}

func TestResolveExactBeatsAlias(t *testing.T) {
	scope := "0"
	aliases := &stubAliasSource{aliases: map[string][]models.BarcodeAlias{
		"STK-100": {{Barcode: "STK-100", ItemCode: "STK-200", WarehouseID: &scope, Multiplier: decimal.NewFromInt(24)}},
	}}
	resolver := newTestResolver(t, aliases, nil)

	res, err := resolver.Resolve(context.Background(), uuid.New(), "stk-100", candidateLines())
	if err != nil {
		t.Fatalf("expected match got %v", err)
	}
	if res.ItemCode != "STK-100" || res.Rule != RuleExact {
		t.Fatalf("expected exact match on STK-100 got %+v", res)
	}
	if !res.Multiplier.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("exact match must carry multiplier 1 got %s", res.Multiplier)
	}
	if aliases.calls != 0 {
		t.Fatalf("exact match must not consult the alias table, got %d calls", aliases.calls)
	}
}

func TestResolveWarehousePrefixStrip(t *testing.T) {
	resolver := newTestResolver(t, &stubAliasSource{}, nil)

	res, err := resolver.Resolve(context.Background(), uuid.New(), "D3-STK-200", candidateLines())
	if err != nil {
		t.Fatalf("expected match got %v", err)
	}
	if res.ItemCode != "STK-200" || res.Rule != RuleWarehousePrefix {
		t.Fatalf("expected prefix match on STK-200 got %+v", res)
	}
}

func TestResolveWrongWarehouseGuard(t *testing.T) {
	aliases := &stubAliasSource{aliases: map[string][]models.BarcodeAlias{
		"D4-STK-100": {{Barcode: "D4-STK-100", ItemCode: "STK-100", Multiplier: decimal.NewFromInt(1)}},
	}}
	resolver := newTestResolver(t, aliases, nil)

	_, err := resolver.Resolve(context.Background(), uuid.New(), "D4-STK-100", candidateLines())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeWrongWarehouse {
		t.Fatalf("expected wrong warehouse got %v", err)
	}
	if aliases.calls != 0 {
		t.Fatal("guard must fire before any alias lookup")
	}
}

func TestResolveAliasScopedBeforeUnscoped(t *testing.T) {
	scope := "1"
	aliases := &stubAliasSource{aliases: map[string][]models.BarcodeAlias{
		"5901234123457": {
			{Barcode: "5901234123457", ItemCode: "STK-100", Multiplier: decimal.NewFromInt(12)},
			{Barcode: "5901234123457", ItemCode: "STK-200", WarehouseID: &scope, Multiplier: decimal.NewFromInt(6)},
		},
	}}
	resolver := newTestResolver(t, aliases, nil)

	res, err := resolver.Resolve(context.Background(), uuid.New(), "5901234123457", candidateLines())
	if err != nil {
		t.Fatalf("expected match got %v", err)
	}
	if res.ItemCode != "STK-200" || res.Rule != RuleAlias {
		t.Fatalf("expected scoped alias to win got %+v", res)
	}
	if !res.Multiplier.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected multiplier 6 got %s", res.Multiplier)
	}
}

func TestResolveAliasUnscopedFallback(t *testing.T) {
	other := "9"
	aliases := &stubAliasSource{aliases: map[string][]models.BarcodeAlias{
		"BOX-1": {
			{Barcode: "BOX-1", ItemCode: "STK-100", WarehouseID: &other, Multiplier: decimal.NewFromInt(2)},
			{Barcode: "BOX-1", ItemCode: "STK-100", Multiplier: decimal.NewFromInt(12)},
		},
	}}
	resolver := newTestResolver(t, aliases, nil)

	res, err := resolver.Resolve(context.Background(), uuid.New(), "BOX-1", candidateLines())
	if err != nil {
		t.Fatalf("expected match got %v", err)
	}
	if !res.Multiplier.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("expected unscoped alias multiplier 12 got %s", res.Multiplier)
	}
}

func TestResolveAliasTargetMustBeCandidate(t *testing.T) {
	aliases := &stubAliasSource{aliases: map[string][]models.BarcodeAlias{
		"BOX-2": {{Barcode: "BOX-2", ItemCode: "STK-999", Multiplier: decimal.NewFromInt(4)}},
	}}
	resolver := newTestResolver(t, aliases, nil)

	_, err := resolver.Resolve(context.Background(), uuid.New(), "BOX-2", candidateLines())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNoMatch {
		t.Fatalf("expected no match got %v", err)
	}
}

func TestResolveCompositeRetriesAliasOnLeadingSegment(t *testing.T) {
	aliases := &stubAliasSource{aliases: map[string][]models.BarcodeAlias{
		"STK-778": {{Barcode: "STK-778", ItemCode: "STK-100", Multiplier: decimal.NewFromInt(3)}},
	}}
	resolver := newTestResolver(t, aliases, nil)

	res, err := resolver.Resolve(context.Background(), uuid.New(), "STK-778/BX-K3", candidateLines())
	if err != nil {
		t.Fatalf("expected match got %v", err)
	}
	if res.Rule != RuleCompositeAlias || res.ItemCode != "STK-100" {
		t.Fatalf("expected composite alias match got %+v", res)
	}
	if !res.Multiplier.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected multiplier 3 got %s", res.Multiplier)
	}
}

func TestResolveNoMatch(t *testing.T) {
	resolver := newTestResolver(t, &stubAliasSource{}, nil)

	_, err := resolver.Resolve(context.Background(), uuid.New(), "UNKNOWN-CODE", candidateLines())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNoMatch {
		t.Fatalf("expected no match got %v", err)
	}
}

func TestResolveValidation(t *testing.T) {
	resolver := newTestResolver(t, &stubAliasSource{}, nil)

	for _, raw := range []string{"x", "STK 100", "STK#100", " "} {
		_, err := resolver.Resolve(context.Background(), uuid.New(), raw, candidateLines())
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %q got %v", raw, err)
		}
	}
}

func TestResolveUsesCache(t *testing.T) {
	aliases := &stubAliasSource{aliases: map[string][]models.BarcodeAlias{
		"BOX-1": {{Barcode: "BOX-1", ItemCode: "STK-100", Multiplier: decimal.NewFromInt(12)}},
	}}
	cache := &memoryResolveCache{}
	resolver := newTestResolver(t, aliases, cache)
	orderID := uuid.New()

	first, err := resolver.Resolve(context.Background(), orderID, "BOX-1", candidateLines())
	if err != nil {
		t.Fatalf("expected match got %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("expected one cache write got %d", cache.sets)
	}

	second, err := resolver.Resolve(context.Background(), orderID, "box-1", candidateLines())
	if err != nil {
		t.Fatalf("expected cached match got %v", err)
	}
	if aliases.calls != 1 {
		t.Fatalf("expected single alias lookup got %d", aliases.calls)
	}
	if second.ItemCode != first.ItemCode || !second.Multiplier.Equal(first.Multiplier) {
		t.Fatalf("cache returned different resolution: %+v vs %+v", second, first)
	}
}

func TestResolveSurvivesCacheReadFailure(t *testing.T) {
	aliases := &stubAliasSource{aliases: map[string][]models.BarcodeAlias{
		"BOX-1": {{Barcode: "BOX-1", ItemCode: "STK-100", Multiplier: decimal.NewFromInt(12)}},
	}}
	cache := &memoryResolveCache{getErr: fmt.Errorf("redis gone")}
	resolver := newTestResolver(t, aliases, cache)

	res, err := resolver.Resolve(context.Background(), uuid.New(), "BOX-1", candidateLines())
	if err != nil {
		t.Fatalf("cache failure must not fail the resolve, got %v", err)
	}
	if res.ItemCode != "STK-100" {
		t.Fatalf("unexpected resolution %+v", res)
	}
}

func TestResolveNoMatchNotCached(t *testing.T) {
	aliases := &stubAliasSource{}
	cache := &memoryResolveCache{}
	resolver := newTestResolver(t, aliases, cache)
	orderID := uuid.New()

	_, err := resolver.Resolve(context.Background(), orderID, "UNKNOWN-1", candidateLines())
	if pkgerrors.As(err) == nil {
		t.Fatalf("expected typed error got %v", err)
	}
	if cache.sets != 0 {
		t.Fatal("failed resolutions must not be cached")
	}

	// A new alias becomes visible on the next scan of the same code.
	aliases.aliases = map[string][]models.BarcodeAlias{
		"UNKNOWN-1": {{Barcode: "UNKNOWN-1", ItemCode: "STK-100", Multiplier: decimal.NewFromInt(1)}},
	}
	res, err := resolver.Resolve(context.Background(), orderID, "UNKNOWN-1", candidateLines())
	if err != nil {
		t.Fatalf("expected match after alias insert got %v", err)
	}
	if res.Rule != RuleAlias {
		t.Fatalf("expected alias rule got %+v", res)
	}
}
