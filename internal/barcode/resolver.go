package barcode

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/okanvural/pickflow-backend/pkg/config"
	"github.com/okanvural/pickflow-backend/pkg/db/models"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rule names which resolution step produced a match.
type Rule string

const (
	RuleExact           Rule = "exact"
	RuleWarehousePrefix Rule = "warehouse_prefix"
	RuleAlias           Rule = "alias"
	RuleCompositeAlias  Rule = "composite_alias"
)

// Resolution is the outcome of matching a raw barcode against an order's
// candidate lines. ItemCode is always the canonical line item code.
type Resolution struct {
	ItemCode   string          `json:"item_code"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Rule       Rule            `json:"rule"`
}

// ResolveCache stores resolutions per (order, raw code). Get returns nil on
// a miss.
type ResolveCache interface {
	GetResolution(ctx context.Context, orderID uuid.UUID, rawCode string) (*Resolution, error)
	SetResolution(ctx context.Context, orderID uuid.UUID, rawCode string, res Resolution) error
}

// Composite codes look like STOCK/SUFFIX-K3; the leading segment carries the
// stock code the alias table knows.
var compositePattern = regexp.MustCompile(`^([A-Z0-9_-]+)/[A-Z0-9_/-]*-K\d+$`)

type prefixRule struct {
	prefix    string
	warehouse string
}

// Resolver matches raw scanner input to order lines. The prefix map and the
// minimum code length come from the constructor; the resolver reads no
// ambient configuration.
type Resolver struct {
	aliases  AliasSource
	cache    ResolveCache
	prefixes []prefixRule
	minLen   int
	logg     *logger.Logger
}

// NewResolver builds a resolver with the scanner configuration applied.
func NewResolver(aliases AliasSource, cache ResolveCache, cfg config.ScannerConfig, logg *logger.Logger) (*Resolver, error) {
	if aliases == nil {
		return nil, fmt.Errorf("alias source required")
	}
	if cache == nil {
		return nil, fmt.Errorf("resolve cache required")
	}

	prefixes := make([]prefixRule, 0, len(cfg.WarehousePrefixes))
	for prefix, warehouse := range cfg.WarehousePrefixes {
		normalized := strings.ToUpper(strings.TrimSpace(prefix))
		if normalized == "" {
			continue
		}
		prefixes = append(prefixes, prefixRule{prefix: normalized, warehouse: warehouse})
	}
	// Longest prefix wins when one prefix extends another.
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i].prefix) != len(prefixes[j].prefix) {
			return len(prefixes[i].prefix) > len(prefixes[j].prefix)
		}
		return prefixes[i].prefix < prefixes[j].prefix
	})

	minLen := cfg.MinCodeLength
	if minLen <= 0 {
		minLen = 2
	}

	return &Resolver{
		aliases:  aliases,
		cache:    cache,
		prefixes: prefixes,
		minLen:   minLen,
		logg:     logg,
	}, nil
}

// Normalize uppercases and validates raw scanner input.
func (r *Resolver) Normalize(raw string) (string, error) {
	return normalizeCode(raw, r.minLen)
}

// NormalizeCode applies the scanner charset rules outside a resolver, for
// callers that only need the normalized form.
func NormalizeCode(raw string, minLen int) (string, error) {
	return normalizeCode(raw, minLen)
}

func normalizeCode(raw string, minLen int) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) < minLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "scanned code too short")
	}
	for _, ch := range code {
		switch {
		case ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9':
		case ch == '-' || ch == '_' || ch == '/':
		default:
			return "", pkgerrors.New(pkgerrors.CodeValidation, "scanned code has unsupported characters")
		}
	}
	return code, nil
}

// Resolve matches a raw code against the order's candidate lines, first hit
// wins: exact, warehouse-prefix strip, alias, composite alias. A configured
// prefix pointing at a warehouse the order does not use rejects the scan
// before any matching.
func (r *Resolver) Resolve(ctx context.Context, orderID uuid.UUID, rawCode string, lines []models.OrderLine) (*Resolution, error) {
	code, err := r.Normalize(rawCode)
	if err != nil {
		return nil, err
	}

	if rule, ok := r.matchPrefix(code); ok {
		if !hasWarehouse(lines, rule.warehouse) {
			return nil, pkgerrors.New(pkgerrors.CodeWrongWarehouse,
				fmt.Sprintf("code targets warehouse %s, order picks from %s", rule.warehouse, strings.Join(warehouseSet(lines), ",")))
		}
	}

	if cached := r.cachedResolution(ctx, orderID, code); cached != nil {
		return cached, nil
	}

	resolution, err := r.resolve(ctx, code, lines)
	if err != nil {
		return nil, err
	}
	if resolution == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNoMatch, "barcode does not match any line on this order")
	}

	if err := r.cache.SetResolution(ctx, orderID, code, *resolution); err != nil && r.logg != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "barcode resolve cache write failed")
	}
	return resolution, nil
}

func (r *Resolver) resolve(ctx context.Context, code string, lines []models.OrderLine) (*Resolution, error) {
	for _, line := range lines {
		if strings.EqualFold(code, line.ItemCode) {
			return &Resolution{ItemCode: line.ItemCode, Multiplier: decimal.NewFromInt(1), Rule: RuleExact}, nil
		}
	}

	if rule, ok := r.matchPrefix(code); ok {
		remainder := strings.TrimPrefix(code, rule.prefix)
		for _, line := range lines {
			if line.WarehouseID == rule.warehouse && strings.EqualFold(remainder, line.ItemCode) {
				return &Resolution{ItemCode: line.ItemCode, Multiplier: decimal.NewFromInt(1), Rule: RuleWarehousePrefix}, nil
			}
		}
	}

	resolution, err := r.resolveAlias(ctx, code, lines)
	if err != nil || resolution != nil {
		return resolution, err
	}

	if leading, ok := compositeLeading(code); ok {
		resolution, err = r.resolveAlias(ctx, leading, lines)
		if err != nil {
			return nil, err
		}
		if resolution != nil {
			resolution.Rule = RuleCompositeAlias
			return resolution, nil
		}
	}

	return nil, nil
}

// resolveAlias walks the xref rows scoped to each of the order's warehouses
// in sorted order, then the unscoped rows. The alias target must be one of
// the order's candidate lines.
func (r *Resolver) resolveAlias(ctx context.Context, code string, lines []models.OrderLine) (*Resolution, error) {
	aliases, err := r.aliases.FindByBarcode(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "alias lookup")
	}
	if len(aliases) == 0 {
		return nil, nil
	}

	for _, warehouse := range warehouseSet(lines) {
		for _, alias := range aliases {
			if alias.WarehouseID == nil || *alias.WarehouseID != warehouse {
				continue
			}
			if line := matchLine(lines, alias.ItemCode); line != nil {
				return aliasResolution(line.ItemCode, alias.Multiplier), nil
			}
		}
	}
	for _, alias := range aliases {
		if alias.WarehouseID != nil {
			continue
		}
		if line := matchLine(lines, alias.ItemCode); line != nil {
			return aliasResolution(line.ItemCode, alias.Multiplier), nil
		}
	}
	return nil, nil
}

func aliasResolution(itemCode string, multiplier decimal.Decimal) *Resolution {
	if multiplier.LessThanOrEqual(decimal.Zero) {
		multiplier = decimal.NewFromInt(1)
	}
	return &Resolution{ItemCode: itemCode, Multiplier: multiplier, Rule: RuleAlias}
}

func (r *Resolver) cachedResolution(ctx context.Context, orderID uuid.UUID, code string) *Resolution {
	cached, err := r.cache.GetResolution(ctx, orderID, code)
	if err != nil {
		if r.logg != nil {
			r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "barcode resolve cache read failed")
		}
		return nil
	}
	return cached
}

func (r *Resolver) matchPrefix(code string) (prefixRule, bool) {
	for _, rule := range r.prefixes {
		if strings.HasPrefix(code, rule.prefix) && len(code) > len(rule.prefix) {
			return rule, true
		}
	}
	return prefixRule{}, false
}

func compositeLeading(code string) (string, bool) {
	match := compositePattern.FindStringSubmatch(code)
	if match == nil {
		return "", false
	}
	return match[1], true
}

func matchLine(lines []models.OrderLine, itemCode string) *models.OrderLine {
	for i := range lines {
		if strings.EqualFold(lines[i].ItemCode, itemCode) {
			return &lines[i]
		}
	}
	return nil
}

func hasWarehouse(lines []models.OrderLine, warehouse string) bool {
	for _, line := range lines {
		if line.WarehouseID == warehouse {
			return true
		}
	}
	return false
}

func warehouseSet(lines []models.OrderLine) []string {
	seen := make(map[string]struct{}, len(lines))
	warehouses := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.WarehouseID]; ok {
			continue
		}
		seen[line.WarehouseID] = struct{}{}
		warehouses = append(warehouses, line.WarehouseID)
	}
	sort.Strings(warehouses)
	return warehouses
}
