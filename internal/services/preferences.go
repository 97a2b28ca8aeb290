package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mannyc2/watchify-app-sub000/internal/domain/catalog"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/envutil"
)

// PreferencesService is the read-only view of user notification and
// maintenance settings the sync core consumes.
type PreferencesService interface {
	ChangeTypeEnabled(t catalog.ChangeType) bool
	// PriceDollarThreshold is the absolute price move that always notifies.
	PriceDollarThreshold() decimal.Decimal
	// MinPriceMagnitude is the coarse percentage tier a price event must hit
	// when it misses the dollar threshold. Magnitude is a bucket proxy, not
	// an exact percentage.
	MinPriceMagnitude() catalog.Magnitude
	RetentionDays() int
	SyncIntervalMinutes() int
}

type envPreferences struct {
	disabled        map[catalog.ChangeType]bool
	dollarThreshold decimal.Decimal
	minMagnitude    catalog.Magnitude
	retentionDays   int
	intervalMinutes int
}

// NewEnvPreferences reads settings once from the environment.
// NOTIFY_DISABLED_TYPES is a comma-separated list of change type names.
func NewEnvPreferences() PreferencesService {
	p := &envPreferences{
		disabled:        map[catalog.ChangeType]bool{},
		dollarThreshold: decimal.NewFromInt(int64(envutil.Int("NOTIFY_PRICE_DOLLAR_THRESHOLD", 0))),
		minMagnitude:    catalog.Magnitude(envutil.String("NOTIFY_MIN_PRICE_MAGNITUDE", string(catalog.MagnitudeSmall))),
		retentionDays:   envutil.Int("RETENTION_DAYS", 90),
		intervalMinutes: envutil.Int("SYNC_INTERVAL_MINUTES", 60),
	}
	for _, name := range strings.Split(envutil.String("NOTIFY_DISABLED_TYPES", ""), ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			p.disabled[catalog.ChangeType(name)] = true
		}
	}
	return p
}

func (p *envPreferences) ChangeTypeEnabled(t catalog.ChangeType) bool {
	return !p.disabled[t]
}

func (p *envPreferences) PriceDollarThreshold() decimal.Decimal { return p.dollarThreshold }
func (p *envPreferences) MinPriceMagnitude() catalog.Magnitude  { return p.minMagnitude }
func (p *envPreferences) RetentionDays() int                    { return p.retentionDays }
func (p *envPreferences) SyncIntervalMinutes() int              { return p.intervalMinutes }
