package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mannyc2/watchify-app-sub000/internal/data/repos/testutil"
	"github.com/mannyc2/watchify-app-sub000/internal/domain/catalog"
	"github.com/mannyc2/watchify-app-sub000/internal/pkg/dbctx"
)

type fakeSourceRepo struct {
	sources map[uuid.UUID]*catalog.Source
}

func (f *fakeSourceRepo) Create(dbc dbctx.Context, row *catalog.Source) error { return nil }
func (f *fakeSourceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*catalog.Source, error) {
	return f.sources[id], nil
}
func (f *fakeSourceRepo) GetByDomain(dbc dbctx.Context, domain string) (*catalog.Source, error) {
	return nil, nil
}
func (f *fakeSourceRepo) List(dbc dbctx.Context) ([]*catalog.Source, error) { return nil, nil }
func (f *fakeSourceRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}
func (f *fakeSourceRepo) Delete(dbc dbctx.Context, id uuid.UUID) error { return nil }

type fakePrefs struct {
	disabled map[catalog.ChangeType]bool
	dollar   decimal.Decimal
	minMag   catalog.Magnitude
}

func (p *fakePrefs) ChangeTypeEnabled(t catalog.ChangeType) bool { return !p.disabled[t] }
func (p *fakePrefs) PriceDollarThreshold() decimal.Decimal       { return p.dollar }
func (p *fakePrefs) MinPriceMagnitude() catalog.Magnitude        { return p.minMag }
func (p *fakePrefs) RetentionDays() int                          { return 90 }
func (p *fakePrefs) SyncIntervalMinutes() int                    { return 60 }

type delivery struct {
	sourceID uuid.UUID
	title    string
	body     string
	tier     NotificationTier
}

type fakeSink struct {
	deliveries []delivery
}

func (s *fakeSink) Deliver(sourceID uuid.UUID, title, body string, tier NotificationTier) {
	s.deliveries = append(s.deliveries, delivery{sourceID, title, body, tier})
}

func priceDropView(sourceID uuid.UUID, delta string, mag catalog.Magnitude) catalog.ChangeEventView {
	d := decimal.RequireFromString(delta)
	return catalog.ChangeEventView{
		ID:           uuid.New(),
		SourceID:     sourceID,
		OccurredAt:   time.Now(),
		ChangeType:   catalog.ChangeTypePriceDropped,
		ProductTitle: "Shirt",
		PriceChange:  &d,
		Magnitude:    mag,
	}
}

func eventView(sourceID uuid.UUID, t catalog.ChangeType) catalog.ChangeEventView {
	return catalog.ChangeEventView{
		ID:           uuid.New(),
		SourceID:     sourceID,
		OccurredAt:   time.Now(),
		ChangeType:   t,
		ProductTitle: "Shirt",
	}
}

func newTestNotifier(t *testing.T, prefs PreferencesService, sink NotificationSink, repo *fakeSourceRepo) NotifierService {
	t.Helper()
	if repo == nil {
		repo = &fakeSourceRepo{sources: map[uuid.UUID]*catalog.Source{}}
	}
	return NewNotifierService(testutil.Logger(t), repo, prefs, sink)
}

func TestNotifyGroupsPerSource(t *testing.T) {
	srcA, srcB := uuid.New(), uuid.New()
	sink := &fakeSink{}
	svc := newTestNotifier(t, &fakePrefs{}, sink, nil)

	svc.Notify(context.Background(), []catalog.ChangeEventView{
		eventView(srcA, catalog.ChangeTypeBackInStock),
		eventView(srcB, catalog.ChangeTypeNewProduct),
		eventView(srcA, catalog.ChangeTypeOutOfStock),
	})

	if len(sink.deliveries) != 2 {
		t.Fatalf("deliveries: want one per source (2), got %d", len(sink.deliveries))
	}
	if sink.deliveries[0].sourceID != srcA || sink.deliveries[1].sourceID != srcB {
		t.Fatalf("delivery order should follow first appearance: %v then %v", sink.deliveries[0].sourceID, sink.deliveries[1].sourceID)
	}
}

func TestNotifyDisabledTypesAreDropped(t *testing.T) {
	src := uuid.New()
	sink := &fakeSink{}
	prefs := &fakePrefs{disabled: map[catalog.ChangeType]bool{catalog.ChangeTypeImagesChanged: true}}
	svc := newTestNotifier(t, prefs, sink, nil)

	svc.Notify(context.Background(), []catalog.ChangeEventView{
		eventView(src, catalog.ChangeTypeImagesChanged),
	})

	if len(sink.deliveries) != 0 {
		t.Fatalf("fully filtered group must not deliver, got %d deliveries", len(sink.deliveries))
	}
}

func TestNotifyPriceThresholdDollarOrMagnitude(t *testing.T) {
	src := uuid.New()

	cases := []struct {
		name    string
		prefs   *fakePrefs
		event   catalog.ChangeEventView
		deliver bool
	}{
		{
			name:    "passes on dollar move despite small magnitude",
			prefs:   &fakePrefs{dollar: decimal.NewFromInt(10), minMag: catalog.MagnitudeLarge},
			event:   priceDropView(src, "-15.00", catalog.MagnitudeSmall),
			deliver: true,
		},
		{
			name:    "passes on magnitude despite small dollar move",
			prefs:   &fakePrefs{dollar: decimal.NewFromInt(50), minMag: catalog.MagnitudeMedium},
			event:   priceDropView(src, "-3.00", catalog.MagnitudeMedium),
			deliver: true,
		},
		{
			name:    "fails both thresholds",
			prefs:   &fakePrefs{dollar: decimal.NewFromInt(50), minMag: catalog.MagnitudeLarge},
			event:   priceDropView(src, "-3.00", catalog.MagnitudeSmall),
			deliver: false,
		},
		{
			name:    "zero dollar threshold falls back to magnitude only",
			prefs:   &fakePrefs{minMag: catalog.MagnitudeLarge},
			event:   priceDropView(src, "-500.00", catalog.MagnitudeSmall),
			deliver: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sink := &fakeSink{}
			svc := newTestNotifier(t, tc.prefs, sink, nil)
			svc.Notify(context.Background(), []catalog.ChangeEventView{tc.event})
			if got := len(sink.deliveries) > 0; got != tc.deliver {
				t.Fatalf("deliver: want=%v got=%v", tc.deliver, got)
			}
		})
	}
}

func TestNotifyNonPriceTypesBypassThresholds(t *testing.T) {
	src := uuid.New()
	sink := &fakeSink{}
	prefs := &fakePrefs{dollar: decimal.NewFromInt(1000), minMag: catalog.MagnitudeLarge}
	svc := newTestNotifier(t, prefs, sink, nil)

	svc.Notify(context.Background(), []catalog.ChangeEventView{
		eventView(src, catalog.ChangeTypeBackInStock),
	})

	if len(sink.deliveries) != 1 {
		t.Fatalf("availability events ignore price thresholds, got %d deliveries", len(sink.deliveries))
	}
}

func TestNotifyTierIsGroupMaximum(t *testing.T) {
	src := uuid.New()
	sink := &fakeSink{}
	svc := newTestNotifier(t, &fakePrefs{}, sink, nil)

	svc.Notify(context.Background(), []catalog.ChangeEventView{
		eventView(src, catalog.ChangeTypeImagesChanged), // low
		eventView(src, catalog.ChangeTypeBackInStock),   // high
	})

	if len(sink.deliveries) != 1 || sink.deliveries[0].tier != TierHigh {
		t.Fatalf("group tier should be the max of its events, got %+v", sink.deliveries)
	}
}

func TestEventTier(t *testing.T) {
	cases := []struct {
		event catalog.ChangeEventView
		want  NotificationTier
	}{
		{eventView(uuid.Nil, catalog.ChangeTypeBackInStock), TierHigh},
		{priceDropView(uuid.Nil, "-50.00", catalog.MagnitudeLarge), TierHigh},
		{priceDropView(uuid.Nil, "-20.00", catalog.MagnitudeMedium), TierNormal},
		{priceDropView(uuid.Nil, "-1.00", catalog.MagnitudeSmall), TierLow},
		{eventView(uuid.Nil, catalog.ChangeTypePriceIncreased), TierNormal},
		{eventView(uuid.Nil, catalog.ChangeTypeImagesChanged), TierLow},
		{eventView(uuid.Nil, catalog.ChangeTypeNewProduct), TierNormal},
	}
	for _, tc := range cases {
		if got := eventTier(tc.event); got != tc.want {
			t.Errorf("eventTier(%s/%s): want=%q got=%q", tc.event.ChangeType, tc.event.Magnitude, tc.want, got)
		}
	}
}

func TestSummarize(t *testing.T) {
	src := uuid.New()
	events := []catalog.ChangeEventView{
		priceDropView(src, "-5.00", catalog.MagnitudeSmall),
		priceDropView(src, "-6.00", catalog.MagnitudeSmall),
		priceDropView(src, "-7.00", catalog.MagnitudeSmall),
		eventView(src, catalog.ChangeTypeBackInStock),
	}
	if got, want := summarize(events), "3 price drops, 1 back in stock"; got != want {
		t.Fatalf("summary: want=%q got=%q", want, got)
	}

	single := []catalog.ChangeEventView{priceDropView(src, "-5.00", catalog.MagnitudeSmall)}
	if got, want := summarize(single), "1 price drop"; got != want {
		t.Fatalf("singular summary: want=%q got=%q", want, got)
	}
}

func TestNotifyTitlePrefersSourceName(t *testing.T) {
	src := uuid.New()
	repo := &fakeSourceRepo{sources: map[uuid.UUID]*catalog.Source{
		src: {ID: src, Name: "Acme Outdoor", Domain: "acme.example.com"},
	}}
	sink := &fakeSink{}
	svc := newTestNotifier(t, &fakePrefs{}, sink, repo)

	svc.Notify(context.Background(), []catalog.ChangeEventView{
		eventView(src, catalog.ChangeTypeNewProduct),
	})

	if len(sink.deliveries) != 1 || sink.deliveries[0].title != "Acme Outdoor" {
		t.Fatalf("title should be the source name, got %+v", sink.deliveries)
	}
}
