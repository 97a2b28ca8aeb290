package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	catalogrepo "github.com/mannyc2/watchify-app-sub000/internal/data/repos/catalog"
	"github.com/mannyc2/watchify-app-sub000/internal/domain/catalog"
	"github.com/mannyc2/watchify-app-sub000/internal/pkg/dbctx"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/logger"
)

// NotificationTier is the interruption level a delivery is tagged with.
type NotificationTier string

const (
	TierHigh   NotificationTier = "high"
	TierNormal NotificationTier = "normal"
	TierLow    NotificationTier = "low"
)

var tierRank = map[NotificationTier]int{TierLow: 1, TierNormal: 2, TierHigh: 3}

// NotificationSink is the external delivery collaborator. The source id
// doubles as the client-side thread grouping key.
type NotificationSink interface {
	Deliver(sourceID uuid.UUID, title, body string, tier NotificationTier)
}

// NotifierService turns raw change events into at most one notification per
// source, filtered by user preferences.
type NotifierService interface {
	Notify(ctx context.Context, events []catalog.ChangeEventView)
}

type notifierService struct {
	log     *logger.Logger
	sources catalogrepo.SourceRepo
	prefs   PreferencesService
	sink    NotificationSink
}

func NewNotifierService(baseLog *logger.Logger, sources catalogrepo.SourceRepo, prefs PreferencesService, sink NotificationSink) NotifierService {
	return &notifierService{
		log:     baseLog.With("service", "NotifierService"),
		sources: sources,
		prefs:   prefs,
		sink:    sink,
	}
}

func (n *notifierService) Notify(ctx context.Context, events []catalog.ChangeEventView) {
	if len(events) == 0 {
		return
	}

	grouped := map[uuid.UUID][]catalog.ChangeEventView{}
	var order []uuid.UUID
	for _, e := range events {
		if _, seen := grouped[e.SourceID]; !seen {
			order = append(order, e.SourceID)
		}
		grouped[e.SourceID] = append(grouped[e.SourceID], e)
	}

	for _, sourceID := range order {
		surviving := n.filter(grouped[sourceID])
		if len(surviving) == 0 {
			continue
		}
		title := n.sourceTitle(ctx, sourceID)
		body := summarize(surviving)
		tier := groupTier(surviving)
		n.log.Debug("Delivering notification", "source_id", sourceID, "events", len(surviving), "tier", tier)
		n.sink.Deliver(sourceID, title, body, tier)
	}
}

// filter applies per-type enable flags, then the price threshold: non-price
// types always pass; price types pass on the absolute dollar move or on the
// magnitude bucket (the percentage proxy).
func (n *notifierService) filter(events []catalog.ChangeEventView) []catalog.ChangeEventView {
	var out []catalog.ChangeEventView
	dollar := n.prefs.PriceDollarThreshold()
	minMag := n.prefs.MinPriceMagnitude()
	for _, e := range events {
		if !n.prefs.ChangeTypeEnabled(e.ChangeType) {
			continue
		}
		if e.ChangeType.IsPriceChange() {
			passDollar := e.PriceChange != nil && !dollar.IsZero() && e.PriceChange.Abs().GreaterThanOrEqual(dollar)
			passMagnitude := e.Magnitude.AtLeast(minMag)
			if !passDollar && !passMagnitude {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// eventTier maps one event to its interruption level.
func eventTier(e catalog.ChangeEventView) NotificationTier {
	switch e.ChangeType {
	case catalog.ChangeTypeBackInStock:
		return TierHigh
	case catalog.ChangeTypePriceDropped:
		switch e.Magnitude {
		case catalog.MagnitudeLarge:
			return TierHigh
		case catalog.MagnitudeMedium:
			return TierNormal
		default:
			return TierLow
		}
	case catalog.ChangeTypeImagesChanged:
		return TierLow
	default:
		// Price increases and lifecycle/stock events.
		return TierNormal
	}
}

func groupTier(events []catalog.ChangeEventView) NotificationTier {
	best := TierLow
	for _, e := range events {
		if t := eventTier(e); tierRank[t] > tierRank[best] {
			best = t
		}
	}
	return best
}

// summarize joins per-type counts into a line like
// "3 price drops, 1 back in stock".
func summarize(events []catalog.ChangeEventView) string {
	counts := map[catalog.ChangeType]int{}
	for _, e := range events {
		counts[e.ChangeType]++
	}

	ordered := []catalog.ChangeType{
		catalog.ChangeTypePriceDropped,
		catalog.ChangeTypeBackInStock,
		catalog.ChangeTypePriceIncreased,
		catalog.ChangeTypeOutOfStock,
		catalog.ChangeTypeNewProduct,
		catalog.ChangeTypeProductRemoved,
		catalog.ChangeTypeImagesChanged,
	}

	var parts []string
	for _, t := range ordered {
		if n := counts[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, changeTypeLabel(t, n)))
		}
	}
	return strings.Join(parts, ", ")
}

func changeTypeLabel(t catalog.ChangeType, n int) string {
	plural := n != 1
	switch t {
	case catalog.ChangeTypePriceDropped:
		if plural {
			return "price drops"
		}
		return "price drop"
	case catalog.ChangeTypePriceIncreased:
		if plural {
			return "price increases"
		}
		return "price increase"
	case catalog.ChangeTypeBackInStock:
		return "back in stock"
	case catalog.ChangeTypeOutOfStock:
		return "out of stock"
	case catalog.ChangeTypeNewProduct:
		if plural {
			return "new products"
		}
		return "new product"
	case catalog.ChangeTypeProductRemoved:
		if plural {
			return "removed products"
		}
		return "removed product"
	case catalog.ChangeTypeImagesChanged:
		if plural {
			return "image updates"
		}
		return "image update"
	default:
		return string(t)
	}
}

func (n *notifierService) sourceTitle(ctx context.Context, sourceID uuid.UUID) string {
	src, err := n.sources.GetByID(dbctx.New(ctx), sourceID)
	if err != nil || src == nil {
		return "Store update"
	}
	if src.Name != "" {
		return src.Name
	}
	return src.Domain
}
