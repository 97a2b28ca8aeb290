package shopfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/mannyc2/watchify-app-sub000/internal/platform/envutil"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/logger"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/syncerr"
)

// Product is one listing as fetched from a store's feed. These are plain
// values; the sync layer decides what to do with them.
type Product struct {
	ExternalID  string
	Title       string
	Vendor      string
	ProductType string
	ImageURLs   []string
	Variants    []Variant
}

type Variant struct {
	ExternalID     string
	Title          string
	SKU            string
	Price          decimal.Decimal
	CompareAtPrice decimal.NullDecimal
	Available      bool
	Position       int
}

// Client fetches a store's full catalog. Implementations classify transport
// failures into the syncerr taxonomy and perform no retries; retry policy
// belongs to the caller.
type Client interface {
	FetchCatalog(ctx context.Context, domain string) ([]Product, error)
}

type httpClient struct {
	log        *logger.Logger
	httpClient *http.Client
	limiter    *rate.Limiter
	pageSize   int
	maxPages   int
	scheme     string
}

func NewHTTPClient(baseLog *logger.Logger) Client {
	timeout := envutil.Duration("FEED_REQUEST_TIMEOUT", 15*time.Second)
	pageSize := envutil.Int("FEED_PAGE_SIZE", 250)
	// Storefront feeds commonly throttle around 2 req/s per client.
	rps := envutil.Int("FEED_REQUESTS_PER_SECOND", 2)
	return &httpClient{
		log:        baseLog.With("client", "ShopFeedClient"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		pageSize:   pageSize,
		maxPages:   envutil.Int("FEED_MAX_PAGES", 200),
		scheme:     envutil.String("FEED_SCHEME", "https"),
	}
}

type feedVariant struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	SKU            string  `json:"sku"`
	Price          string  `json:"price"`
	CompareAtPrice *string `json:"compare_at_price"`
	Available      bool    `json:"available"`
	Position       int     `json:"position"`
}

type feedImage struct {
	Src string `json:"src"`
}

type feedProduct struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Vendor      string        `json:"vendor"`
	ProductType string        `json:"product_type"`
	Images      []feedImage   `json:"images"`
	Variants    []feedVariant `json:"variants"`
}

type feedPage struct {
	Products []feedProduct `json:"products"`
}

// FetchCatalog walks /products.json page by page until an empty page.
func (c *httpClient) FetchCatalog(ctx context.Context, domain string) ([]Product, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, fmt.Errorf("%w: empty domain", syncerr.ErrInvalidResponse)
	}

	var out []Product
	for page := 1; page <= c.maxPages; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, syncerr.ClassifyTransport(err)
		}
		batch, err := c.fetchPage(ctx, domain, page)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return out, nil
		}
		out = append(out, batch...)
	}
	return nil, fmt.Errorf("%w: feed did not terminate after %d pages", syncerr.ErrInvalidResponse, c.maxPages)
}

func (c *httpClient) fetchPage(ctx context.Context, domain string, page int) ([]Product, error) {
	url := fmt.Sprintf("%s://%s/products.json?limit=%d&page=%d", c.scheme, domain, c.pageSize, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", syncerr.ErrInvalidResponse, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, syncerr.ClassifyTransport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, &syncerr.ServerError{StatusCode: resp.StatusCode}
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d from %s", syncerr.ErrInvalidResponse, resp.StatusCode, domain)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, syncerr.ClassifyTransport(err)
	}

	var parsed feedPage
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: bad feed payload: %v", syncerr.ErrInvalidResponse, err)
	}

	out := make([]Product, 0, len(parsed.Products))
	for _, fp := range parsed.Products {
		p, err := convertProduct(fp)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func convertProduct(fp feedProduct) (Product, error) {
	p := Product{
		ExternalID:  strconv.FormatInt(fp.ID, 10),
		Title:       fp.Title,
		Vendor:      fp.Vendor,
		ProductType: fp.ProductType,
	}
	for _, img := range fp.Images {
		if img.Src != "" {
			p.ImageURLs = append(p.ImageURLs, img.Src)
		}
	}
	for _, fv := range fp.Variants {
		v, err := convertVariant(fv)
		if err != nil {
			return Product{}, fmt.Errorf("product %s: %w", p.ExternalID, err)
		}
		p.Variants = append(p.Variants, v)
	}
	return p, nil
}

func convertVariant(fv feedVariant) (Variant, error) {
	// Prices arrive as decimal strings and stay decimal; parsing through a
	// float would invent phantom price changes.
	price, err := decimal.NewFromString(fv.Price)
	if err != nil {
		return Variant{}, fmt.Errorf("%w: variant %d price %q", syncerr.ErrInvalidResponse, fv.ID, fv.Price)
	}
	v := Variant{
		ExternalID: strconv.FormatInt(fv.ID, 10),
		Title:      fv.Title,
		SKU:        fv.SKU,
		Price:      price,
		Available:  fv.Available,
		Position:   fv.Position,
	}
	if fv.CompareAtPrice != nil && *fv.CompareAtPrice != "" {
		cap, err := decimal.NewFromString(*fv.CompareAtPrice)
		if err != nil {
			return Variant{}, fmt.Errorf("%w: variant %d compare_at_price %q", syncerr.ErrInvalidResponse, fv.ID, *fv.CompareAtPrice)
		}
		v.CompareAtPrice = decimal.NullDecimal{Decimal: cap, Valid: true}
	}
	return v, nil
}
