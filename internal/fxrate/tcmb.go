package fxrate

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	tcmbBaseURL         = "https://www.tcmb.gov.tr/kurlar"
	tcmbDefaultLookback = 7
)

// tcmbDocument is the daily indicative rates bulletin published by the
// Central Bank of the Republic of Türkiye.
type tcmbDocument struct {
	XMLName    xml.Name       `xml:"Tarih_Date"`
	Date       string         `xml:"Date,attr"` // MM/DD/YYYY
	Currencies []tcmbCurrency `xml:"Currency"`
}

type tcmbCurrency struct {
	Code         string `xml:"CurrencyCode,attr"`
	Unit         int    `xml:"Unit"`
	ForexBuying  string `xml:"ForexBuying"`
	ForexSelling string `xml:"ForexSelling"`
}

// TCMBProvider fetches daily rates from the TCMB XML bulletins. Bulletins are
// not published on weekends and holidays, so a missing day falls back to the
// most recent earlier bulletin within the lookback window.
type TCMBProvider struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	lookback   int
	log        *zap.SugaredLogger
}

// TCMBOption configures a TCMBProvider.
type TCMBOption func(*TCMBProvider)

// WithBaseURL overrides the bulletin root URL.
func WithBaseURL(url string) TCMBOption {
	return func(p *TCMBProvider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithLookback sets how many earlier days are tried when a bulletin is missing.
func WithLookback(days int) TCMBOption {
	return func(p *TCMBProvider) { p.lookback = days }
}

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(log *zap.SugaredLogger) TCMBOption {
	return func(p *TCMBProvider) { p.log = log }
}

// NewTCMBProvider creates a provider backed by the TCMB bulletins.
func NewTCMBProvider(httpClient *http.Client, opts ...TCMBOption) *TCMBProvider {
	p := &TCMBProvider{
		httpClient: httpClient,
		baseURL:    tcmbBaseURL,
		lookback:   tcmbDefaultLookback,
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetRate returns the TRY quote for currency on date.
func (p *TCMBProvider) GetRate(ctx context.Context, currency string, date time.Time) (Rate, error) {
	code := strings.ToUpper(currency)
	if code == BaseCurrency {
		return identity(date), nil
	}

	day := Day(date)
	for i := 0; i <= p.lookback; i++ {
		doc, found, err := p.fetchBulletin(ctx, day)
		if err != nil {
			return Rate{}, fmt.Errorf("%w: %v", unavailable(code, date), err)
		}
		if found {
			return rateFromBulletin(doc, code, day)
		}
		p.log.Debugw("no tcmb bulletin, trying previous day", "date", DayKey(day), "currency", code)
		day = day.AddDate(0, 0, -1)
	}
	return Rate{}, unavailable(code, date)
}

// fetchBulletin downloads the bulletin for day. found is false when TCMB has
// no bulletin for that day.
func (p *TCMBProvider) fetchBulletin(ctx context.Context, day time.Time) (*tcmbDocument, bool, error) {
	url := fmt.Sprintf("%s/%s/%s.xml", p.baseURL, day.Format("200601"), day.Format("02012006"))
	if DayKey(day) == DayKey(time.Now()) {
		url = p.baseURL + "/today.xml"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("building tcmb request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("tcmb http request for %s: %w", DayKey(day), err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("tcmb request for %s: unexpected status %d", DayKey(day), resp.StatusCode)
	}

	var doc tcmbDocument
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, false, fmt.Errorf("decoding tcmb bulletin for %s: %w", DayKey(day), err)
	}
	return &doc, true, nil
}

func rateFromBulletin(doc *tcmbDocument, code string, day time.Time) (Rate, error) {
	for _, c := range doc.Currencies {
		if !strings.EqualFold(c.Code, code) {
			continue
		}
		buying, errB := decimal.NewFromString(strings.TrimSpace(c.ForexBuying))
		selling, errS := decimal.NewFromString(strings.TrimSpace(c.ForexSelling))
		if errB != nil || errS != nil || !buying.IsPositive() || !selling.IsPositive() {
			return Rate{}, fmt.Errorf("%w: tcmb publishes no forex quote", unavailable(code, day))
		}
		unit := c.Unit
		if unit <= 0 {
			unit = 1
		}
		divisor := decimal.NewFromInt(int64(unit))
		return Rate{
			Currency: code,
			Date:     day,
			Buying:   buying.DivRound(divisor, 6),
			Selling:  selling.DivRound(divisor, 6),
		}, nil
	}
	return Rate{}, fmt.Errorf("%w: not listed in tcmb bulletin", unavailable(code, day))
}
