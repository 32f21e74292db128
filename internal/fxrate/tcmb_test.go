package fxrate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bulletin = `<?xml version="1.0" encoding="UTF-8"?>
<Tarih_Date Tarih="12.01.2024" Date="01/12/2024" Bulten_No="2024/9">
  <Currency CrossOrder="0" Kod="USD" CurrencyCode="USD">
    <Unit>1</Unit>
    <Isim>ABD DOLARI</Isim>
    <CurrencyName>US DOLLAR</CurrencyName>
    <ForexBuying>30.1734</ForexBuying>
    <ForexSelling>30.2278</ForexSelling>
  </Currency>
  <Currency CrossOrder="4" Kod="JPY" CurrencyCode="JPY">
    <Unit>100</Unit>
    <ForexBuying>20.7652</ForexBuying>
    <ForexSelling>20.9027</ForexSelling>
  </Currency>
  <Currency CrossOrder="18" Kod="XDR" CurrencyCode="XDR">
    <Unit>1</Unit>
    <ForexBuying></ForexBuying>
    <ForexSelling></ForexSelling>
  </Currency>
</Tarih_Date>`

// friday bulletin only; every other path is a 404
func newBulletinServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/kurlar/202401/12012024.xml" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(bulletin))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTCMBProviderGetRate(t *testing.T) {
	var hits atomic.Int32
	srv := newBulletinServer(t, &hits)
	p := NewTCMBProvider(srv.Client(), WithBaseURL(srv.URL+"/kurlar/"))
	friday := time.Date(2024, 1, 12, 15, 30, 0, 0, time.UTC)

	t.Run("published day", func(t *testing.T) {
		rate, err := p.GetRate(context.Background(), "usd", friday)
		require.NoError(t, err)
		assert.Equal(t, "USD", rate.Currency)
		assert.True(t, rate.Buying.Equal(mustDec("30.1734")), "buying %s", rate.Buying)
		assert.True(t, rate.Selling.Equal(mustDec("30.2278")), "selling %s", rate.Selling)
	})

	t.Run("quotes are per unit", func(t *testing.T) {
		rate, err := p.GetRate(context.Background(), "JPY", friday)
		require.NoError(t, err)
		assert.True(t, rate.Buying.Equal(mustDec("0.207652")), "buying %s", rate.Buying)
	})

	t.Run("weekend falls back to friday", func(t *testing.T) {
		hits.Store(0)
		sunday := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
		rate, err := p.GetRate(context.Background(), "USD", sunday)
		require.NoError(t, err)
		assert.Equal(t, "2024-01-12", DayKey(rate.Date))
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("currency without forex quote", func(t *testing.T) {
		_, err := p.GetRate(context.Background(), "XDR", friday)
		assert.True(t, errors.Is(err, ErrRateUnavailable))
	})

	t.Run("currency not listed", func(t *testing.T) {
		_, err := p.GetRate(context.Background(), "ZZZ", friday)
		assert.True(t, errors.Is(err, ErrRateUnavailable))
	})

	t.Run("TRY never calls upstream", func(t *testing.T) {
		hits.Store(0)
		rate, err := p.GetRate(context.Background(), "TRY", friday)
		require.NoError(t, err)
		assert.True(t, rate.Buying.Equal(mustDec("1")))
		assert.Equal(t, int32(0), hits.Load())
	})
}

func TestTCMBProviderLookbackExhausted(t *testing.T) {
	var hits atomic.Int32
	srv := newBulletinServer(t, &hits)
	p := NewTCMBProvider(srv.Client(), WithBaseURL(srv.URL+"/kurlar"), WithLookback(2))

	_, err := p.GetRate(context.Background(), "USD", time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, ErrRateUnavailable))
	assert.Equal(t, int32(3), hits.Load())
}

func TestTCMBProviderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewTCMBProvider(srv.Client(), WithBaseURL(srv.URL))
	_, err := p.GetRate(context.Background(), "USD", time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, ErrRateUnavailable))
	assert.ErrorContains(t, err, "unexpected status 502")
}

func TestTCMBProviderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := srv.Client()
	client.Timeout = 50 * time.Millisecond
	p := NewTCMBProvider(client, WithBaseURL(srv.URL))

	_, err := p.GetRate(context.Background(), "USD", time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, ErrRateUnavailable))
}
