package official

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cardsync/core/catalog"
	"cardsync/core/reconcile"
	"cardsync/feature/sources"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageOne = `<html><body><ul>
<li><a href="cardsearch_ex?id=12">
  <p class="number">hSD01-001</p><p class="name">ときのそら</p>
  <div class="info"><dl>
    <dt>カードタイプ</dt><dd>推しホロメン</dd>
    <dt>色</dt><dd>白</dd>
  </dl></div>
</a></li>
<li><a href="cardsearch_ex?id=13">
  <p class="number">hBP01-045</p><p class="name">サポート</p>
  <div class="info"><dl>
    <dt>カードタイプ</dt><dd>サポート・イベント・LIMITED</dd>
    <dt>能力テキスト</dt><dd>カードを1枚引く。LIMITED：ターンに１枚しか使えない。</dd>
  </dl></div>
</a></li>
</ul></body></html>`

const pageTwo = `<html><body><ul>
<li><a href="cardsearch_ex?id=14"><p class="number">hSD01-001</p><p class="name">dup</p></a></li>
<li><a href="cardsearch_ex?id=15"><p class="number">hSD01-002</p><p class="name">AZKi</p></a></li>
</ul></body></html>`

const emptyPage = `<html><head><title>hololive OFFICIAL CARD GAME</title></head><body><ul><li><a href="/">top</a></li></ul></body></html>`

func newServer(t *testing.T, pages map[string]string, status map[string]int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text", r.URL.Query().Get("view"))
		page := r.URL.Query().Get("page")
		if code, ok := status[page]; ok {
			w.WriteHeader(code)
			return
		}
		body, ok := pages[page]
		if !ok {
			body = emptyPage
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newAdapter(url string) *Adapter {
	return New(url+"/cardlist/cardsearch_ex", sources.ScrapeConfig{Timeout: 5 * time.Second, MaxPages: 10}, nil)
}

func TestCollect_ReadsPagesUntilEmpty(t *testing.T) {
	srv := newServer(t, map[string]string{"1": pageOne, "2": pageTwo}, nil)

	records, err := newAdapter(srv.URL).Collect(context.Background(), catalog.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "hSD01-001", records[0].Number)
	assert.Equal(t, reconcile.AnyVariant, records[0].Variant)
	assert.Equal(t, "ときのそら", records[0].Name)
	assert.Equal(t, "oshi", records[0].CardType)

	assert.Equal(t, "event", records[1].CardType)
	assert.Equal(t, "カードを1枚引く。", records[1].Text)

	assert.Equal(t, "hSD01-002", records[2].Number)
}

func TestCollect_Filter(t *testing.T) {
	srv := newServer(t, map[string]string{"1": pageOne, "2": pageTwo}, nil)

	records, err := newAdapter(srv.URL).Collect(context.Background(), catalog.Filter{Expansion: "hBP01"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "hBP01-045", records[0].Number)
}

func TestCollect_Failures(t *testing.T) {
	t.Run("Unavailable", func(t *testing.T) {
		srv := newServer(t, nil, map[string]int{"1": http.StatusInternalServerError})
		records, err := newAdapter(srv.URL).Collect(context.Background(), catalog.Filter{})
		assert.ErrorIs(t, err, reconcile.ErrSourceUnavailable)
		assert.Empty(t, records)
	})

	t.Run("Partial", func(t *testing.T) {
		srv := newServer(t, map[string]string{"1": pageOne}, map[string]int{"2": http.StatusBadGateway})
		records, err := newAdapter(srv.URL).Collect(context.Background(), catalog.Filter{})
		assert.ErrorIs(t, err, reconcile.ErrPartialData)
		assert.Len(t, records, 2)
	})
}
