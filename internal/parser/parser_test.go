package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html><head><meta name="description" content="137 врачей"></head>
<body>
<div class="b-doctor-card" data-doctor-id="1001" data-doctor-name="Иванов Иван Иванович">
  <a class="b-doctor-card__name-link" href="/moskva/vrach/1001-ivanov/#reviews">Иванов</a>
  <div class="b-stars-rate"><div class="b-stars-rate__progress" style="width: 4.7em"></div></div>
  <a href="/moskva/vrach/1001-ivanov/#otzivi">1 204 отзыва</a>
  <div class="b-doctor-card__spec">
     Кардиолог,
     Терапевт
  </div>
</div>
<div class="b-doctor-card" data-doctor-id="1002">
  <a class="b-doctor-card__name-link" href="https://other.example/d/1002/">Петров &amp; Co</a>
</div>
<div class="b-doctor-card" data-doctor-id="">
</div>
<div class="b-doctor-card">no id attribute, not a card</div>
<ul class="b-pagination-vuetify-imitation">
  <li><a>1</a></li><li><a>2</a></li><li><a>…</a></li><li><a>17</a></li><li><a>Далее</a></li>
</ul>
</body></html>`

func TestParsePage(t *testing.T) {
	p := New("https://prodoctorov.ru", Selectors{})
	frags := p.ParsePage([]byte(samplePage))
	require.Len(t, frags, 3)

	first := frags[0]
	assert.Equal(t, "1001", first.ID)
	assert.Equal(t, "Иванов Иван Иванович", first.DisplayName)
	assert.Equal(t, "https://prodoctorov.ru/moskva/vrach/1001-ivanov/", first.ProfileURL)
	require.NotNil(t, first.Rating)
	assert.Equal(t, 4.7, *first.Rating)
	require.NotNil(t, first.ReviewCount)
	assert.Equal(t, 1204, *first.ReviewCount)
	assert.Equal(t, "Кардиолог, Терапевт", first.CategoryLabel)

	second := frags[1]
	assert.Equal(t, "1002", second.ID)
	assert.Equal(t, "Петров & Co", second.DisplayName)
	assert.Equal(t, "https://other.example/d/1002/", second.ProfileURL)
	assert.Nil(t, second.Rating)
	assert.Nil(t, second.ReviewCount)
	assert.Empty(t, second.CategoryLabel)

	// empty id and no link: left for the store to discard
	assert.Empty(t, frags[2].ID)
	assert.Empty(t, frags[2].ProfileURL)
}

func TestPageCount(t *testing.T) {
	p := New("https://prodoctorov.ru", Selectors{})
	assert.Equal(t, 17, p.PageCount([]byte(samplePage)))
	assert.Equal(t, 0, p.PageCount([]byte(`<html><body><p>no pagination</p></body></html>`)))
}

func TestMalformedMarkupDoesNotPanic(t *testing.T) {
	p := New("https://prodoctorov.ru", Selectors{})
	for _, body := range []string{"", "<div", "<<<>>>", "\x00\xff\xfe", `<div class="b-doctor-card" data-doctor-id="5"><a class="b-doctor-card__name-link" href="%zz">`} {
		assert.NotPanics(t, func() {
			p.ParsePage([]byte(body))
			p.PageCount([]byte(body))
		})
	}
}

func TestCustomSelectors(t *testing.T) {
	p := New("https://dir.example", Selectors{
		Card:   "li.entry",
		IDAttr: "data-key",
		Link:   "a.profile",
	})
	frags := p.ParsePage([]byte(`<ul><li class="entry" data-key="k1"><a class="profile" href="/p/k1">Ann</a></li></ul>`))
	require.Len(t, frags, 1)
	assert.Equal(t, "k1", frags[0].ID)
	assert.Equal(t, "Ann", frags[0].DisplayName)
	assert.Equal(t, "https://dir.example/p/k1", frags[0].ProfileURL)
}
