package language

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		text string
		want []string
	}{
		{"", []string{"en"}},
		{"The Matrix 1999 1080p", []string{"en"}},
		{"黑客帝国The Matrix", []string{"zh"}},
		{"アニメ 720p", []string{"ja"}},
		{"進撃の巨人", []string{"zh", "ja"}},
		{"기생충 Parasite", []string{"ko"}},
		{"Брат 2", []string{"ru"}},
		{"فيلم", []string{"ar"}},
		{"ภาพยนตร์", []string{"th"}},
		{"Phim hay nhất đời", []string{"vi"}},
		{"黑客帝国 Матрица", []string{"zh", "ru"}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Detect(c.text).Codes(), c.text)
	}
}

func TestSet(t *testing.T) {
	s := NewSet(Russian, Chinese, Russian)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has(Chinese))
	assert.False(t, s.Has(English))
	assert.Equal(t, []Language{Chinese, Russian}, s.Languages())
	assert.Equal(t, "zh,ru", s.String())
}

func TestFromCode(t *testing.T) {
	for _, l := range All() {
		got, err := FromCode(l.Code())
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}
	_, err := FromCode("xx")
	assert.ErrorIs(t, err, ErrUnknownLanguage)
	assert.Equal(t, "cjk", Japanese.Analyzer())
	assert.Equal(t, "standard", Vietnamese.Analyzer())
}

func TestClassifier(t *testing.T) {
	cached, err := NewClassifier(DefaultCacheSize, DefaultCacheTTL)
	require.NoError(t, err)
	uncached, err := NewClassifier(0, 0)
	require.NoError(t, err)

	texts := []string{"", "黑客帝国The Matrix", "アニメ 720p", "plain", "plain"}
	for _, text := range texts {
		assert.Equal(t, Detect(text), cached.Classify(text))
		assert.Equal(t, Detect(text), uncached.Classify(text))
	}
	assert.Equal(t, NewSet(English), cached.Classify(""))
}

func TestClassifier_smallCache(t *testing.T) {
	classifier, err := NewClassifier(2, time.Minute)
	require.NoError(t, err)

	texts := []string{"黑客帝国", "Матрица", "เดอะเมทริกซ์", "黑客帝国", "Матрица", "plain", "เดอะเมทริกซ์"}
	for round := 0; round < 3; round++ {
		for _, text := range texts {
			assert.Equal(t, Detect(text), classifier.Classify(text), text)
		}
	}
}

func TestClassifier_expiry(t *testing.T) {
	classifier, err := NewClassifier(DefaultCacheSize, 10*time.Millisecond)
	require.NoError(t, err)

	text := "한국 드라마 1080p"
	want := Detect(text)
	assert.Equal(t, want, classifier.Classify(text))
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, want, classifier.Classify(text))
	assert.True(t, want.Has(Korean))
}
