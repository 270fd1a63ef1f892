package share

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/knol"
)

var now = time.Date(2024, 5, 2, 15, 4, 5, 0, time.UTC)

func TestEncodeDecodeDeck(t *testing.T) {
	deck := domain.NewDeck("Español", "basics", []string{"lang"}, now)
	cards := []domain.Card{
		domain.NewCard(deck.ID, "hola", "hello", now),
		domain.NewCard(deck.ID, "¿qué tal?", "how are you?", now),
	}

	code, err := EncodeDeck(deck, cards)
	require.NoError(t, err)
	assert.NotContains(t, code, "+")
	assert.NotContains(t, code, "/")
	assert.NotContains(t, code, "=")

	shared, err := DecodeDeck(code)
	require.NoError(t, err)
	assert.Equal(t, "Español", shared.Deck.Name)
	assert.Equal(t, []string{"lang"}, shared.Deck.Tags)
	assert.Equal(t, []SharedCard{{"hola", "hello"}, {"¿qué tal?", "how are you?"}}, shared.Cards)
}

func TestDecodeStandardBase64(t *testing.T) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write([]byte(`{"deck":{"name":"Old"},"cards":[{"front":"q","back":"a"}]}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	shared, err := DecodeDeck(base64.StdEncoding.EncodeToString(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "Old", shared.Deck.Name)
	assert.Len(t, shared.Cards, 1)
}

func TestDecodeDeckRejects(t *testing.T) {
	encode := func(payload string) string {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		zw.Write([]byte(payload))
		zw.Close()
		return base64.RawURLEncoding.EncodeToString(buf.Bytes())
	}
	tests := map[string]string{
		"not base64":  "!!!",
		"not zlib":    base64.RawURLEncoding.EncodeToString([]byte("plain text")),
		"not json":    encode("nope"),
		"no name":     encode(`{"deck":{"name":" "},"cards":[]}`),
		"no cards":    encode(`{"deck":{"name":"x"}}`),
		"empty input": "",
	}
	for name, code := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeDeck(code)
			assert.ErrorIs(t, err, ErrInvalidShareCode)
		})
	}
}

func TestSharedDeckNewDeck(t *testing.T) {
	shared := SharedDeck{
		Deck:  SharedDeckInfo{Name: "Imported"},
		Cards: []SharedCard{{Front: "q1", Back: "a1"}, {Front: "  ", Back: "skipped"}},
	}
	deck, cards := shared.NewDeck(now)
	assert.NotEmpty(t, deck.ID)
	assert.Equal(t, []string{}, deck.Tags)
	require.Len(t, cards, 1)
	assert.Equal(t, deck.ID, cards[0].DeckID)
	assert.Equal(t, knol.Hash("q1", "a1"), cards[0].Hash)
	assert.Equal(t, 2.5, cards[0].EasinessFactor)
	assert.Nil(t, cards[0].LastReviewed)
}

func TestEncodeLargeDeckRoundTrip(t *testing.T) {
	deck := domain.NewDeck("Big", "", nil, now)
	var cards []domain.Card
	for range 500 {
		cards = append(cards, domain.NewCard(deck.ID, strings.Repeat("front ", 20), strings.Repeat("back ", 20), now))
	}
	code, err := EncodeDeck(deck, cards)
	require.NoError(t, err)
	shared, err := DecodeDeck(code)
	require.NoError(t, err)
	assert.Len(t, shared.Cards, 500)
}
