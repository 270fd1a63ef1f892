// Package share moves decks between libraries: compact share codes for a
// single deck and full JSON backups.
package share

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/knol"
)

var ErrInvalidShareCode = errors.New("invalid share code")

// maxSharedDeckSize bounds the inflated payload of a share code.
const maxSharedDeckSize = 8 << 20

// SharedDeck is the content of a share code: a deck's description and card
// text, without any scheduling state.
type SharedDeck struct {
	Deck  SharedDeckInfo `json:"deck"`
	Cards []SharedCard   `json:"cards"`
}

type SharedDeckInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type SharedCard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// EncodeDeck packs a deck and its cards into a URL-safe share code.
func EncodeDeck(deck domain.Deck, cards []domain.Card) (string, error) {
	shared := SharedDeck{
		Deck:  SharedDeckInfo{Name: deck.Name, Description: deck.Description, Tags: deck.Tags},
		Cards: make([]SharedCard, 0, len(cards)),
	}
	for _, c := range cards {
		shared.Cards = append(shared.Cards, SharedCard{Front: c.Front, Back: c.Back})
	}

	payload, err := json.Marshal(shared)
	if err != nil {
		return "", fmt.Errorf("failed to encode deck %s: %w", deck.ID, err)
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return "", fmt.Errorf("failed to compress deck %s: %w", deck.ID, err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to compress deck %s: %w", deck.ID, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDeck unpacks a share code. Codes using the standard base64 alphabet
// with padding are accepted too.
func DecodeDeck(code string) (SharedDeck, error) {
	code = strings.TrimSpace(code)
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(code, "="))
	if err != nil {
		raw, err = base64.StdEncoding.DecodeString(code)
		if err != nil {
			return SharedDeck{}, fmt.Errorf("%w: not base64", ErrInvalidShareCode)
		}
	}

	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return SharedDeck{}, fmt.Errorf("%w: %v", ErrInvalidShareCode, err)
	}
	defer zr.Close()

	var shared SharedDeck
	dec := json.NewDecoder(io.LimitReader(zr, maxSharedDeckSize))
	if err := dec.Decode(&shared); err != nil {
		return SharedDeck{}, fmt.Errorf("%w: %v", ErrInvalidShareCode, err)
	}
	if strings.TrimSpace(shared.Deck.Name) == "" {
		return SharedDeck{}, fmt.Errorf("%w: deck has no name", ErrInvalidShareCode)
	}
	if shared.Cards == nil {
		return SharedDeck{}, fmt.Errorf("%w: no cards", ErrInvalidShareCode)
	}
	return shared, nil
}

// NewDeck turns a shared deck into a fresh deck with new IDs. Its cards start
// unscheduled, due immediately. Cards without a front are skipped.
func (s SharedDeck) NewDeck(now time.Time) (domain.Deck, []domain.Card) {
	deck := domain.NewDeck(s.Deck.Name, s.Deck.Description, s.Deck.Tags, now)
	cards := make([]domain.Card, 0, len(s.Cards))
	for _, sc := range s.Cards {
		if strings.TrimSpace(sc.Front) == "" {
			continue
		}
		c := domain.NewCard(deck.ID, sc.Front, sc.Back, now)
		c.Hash = knol.Hash(sc.Front, sc.Back)
		cards = append(cards, c)
	}
	return deck, cards
}
