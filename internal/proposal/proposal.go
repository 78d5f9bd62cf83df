// Package proposal holds the proposal data model and the pure transformations
// applied to it: subtotal calculation, budget reconciliation and editing.
package proposal

import (
	"encoding/json"
	"math"

	"proposals/api/internal/money"
)

// Item is a single billable line. Hours and Price are parsed once when the item
// enters the system; a value that could not be parsed is NaN and is skipped by
// every sum.
type Item struct {
	Name        string
	Description string
	Hours       float64
	Price       float64
}

// Section is an ordered, titled group of items. Subtotal is derived and only
// valid after RecalculateSubtotals.
type Section struct {
	Title    string
	Items    []Item
	Subtotal float64
}

type itemJSON struct {
	Item        string          `json:"item"`
	Description string          `json:"description"`
	Hours       json.RawMessage `json:"hours"`
	Price       json.RawMessage `json:"price"`
}

type sectionJSON struct {
	Title    string          `json:"title"`
	Items    []Item          `json:"items"`
	Subtotal json.RawMessage `json:"subtotal,omitempty"`
}

// MarshalJSON writes hours and price in their display form ("30", "$3,000").
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Item        string `json:"item"`
		Description string `json:"description"`
		Hours       string `json:"hours"`
		Price       string `json:"price"`
	}{
		Item:        i.Name,
		Description: i.Description,
		Hours:       money.FormatHours(i.Hours),
		Price:       money.Format(i.Price),
	})
}

// UnmarshalJSON accepts hours and price as either strings or numbers.
func (i *Item) UnmarshalJSON(data []byte) error {
	var raw itemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	i.Name = raw.Item
	i.Description = raw.Description
	i.Hours = decodeNumber(raw.Hours)
	i.Price = decodeNumber(raw.Price)
	return nil
}

func (s Section) MarshalJSON() ([]byte, error) {
	items := s.Items
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(struct {
		Title    string `json:"title"`
		Items    []Item `json:"items"`
		Subtotal string `json:"subtotal"`
	}{
		Title:    s.Title,
		Items:    items,
		Subtotal: money.Format(s.Subtotal),
	})
}

func (s *Section) UnmarshalJSON(data []byte) error {
	var raw sectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Title = raw.Title
	s.Items = raw.Items
	s.Subtotal = money.OrZero(decodeNumber(raw.Subtotal))
	return nil
}

func decodeNumber(raw json.RawMessage) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return math.NaN()
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return money.ParseString(text)
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number
	}
	return math.NaN()
}

// Clone returns a deep copy so callers can publish a snapshot without sharing
// item slices with the working copy.
func Clone(sections []Section) []Section {
	if sections == nil {
		return nil
	}
	out := make([]Section, len(sections))
	for i, section := range sections {
		out[i] = section
		if section.Items != nil {
			out[i].Items = make([]Item, len(section.Items))
			copy(out[i].Items, section.Items)
		}
	}
	return out
}

// ItemCount counts items across all sections.
func ItemCount(sections []Section) int {
	count := 0
	for _, section := range sections {
		count += len(section.Items)
	}
	return count
}
