package model

import "time"

// Document is an arbitrary nested structured document (profile fields such
// as backstory, relationships, traits).
type Document map[string]any

// Clone returns a deep copy of the document. Template instantiation uses
// copy semantics; the new profile keeps no link to its template.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(cloneValue(map[string]any(d)).(map[string]any))
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// CharacterProfile is identified by id, and unique on the (lang, name)
// natural key. Saving the same pair twice upserts in place.
type CharacterProfile struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Lang      string    `json:"lang"`
	Name      string    `json:"name"`
	Profile   Document  `json:"profile"`
}

// CharacterTemplate is a read-only seed for new profiles, with the same
// (lang, name) uniqueness as profiles. Source labels provenance
// (history / novel / person).
type CharacterTemplate struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Lang      string    `json:"lang"`
	Name      string    `json:"name"`
	Source    string    `json:"source,omitempty"`
	Template  Document  `json:"template"`
}

// CharacterSummary is the listing/search row shape for both profiles and
// templates. Source is empty for profiles.
type CharacterSummary struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Lang      string    `json:"lang"`
	Name      string    `json:"name"`
	Source    string    `json:"source,omitempty"`
}

// CharacterQuery combines search filters conjunctively. Zero-valued fields
// are no-ops.
type CharacterQuery struct {
	// Lang matches the language code exactly.
	Lang string
	// NameLike matches a substring of the name.
	NameLike string
	// Text matches a substring of the name or the raw document serialization.
	Text string
	// Field / ValueLike match documents where the JSON path $.<Field>
	// contains ValueLike. Both must be set to take effect.
	Field     string
	ValueLike string
	// Limit caps the result count; non-positive means the default (50).
	Limit int
}

// EffectiveLimit returns the row cap for the query.
func (q CharacterQuery) EffectiveLimit() int {
	if q.Limit <= 0 {
		return 50
	}
	return q.Limit
}
