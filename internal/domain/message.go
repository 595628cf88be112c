package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID         uuid.UUID `json:"id"`
	Scope      string    `json:"scope"`
	Text       string    `json:"text"`
	UID        uuid.UUID `json:"uid"`
	SenderName string    `json:"sender_name"`
	ImageURL   *string   `json:"image_url,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Reactions  Reactions `json:"reactions"`
	// Seq is the store's insertion order, used to break timestamp ties.
	Seq int64 `json:"-"`
}

// Reactions maps an emoji to the identities that reacted with it.
type Reactions map[string][]uuid.UUID

func (r Reactions) Has(emoji string, id uuid.UUID) bool {
	return slices.Contains(r[emoji], id)
}

// Toggle flips id's membership in the set for emoji and reports whether
// id is present afterwards. Empty sets are dropped from the map.
func (r Reactions) Toggle(emoji string, id uuid.UUID) bool {
	current := r[emoji]
	if i := slices.Index(current, id); i >= 0 {
		updated := slices.Delete(slices.Clone(current), i, i+1)
		if len(updated) == 0 {
			delete(r, emoji)
		} else {
			r[emoji] = updated
		}
		return false
	}
	r[emoji] = append(slices.Clone(current), id)
	return true
}

func (r Reactions) Clone() Reactions {
	out := make(Reactions, len(r))
	for emoji, ids := range r {
		out[emoji] = slices.Clone(ids)
	}
	return out
}

func (r Reactions) Count(emoji string) int {
	return len(r[emoji])
}
