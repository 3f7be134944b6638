package assets

import (
	"github.com/algomintai/algomint/internal/collections"
)

type State string

const (
	StateListed     State = "listed"
	StateConfirming State = "confirming"
	StateDestroying State = "destroying"
	StateRemoved    State = "removed"
)

// Metadata is the validated subset of an asset's metadata document. Fields
// with an unexpected type are dropped rather than failing the asset.
type Metadata struct {
	Name           string         `json:"name,omitempty"`
	Description    string         `json:"description,omitempty"`
	Image          string         `json:"image,omitempty"`
	Decimals       *int           `json:"decimals,omitempty"`
	UnitName       string         `json:"unitName,omitempty"`
	ImageIntegrity string         `json:"image_integrity,omitempty"`
	ImageMimetype  string         `json:"image_mimetype,omitempty"`
	Properties     map[string]any `json:"properties,omitempty"`
	Collection     string         `json:"collection,omitempty"`
}

type Asset struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	UnitName string `json:"unitName"`
	URL      string `json:"url"`
	Creator  string `json:"creator"`
	Manager  string `json:"manager,omitempty"`

	// Image is the metadata image rewritten to a fetchable URL.
	Image    string    `json:"image,omitempty"`
	Metadata *Metadata `json:"metadata"`

	Destroyable bool   `json:"destroyable"`
	State       State  `json:"state"`
	LastError   string `json:"lastError,omitempty"`
}

type Group struct {
	Key        string                  `json:"key"`
	Collection *collections.Descriptor `json:"collection"`
	Assets     []Asset                 `json:"assets"`
}

type Inventory struct {
	Address string  `json:"address"`
	Groups  []Group `json:"groups"`
}

// Len counts assets across groups.
func (inv Inventory) Len() int {
	n := 0
	for _, g := range inv.Groups {
		n += len(g.Assets)
	}
	return n
}

// Group returns the group with key.
func (inv Inventory) Group(key string) (Group, bool) {
	for _, g := range inv.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return Group{}, false
}
