// Package script holds the content the engine plays: random popups, the
// shop catalog and the ending script. Defaults are embedded; a content
// directory can override any of the three files.
package script

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"minyoung-maker/affection"
)

//go:embed data/*.json
var defaults embed.FS

const (
	popupsFile = "popups.json"
	shopFile   = "shop.json"
	endingFile = "ending.json"
)

var ErrUnknownItem = errors.New("unknown shop item")

// ShopItem is one catalog entry. Affection is the hidden value credited on
// purchase.
type ShopItem struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Cost      int64                 `json:"cost"`
	Affection int64                 `json:"affection"`
	Type      string                `json:"type"`
	Desc      string                `json:"desc"`
	Flavor    string                `json:"flavor"`
	Unique    bool                  `json:"unique"`
	Effects   affection.ItemEffects `json:"effects"`
}

func (it *ShopItem) Request() affection.PurchaseRequest {
	return affection.PurchaseRequest{
		ItemID:    it.ID,
		Name:      it.Name,
		Cost:      it.Cost,
		Affection: it.Affection,
		Unique:    it.Unique,
		Effects:   it.Effects,
	}
}

// Registry holds the loaded content.
type Registry struct {
	mu     sync.RWMutex
	popups []affection.Popup
	items  map[string]*ShopItem
	order  []string
	ending affection.EndingScript
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]*ShopItem)}
}

// Default returns a registry with the embedded content loaded.
func Default() (*Registry, error) {
	r := NewRegistry()
	for name, load := range r.loaders() {
		data, err := defaults.ReadFile("data/" + name)
		if err != nil {
			return nil, fmt.Errorf("read embedded %s: %w", name, err)
		}
		if err := load(data); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadDir overrides content with whichever of popups.json, shop.json and
// ending.json exist in dir.
func (r *Registry) LoadDir(dir string) error {
	for name, load := range r.loaders() {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := load(data); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) loaders() map[string]func([]byte) error {
	return map[string]func([]byte) error{
		popupsFile: r.LoadPopupsJSON,
		shopFile:   r.LoadShopJSON,
		endingFile: r.LoadEndingJSON,
	}
}

func (r *Registry) LoadPopupsJSON(data []byte) error {
	var list []affection.Popup
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parse popups JSON: %w", err)
	}
	out := list[:0]
	for _, p := range list {
		if len(p.Options) == 0 {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return fmt.Errorf("popups JSON has no usable popups")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.popups = out
	return nil
}

func (r *Registry) LoadShopJSON(data []byte) error {
	var list []*ShopItem
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parse shop JSON: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[string]*ShopItem, len(list))
	r.order = r.order[:0]
	for _, it := range list {
		if it.ID == "" {
			continue
		}
		if it.Name == "" {
			it.Name = it.ID
		}
		if _, dup := r.items[it.ID]; !dup {
			r.order = append(r.order, it.ID)
		}
		r.items[it.ID] = it
	}
	return nil
}

func (r *Registry) LoadEndingJSON(data []byte) error {
	var s affection.EndingScript
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parse ending JSON: %w", err)
	}
	if err := s.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ending = s
	return nil
}

// Catalog is the engine's view of the content.
func (r *Registry) Catalog() affection.Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return affection.Catalog{
		Popups: append([]affection.Popup(nil), r.popups...),
		Ending: r.ending,
	}
}

func (r *Registry) Item(id string) *ShopItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items[id]
}

// Items returns the shop in catalog order.
func (r *Registry) Items() []*ShopItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ShopItem, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out
}

// Request builds the purchase for item id.
func (r *Registry) Request(id string) (affection.PurchaseRequest, error) {
	it := r.Item(id)
	if it == nil {
		return affection.PurchaseRequest{}, fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	return it.Request(), nil
}
