package affection

import "fmt"

// Catalog is the content the engine draws from. The script package loads
// it from JSON.
type Catalog struct {
	Popups []Popup
	Ending EndingScript
}

type PopupOption struct {
	Label     string `json:"label"`
	Mood      Mood   `json:"mood"`
	Hearts    int64  `json:"hearts"`
	Affection int64  `json:"affection"`
}

type Popup struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Text    string        `json:"text"`
	Options []PopupOption `json:"options"`
}

// Path is an ending route.
type Path string

const (
	PathDevotion Path = "devotion"
	PathCozy     Path = "cozy"
	PathChaos    Path = "chaos"
)

// pathOrder is the tie-break order when two routes share the top score.
var pathOrder = [...]Path{PathDevotion, PathCozy, PathChaos}

type Affinity struct {
	Cozy     int `json:"cozy,omitempty"`
	Chaos    int `json:"chaos,omitempty"`
	Devotion int `json:"devotion,omitempty"`
}

func (a Affinity) add(b Affinity) Affinity {
	return Affinity{
		Cozy:     a.Cozy + b.Cozy,
		Chaos:    a.Chaos + b.Chaos,
		Devotion: a.Devotion + b.Devotion,
	}
}

func (a Affinity) score(p Path) int {
	switch p {
	case PathDevotion:
		return a.Devotion
	case PathCozy:
		return a.Cozy
	case PathChaos:
		return a.Chaos
	}
	return 0
}

// Leader returns the route with the highest score; ties go to the earlier
// route in devotion, cozy, chaos order.
func (a Affinity) Leader() Path {
	best := pathOrder[0]
	for _, p := range pathOrder[1:] {
		if a.score(p) > a.score(best) {
			best = p
		}
	}
	return best
}

type EndingChoice struct {
	Label    string   `json:"label"`
	Affinity Affinity `json:"affinity"`
	// Next scene ID; empty finishes the script.
	Next string `json:"next,omitempty"`
}

type EndingScene struct {
	ID      string         `json:"id"`
	Text    string         `json:"text"`
	Choices []EndingChoice `json:"choices"`
}

type EndingVariant struct {
	Path      Path   `json:"path"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Hearts    int64  `json:"hearts"`
	Affection int64  `json:"affection"`
}

type EndingScript struct {
	Start    string          `json:"start"`
	Scenes   []EndingScene   `json:"scenes"`
	Variants []EndingVariant `json:"variants"`
}

func (s EndingScript) scene(id string) (EndingScene, bool) {
	for _, sc := range s.Scenes {
		if sc.ID == id {
			return sc, true
		}
	}
	return EndingScene{}, false
}

func (s EndingScript) variant(p Path) EndingVariant {
	for _, v := range s.Variants {
		if v.Path == p {
			return v
		}
	}
	return EndingVariant{Path: p, Title: string(p)}
}

func (s EndingScript) Validate() error {
	if _, ok := s.scene(s.Start); !ok {
		return fmt.Errorf("ending start scene %q not found", s.Start)
	}
	for _, sc := range s.Scenes {
		if len(sc.Choices) == 0 {
			return fmt.Errorf("ending scene %q has no choices", sc.ID)
		}
		for _, c := range sc.Choices {
			if c.Next == "" {
				continue
			}
			if _, ok := s.scene(c.Next); !ok {
				return fmt.Errorf("ending scene %q links to unknown scene %q", sc.ID, c.Next)
			}
		}
	}
	for _, p := range pathOrder {
		found := false
		for _, v := range s.Variants {
			if v.Path == p {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("ending variant for path %q missing", p)
		}
	}
	return nil
}

func (c Catalog) validate() error {
	if len(c.Popups) == 0 {
		return fmt.Errorf("popup catalog is empty")
	}
	for _, p := range c.Popups {
		if len(p.Options) == 0 {
			return fmt.Errorf("popup %q has no options", p.ID)
		}
	}
	return c.Ending.Validate()
}
