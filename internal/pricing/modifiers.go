package pricing

import "encoding/json"

// ModifierOption is one choosable option inside an obligatorio group.
type ModifierOption struct {
	Option string  `json:"option"`
	Price  float64 `json:"price"`
}

// ModifierGroup is a named group requiring exactly one selection.
type ModifierGroup struct {
	Name    string           `json:"name"`
	Options []ModifierOption `json:"options"`
}

// OptionalModifier is an independently toggleable priced extra.
type OptionalModifier struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Modifiers is the modifier document attached to a menu item.
type Modifiers struct {
	Obligatorios []ModifierGroup    `json:"obligatorios"`
	Opcionales   []OptionalModifier `json:"opcionales"`
}

// ParseModifiers decodes a stored modifier document. Malformed or empty
// input yields an empty document rather than an error; a broken modifier
// column must never block pricing or ordering.
func ParseModifiers(raw []byte) Modifiers {
	var m Modifiers
	if len(raw) == 0 {
		return m
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return Modifiers{}
	}
	return m
}

// MissingSelections returns the names of obligatorio groups that have no
// selection in the given customization map. An item may only enter a
// cart or order when this list is empty.
func (m Modifiers) MissingSelections(customizations map[string]any) []string {
	var missing []string
	for _, g := range m.Obligatorios {
		if g.Name == "" {
			continue
		}
		if _, ok := customizations[g.Name]; !ok {
			missing = append(missing, g.Name)
		}
	}
	return missing
}

// RequiresCustomization reports whether the item cannot be added
// directly and must go through a customization step first.
func (m Modifiers) RequiresCustomization() bool {
	return len(m.Obligatorios) > 0
}
