package task

import (
	"encoding/json"
	"strings"
	"time"
)

// Notion property types understood by the accessors.
const (
	PropertyTitle       = "title"
	PropertyRichText    = "rich_text"
	PropertySelect      = "select"
	PropertyStatus      = "status"
	PropertyMultiSelect = "multi_select"
	PropertyCheckbox    = "checkbox"
	PropertyNumber      = "number"
	PropertyDate        = "date"
	PropertyRelation    = "relation"
)

// RichText is one run of Notion rich text.
type RichText struct {
	PlainText string    `json:"plain_text,omitempty"`
	Text      *TextBody `json:"text,omitempty"`
}

// TextBody is the content part of a rich text run.
type TextBody struct {
	Content string `json:"content"`
}

func (r RichText) content() string {
	if r.PlainText != "" {
		return r.PlainText
	}
	if r.Text != nil {
		return r.Text.Content
	}
	return ""
}

// SelectOption is a select, status or multi-select choice.
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// DateRange is the value of a date property.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// Relation references another page.
type Relation struct {
	ID string `json:"id"`
}

// Property is a single typed value from a source property bag. Only the
// member matching Type is meaningful.
type Property struct {
	Type        string         `json:"type,omitempty"`
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	Status      *SelectOption  `json:"status,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Checkbox    *bool          `json:"checkbox,omitempty"`
	Number      *float64       `json:"number,omitempty"`
	Date        *DateRange     `json:"date,omitempty"`
	Relation    []Relation     `json:"relation,omitempty"`
}

// SelectProperty builds a select property, mostly for local tasks and tests.
func SelectProperty(name string) Property {
	return Property{Type: PropertySelect, Select: &SelectOption{Name: name}}
}

// RelationProperty builds a relation property pointing at ids.
func RelationProperty(ids ...string) Property {
	p := Property{Type: PropertyRelation, Relation: make([]Relation, 0, len(ids))}
	for _, id := range ids {
		p.Relation = append(p.Relation, Relation{ID: id})
	}
	return p
}

// TextProperty builds a rich text property.
func TextProperty(text string) Property {
	return Property{Type: PropertyRichText, RichText: []RichText{{PlainText: text}}}
}

// PropertyReader is the narrow read capability the normalizer and the
// project grouper depend on.
type PropertyReader interface {
	Text(key string) (string, bool)
	Select(key string) (string, bool)
	MultiSelect(key string) []string
	Relation(key string) []string
	Date(key string) (time.Time, bool)
	Checkbox(key string) (bool, bool)
	Number(key string) (float64, bool)
}

// Properties is the passthrough property bag of a task, keyed by the
// human-readable source field name.
type Properties map[string]Property

var _ PropertyReader = Properties(nil)

// Has reports whether key is present at all, whatever its value.
func (p Properties) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Text returns the plain text of a title or rich_text property.
func (p Properties) Text(key string) (string, bool) {
	prop, ok := p[key]
	if !ok {
		return "", false
	}
	return prop.text()
}

func (prop Property) text() (string, bool) {
	runs := prop.Title
	if len(runs) == 0 {
		runs = prop.RichText
	}
	if len(runs) == 0 {
		return "", false
	}
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.content())
	}
	s := strings.TrimSpace(sb.String())
	return s, s != ""
}

// Select returns the option name of a select or status property.
func (p Properties) Select(key string) (string, bool) {
	prop, ok := p[key]
	if !ok {
		return "", false
	}
	return prop.selected()
}

func (prop Property) selected() (string, bool) {
	opt := prop.Select
	if opt == nil {
		opt = prop.Status
	}
	if opt == nil {
		return "", false
	}
	name := strings.TrimSpace(opt.Name)
	return name, name != ""
}

// MultiSelect returns the option names of a multi_select property.
func (p Properties) MultiSelect(key string) []string {
	prop, ok := p[key]
	if !ok {
		return nil
	}
	var names []string
	for _, o := range prop.MultiSelect {
		if o.Name != "" {
			names = append(names, o.Name)
		}
	}
	return names
}

// Relation returns the ids referenced by a relation property.
func (p Properties) Relation(key string) []string {
	prop, ok := p[key]
	if !ok {
		return nil
	}
	return prop.relationIDs()
}

func (prop Property) relationIDs() []string {
	var ids []string
	for _, r := range prop.Relation {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// Date returns the start of a date property.
func (p Properties) Date(key string) (time.Time, bool) {
	prop, ok := p[key]
	if !ok || prop.Date == nil {
		return time.Time{}, false
	}
	return ParseTime(prop.Date.Start)
}

// Checkbox returns the value of a checkbox property.
func (p Properties) Checkbox(key string) (bool, bool) {
	prop, ok := p[key]
	if !ok || prop.Checkbox == nil {
		return false, false
	}
	return *prop.Checkbox, true
}

// Number returns the value of a number property.
func (p Properties) Number(key string) (float64, bool) {
	prop, ok := p[key]
	if !ok || prop.Number == nil {
		return 0, false
	}
	return *prop.Number, true
}

// scalar reduces a property to the single string the canonical fields need.
func (prop Property) scalar() (string, bool) {
	if s, ok := prop.text(); ok {
		return s, true
	}
	if s, ok := prop.selected(); ok {
		return s, true
	}
	if prop.Date != nil && strings.TrimSpace(prop.Date.Start) != "" {
		return strings.TrimSpace(prop.Date.Start), true
	}
	if ids := prop.relationIDs(); len(ids) > 0 {
		return ids[0], true
	}
	return "", false
}

// decodeProperties converts a loosely typed JSON object into Properties.
// Entries that do not decode are skipped.
func decodeProperties(v any) Properties {
	bag, ok := v.(map[string]any)
	if !ok || len(bag) == 0 {
		return Properties{}
	}
	props := make(Properties, len(bag))
	for key, raw := range bag {
		prop, ok := decodeProperty(raw)
		if !ok {
			continue
		}
		props[key] = prop
	}
	return props
}

func decodeProperty(v any) (Property, bool) {
	if _, ok := v.(map[string]any); !ok {
		return Property{}, false
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Property{}, false
	}
	var prop Property
	if err := json.Unmarshal(data, &prop); err != nil {
		return Property{}, false
	}
	return prop, true
}
