package parser

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/attilastrba/notion2hugo/internal/doctree"
	"github.com/tidwall/gjson"
)

// ErrUnhandledProperty is returned for a property value none of the
// extraction rules understand.
var ErrUnhandledProperty = errors.New("property type not handled")

// ParseProperties flattens a Notion page properties object into ordered
// front-matter properties.
//
// Relations are dropped. The title becomes "Title" with each run single
// quoted; a single run is unwrapped. Lists keep the names of their items.
// Objects resolve to the first of: option name, formula value,
// prefix_number id, date start. A "Summary" rich text field overrides the
// generic result with its first text run.
func ParseProperties(raw json.RawMessage) (*doctree.Properties, error) {
	res := gjson.ParseBytes(raw)
	props := doctree.NewProperties()

	var parseErr error
	res.ForEach(func(key, v gjson.Result) bool {
		k := key.String()
		typ := v.Get("type").String()
		switch typ {
		case "relation":
			return true
		case "title":
			var values []string
			for _, run := range v.Get("title").Array() {
				values = append(values, "'"+run.Get("plain_text").String()+"'")
			}
			if len(values) == 1 {
				props.Set("Title", doctree.String(values[0]))
			} else {
				props.Set("Title", doctree.List(values...))
			}
			return true
		}

		value, err := propertyValue(v.Get(gjson.Escape(typ)))
		if err != nil {
			parseErr = fmt.Errorf("property %q (%s): %w", k, typ, err)
			return false
		}
		props.Set(k, value)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	if res.Get("Summary").Exists() {
		content := res.Get("Summary.rich_text.0.text.content")
		if truthy(content) {
			props.Set("Summary", doctree.String("'"+content.String()+"'"))
		}
	}
	return props, nil
}

func propertyValue(c gjson.Result) (doctree.Value, error) {
	if !truthy(c) {
		if c.IsArray() {
			return doctree.List(), nil
		}
		return doctree.String(""), nil
	}
	if c.IsArray() {
		var names []string
		for _, item := range c.Array() {
			name := item.Get("name")
			if name.Exists() && name.Type != gjson.Null {
				names = append(names, name.String())
			}
		}
		return doctree.List(names...), nil
	}
	if !c.IsObject() {
		return doctree.String(c.String()), nil
	}

	switch {
	case truthy(c.Get("name")):
		return doctree.String(c.Get("name").String()), nil
	case truthy(c.Get("type")):
		return scalar(c.Get(gjson.Escape(c.Get("type").String()))), nil
	case truthy(c.Get("prefix")) && truthy(c.Get("number")):
		return doctree.String(c.Get("prefix").String() + "_" + c.Get("number").String()), nil
	case truthy(c.Get("start")):
		return doctree.String(c.Get("start").String()), nil
	}
	return doctree.Value{}, fmt.Errorf("%w: %s", ErrUnhandledProperty, truncate(c.Raw, 200))
}

// scalar flattens a formula result. Date results collapse to their start.
func scalar(r gjson.Result) doctree.Value {
	switch {
	case r.Type == gjson.Null:
		return doctree.String("")
	case r.IsObject() && r.Get("start").Exists():
		return doctree.String(r.Get("start").String())
	case r.IsObject() || r.IsArray():
		return doctree.String(r.Raw)
	}
	return doctree.String(r.String())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
