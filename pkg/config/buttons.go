package config

import (
	"fmt"
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// ButtonMap is an insertion-ordered name -> pin mapping. The first entry is
// button bit 0.
type ButtonMap struct {
	m *orderedmap.OrderedMap[string, int]
}

// NewButtonMap returns an empty map.
func NewButtonMap() ButtonMap {
	return ButtonMap{m: orderedmap.New[string, int]()}
}

// Set assigns pin to name. A new name is appended; an existing one keeps its
// position.
func (b *ButtonMap) Set(name string, pin int) {
	if b.m == nil {
		b.m = orderedmap.New[string, int]()
	}
	b.m.Set(name, pin)
}

// Len returns the number of buttons.
func (b ButtonMap) Len() int {
	if b.m == nil {
		return 0
	}
	return b.m.Len()
}

// All iterates name, pin in bit order.
func (b ButtonMap) All() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		if b.m == nil {
			return
		}
		for p := b.m.Oldest(); p != nil; p = p.Next() {
			if !yield(p.Key, p.Value) {
				return
			}
		}
	}
}

// Names returns the button names in bit order.
func (b ButtonMap) Names() []string {
	names := make([]string, 0, b.Len())
	for name := range b.All() {
		names = append(names, name)
	}
	return names
}

// Pins returns the pins in bit order.
func (b ButtonMap) Pins() []int {
	pins := make([]int, 0, b.Len())
	for _, pin := range b.All() {
		pins = append(pins, pin)
	}
	return pins
}

// Index returns the bit position of name.
func (b ButtonMap) Index(name string) (int, bool) {
	i := 0
	for n := range b.All() {
		if n == name {
			return i, true
		}
		i++
	}
	return 0, false
}

func (b *ButtonMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("buttons: expected a mapping of name to pin, line %d", node.Line)
	}
	m := orderedmap.New[string, int]()
	for i := 0; i+1 < len(node.Content); i += 2 {
		var pin int
		if err := node.Content[i+1].Decode(&pin); err != nil {
			return fmt.Errorf("buttons.%s: %w", node.Content[i].Value, err)
		}
		m.Set(node.Content[i].Value, pin)
	}
	b.m = m
	return nil
}

func (b ButtonMap) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for name, pin := range b.All() {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(pin)},
		)
	}
	return node, nil
}
