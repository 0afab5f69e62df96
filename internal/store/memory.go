package store

import "sort"

// MemoryStore is an in-memory Store implementation.
//
// Like the host application's store it is not synchronized; the bridge
// guarantees single-goroutine access. Tests drive it directly.
type MemoryStore struct {
	docs map[string]map[string]string // docID -> rule name -> text
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]string),
	}
}

func (m *MemoryStore) rules(doc Document) map[string]string {
	rules, ok := m.docs[doc.ID]
	if !ok {
		rules = make(map[string]string)
		m.docs[doc.ID] = rules
	}
	return rules
}

// ListRules implements Store.ListRules. Rules are returned sorted by
// name for a stable order.
func (m *MemoryStore) ListRules(doc Document) ([]Rule, error) {
	rules := m.rules(doc)

	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Rule, 0, len(names))
	for _, name := range names {
		out = append(out, Rule{Name: name, Text: rules[name]})
	}
	return out, nil
}

// GetRule implements Store.GetRule.
func (m *MemoryStore) GetRule(doc Document, name string) (Rule, bool, error) {
	text, ok := m.rules(doc)[name]
	if !ok {
		return Rule{}, false, nil
	}
	return Rule{Name: name, Text: text}, true, nil
}

// SetRuleText implements Store.SetRuleText.
func (m *MemoryStore) SetRuleText(doc Document, name, text string) error {
	rules := m.rules(doc)
	if _, ok := rules[name]; !ok {
		return ErrRuleNotFound
	}
	rules[name] = text
	return nil
}

// AddRule implements Store.AddRule.
func (m *MemoryStore) AddRule(doc Document, name, text string) error {
	rules := m.rules(doc)
	if _, ok := rules[name]; ok {
		return ErrRuleExists
	}
	rules[name] = text
	return nil
}

// DeleteRule implements Store.DeleteRule.
func (m *MemoryStore) DeleteRule(doc Document, name string) error {
	rules := m.rules(doc)
	if _, ok := rules[name]; !ok {
		return ErrRuleNotFound
	}
	delete(rules, name)
	return nil
}
