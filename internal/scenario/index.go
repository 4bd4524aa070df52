package scenario

import (
	"github.com/example/refsim/internal/program"
	"github.com/example/refsim/internal/simerr"
	"github.com/example/refsim/internal/stream"
)

// buildIndex merges the default stanza and every policy the simulation
// names, in `using ... then` order, into one ordered command list per
// use-key: default's commands first, then each named policy's commands
// appended after, preserving each stanza's own source order. Uniqueness of
// application/substance names is enforced per stanza, not across stanzas,
// since a policy legitimately targets an application or substance the
// default stanza already declared.
func buildIndex(prog program.Program, sim program.Simulation) (map[stream.UseKey][]program.Command, []stream.UseKey, error) {
	index := make(map[stream.UseKey][]program.Command)
	var order []stream.UseKey
	seenKey := make(map[stream.UseKey]bool)

	appendStanza := func(stanza program.Stanza, context string) error {
		seenApp := make(map[string]bool)
		for _, app := range stanza.Applications {
			if seenApp[app.Name] {
				return &simerr.DuplicateError{Type: "application", Name: app.Name, Context: context}
			}
			seenApp[app.Name] = true

			seenSub := make(map[string]bool)
			for _, sub := range app.Substances {
				if seenSub[sub.Name] {
					return &simerr.DuplicateError{Type: "substance", Name: sub.Name, Context: app.Name}
				}
				seenSub[sub.Name] = true

				key := stream.UseKey{Application: app.Name, Substance: sub.Name}
				if !seenKey[key] {
					seenKey[key] = true
					order = append(order, key)
				}
				index[key] = append(index[key], sub.Commands...)
			}
		}
		return nil
	}

	if err := appendStanza(prog.Default, "default"); err != nil {
		return nil, nil, err
	}

	policyByName := make(map[string]program.Policy, len(prog.Policies))
	for _, p := range prog.Policies {
		if _, dup := policyByName[p.Name]; dup {
			return nil, nil, &simerr.DuplicateError{Type: "policy", Name: p.Name, Context: "program"}
		}
		policyByName[p.Name] = p
	}

	for _, name := range sim.Policies {
		policy, ok := policyByName[name]
		if !ok {
			return nil, nil, &simerr.ScopeError{Operation: "simulation " + sim.Name + " references undeclared policy " + name}
		}
		if err := appendStanza(program.Stanza{Applications: policy.Apps}, "policy "+name); err != nil {
			return nil, nil, err
		}
	}

	return index, order, nil
}

// resolveYear fills a command's year matcher's sentinel bounds against the
// simulation's own year range: `beginning` pins Min to the simulation's
// first year when no explicit Min was given, `onwards` pins Max to the
// simulation's last year when no explicit Max was given. An unset matcher
// with neither sentinel stays fully open, matching every year.
func resolveYear(m program.YearMatcher, yearStart, yearEnd int) program.YearMatcher {
	if m.Beginning && m.Min == nil {
		v := yearStart
		m.Min = &v
	}
	if m.Onwards && m.Max == nil {
		v := yearEnd
		m.Max = &v
	}
	return m
}
