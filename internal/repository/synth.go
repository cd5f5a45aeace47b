// SPDX-License-Identifier: MPL-2.0

package repository

import (
	"fmt"
	"sort"
	"strconv"

	"envmod-cli/pkg/moddesc"
	"envmod-cli/pkg/modname"
)

// synthesizeMetas adds meta descriptors for the partial names each concrete
// module can be addressed by: the bare name, name-arch, name-major and
// name-major-arch. A synthesized name never shadows a user-authored
// descriptor. Each meta delegates to the single best concrete match:
// host-architecture first when the partial name leaves it open, then the
// highest version.
func (r *Repository) synthesizeMetas(found map[string]*moddesc.Descriptor) {
	type concrete struct {
		name modname.ModuleName
		desc *moddesc.Descriptor
	}

	var concretes []concrete
	for _, desc := range found {
		if desc.ModuleType != moddesc.TypeDefault {
			continue
		}
		parsed, err := modname.Parse(desc.FullName)
		if err != nil {
			// Decode already validated the name; treat a miss as a bug.
			r.logger.Error("descriptor has unparseable name", "module", desc.FullName, "err", err)
			continue
		}
		concretes = append(concretes, concrete{name: parsed, desc: desc})
	}

	candidates := map[string]bool{}
	for _, c := range concretes {
		for _, partial := range partialNames(c.name) {
			if partial == c.desc.FullName {
				continue
			}
			candidates[partial] = true
		}
	}

	names := make([]string, 0, len(candidates))
	for name := range candidates {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, partial := range names {
		if _, occupied := found[partial]; occupied {
			continue
		}
		pattern, err := modname.Parse(partial)
		if err != nil {
			continue
		}

		var best *moddesc.Descriptor
		var bestName modname.ModuleName
		for _, c := range concretes {
			if !matchesPartial(pattern, c.name) {
				continue
			}
			if best == nil || r.better(c.name, bestName, pattern) {
				best = c.desc
				bestName = c.name
			}
		}
		if best == nil {
			continue
		}

		found[partial] = &moddesc.Descriptor{
			FullName:     partial,
			Synthesized:  true,
			ModuleType:   moddesc.TypeMeta,
			DirectUnload: true,
			Dependencies: []moddesc.DependencyRef{{FullName: best.FullName}},
			Category:     best.Category,
		}
		r.logger.Debug("synthesized meta descriptor",
			"module", partial, "target", best.FullName)
	}
}

// partialNames lists the synthesizable aliases for one concrete name.
func partialNames(m modname.ModuleName) []string {
	out := []string{m.Name}
	if m.Architecture != "" {
		out = append(out, m.Name+"-"+m.Architecture)
	}
	if major := m.Major(); major >= 0 {
		out = append(out, fmt.Sprintf("%s-%d", m.Name, major))
		if m.Architecture != "" {
			out = append(out, fmt.Sprintf("%s-%d-%s", m.Name, major, m.Architecture))
		}
	}
	return out
}

// matchesPartial reports whether a concrete name satisfies a partial name
// pattern: same base, matching architecture when the pattern pins one, and
// matching major version when the pattern pins one.
func matchesPartial(pattern, concrete modname.ModuleName) bool {
	if pattern.Name != concrete.Name {
		return false
	}
	if pattern.Architecture != "" && pattern.Architecture != concrete.Architecture {
		return false
	}
	if pattern.Version != "" {
		major, err := strconv.Atoi(pattern.Version)
		if err != nil || concrete.Major() != major {
			return false
		}
	}
	return true
}

// better reports whether candidate should replace current as the meta
// target. When the pattern leaves the architecture open, the host
// architecture wins; then the higher version; then the lexicographically
// smaller full name so results are deterministic.
func (r *Repository) better(candidate, current modname.ModuleName, pattern modname.ModuleName) bool {
	if pattern.Architecture == "" {
		candHost := candidate.Architecture == r.hostArch
		currHost := current.Architecture == r.hostArch
		if candHost != currHost {
			return candHost
		}
	}

	candVer, currVer := candidate.SemVer(), current.SemVer()
	switch {
	case candVer != nil && currVer == nil:
		return true
	case candVer == nil && currVer != nil:
		return false
	case candVer != nil && currVer != nil && !candVer.Equal(currVer):
		return candVer.GreaterThan(currVer)
	}

	return candidate.String() < current.String()
}
