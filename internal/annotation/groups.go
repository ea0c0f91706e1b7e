package annotation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// FrequencyGroups maps group name → provider → frequency keys, e.g.
// {"external": {"GNOMAD_GENOMES": ["G", "AFR"]}}.
type FrequencyGroups map[string]map[string][]string

// ProviderKeys returns, per provider, the sorted union of keys across groups.
func (g FrequencyGroups) ProviderKeys() map[string][]string {
	seen := make(map[string]map[string]bool)
	for _, providers := range g {
		for provider, keys := range providers {
			if seen[provider] == nil {
				seen[provider] = make(map[string]bool)
			}
			for _, k := range keys {
				seen[provider][k] = true
			}
		}
	}
	out := make(map[string][]string, len(seen))
	for provider, keys := range seen {
		for k := range keys {
			out[provider] = append(out[provider], k)
		}
		sort.Strings(out[provider])
	}
	return out
}

// Providers returns provider names in sorted order.
func (g FrequencyGroups) Providers() []string {
	pk := g.ProviderKeys()
	out := make([]string, 0, len(pk))
	for p := range pk {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Enabled reports whether provider/key is part of any group.
func (g FrequencyGroups) Enabled(provider, key string) bool {
	for _, providers := range g {
		for _, k := range providers[provider] {
			if k == key {
				return true
			}
		}
	}
	return false
}

// Fingerprint is a stable digest of the configuration. Shadow tables built
// under one fingerprint must not be mixed with writes under another.
func (g FrequencyGroups) Fingerprint() string {
	canonical := make(map[string]map[string][]string, len(g))
	for group, providers := range g {
		canonical[group] = make(map[string][]string, len(providers))
		for provider, keys := range providers {
			ks := append([]string(nil), keys...)
			sort.Strings(ks)
			canonical[group][provider] = ks
		}
	}
	// encoding/json sorts map keys.
	b, _ := json.Marshal(canonical)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
