package annotation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Builder turns the INFO column of a decomposed VCF record into an Annotation.
type Builder struct {
	Groups         FrequencyGroups
	CSQ            CSQFormat
	Distances      *DistanceCalculator
	HGNC           HGNCResolver
	KeyValueFields []string // INFO fields holding "k1=v1|k2=v2" external data
}

// hgmdPrefix groups INFO fields written by the HGMD post-processor.
const hgmdPrefix = "HGMD__"

// Build interprets info. Missing CSQ yields an annotation without transcripts.
func (b *Builder) Build(info map[string]interface{}) (*Annotation, error) {
	a := &Annotation{
		Frequencies: make(Frequencies),
		External:    make(map[string]map[string]string),
	}

	if raw, ok := info["CSQ"].(string); ok && raw != "" {
		if b.CSQ == nil {
			return nil, fmt.Errorf("CSQ present but no CSQ format header")
		}
		transcripts, refs, err := ParseCSQ(raw, b.CSQ, b.Distances, b.HGNC)
		if err != nil {
			return nil, err
		}
		a.Transcripts = transcripts
		a.References = refs
	}

	if err := b.readFrequencies(info, a.Frequencies); err != nil {
		return nil, err
	}

	for k, v := range info {
		if field, ok := strings.CutPrefix(k, hgmdPrefix); ok {
			if a.External["HGMD"] == nil {
				a.External["HGMD"] = make(map[string]string)
			}
			a.External["HGMD"][field] = infoString(v)
		}
	}
	for _, field := range b.KeyValueFields {
		raw, ok := info[field].(string)
		if !ok || raw == "" {
			continue
		}
		kv := SplitKeyValue(raw)
		if len(kv) > 0 {
			a.External[field] = kv
		}
	}
	return a, nil
}

// readFrequencies reads <PROVIDER>__AF[_<KEY>], __AN and __AC INFO fields.
// The global key "G" has no suffix.
func (b *Builder) readFrequencies(info map[string]interface{}, out Frequencies) error {
	for provider, keys := range b.Groups.ProviderKeys() {
		pf := ProviderFrequency{Freq: map[string]float64{}}
		for _, key := range keys {
			raw, ok := info[InfoField(provider, "AF", key)]
			if !ok {
				continue
			}
			f, err := strconv.ParseFloat(firstValue(raw), 64)
			if err != nil {
				return fmt.Errorf("frequency %s.%s: %w", provider, key, err)
			}
			pf.Freq[key] = f
			if n, ok := intField(info, InfoField(provider, "AN", key)); ok {
				if pf.Num == nil {
					pf.Num = map[string]int64{}
				}
				pf.Num[key] = n
			}
			if c, ok := intField(info, InfoField(provider, "AC", key)); ok {
				if pf.Count == nil {
					pf.Count = map[string]int64{}
				}
				pf.Count[key] = c
			}
		}
		if len(pf.Freq) > 0 {
			out[provider] = pf
		}
	}
	return nil
}

// InfoField names the VCF INFO field of a frequency value. kind is AF, AN or
// AC.
func InfoField(provider, kind, key string) string {
	if key == "G" {
		return provider + "__" + kind
	}
	return provider + "__" + kind + "_" + key
}

func intField(info map[string]interface{}, name string) (int64, bool) {
	raw, ok := info[name]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(firstValue(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func firstValue(v interface{}) string {
	s := infoString(v)
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[:i]
	}
	return s
}

func infoString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

// SplitKeyValue parses "k1=v1|k2=v2" into a map, skipping malformed pairs.
func SplitKeyValue(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, "|") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			continue
		}
		out[k] = unescape(v)
	}
	return out
}

func sortReferences(refs []Reference) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].PubMedID < refs[j].PubMedID })
}
