package requirement

import "sort"

// FeatureChain is the chronologically ordered set of documents that share a
// feature key. Chains are built once per resolution run and never persisted.
type FeatureChain struct {
	FeatureKey string
	Documents  []Document
}

// BuildChains groups normalized documents into per-feature chains. Abandoned
// documents are discarded first, the remainder is stable-sorted by sequence
// number ascending, then grouped by feature key preserving that order. Chains
// are returned sorted by feature key so downstream output is deterministic.
//
// Sequence number uniqueness is a Normalize-level contract; the builder
// assumes it and does not re-check. Calling it on documents that bypassed
// Normalize is undefined behavior.
func BuildChains(docs []Document) []FeatureChain {
	kept := make([]Document, 0, len(docs))
	for i := range docs {
		if docs[i].Status == StatusAbandoned {
			continue
		}
		kept = append(kept, docs[i])
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].SequenceNumber < kept[j].SequenceNumber
	})

	byFeature := make(map[string][]Document)
	keys := make([]string, 0)
	for i := range kept {
		key := kept[i].FeatureKey
		if _, ok := byFeature[key]; !ok {
			keys = append(keys, key)
		}
		byFeature[key] = append(byFeature[key], kept[i])
	}
	sort.Strings(keys)

	chains := make([]FeatureChain, 0, len(keys))
	for _, key := range keys {
		chains = append(chains, FeatureChain{
			FeatureKey: key,
			Documents:  byFeature[key],
		})
	}
	return chains
}
