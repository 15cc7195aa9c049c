package importer

// Deduplicator classifies candidate phones against the existing client store
// and the rows seen earlier in the same batch. Each preview or commit call
// owns its own instance; the seen set never outlives one batch.
type Deduplicator struct {
	existing map[string]struct{}
	seen     map[string]struct{}
}

// NewDeduplicator wraps the phone set loaded from the client store.
func NewDeduplicator(existing map[string]struct{}) *Deduplicator {
	if existing == nil {
		existing = make(map[string]struct{})
	}
	return &Deduplicator{
		existing: existing,
		seen:     make(map[string]struct{}),
	}
}

// Classify must be called in file order. The first occurrence of a phone in
// the batch is valid and claims the number; second and later occurrences are
// flagged as in-batch duplicates. Store collisions win over batch collisions.
func (d *Deduplicator) Classify(phone string) OutcomeKind {
	if _, ok := d.existing[phone]; ok {
		return OutcomeDuplicateExisting
	}
	if _, ok := d.seen[phone]; ok {
		return OutcomeDuplicateInBatch
	}
	d.seen[phone] = struct{}{}
	return OutcomeValid
}
