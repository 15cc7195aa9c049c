package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeduplicator_Fresh(t *testing.T) {
	d := NewDeduplicator(nil)

	assert.Equal(t, OutcomeValid, d.Classify("+998901234567"))
	assert.Equal(t, OutcomeValid, d.Classify("+998911112233"))
}

func TestDeduplicator_ExistingStore(t *testing.T) {
	d := NewDeduplicator(map[string]struct{}{"+998901234567": {}})

	assert.Equal(t, OutcomeDuplicateExisting, d.Classify("+998901234567"))
}

func TestDeduplicator_FirstSeenWins(t *testing.T) {
	d := NewDeduplicator(nil)

	// The first occurrence claims the phone; later ones are flagged.
	assert.Equal(t, OutcomeValid, d.Classify("+998901234567"))
	assert.Equal(t, OutcomeDuplicateInBatch, d.Classify("+998901234567"))
	assert.Equal(t, OutcomeDuplicateInBatch, d.Classify("+998901234567"))
}

func TestDeduplicator_ExistingBeatsBatch(t *testing.T) {
	d := NewDeduplicator(map[string]struct{}{"+998901234567": {}})

	// A store collision stays a store collision on every occurrence.
	assert.Equal(t, OutcomeDuplicateExisting, d.Classify("+998901234567"))
	assert.Equal(t, OutcomeDuplicateExisting, d.Classify("+998901234567"))
}
