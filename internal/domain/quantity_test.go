package domain_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"gopos/internal/domain"
)

func TestQuantity_BaseUnits(t *testing.T) {
	assert.Equal(t, 3, domain.Units(3).BaseUnits(6))
	assert.Equal(t, 18, domain.Packs(3).BaseUnits(6))
	assert.Equal(t, 3, domain.Packs(3).BaseUnits(0), "packSize < 1 vale 1")
}

func TestQuantity_Fits(t *testing.T) {
	limit := math.MaxInt / 6

	assert.True(t, domain.Packs(limit).Fits(6))
	assert.False(t, domain.Packs(limit+1).Fits(6))
	assert.True(t, domain.Units(math.MaxInt).Fits(6))
	assert.True(t, domain.Packs(math.MaxInt).Fits(0))
	assert.True(t, domain.Packs(-1).Fits(6))
}

func TestQuantity_Toggled(t *testing.T) {
	q := domain.Packs(2).Toggled()

	assert.Equal(t, domain.Units(2), q)
	assert.Equal(t, domain.Packs(2), q.Toggled())
}
