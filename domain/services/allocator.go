package services

import (
	"fmt"

	"squares/domain/entities"
	"squares/domain/interfaces"
)

// Allocator draws grid axis labels
type Allocator struct {
	entropy interfaces.EntropySource
}

// NewAllocator creates an allocator over an entropy source
func NewAllocator(entropy interfaces.EntropySource) *Allocator {
	return &Allocator{entropy: entropy}
}

// Allocate returns a uniformly random permutation of 0..9 (Fisher-Yates)
func (a *Allocator) Allocate() ([]int, error) {
	labels := make([]int, entities.GridSize)
	for i := range labels {
		labels[i] = i
	}

	for i := len(labels) - 1; i > 0; i-- {
		j, err := a.entropy.Intn(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to draw random index: %w", err)
		}
		if j < 0 || j > i {
			return nil, fmt.Errorf("entropy source returned %d outside [0, %d]", j, i)
		}
		labels[i], labels[j] = labels[j], labels[i]
	}

	return labels, nil
}
