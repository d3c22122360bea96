package entities

import "fmt"

// GridPosition identifies one box on the board
type GridPosition struct {
	Row int `json:"row"` // away-team axis
	Col int `json:"col"` // home-team axis
}

func (p GridPosition) String() string {
	return fmt.Sprintf("(row=%d, col=%d)", p.Row, p.Col)
}

// Ordinal returns the 1-based row and column used in player-facing text
func (p GridPosition) Ordinal() (row, col int) {
	return p.Row + 1, p.Col + 1
}

// IsValid reports whether the position lies on the board
func (p GridPosition) IsValid() bool {
	return p.Row >= 0 && p.Row < GridSize && p.Col >= 0 && p.Col < GridSize
}

// ValidatePermutation checks that labels hold each digit 0..9 exactly once
func ValidatePermutation(labels []int) error {
	if labels == nil {
		return ErrNumbersNotAssigned
	}
	if len(labels) != GridSize {
		return fmt.Errorf("%w: axis has %d labels, want %d", ErrInvalidGridState, len(labels), GridSize)
	}
	var seen [GridSize]bool
	for i, digit := range labels {
		if digit < 0 || digit >= GridSize {
			return fmt.Errorf("%w: label %d at index %d is not a digit", ErrInvalidGridState, digit, i)
		}
		if seen[digit] {
			return fmt.Errorf("%w: digit %d appears more than once", ErrInvalidGridState, digit)
		}
		seen[digit] = true
	}
	return nil
}

// InverseIndex maps each digit to its position on the axis.
// labels must already be a valid permutation.
func InverseIndex(labels []int) [GridSize]int {
	var index [GridSize]int
	for i, digit := range labels {
		index[digit] = i
	}
	return index
}
