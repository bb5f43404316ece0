package entity

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
)

const (
	MarkX   = "X"
	MarkO   = "O"
	MarkTie = "-"

	EmptyCell = ""
)

var ErrInvalidCell = errors.New("invalid cell index")

var winCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board is the 3x3 grid stored row by row.
type Board [9]string

func (that *Board) Place(cell int, mark string) error {
	if cell < 0 || cell >= len(that) {
		return fmt.Errorf("%w: cell %d", ErrInvalidCell, cell)
	}

	if that[cell] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	that[cell] = mark

	return nil
}

// Winner - returns the mark owning a full line, MarkTie when the board is
// full with no line, or an empty string while the game can continue.
func (that *Board) Winner() string {
	for _, combo := range winCombos {
		a, b, c := that[combo[0]], that[combo[1]], that[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}

	for _, cell := range that {
		if cell == EmptyCell {
			return EmptyCell
		}
	}

	return MarkTie
}

func (that *Board) Reset() {
	for i := range that {
		that[i] = EmptyCell
	}
}
