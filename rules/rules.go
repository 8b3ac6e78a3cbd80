// Package rules wraps the chess rules library behind the small pure-function
// surface the bridge needs: FEN validation, move application, and move
// legality checks. No engine or protocol knowledge lives here.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// StartingFEN is the standard initial chess position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrInvalidFEN  = errors.New("invalid FEN")
	ErrIllegalMove = errors.New("illegal move")
)

// ValidateFEN checks that fen is a well-formed FEN string.
func ValidateFEN(fen string) error {
	if strings.TrimSpace(fen) == "" {
		return fmt.Errorf("%w: empty string", ErrInvalidFEN)
	}
	if _, err := chess.FEN(fen); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return nil
}

// ApplyMoves plays a sequence of UCI move tokens (e.g. "e2e4", "e7e8q") on
// top of the given position and returns the resulting FEN. An empty fen
// means the standard starting position. Each move must be legal in the
// position it is applied to.
func ApplyMoves(fen string, moves []string) (string, error) {
	game, err := newGame(fen)
	if err != nil {
		return "", err
	}
	notation := chess.UCINotation{}
	for i, token := range moves {
		move, err := notation.Decode(game.Position(), token)
		if err != nil {
			return "", fmt.Errorf("%w: move %d (%q): %v", ErrIllegalMove, i+1, token, err)
		}
		if err := game.Move(move); err != nil {
			return "", fmt.Errorf("%w: move %d (%q) not legal in position", ErrIllegalMove, i+1, token)
		}
	}
	return game.Position().String(), nil
}

// IsLegalMove reports whether the UCI move token is legal in the given
// position. An empty fen means the standard starting position.
func IsLegalMove(fen, token string) bool {
	game, err := newGame(fen)
	if err != nil {
		return false
	}
	notation := chess.UCINotation{}
	move, err := notation.Decode(game.Position(), token)
	if err != nil {
		return false
	}
	enc := notation.Encode(game.Position(), move)
	for _, valid := range game.ValidMoves() {
		if notation.Encode(game.Position(), valid) == enc {
			return true
		}
	}
	return false
}

func newGame(fen string) (*chess.Game, error) {
	if strings.TrimSpace(fen) == "" {
		return chess.NewGame(), nil
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return chess.NewGame(opt), nil
}
