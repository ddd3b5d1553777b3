package elfpatch

import (
	"errors"
	"testing"
)

func TestFindSymbolReportsNotFound(t *testing.T) {
	_, err := FindSymbol("elfpatch_no_such_symbol_anywhere")
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("expected ErrSymbolNotFound - got %v", err)
	}
}
