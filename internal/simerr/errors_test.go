package simerr

import (
	"errors"
	"testing"
)

func TestExitCodeMapsInternalToTwoAndEverythingElseToOne(t *testing.T) {
	if got := ExitCode(KindInternal); got != 2 {
		t.Fatalf("expected exit code 2 for internal errors, got %d", got)
	}
	for _, k := range []Kind{KindParse, KindDuplicate, KindScope, KindUnit, KindConfig, KindUnsupported} {
		if got := ExitCode(k); got != 1 {
			t.Fatalf("expected exit code 1 for %q, got %d", k, got)
		}
	}
}

func TestParseErrorFormatsLineAndColumn(t *testing.T) {
	err := &ParseError{Line: 3, Column: 7, Message: "unexpected token"}
	if got, want := err.Error(), "(line 3, col 7): unexpected token"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if err.Kind() != KindParse {
		t.Fatalf("expected KindParse, got %q", err.Kind())
	}
}

func TestEveryErrorTypeSatisfiesKinded(t *testing.T) {
	errs := []error{
		&ScopeError{Application: "a", Substance: "b", Operation: "set"},
		&ConfigError{Application: "a", Substance: "b", Reason: "zero charge"},
		&DuplicateError{Type: "substance", Name: "HFC-134a", Context: "default"},
		&UnsupportedError{Feature: "displacement"},
		&InternalError{Reason: "unbalanced frame"},
		&ParseError{Line: 1, Column: 1, Message: "bad"},
	}
	for _, e := range errs {
		var k Kinded
		if !errors.As(e, &k) {
			t.Fatalf("%T does not satisfy Kinded", e)
		}
		if k.Error() == "" {
			t.Fatalf("%T.Error() is empty", e)
		}
	}
}

func TestUnsupportedErrorOmitsDetailWhenEmpty(t *testing.T) {
	err := &UnsupportedError{Feature: "displacement"}
	if got, want := err.Error(), "unsupported: displacement"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
