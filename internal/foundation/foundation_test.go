package foundation

import (
	"testing"
)

func TestDetected(t *testing.T) {
	t.Run("Known value", func(t *testing.T) {
		d := Known("service")

		if !d.IsKnown() {
			t.Error("Expected detected value to be known")
		}

		v, ok := d.Value()
		if !ok || v != "service" {
			t.Errorf("Expected value 'service', got %q (known=%v)", v, ok)
		}

		if d.Reason() != "" {
			t.Errorf("Expected empty reason for known value, got %q", d.Reason())
		}

		if d.UnwrapOr("fallback") != "service" {
			t.Error("Expected UnwrapOr to return the known value")
		}
	})

	t.Run("Unknown value", func(t *testing.T) {
		d := Unknown[string]("no marker files matched")

		if d.IsKnown() {
			t.Error("Expected detected value to be unknown")
		}

		if d.Reason() != "no marker files matched" {
			t.Errorf("Expected reason to round-trip, got %q", d.Reason())
		}

		if d.UnwrapOr("fallback") != "fallback" {
			t.Error("Expected UnwrapOr to return the fallback")
		}
	})

	t.Run("Match", func(t *testing.T) {
		var gotValue string
		var gotReason string

		Known(42).Match(
			func(v int) { gotValue = "known" },
			func(reason string) { gotReason = reason },
		)
		if gotValue != "known" || gotReason != "" {
			t.Error("Expected Match to call onKnown for known value")
		}

		Unknown[int]("archived").Match(
			func(v int) { gotValue = "unexpected" },
			func(reason string) { gotReason = reason },
		)
		if gotReason != "archived" {
			t.Errorf("Expected Match to call onUnknown with reason, got %q", gotReason)
		}
	})

	t.Run("MapDetected", func(t *testing.T) {
		mapped := MapDetected(Known(3), func(i int) int { return i * 2 })
		if v, _ := mapped.Value(); v != 6 {
			t.Errorf("Expected mapped value 6, got %d", v)
		}

		unknown := MapDetected(Unknown[int]("reason"), func(i int) int { return i * 2 })
		if unknown.IsKnown() || unknown.Reason() != "reason" {
			t.Error("Expected mapping unknown to preserve the reason")
		}
	})
}

func TestOption(t *testing.T) {
	t.Run("Some option", func(t *testing.T) {
		option := Some("value")

		if !option.IsSome() {
			t.Error("Expected option to be Some")
		}

		if option.IsNone() {
			t.Error("Expected option to not be None")
		}

		if option.Unwrap() != "value" {
			t.Error("Expected unwrap to return 'value'")
		}
	})

	t.Run("None option", func(t *testing.T) {
		option := None[string]()

		if option.IsSome() {
			t.Error("Expected option to not be Some")
		}

		if !option.IsNone() {
			t.Error("Expected option to be None")
		}

		if option.UnwrapOr("default") != "default" {
			t.Error("Expected unwrap or to return 'default'")
		}
	})

	t.Run("FromPointer", func(t *testing.T) {
		value := "test"
		option := FromPointer(&value)
		if !option.IsSome() {
			t.Error("Expected option from non-nil pointer to be Some")
		}

		var nilPtr *string
		option = FromPointer(nilPtr)
		if !option.IsNone() {
			t.Error("Expected option from nil pointer to be None")
		}
	})
}

func TestNormalizer(t *testing.T) {
	normalizer := NewNormalizer(map[string]string{
		"github": "github",
		"local":  "local",
	}, "github")

	t.Run("Valid values", func(t *testing.T) {
		if normalizer.Normalize("GitHub") != "github" {
			t.Error("Expected 'GitHub' to normalize to 'github'")
		}

		if normalizer.Normalize(" local ") != "local" {
			t.Error("Expected ' local ' to normalize to 'local'")
		}
	})

	t.Run("Invalid value", func(t *testing.T) {
		if normalizer.Normalize("bitbucket") != "github" {
			t.Error("Expected 'bitbucket' to return default 'github'")
		}
	})

	t.Run("With error", func(t *testing.T) {
		_, err := normalizer.NormalizeWithError("invalid")
		if err == nil {
			t.Error("Expected error for invalid value")
		}
	})
}

func TestValidation(t *testing.T) {
	t.Run("Required validator", func(t *testing.T) {
		validator := Required[string]("name")

		result := validator("test")
		if !result.Valid {
			t.Error("Expected non-empty string to be valid")
		}

		result = validator("")
		if result.Valid {
			t.Error("Expected empty string to be invalid")
		}
	})

	t.Run("String validators", func(t *testing.T) {
		chain := NewValidatorChain(
			StringNotEmpty("field"),
			StringMinLength("field", 3),
			StringMaxLength("field", 10),
		)

		result := chain.Validate("test")
		if !result.Valid {
			t.Error("Expected 'test' to be valid")
		}

		result = chain.Validate("")
		if result.Valid {
			t.Error("Expected empty string to be invalid")
		}

		result = chain.Validate("ab")
		if result.Valid {
			t.Error("Expected string too short to be invalid")
		}

		result = chain.Validate("this is too long")
		if result.Valid {
			t.Error("Expected string too long to be invalid")
		}
	})

	t.Run("OneOf validator", func(t *testing.T) {
		validator := OneOf("forge", []string{"github", "local"})

		result := validator("github")
		if !result.Valid {
			t.Error("Expected 'github' to be valid")
		}

		result = validator("bitbucket")
		if result.Valid {
			t.Error("Expected 'bitbucket' to be invalid")
		}
	})

	t.Run("ToError", func(t *testing.T) {
		if err := Valid().ToError(); err != nil {
			t.Errorf("Expected nil error for valid result, got %v", err)
		}

		invalid := Invalid(NewValidationError("forge.type", "one_of", "unsupported forge"))
		if err := invalid.ToError(); err == nil {
			t.Error("Expected error for invalid result")
		}
	})
}
