package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidUser(t *testing.T) {
	violations := Validate(User{Name: "John Doe", Email: "john.doe@example.com"})
	assert.Empty(t, violations)
}

func TestValidate_IgnoresID(t *testing.T) {
	violations := Validate(User{ID: 42, Name: "John Doe", Email: "john.doe@example.com"})
	assert.Empty(t, violations)
}

func TestValidate_Name(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantRule string
	}{
		{name: "empty", input: "", wantRule: RuleRequired},
		{name: "too long", input: strings.Repeat("a", MaxNameLength+1), wantRule: RuleMax},
		{name: "underscore", input: "John_Doe", wantRule: RulePattern},
		{name: "apostrophe", input: "O'Brien", wantRule: RulePattern},
		{name: "non ascii letter", input: "José", wantRule: RulePattern},
		{name: "markup", input: "<b>John</b>", wantRule: RulePattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := Validate(User{Name: tt.input, Email: "john.doe@example.com"})

			require.Len(t, violations, 1)
			assert.Equal(t, "name", violations[0].Field)
			assert.Equal(t, tt.wantRule, violations[0].Rule)
			assert.NotEmpty(t, violations[0].Message)
		})
	}
}

func TestValidate_NameBoundaries(t *testing.T) {
	valid := []string{
		"a",
		strings.Repeat("a", MaxNameLength),
		"Jean-Luc Picard",
		"J. R. R. Tolkien",
		"Agent 47",
		"Tab\tSeparated",
	}

	for _, name := range valid {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, Validate(User{Name: name, Email: "john.doe@example.com"}))
		})
	}
}

func TestValidate_Email(t *testing.T) {
	invalid := []string{
		"",
		"invalid",
		"@example.com",
		"john@",
		"john@.com",
		"@.com",
		"john@example",
		"john@example.c",
		"john doe@example.com",
		"john@exa_mple.com",
		"john@example.c0m",
	}

	for _, email := range invalid {
		t.Run(email, func(t *testing.T) {
			violations := Validate(User{Name: "John Doe", Email: email})

			require.Len(t, violations, 1)
			assert.Equal(t, "email", violations[0].Field)
			if email == "" {
				assert.Equal(t, RuleRequired, violations[0].Rule)
			} else {
				assert.Equal(t, RulePattern, violations[0].Rule)
			}
		})
	}
}

func TestValidate_EmailAccepted(t *testing.T) {
	valid := []string{
		"john.doe@example.com",
		"a@example.com",
		"first+tag@sub.example.co.uk",
		"user%team@mail-server.org",
		"UPPER@EXAMPLE.COM",
	}

	for _, email := range valid {
		t.Run(email, func(t *testing.T) {
			assert.Empty(t, Validate(User{Name: "John Doe", Email: email}))
		})
	}
}

func TestValidate_OneViolationPerField(t *testing.T) {
	violations := Validate(User{Name: "", Email: "invalid"})

	require.Len(t, violations, 2)
	assert.Equal(t, "name", violations[0].Field)
	assert.Equal(t, RuleRequired, violations[0].Rule)
	assert.Equal(t, "email", violations[1].Field)
	assert.Equal(t, RulePattern, violations[1].Rule)
}

func TestValidate_Deterministic(t *testing.T) {
	u := User{Name: "John_Doe", Email: "john@"}
	assert.Equal(t, Validate(u), Validate(u))
}
