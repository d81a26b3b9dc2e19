package sqltext

import (
	"testing"

	"github.com/berbicanes/queryark/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestEscapeLiteralCoversAllSevenCases(t *testing.T) {
	in := "a'b\\c\x00d\ne\rf\bg\x1ah"
	want := `a''b\\c\0d\ne\rf\bg\Zh`
	assert.Equal(t, want, EscapeLiteral(in))
}

func TestEscapeLiteralPassesThroughPlainText(t *testing.T) {
	assert.Equal(t, "hello world", EscapeLiteral("hello world"))
}

func TestValidateIdentifierRejectsEmpty(t *testing.T) {
	assert.False(t, ValidateIdentifier(""))
}

func TestValidateIdentifierRejectsNulByte(t *testing.T) {
	assert.False(t, ValidateIdentifier("col\x00name"))
}

func TestValidateIdentifierAcceptsNormalName(t *testing.T) {
	assert.True(t, ValidateIdentifier("user_id"))
}

func TestQuoteIdentifierPerEngine(t *testing.T) {
	assert.Equal(t, `"users"`, QuoteIdentifier(model.PostgreSQL, "users"))
	assert.Equal(t, "`users`", QuoteIdentifier(model.MySQL, "users"))
	assert.Equal(t, "`users`", QuoteIdentifier(model.MariaDB, "users"))
	assert.Equal(t, "[users]", QuoteIdentifier(model.MSSQL, "users"))
	assert.Equal(t, `"users"`, QuoteIdentifier(model.SQLite, "users"))
}

func TestQuoteIdentifierEscapesEmbeddedQuote(t *testing.T) {
	assert.Equal(t, `"a""b"`, QuoteIdentifier(model.PostgreSQL, `a"b`))
	assert.Equal(t, "`a``b`", QuoteIdentifier(model.MySQL, "a`b"))
	assert.Equal(t, "[a]]b]", QuoteIdentifier(model.MSSQL, "a]b"))
}

func TestQuoteQualifiedOmitsEmptySchema(t *testing.T) {
	assert.Equal(t, `"users"`, QuoteQualified(model.PostgreSQL, "", "users"))
	assert.Equal(t, `"public"."users"`, QuoteQualified(model.PostgreSQL, "public", "users"))
}
