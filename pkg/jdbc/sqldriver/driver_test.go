package sqldriver

import (
	"database/sql"
	"database/sql/driver"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverRegistered(t *testing.T) {
	assert.Contains(t, sql.Drivers(), "jdbc")
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		wantErr bool
	}{
		{"class and url", "org.postgresql.Driver|jdbc:postgresql://localhost/app", false},
		{"with credentials", "org.postgresql.Driver|jdbc:postgresql://localhost/app|app|secret", false},
		{"missing url", "org.postgresql.Driver", true},
		{"three parts", "class|url|user", true},
		{"five parts", "class|url|user|pass|extra", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseDSN(tt.dsn)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "org.postgresql.Driver", opts.DriverClass)
			assert.Equal(t, "jdbc:postgresql://localhost/app", opts.URL)
		})
	}
}

func TestParseDSNCredentials(t *testing.T) {
	opts, err := ParseDSN("org.postgresql.Driver|jdbc:postgresql://localhost/app|app|secret")
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "secret"}, opts.Credentials)

	opts, err = ParseDSN("org.sqlite.JDBC|jdbc:sqlite:test.db")
	require.NoError(t, err)
	assert.Nil(t, opts.Credentials)
}

func TestNamedToArgs(t *testing.T) {
	args, err := namedToArgs(nil)
	require.NoError(t, err)
	assert.Nil(t, args)

	args, err = namedToArgs([]driver.NamedValue{
		{Ordinal: 1, Value: int64(1)},
		{Ordinal: 2, Value: "a"},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), "a"}, args)

	_, err = namedToArgs([]driver.NamedValue{{Name: "id", Ordinal: 1, Value: int64(1)}})
	assert.ErrorContains(t, err, "named parameter")
}

func TestValuesToNamed(t *testing.T) {
	named := valuesToNamed([]driver.Value{int64(7), "x"})
	require.Len(t, named, 2)
	assert.Equal(t, 1, named[0].Ordinal)
	assert.Equal(t, int64(7), named[0].Value)
	assert.Equal(t, 2, named[1].Ordinal)
}

func TestExecResult(t *testing.T) {
	n, err := execResult{rows: 3}.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = execResult{rows: -1}.RowsAffected()
	assert.ErrorContains(t, err, "unknown")

	_, err = execResult{rows: 3}.LastInsertId()
	assert.Error(t, err)
}
