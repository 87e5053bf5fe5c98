package resolver

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinateFilename(t *testing.T) {
	tests := []struct {
		name  string
		coord Coordinate
		want  string
	}{
		{
			name:  "plain",
			coord: Coordinate{GroupID: "org.postgresql", ArtifactID: "postgresql", Version: "42.7.1"},
			want:  "postgresql-42.7.1.jar",
		},
		{
			name:  "with classifier",
			coord: Coordinate{GroupID: "com.example", ArtifactID: "lib", Version: "1.0", Classifier: "sources"},
			want:  "lib-1.0-sources.jar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.coord.Filename())
		})
	}
}

func TestCoordinateURL(t *testing.T) {
	coord := Coordinate{GroupID: "com.mysql", ArtifactID: "mysql-connector-j", Version: "8.3.0"}
	assert.Equal(t,
		"https://repo1.maven.org/maven2/com/mysql/mysql-connector-j/8.3.0/mysql-connector-j-8.3.0.jar",
		coord.URL())
}

func TestCoordinateString(t *testing.T) {
	coord := Coordinate{GroupID: "org.xerial", ArtifactID: "sqlite-jdbc", Version: "3.45.0.0"}
	assert.Equal(t, "org.xerial:sqlite-jdbc:3.45.0.0", coord.String())
}

func TestLookup(t *testing.T) {
	t.Run("known driver", func(t *testing.T) {
		coord, ok := Lookup("postgresql")
		require.True(t, ok)
		assert.Equal(t, "org.postgresql", coord.GroupID)
	})

	t.Run("case insensitive", func(t *testing.T) {
		_, ok := Lookup("PostgreSQL")
		assert.True(t, ok)
	})

	t.Run("internal artifact", func(t *testing.T) {
		coord, ok := Lookup(GatewayKind)
		require.True(t, ok)
		assert.Equal(t, "jbridge-gateway", coord.ArtifactID)
	})

	t.Run("unknown", func(t *testing.T) {
		_, ok := Lookup("nosuchdb")
		assert.False(t, ok)
	})
}

func TestKinds(t *testing.T) {
	kinds := Kinds()
	assert.True(t, sort.StringsAreSorted(kinds))
	assert.Contains(t, kinds, "postgresql")
	assert.Contains(t, kinds, "oracle")
	// Internal artifacts are not advertised as database kinds.
	assert.NotContains(t, kinds, GatewayKind)
}
