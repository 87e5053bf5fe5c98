// Package resolver downloads and caches JDBC driver artifacts from Maven
// Central and assembles the classpath handed to the embedded runtime.
package resolver

import (
	"fmt"
	"sort"
	"strings"
)

// mavenCentralBase is the canonical artifact repository root.
const mavenCentralBase = "https://repo1.maven.org/maven2"

// Coordinate identifies one downloadable artifact. It is an immutable value;
// two coordinates are equal iff all four fields are equal.
type Coordinate struct {
	GroupID    string
	ArtifactID string
	Version    string
	Classifier string
}

// Filename returns the deterministic jar name for this coordinate.
func (c Coordinate) Filename() string {
	if c.Classifier != "" {
		return fmt.Sprintf("%s-%s-%s.jar", c.ArtifactID, c.Version, c.Classifier)
	}
	return fmt.Sprintf("%s-%s.jar", c.ArtifactID, c.Version)
}

// URL returns the Maven Central download URL for this coordinate.
func (c Coordinate) URL() string {
	groupPath := strings.ReplaceAll(c.GroupID, ".", "/")
	return fmt.Sprintf("%s/%s/%s/%s/%s", mavenCentralBase, groupPath, c.ArtifactID, c.Version, c.Filename())
}

// String returns the conventional group:artifact:version form.
func (c Coordinate) String() string {
	s := c.GroupID + ":" + c.ArtifactID + ":" + c.Version
	if c.Classifier != "" {
		s += ":" + c.Classifier
	}
	return s
}

// Kinds for the bridge's own runtime-side artifacts. These are resolved
// through the same cache as driver jars but are not listed by Kinds().
const (
	GatewayKind = "gateway"
	HikariKind  = "hikaricp"
	SLF4JKind   = "slf4j"
)

// drivers maps a database kind to its recommended driver coordinate.
// Versions are pinned; they are known to work against the gateway.
var drivers = map[string]Coordinate{
	"postgresql": {GroupID: "org.postgresql", ArtifactID: "postgresql", Version: "42.7.1"},
	// Oracle renamed the artifact from mysql-connector-java.
	"mysql":     {GroupID: "com.mysql", ArtifactID: "mysql-connector-j", Version: "8.3.0"},
	"mariadb":   {GroupID: "org.mariadb.jdbc", ArtifactID: "mariadb-java-client", Version: "3.3.2"},
	"mssql":     {GroupID: "com.microsoft.sqlserver", ArtifactID: "mssql-jdbc", Version: "12.6.0.jre11"},
	"oracle":    {GroupID: "com.oracle.database.jdbc", ArtifactID: "ojdbc11", Version: "23.3.0.23.09"},
	"db2":       {GroupID: "com.ibm.db2", ArtifactID: "jcc", Version: "11.5.9.0"},
	"sqlite":    {GroupID: "org.xerial", ArtifactID: "sqlite-jdbc", Version: "3.45.0.0"},
	"oceanbase": {GroupID: "com.oceanbase", ArtifactID: "oceanbase-client", Version: "2.4.9"},
}

// internalArtifacts are jars the bridge itself needs on the classpath.
var internalArtifacts = map[string]Coordinate{
	GatewayKind: {GroupID: "io.leapstack", ArtifactID: "jbridge-gateway", Version: "0.4.2"},
	HikariKind:  {GroupID: "com.zaxxer", ArtifactID: "HikariCP", Version: "5.1.0"},
	SLF4JKind:   {GroupID: "org.slf4j", ArtifactID: "slf4j-api", Version: "2.0.12"},
}

// Lookup returns the coordinate for a database kind or internal artifact.
func Lookup(kind string) (Coordinate, bool) {
	k := strings.ToLower(kind)
	if c, ok := drivers[k]; ok {
		return c, true
	}
	c, ok := internalArtifacts[k]
	return c, ok
}

// Kinds returns the supported database kinds, sorted.
func Kinds() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
