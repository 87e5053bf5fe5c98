// Package jdbc provides a connection/cursor API over any database that
// ships a JDBC driver, without the caller managing JVM internals.
//
// The first Connect in a process starts an embedded Java runtime with a
// classpath assembled from manual entries (JBRIDGE_CLASSPATH) and drivers
// auto-resolved from Maven Central, then loads the requested driver class
// and opens a native connection through it. Cursors prepare statements,
// bind parameters, and convert result cells between the JDBC SQL type
// system and Go values.
//
// The package may be shared freely between goroutines, but a single
// Connection or Cursor must not be used concurrently without external
// locking; the native handles behind them are not proven safe for
// concurrent access. The async subpackage provides that serialization.
package jdbc
