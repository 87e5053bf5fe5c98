package jdbc

import "strconv"

// TypeCode is a JDBC SQL type code (java.sql.Types). Result columns report
// their code in the cursor description and drive value conversion.
type TypeCode int32

const (
	TypeBit           TypeCode = -7
	TypeTinyInt       TypeCode = -6
	TypeBigInt        TypeCode = -5
	TypeLongVarBinary TypeCode = -4
	TypeVarBinary     TypeCode = -3
	TypeBinary        TypeCode = -2
	TypeLongVarChar   TypeCode = -1
	TypeNull          TypeCode = 0
	TypeChar          TypeCode = 1
	TypeNumeric       TypeCode = 2
	TypeDecimal       TypeCode = 3
	TypeInteger       TypeCode = 4
	TypeSmallInt      TypeCode = 5
	TypeFloat         TypeCode = 6
	TypeReal          TypeCode = 7
	TypeDouble        TypeCode = 8
	TypeVarChar       TypeCode = 12
	TypeBoolean       TypeCode = 16
	TypeDate          TypeCode = 91
	TypeTime          TypeCode = 92
	TypeTimestamp     TypeCode = 93
	TypeOther         TypeCode = 1111
	TypeArray         TypeCode = 2003
	TypeBlob          TypeCode = 2004
	TypeClob          TypeCode = 2005
	TypeNChar         TypeCode = -15
	TypeNVarChar      TypeCode = -9
	TypeLongNVarChar  TypeCode = -16
	TypeNClob         TypeCode = 2011
	TypeRowID         TypeCode = -8
	TypeSQLXML        TypeCode = 2009
)

var typeCodeNames = map[TypeCode]string{
	TypeBit:           "BIT",
	TypeTinyInt:       "TINYINT",
	TypeBigInt:        "BIGINT",
	TypeLongVarBinary: "LONGVARBINARY",
	TypeVarBinary:     "VARBINARY",
	TypeBinary:        "BINARY",
	TypeLongVarChar:   "LONGVARCHAR",
	TypeNull:          "NULL",
	TypeChar:          "CHAR",
	TypeNumeric:       "NUMERIC",
	TypeDecimal:       "DECIMAL",
	TypeInteger:       "INTEGER",
	TypeSmallInt:      "SMALLINT",
	TypeFloat:         "FLOAT",
	TypeReal:          "REAL",
	TypeDouble:        "DOUBLE",
	TypeVarChar:       "VARCHAR",
	TypeBoolean:       "BOOLEAN",
	TypeDate:          "DATE",
	TypeTime:          "TIME",
	TypeTimestamp:     "TIMESTAMP",
	TypeOther:         "OTHER",
	TypeArray:         "ARRAY",
	TypeBlob:          "BLOB",
	TypeClob:          "CLOB",
	TypeNChar:         "NCHAR",
	TypeNVarChar:      "NVARCHAR",
	TypeLongNVarChar:  "LONGNVARCHAR",
	TypeNClob:         "NCLOB",
	TypeRowID:         "ROWID",
	TypeSQLXML:        "SQLXML",
}

func (t TypeCode) String() string {
	if name, ok := typeCodeNames[t]; ok {
		return name
	}
	return "TYPE(" + strconv.Itoa(int(t)) + ")"
}
