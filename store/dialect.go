// Copyright 2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"fmt"
	"strings"
)

// Dialect selects the SQL flavor once, at connection time. Every generated
// statement flows through exactly one of these variants rather than string
// comparisons scattered across call sites.
type Dialect int

const (
	DialectGeneric Dialect = iota
	DialectPostgres
	DialectSQLite
	DialectMySQL
)

func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectSQLite:
		return "sqlite"
	case DialectMySQL:
		return "mysql"
	default:
		return "generic"
	}
}

// ParseDialect maps a DSN scheme to its dialect. Unknown schemes fall back to
// the generic variant, which emits ANSI SQL and avoids any upsert extension.
func ParseDialect(scheme string) Dialect {
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql", "pgx", "pgx5":
		return DialectPostgres
	case "sqlite", "sqlite3", "file":
		return DialectSQLite
	case "mysql", "mariadb":
		return DialectMySQL
	default:
		return DialectGeneric
	}
}

// QuoteIdent makes an identifier safe to embed in generated SQL. Table names
// can originate from configuration, so quoting is a correctness requirement
// here, not cosmetics: an embedded quote is doubled and can never terminate
// the identifier early.
func (d Dialect) QuoteIdent(name string) string {
	name = strings.ReplaceAll(name, "\x00", "")
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Placeholder returns the bind marker for the 1-based parameter position.
func (d Dialect) Placeholder(i int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// ColumnType maps an inferred Go kind to the dialect's column type. bigint
// reports whether any sampled integer exceeded the signed 32-bit range. A
// column literally named Date is a calendar date in every dialect.
func (d Dialect) ColumnType(column string, kind ValueKind, bigint bool) string {
	if column == "Date" {
		return "DATE"
	}

	switch kind {
	case KindBool:
		return "BOOLEAN"
	case KindInt:
		if bigint {
			return "BIGINT"
		}
		return "INTEGER"
	case KindFloat:
		switch d {
		case DialectPostgres, DialectSQLite:
			return "DOUBLE PRECISION"
		case DialectMySQL:
			return "DOUBLE"
		default:
			return "FLOAT"
		}
	case KindTime:
		if d == DialectMySQL {
			return "DATETIME"
		}
		return "TIMESTAMP"
	case KindString:
		// MySQL cannot put a unique index on TEXT without a prefix length.
		if d == DialectMySQL {
			return "VARCHAR(255)"
		}
		return "TEXT"
	default:
		if d == DialectMySQL {
			return "VARCHAR(255)"
		}
		return "TEXT"
	}
}

// CastText wraps a quoted column or expression so it comes back from the
// driver as a plain string regardless of the stored type.
func (d Dialect) CastText(quoted string) string {
	if d == DialectMySQL {
		return fmt.Sprintf("CAST(%s AS CHAR)", quoted)
	}
	return fmt.Sprintf("CAST(%s AS TEXT)", quoted)
}

// UpsertSQL builds the single-statement insert-or-replace for dialects that
// have one. The second return is false for the generic variant, whose upsert
// is a delete-then-insert pair inside one transaction (see Store.Upsert).
func (d Dialect) UpsertSQL(table string, cols []string, keyCols []string) (string, bool) {
	quotedCols := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, col := range cols {
		quotedCols[i] = d.QuoteIdent(col)
		params[i] = d.Placeholder(i + 1)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table), strings.Join(quotedCols, ", "), strings.Join(params, ", "))

	isKey := make(map[string]bool, len(keyCols))
	for _, k := range keyCols {
		isKey[k] = true
	}

	switch d {
	case DialectPostgres, DialectSQLite:
		quotedKeys := make([]string, len(keyCols))
		for i, k := range keyCols {
			quotedKeys[i] = d.QuoteIdent(k)
		}
		sets := make([]string, 0, len(cols))
		for _, col := range cols {
			if isKey[col] {
				continue
			}
			q := d.QuoteIdent(col)
			sets = append(sets, fmt.Sprintf("%s=excluded.%s", q, q))
		}
		return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s",
			insert, strings.Join(quotedKeys, ", "), strings.Join(sets, ", ")), true
	case DialectMySQL:
		sets := make([]string, 0, len(cols))
		for _, col := range cols {
			if isKey[col] {
				continue
			}
			q := d.QuoteIdent(col)
			sets = append(sets, fmt.Sprintf("%s=VALUES(%s)", q, q))
		}
		return fmt.Sprintf("%s ON DUPLICATE KEY UPDATE %s", insert, strings.Join(sets, ", ")), true
	default:
		return insert, false
	}
}

// InsertSQL builds a plain parameterized insert.
func (d Dialect) InsertSQL(table string, cols []string) string {
	quotedCols := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, col := range cols {
		quotedCols[i] = d.QuoteIdent(col)
		params[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table), strings.Join(quotedCols, ", "), strings.Join(params, ", "))
}

// DeleteByKeySQL builds the per-row delete used by the generic upsert path.
func (d Dialect) DeleteByKeySQL(table string, keyCols []string) string {
	conds := make([]string, len(keyCols))
	for i, k := range keyCols {
		conds[i] = fmt.Sprintf("%s = %s", d.QuoteIdent(k), d.Placeholder(i+1))
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", d.QuoteIdent(table), strings.Join(conds, " AND "))
}
