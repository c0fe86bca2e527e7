// Command golap is a CLI front end over the golap query engine, adapted
// from the teacher's own main.go: a query/help command pair over stdlib
// flag, printing Arrow record batches instead of types.Row.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/xwb1989/sqlparser"

	"github.com/golapdb/golap"
)

func main() {
	batchSize := flag.Int("batch-size", golap.DefaultBatchSize, "rows per batch pulled from the scan boundary")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "query", "q":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Error: SQL query required")
			fmt.Fprintln(os.Stderr, `Usage: golap query "SELECT * FROM users"`)
			os.Exit(1)
		}
		runQuery(args[1], *batchSize)

	case "help", "-h", "--help":
		printUsage()

	default:
		runQuery(strings.Join(args, " "), *batchSize)
	}
}

func printUsage() {
	fmt.Println(`golap - an embeddable columnar SQL query engine

Usage:
  golap query "SQL_QUERY"     Execute a SQL query
  golap "SQL_QUERY"           Execute a SQL query (shorthand)

Examples:
  golap query "SELECT * FROM users LIMIT 10"
  golap "SELECT id, name FROM users WHERE age > 25"
  golap "SELECT category, SUM(amount) FROM sales GROUP BY category"

Supported SQL:
  SELECT columns or *, FROM <table>, WHERE, GROUP BY, aggregates
  (COUNT, SUM, MIN, MAX, AVG), LIMIT. ORDER BY parses but does not
  execute yet. The FROM table name is opened as a CSV file path; a
  dotted name such as data.csv is parsed as qualifier.table, and only
  the part after the dot ("csv") is used.

Flags:
  -batch-size=N   rows per batch pulled from the scan boundary (default 1024)`)
}

func runQuery(query string, batchSize int) {
	ctx := golap.NewContext()

	tableName, err := tableNameInQuery(query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if tableName != "" {
		if err := ctx.RegisterCSV(tableName, tableName); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	rel, err := ctx.Sql(context.Background(), query, batchSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer rel.Close()

	printRelation(rel)
}

// tableNameInQuery extracts the FROM-clause table name so the CLI can
// auto-register it as a CSV table by the same name, saving the caller an
// explicit RegisterCSV call. Embedding hosts using Context directly are
// expected to register tables themselves.
func tableNameInQuery(query string) (string, error) {
	stmt, err := sqlparser.Parse(query)
	if err != nil {
		return "", fmt.Errorf("SQL parse error: %w", err)
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok || len(sel.From) != 1 {
		return "", nil
	}
	aliased, ok := sel.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return "", nil
	}
	name, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return "", nil
	}
	return strings.Trim(name.Name.String(), "`\""), nil
}

func printRelation(rel interface {
	Schema() *arrow.Schema
	Next() (arrow.Record, error)
}) {
	schema := rel.Schema()
	names := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		names[i] = f.Name
	}
	header := strings.Join(names, "\t")
	fmt.Println(header)
	fmt.Println(strings.Repeat("-", len(header)+8))

	rowCount := 0
	for {
		rec, err := rel.Next()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading batch: %v\n", err)
			os.Exit(1)
		}
		if rec == nil {
			break
		}
		rowCount += printRecord(rec)
		rec.Release()
	}
	fmt.Printf("\n(%d rows)\n", rowCount)
}

func printRecord(rec arrow.Record) int {
	n := int(rec.NumRows())
	for r := 0; r < n; r++ {
		values := make([]string, rec.NumCols())
		for c := 0; c < int(rec.NumCols()); c++ {
			col := rec.Column(c)
			if col.IsNull(r) {
				values[c] = "NULL"
			} else {
				values[c] = cellString(col, r)
			}
		}
		fmt.Println(strings.Join(values, "\t"))
	}
	return n
}

// cellString renders a single non-null cell for display.
func cellString(arr arrow.Array, i int) string {
	switch a := arr.(type) {
	case *array.Boolean:
		return fmt.Sprintf("%v", a.Value(i))
	case *array.Int8:
		return fmt.Sprintf("%d", a.Value(i))
	case *array.Int16:
		return fmt.Sprintf("%d", a.Value(i))
	case *array.Int32:
		return fmt.Sprintf("%d", a.Value(i))
	case *array.Int64:
		return fmt.Sprintf("%d", a.Value(i))
	case *array.Uint8:
		return fmt.Sprintf("%d", a.Value(i))
	case *array.Uint16:
		return fmt.Sprintf("%d", a.Value(i))
	case *array.Uint32:
		return fmt.Sprintf("%d", a.Value(i))
	case *array.Uint64:
		return fmt.Sprintf("%d", a.Value(i))
	case *array.Float32:
		return fmt.Sprintf("%v", a.Value(i))
	case *array.Float64:
		return fmt.Sprintf("%v", a.Value(i))
	case *array.String:
		return a.Value(i)
	default:
		return fmt.Sprintf("%v", arr)
	}
}
