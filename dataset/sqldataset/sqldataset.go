/*
Package sqldataset reads query points from and writes predictions to SQL
database tables. SQLite3 database files and PostgreSQL databases are
supported.

Points are read from the columns of a table named after the features of a
model, with NULL for undefined values. Predictions are written to a table
with a REAL column per feature followed by the mean, variance, std and
merit columns and a TEXT error column.
*/
package sqldataset

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/lib/pq"
	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"

	// Import of sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

// MaxInsertionsPerStatement is the maximum number of predictions written
// with a single insert command
const MaxInsertionsPerStatement = 10

/*
DB is a database holding points and predictions.
*/
type DB struct {
	db       *sql.DB
	postgres bool
}

/*
IsURL takes a data source and returns whether it should be handled by this
package: PostgreSQL connection URLs and .db SQLite3 files.
*/
func IsURL(source string) bool {
	return isPostgres(source) || strings.HasSuffix(source, ".db")
}

func isPostgres(source string) bool {
	return strings.HasPrefix(source, "postgresql://") || strings.HasPrefix(source, "postgres://")
}

/*
Open takes a PostgreSQL connection URL or a path to an SQLite3 database file
and the maximum number of open connections (0 for unlimited), and returns
a DB on it or an error.
*/
func Open(source string, maxConns int) (*DB, error) {
	driver := "sqlite3"
	if isPostgres(source) {
		driver = "postgres"
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxConns)
	return &DB{db, driver == "postgres"}, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

func columnName(name string) (string, error) {
	if strings.ContainsAny(name, `"`) {
		return "", fmt.Errorf(`name '%s' contains invalid character '"'`, name)
	}
	return pq.QuoteIdentifier(name), nil
}

func (d *DB) placeholder(i int) string {
	if d.postgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

/*
ReadPoints takes a context, a table name and the features of a model and
returns the points stored in the table, in the order of its rows.
*/
func (d *DB) ReadPoints(ctx context.Context, table string, features []feature.Feature) (*dataset.Points, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("no features to read")
	}
	t, err := columnName(table)
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(features))
	for i, f := range features {
		columns[i], err = columnName(f.Name())
		if err != nil {
			return nil, err
		}
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), t)
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying points from %s: %v", table, err)
	}
	defer rows.Close()
	points := &dataset.Points{Features: features}
	values := make([]sql.NullFloat64, len(features))
	dest := make([]interface{}, len(features))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err = rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning point %d: %v", points.Len()+1, err)
		}
		x := make([]float64, len(values))
		for i, v := range values {
			if v.Valid {
				x[i] = v.Float64
			} else {
				x[i] = math.NaN()
			}
		}
		points.Rows = append(points.Rows, x)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("reading points from %s: %v", table, err)
	}
	return points, nil
}

/*
WritePredictions takes a context, a table name, the features of a model
and predictions, creates the table if it does not exist and inserts the
predictions in it within a single transaction.
*/
func (d *DB) WritePredictions(ctx context.Context, table string, features []feature.Feature, predictions []dataset.Prediction) error {
	t, err := columnName(table)
	if err != nil {
		return err
	}
	columns := make([]string, 0, len(features)+len(dataset.ResultColumns))
	for _, name := range append(feature.Names(features), dataset.ResultColumns...) {
		c, err := columnName(name)
		if err != nil {
			return err
		}
		columns = append(columns, c)
	}
	var create strings.Builder
	fmt.Fprintf(&create, "CREATE TABLE IF NOT EXISTS %s(", t)
	for i, c := range columns {
		if i == len(columns)-1 {
			fmt.Fprintf(&create, "%s TEXT NULL)", c)
		} else {
			fmt.Fprintf(&create, "%s REAL NULL, ", c)
		}
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %v", err)
	}
	defer tx.Rollback()
	if _, err = tx.ExecContext(ctx, create.String()); err != nil {
		return fmt.Errorf("ensuring table %s exists: %v", table, err)
	}
	for start := 0; start < len(predictions); start += MaxInsertionsPerStatement {
		end := start + MaxInsertionsPerStatement
		if end > len(predictions) {
			end = len(predictions)
		}
		if err = d.insert(ctx, tx, t, columns, predictions[start:end]); err != nil {
			return fmt.Errorf("inserting predictions %d to %d: %v", start+1, end, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing predictions: %v", err)
	}
	return nil
}

func (d *DB) insert(ctx context.Context, tx *sql.Tx, table string, columns []string, predictions []dataset.Prediction) error {
	var stmt strings.Builder
	fmt.Fprintf(&stmt, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))
	args := make([]interface{}, 0, len(columns)*len(predictions))
	for i, p := range predictions {
		if i > 0 {
			stmt.WriteString(", ")
		}
		stmt.WriteString("(")
		row := append(append([]float64(nil), p.Point...), p.Mean, p.Variance, p.Std, p.Merit)
		for j, v := range row {
			if j > 0 {
				stmt.WriteString(", ")
			}
			args = append(args, nullable(v))
			stmt.WriteString(d.placeholder(len(args)))
		}
		var msg sql.NullString
		if p.Err != nil {
			msg = sql.NullString{String: p.Err.Error(), Valid: true}
		}
		args = append(args, msg)
		fmt.Fprintf(&stmt, ", %s)", d.placeholder(len(args)))
	}
	_, err := tx.ExecContext(ctx, stmt.String(), args...)
	return err
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
