package gridiron

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/richard-senior/gridiron/internal/logger"
	_ "modernc.org/sqlite"
)

var (
	db   *sql.DB
	dbMu sync.Mutex
)

// Persistable interface defines methods that persistent objects must implement
type Persistable interface {
	GetTableName() string
	GetPrimaryKey() map[string]any
	BeforeSave() error
	AfterSave() error
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// GetDB returns the database connection, opening it at Config.DbPath on first use
func GetDB() (*sql.DB, error) {
	dbMu.Lock()
	defer dbMu.Unlock()
	if db != nil {
		return db, nil
	}

	if dir := filepath.Dir(Config.DbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	d, err := sql.Open("sqlite", Config.DbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = d.Ping(); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database initialized successfully", Config.DbPath)
	db = d
	return db, nil
}

// CloseDatabase closes the database connection
func CloseDatabase() error {
	dbMu.Lock()
	defer dbMu.Unlock()
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// CreateTables creates all tables the package persists
func CreateTables() error {
	if err := CreateTable(&Play{}); err != nil {
		return fmt.Errorf("failed to create play table: %w", err)
	}
	return nil
}

// CreateTable creates a table for the given persistable object using struct tags
func CreateTable(obj Persistable) error {
	d, err := GetDB()
	if err != nil {
		return err
	}

	tableName := obj.GetTableName()
	createSQL := generateCreateTableSQL(obj, tableName)
	logger.Debug("Creating table with SQL", createSQL)

	if _, err = d.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	for _, query := range generateIndexSQL(obj, tableName) {
		logger.Debug("Creating index with SQL", query)
		if _, err := d.Exec(query); err != nil {
			logger.Warn("Failed to create index", err)
		}
	}
	return nil
}

// persistedField is a struct field that maps to a column
type persistedField struct {
	index   int
	column  string
	dbType  string
	primary bool
	indexed bool
}

// persistedFields reads the column layout from struct tags.
// Fields without a dbtype tag are not persisted.
func persistedFields(objType reflect.Type) []persistedField {
	if objType.Kind() == reflect.Ptr {
		objType = objType.Elem()
	}
	var fields []persistedField
	for i := 0; i < objType.NumField(); i++ {
		field := objType.Field(i)
		if !field.IsExported() {
			continue
		}
		dbType := field.Tag.Get("dbtype")
		if dbType == "" || field.Tag.Get("persist") == "false" {
			continue
		}
		column := field.Tag.Get("column")
		if column == "" {
			column = strings.ToLower(field.Name)
		}
		fields = append(fields, persistedField{
			index:   i,
			column:  column,
			dbType:  dbType,
			primary: field.Tag.Get("primary") == "true",
			indexed: field.Tag.Get("index") == "true",
		})
	}
	return fields
}

// generateCreateTableSQL generates CREATE TABLE SQL from struct tags
func generateCreateTableSQL(obj any, tableName string) string {
	var columns []string
	var primaryKeys []string
	for _, f := range persistedFields(reflect.TypeOf(obj)) {
		dbType := f.dbType
		if f.primary {
			primaryKeys = append(primaryKeys, f.column)
			dbType = strings.TrimSpace(strings.ReplaceAll(dbType, "PRIMARY KEY", ""))
		}
		columns = append(columns, fmt.Sprintf("%s %s", f.column, dbType))
	}
	if len(primaryKeys) > 0 {
		columns = append(columns, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tableName, strings.Join(columns, ", "))
}

// generateIndexSQL generates index creation SQL from struct tags
func generateIndexSQL(obj any, tableName string) []string {
	var indexSQL []string
	for _, f := range persistedFields(reflect.TypeOf(obj)) {
		if !f.indexed {
			continue
		}
		indexName := fmt.Sprintf("idx_%s_%s", tableName, f.column)
		indexSQL = append(indexSQL, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", indexName, tableName, f.column))
	}
	return indexSQL
}

// Save persists the object to the database (INSERT or UPDATE)
func Save(obj Persistable) error {
	d, err := GetDB()
	if err != nil {
		return err
	}
	return save(d, obj)
}

func save(e execer, obj Persistable) error {
	if err := obj.BeforeSave(); err != nil {
		return fmt.Errorf("before save hook failed: %w", err)
	}

	exists, err := exists(e, obj)
	if err != nil {
		return fmt.Errorf("failed to check existence: %w", err)
	}
	if exists {
		err = update(e, obj)
	} else {
		err = insert(e, obj)
	}
	if err != nil {
		return err
	}

	if err := obj.AfterSave(); err != nil {
		return fmt.Errorf("after save hook failed: %w", err)
	}
	return nil
}

// insert adds a new record to the database
func insert(e execer, obj Persistable) error {
	tableName := obj.GetTableName()
	objValue := reflect.Indirect(reflect.ValueOf(obj))

	var columns, placeholders []string
	var values []any
	for _, f := range persistedFields(objValue.Type()) {
		columns = append(columns, f.column)
		placeholders = append(placeholders, "?")
		values = append(values, objValue.Field(f.index).Interface())
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tableName, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	logger.Debug("Insert SQL", query)

	if _, err := e.Exec(query, values...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", tableName, err)
	}
	return nil
}

// update modifies an existing record in the database
func update(e execer, obj Persistable) error {
	tableName := obj.GetTableName()
	objValue := reflect.Indirect(reflect.ValueOf(obj))

	var setPairs []string
	var values []any
	for _, f := range persistedFields(objValue.Type()) {
		if f.primary {
			continue
		}
		setPairs = append(setPairs, fmt.Sprintf("%s = ?", f.column))
		values = append(values, objValue.Field(f.index).Interface())
	}

	whereClause, whereValues := buildWhereClause(obj.GetPrimaryKey())
	values = append(values, whereValues...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", tableName, strings.Join(setPairs, ", "), whereClause)
	logger.Debug("Update SQL", query)

	if _, err := e.Exec(query, values...); err != nil {
		return fmt.Errorf("failed to update %s: %w", tableName, err)
	}
	return nil
}

// Exists checks if the object exists in the database
func Exists(obj Persistable) (bool, error) {
	d, err := GetDB()
	if err != nil {
		return false, err
	}
	return exists(d, obj)
}

func exists(e execer, obj Persistable) (bool, error) {
	tableName := obj.GetTableName()
	whereClause, values := buildWhereClause(obj.GetPrimaryKey())
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", tableName, whereClause)

	var count int
	if err := e.QueryRow(query, values...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check existence in %s: %w", tableName, err)
	}
	return count > 0, nil
}

// BulkSave saves multiple objects in a single transaction
func BulkSave(objects []Persistable) error {
	d, err := GetDB()
	if err != nil {
		return err
	}

	tx, err := d.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, obj := range objects {
		if err := save(tx, obj); err != nil {
			return fmt.Errorf("failed to save object: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FindWhere executes a custom WHERE query, returning new instances of obj's type.
// An empty whereClause selects every row.
func FindWhere(obj Persistable, whereClause string, args ...any) ([]any, error) {
	d, err := GetDB()
	if err != nil {
		return nil, err
	}

	tableName := obj.GetTableName()
	objType := reflect.TypeOf(obj)
	if objType.Kind() == reflect.Ptr {
		objType = objType.Elem()
	}
	fields := persistedFields(objType)
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.column
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), tableName)
	if whereClause != "" {
		query += " WHERE " + whereClause
	}
	logger.Debug("FindWhere SQL", query)

	rows, err := d.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tableName, err)
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		newObj := reflect.New(objType)
		destinations := make([]any, len(fields))
		for i, f := range fields {
			destinations[i] = newObj.Elem().Field(f.index).Addr().Interface()
		}
		if err := rows.Scan(destinations...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", tableName, err)
		}
		results = append(results, newObj.Interface())
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", tableName, err)
	}
	return results, nil
}

// buildWhereClause builds a WHERE clause from a primary key map.
// Columns are sorted so the generated SQL is stable.
func buildWhereClause(primaryKey map[string]any) (string, []any) {
	columns := make([]string, 0, len(primaryKey))
	for column := range primaryKey {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	conditions := make([]string, len(columns))
	values := make([]any, len(columns))
	for i, column := range columns {
		conditions[i] = fmt.Sprintf("%s = ?", column)
		values[i] = primaryKey[column]
	}
	return strings.Join(conditions, " AND "), values
}

/////////////////////////////////////////////////////////////////////////
////// Play Collection Operations
/////////////////////////////////////////////////////////////////////////

// SavePlays writes plays to the database, replacing any stored copies
func SavePlays(plays []*Play) error {
	if err := CreateTables(); err != nil {
		return err
	}
	objs := make([]Persistable, len(plays))
	for i, p := range plays {
		objs[i] = p
	}
	if err := BulkSave(objs); err != nil {
		return fmt.Errorf("failed to bulk save plays: %w", err)
	}
	logger.Info("Saved plays", len(plays))
	return nil
}

// LoadPlays reads stored plays ordered by game and sequence.
// With no game ids every stored play is returned.
func LoadPlays(gameIDs ...string) ([]*Play, error) {
	if err := CreateTables(); err != nil {
		return nil, err
	}
	where := "1 = 1"
	args := make([]any, len(gameIDs))
	if len(gameIDs) > 0 {
		placeholders := make([]string, len(gameIDs))
		for i, id := range gameIDs {
			placeholders[i] = "?"
			args[i] = id
		}
		where = fmt.Sprintf("game_id IN (%s)", strings.Join(placeholders, ", "))
	}
	found, err := FindWhere(&Play{}, where+" ORDER BY game_id, sequence", args...)
	if err != nil {
		return nil, err
	}
	plays := make([]*Play, len(found))
	for i, f := range found {
		plays[i] = f.(*Play)
	}
	return plays, nil
}
