package builtin

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sentra-lang/gowam/internal/wam"
	"github.com/sentra-lang/gowam/internal/wamerr"
)

// connManager keeps named *sql.DB handles alive across calls, grounded
// on the teacher's DBManager (internal/database/db_manager.go): a
// mutex-guarded map from a caller-chosen connection name to an open
// handle, scoped per registration rather than package-global.
type connManager struct {
	mu    sync.RWMutex
	conns map[string]*sql.DB
}

func newConnManager() *connManager {
	return &connManager{conns: make(map[string]*sql.DB)}
}

func driverFor(kind string) (string, bool) {
	switch strings.ToLower(kind) {
	case "mysql":
		return "mysql", true
	case "postgres", "postgresql":
		return "postgres", true
	case "sqlite", "sqlite3":
		return "sqlite3", true
	case "mssql", "sqlserver":
		return "sqlserver", true
	default:
		return "", false
	}
}

// RegisterDB installs the sys:sql built-ins.
func RegisterDB(preds *wam.PredicateTable) {
	const module = "sys"
	mgr := newConnManager()

	// sys:sql_open(+Name, +Kind, +DSN)
	preds.LoadBuiltin(module, "sql_open", 3, func(s *wam.State, arity int) (bool, error) {
		name, err := atomArg(s, 0, predName(module, "sql_open", arity))
		if err != nil {
			return false, err
		}
		kind, err := atomArg(s, 1, predName(module, "sql_open", arity))
		if err != nil {
			return false, err
		}
		dsn, err := atomArg(s, 2, predName(module, "sql_open", arity))
		if err != nil {
			return false, err
		}
		driver, ok := driverFor(kind)
		if !ok {
			return false, wamerr.Domain("sql_driver", kind)
		}
		db, err := sql.Open(driver, dsn)
		if err != nil {
			return false, wamerr.Resource("sql_open: " + err.Error())
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return false, wamerr.Resource("sql_open: " + err.Error())
		}
		mgr.mu.Lock()
		mgr.conns[name] = db
		mgr.mu.Unlock()
		return true, nil
	})

	// sys:sql_query(+Name, +Query, -RowsAtom): rows are rendered as one
	// atom, "v1,v2;v1,v2;..." — the core has no list-building convenience
	// of its own to call here, and a real result-term representation is
	// left to a higher layer built on top of this built-in.
	preds.LoadBuiltin(module, "sql_query", 3, func(s *wam.State, arity int) (bool, error) {
		name, err := atomArg(s, 0, predName(module, "sql_query", arity))
		if err != nil {
			return false, err
		}
		query, err := atomArg(s, 1, predName(module, "sql_query", arity))
		if err != nil {
			return false, err
		}
		mgr.mu.RLock()
		db, ok := mgr.conns[name]
		mgr.mu.RUnlock()
		if !ok {
			return false, wamerr.Existence("sql_connection", name)
		}
		rows, err := db.Query(query)
		if err != nil {
			return false, wamerr.Resource("sql_query: " + err.Error())
		}
		defer rows.Close()
		cols, err := rows.Columns()
		if err != nil {
			return false, wamerr.Resource("sql_query: " + err.Error())
		}
		var out []string
		for rows.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return false, wamerr.Resource("sql_query: " + err.Error())
			}
			parts := make([]string, len(vals))
			for i, v := range vals {
				parts[i] = fmt.Sprintf("%v", v)
			}
			out = append(out, strings.Join(parts, ","))
		}
		return unifyAtom(s, 2, strings.Join(out, ";"))
	})
}
