package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// maxLoggedArgs caps the args attribute; bulk imports bind thousands of rows.
const maxLoggedArgs = 16

// DefaultSlowQuery is the duration above which statements are logged at warn.
const DefaultSlowQuery = 200 * time.Millisecond

type loggingConnector struct {
	dsn    string
	logger *slog.Logger
	slow   time.Duration
}

type loggingConn struct {
	conn driver.Conn
	sqlLogger
}

type loggingStmt struct {
	stmt  driver.Stmt
	query string
	sqlLogger
}

type sqlLogger struct {
	logger *slog.Logger
	slow   time.Duration
}

// NewLoggingConnector returns a connector whose connections log every
// statement with its args and duration. Open it with sql.OpenDB.
// A nil logger means slog.Default(); slow <= 0 means DefaultSlowQuery.
func NewLoggingConnector(dsn string, logger *slog.Logger, slow time.Duration) (driver.Connector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if slow <= 0 {
		slow = DefaultSlowQuery
	}
	return &loggingConnector{dsn: dsn, logger: logger, slow: slow}, nil
}

func (c *loggingConnector) Driver() driver.Driver { return loggingDriver{} }

func (c *loggingConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := (&sqlite3.SQLiteDriver{}).Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return &loggingConn{conn: conn, sqlLogger: sqlLogger{logger: c.logger, slow: c.slow}}, nil
}

type loggingDriver struct{}

func (loggingDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("sqlite3-log: use sql.OpenDB(NewLoggingConnector(...)) instead of sql.Open")
}

func (c *loggingConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *loggingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var (
		stmt driver.Stmt
		err  error
	)
	if prep, ok := c.conn.(driver.ConnPrepareContext); ok {
		stmt, err = prep.PrepareContext(ctx, query)
	} else {
		stmt, err = c.conn.Prepare(query)
	}
	if err != nil {
		return nil, err
	}
	return &loggingStmt{stmt: stmt, query: query, sqlLogger: c.sqlLogger}, nil
}

// ExecContext runs unprepared statements directly on the connection so
// multi-statement scripts such as migrations execute in full.
func (c *loggingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	execer, ok := c.conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := time.Now()
	res, err := execer.ExecContext(ctx, query, args)
	c.log(ctx, "exec", query, args, time.Since(start), err)
	return res, err
}

func (c *loggingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	queryer, ok := c.conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := time.Now()
	rows, err := queryer.QueryContext(ctx, query, args)
	c.log(ctx, "query", query, args, time.Since(start), err)
	return rows, err
}

func (c *loggingConn) Close() error { return c.conn.Close() }

func (c *loggingConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *loggingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if beginTx, ok := c.conn.(driver.ConnBeginTx); ok {
		return beginTx.BeginTx(ctx, opts)
	}
	//nolint:staticcheck // SA1019 fallback for drivers without ConnBeginTx
	return c.conn.Begin()
}

func (s *loggingStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), valuesToNamed(args))
}

func (s *loggingStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	var (
		res driver.Result
		err error
	)
	if execCtx, ok := s.stmt.(driver.StmtExecContext); ok {
		res, err = execCtx.ExecContext(ctx, args)
	} else {
		//nolint:staticcheck // SA1019 fallback for statements without StmtExecContext
		res, err = s.stmt.Exec(namedToValues(args))
	}
	s.log(ctx, "exec", s.query, args, time.Since(start), err)
	return res, err
}

func (s *loggingStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), valuesToNamed(args))
}

func (s *loggingStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	start := time.Now()
	var (
		rows driver.Rows
		err  error
	)
	if queryCtx, ok := s.stmt.(driver.StmtQueryContext); ok {
		rows, err = queryCtx.QueryContext(ctx, args)
	} else {
		//nolint:staticcheck // SA1019 fallback for statements without StmtQueryContext
		rows, err = s.stmt.Query(namedToValues(args))
	}
	s.log(ctx, "query", s.query, args, time.Since(start), err)
	return rows, err
}

func (s *loggingStmt) Close() error { return s.stmt.Close() }

func (s *loggingStmt) NumInput() int { return s.stmt.NumInput() }

func (l sqlLogger) log(ctx context.Context, op, query string, args []driver.NamedValue, d time.Duration, err error) {
	level := slog.LevelDebug
	if d >= l.slow {
		level = slog.LevelWarn
	}
	if err != nil {
		level = slog.LevelError
	}
	if !l.logger.Enabled(ctx, level) {
		return
	}
	attrs := []any{
		"op", op,
		"sql", query,
		"args", formatArgs(args),
		"duration_ms", float64(d.Microseconds()) / 1000,
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	l.logger.Log(ctx, level, "sql", attrs...)
}

func formatArgs(args []driver.NamedValue) []string {
	n := len(args)
	if n > maxLoggedArgs {
		n = maxLoggedArgs
	}
	out := make([]string, 0, n+1)
	for _, a := range args[:n] {
		v := formatArg(a.Value)
		if a.Name != "" {
			v = a.Name + "=" + v
		}
		out = append(out, v)
	}
	if len(args) > n {
		out = append(out, fmt.Sprintf("... %d more", len(args)-n))
	}
	return out
}

func formatArg(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func valuesToNamed(args []driver.Value) []driver.NamedValue {
	out := make([]driver.NamedValue, len(args))
	for i, v := range args {
		out[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return out
}

func namedToValues(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(args))
	for i := range args {
		out[i] = args[i].Value
	}
	return out
}
