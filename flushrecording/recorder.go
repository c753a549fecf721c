// Package flushrecording persists flush-task audit records into a SQLite
// database for offline inspection of what the driver emitted and when.
package flushrecording

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/umd/cmdstream"
)

const tableName = "flush_tasks"

// A Recorder buffers flush-task records and writes them into SQLite in
// batches. It implements cmdstream.FlushListener so a flush engine can
// publish into it directly.
type Recorder struct {
	sync.Mutex

	db        *sql.DB
	dbName    string
	batchSize int
	pending   []cmdstream.FlushTaskRecord
}

// New creates a recorder writing to path + ".sqlite3". An empty path picks a
// unique name. The file must not exist yet.
func New(path string) *Recorder {
	r := &Recorder{
		dbName:    path,
		batchSize: 4096,
	}

	r.init()

	atexit.Register(func() { r.Flush() })

	return r
}

func (r *Recorder) init() {
	if r.dbName == "" {
		r.dbName = "umd_flush_recording_" + xid.New().String()
	}

	filename := r.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Database created for flush recording: %s\n",
		filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}
	r.db = db

	fields := strings.Join(structs.Names(cmdstream.FlushTaskRecord{}), ", \n\t")
	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`
	r.mustExecute(createTableSQL)
}

// FlushTaskRecorded buffers one record, flushing the batch when it is full.
func (r *Recorder) FlushTaskRecorded(record cmdstream.FlushTaskRecord) {
	r.Lock()
	defer r.Unlock()

	r.pending = append(r.pending, record)

	if len(r.pending) >= r.batchSize {
		r.flushLocked()
	}
}

// Flush writes all buffered records into the database.
func (r *Recorder) Flush() {
	r.Lock()
	defer r.Unlock()

	r.flushLocked()
}

func (r *Recorder) flushLocked() {
	if len(r.pending) == 0 {
		return
	}

	r.mustExecute("BEGIN TRANSACTION")
	defer r.mustExecute("COMMIT TRANSACTION")

	placeholders := make([]string, len(structs.Names(cmdstream.FlushTaskRecord{})))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	sqlStr := "INSERT INTO " + tableName +
		" VALUES (" + strings.Join(placeholders, ", ") + ")"

	stmt, err := r.db.Prepare(sqlStr)
	if err != nil {
		panic(err)
	}
	defer stmt.Close()

	for _, record := range r.pending {
		if _, err := stmt.Exec(structs.Values(record)...); err != nil {
			panic(err)
		}
	}

	r.pending = nil
}

// NumRecorded returns the number of rows in the table, buffered rows
// included.
func (r *Recorder) NumRecorded() int {
	r.Lock()
	buffered := len(r.pending)
	r.Unlock()

	var stored int
	row := r.db.QueryRow("SELECT COUNT(*) FROM " + tableName)
	if err := row.Scan(&stored); err != nil {
		panic(err)
	}

	return stored + buffered
}

// Close flushes pending records and closes the database.
func (r *Recorder) Close() {
	r.Flush()

	if err := r.db.Close(); err != nil {
		panic(err)
	}
}

func (r *Recorder) mustExecute(query string) sql.Result {
	res, err := r.db.Exec(query)
	if err != nil {
		fmt.Printf("Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}
