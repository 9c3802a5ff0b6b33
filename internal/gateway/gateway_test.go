package gateway

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func openTestGateway(t *testing.T, opts Options) *Gateway {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	g, err := Open(path, opts)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

const testSchema = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	emp_number INTEGER,
	user_name TEXT NOT NULL,
	status TEXT DEFAULT 'enabled',
	created_at TEXT
);
CREATE TABLE emp_records (
	emp_number INTEGER PRIMARY KEY,
	first_name TEXT,
	last_name TEXT
);
CREATE TABLE user_roles (
	user_id INTEGER NOT NULL,
	role_name TEXT NOT NULL,
	PRIMARY KEY (user_id, role_name),
	FOREIGN KEY (user_id) REFERENCES users(id)
);
`

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	g, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer g.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestDescribeTable(t *testing.T) {
	g := openTestGateway(t, Options{})
	ctx := context.Background()
	if _, err := g.db.Exec(testSchema); err != nil {
		t.Fatalf("schema: %v", err)
	}

	cols, err := g.DescribeTable(ctx, "users")
	if err != nil {
		t.Fatalf("DescribeTable() failed: %v", err)
	}
	if len(cols) != 5 {
		t.Fatalf("expected 5 columns, got %d", len(cols))
	}

	byName := map[string]ColumnMeta{}
	for _, c := range cols {
		byName[c.Name] = c
	}
	if !byName["id"].PrimaryKey {
		t.Error("id should be a key column")
	}
	if byName["id"].Nullable {
		t.Error("key columns are not nullable")
	}
	if byName["user_name"].Nullable {
		t.Error("user_name is NOT NULL")
	}
	if !byName["emp_number"].Nullable {
		t.Error("emp_number should be nullable")
	}
	if !byName["status"].HasDefault {
		t.Error("status has a default")
	}
}

func TestDescribeTable_Missing(t *testing.T) {
	g := openTestGateway(t, Options{})

	_, err := g.DescribeTable(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected an error for a missing table")
	}
}

func TestDescribeTable_CompoundKeyOrdinals(t *testing.T) {
	g := openTestGateway(t, Options{})
	ctx := context.Background()
	if _, err := g.db.Exec(testSchema); err != nil {
		t.Fatalf("schema: %v", err)
	}

	cols, err := g.DescribeTable(ctx, "user_roles")
	if err != nil {
		t.Fatalf("DescribeTable() failed: %v", err)
	}
	ordinals := map[string]int{}
	for _, c := range cols {
		ordinals[c.Name] = c.KeyOrdinal
	}
	if ordinals["user_id"] != 1 || ordinals["role_name"] != 2 {
		t.Errorf("unexpected key ordinals: %v", ordinals)
	}
}

func TestForeignKeys(t *testing.T) {
	g := openTestGateway(t, Options{})
	ctx := context.Background()
	if _, err := g.db.Exec(testSchema); err != nil {
		t.Fatalf("schema: %v", err)
	}

	fks, err := g.ForeignKeys(ctx, "user_roles")
	if err != nil {
		t.Fatalf("ForeignKeys() failed: %v", err)
	}
	if len(fks) != 1 {
		t.Fatalf("expected 1 foreign key, got %d", len(fks))
	}
	if fks[0].FromColumn != "user_id" || fks[0].RefTable != "users" {
		t.Errorf("unexpected foreign key: %+v", fks[0])
	}

	inverse, err := g.InverseForeignKeys(ctx, "users")
	if err != nil {
		t.Fatalf("InverseForeignKeys() failed: %v", err)
	}
	if len(inverse) != 1 || inverse[0].FromTable != "user_roles" {
		t.Errorf("unexpected inverse foreign keys: %+v", inverse)
	}
}

func TestRunAndLastInsertID(t *testing.T) {
	g := openTestGateway(t, Options{})
	ctx := context.Background()
	if _, err := g.db.Exec(testSchema); err != nil {
		t.Fatalf("schema: %v", err)
	}

	affected, err := g.Run(ctx, "INSERT INTO users (user_name) VALUES (?)", "alice")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if affected != 1 {
		t.Errorf("expected 1 affected row, got %d", affected)
	}
	if g.LastInsertID() == 0 {
		t.Error("LastInsertID() should be set after an insert")
	}

	row, err := g.LoadRow(ctx, "SELECT user_name, status FROM users WHERE id = ?", g.LastInsertID())
	if err != nil {
		t.Fatalf("LoadRow() failed: %v", err)
	}
	if row == nil || row["user_name"] != "alice" {
		t.Errorf("unexpected row: %v", row)
	}

	missing, err := g.LoadRow(ctx, "SELECT * FROM users WHERE id = ?", 9999)
	if err != nil {
		t.Fatalf("LoadRow() failed: %v", err)
	}
	if missing != nil {
		t.Error("expected nil row for a miss")
	}
}

func TestLoadScalar(t *testing.T) {
	g := openTestGateway(t, Options{})
	ctx := context.Background()
	if _, err := g.db.Exec(testSchema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	for _, name := range []string{"a", "b", "c"} {
		if _, err := g.Run(ctx, "INSERT INTO users (user_name) VALUES (?)", name); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	count, err := g.LoadScalar(ctx, "SELECT COUNT(*) FROM users")
	if err != nil {
		t.Fatalf("LoadScalar() failed: %v", err)
	}
	if count != int64(3) {
		t.Errorf("expected 3, got %v (%T)", count, count)
	}
}

func TestLoadScalar_MultiColumnTakesFirst(t *testing.T) {
	g := openTestGateway(t, Options{})
	ctx := context.Background()

	v, err := g.LoadScalar(ctx, "SELECT 'first', 'second', 'third'")
	if err != nil {
		t.Fatalf("LoadScalar() failed: %v", err)
	}
	if v != "first" {
		t.Errorf("expected the leading projected column, got %v", v)
	}

	v, err = g.LoadScalar(ctx, "SELECT 1 WHERE 1 = 0")
	if err != nil {
		t.Fatalf("LoadScalar() failed: %v", err)
	}
	if v != nil {
		t.Errorf("expected nil for an empty result, got %v", v)
	}
}

func TestEncryptionFunctions_RoundTrip(t *testing.T) {
	g := openTestGateway(t, Options{EncryptionKey: "s3cret"})
	ctx := context.Background()
	if _, err := g.db.Exec(`CREATE TABLE secrets (id INTEGER PRIMARY KEY, body TEXT)`); err != nil {
		t.Fatalf("schema: %v", err)
	}

	if _, err := g.Run(ctx, "INSERT INTO secrets (body) VALUES (rec_encrypt(?))", "top secret"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	stored, err := g.LoadScalar(ctx, "SELECT body FROM secrets")
	if err != nil {
		t.Fatalf("LoadScalar() failed: %v", err)
	}
	if stored == "top secret" {
		t.Error("stored value should not be plaintext")
	}

	plain, err := g.LoadScalar(ctx, "SELECT rec_decrypt(body) FROM secrets")
	if err != nil {
		t.Fatalf("LoadScalar() failed: %v", err)
	}
	if plain != "top secret" {
		t.Errorf("decrypt mismatch: %v", plain)
	}
}

func TestEncryptionFunctions_IdentityWithoutKey(t *testing.T) {
	g := openTestGateway(t, Options{})
	ctx := context.Background()

	v, err := g.LoadScalar(ctx, "SELECT rec_decrypt(rec_encrypt('x'))")
	if err != nil {
		t.Fatalf("LoadScalar() failed: %v", err)
	}
	if v != "x" {
		t.Errorf("identity passthrough broken: %v", v)
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := QuoteIdent(`weird"name`); got != `"weird""name"` {
		t.Errorf("QuoteIdent() = %s", got)
	}
}
