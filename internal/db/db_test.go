package db

import "testing"

func TestEnsureSQLiteDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "data/app.db", want: "data/app.db?_fk=1&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"},
		{in: "file:app.db?_busy_timeout=100", want: "file:app.db?_busy_timeout=100&_fk=1&_journal_mode=WAL&_txlock=immediate"},
	}
	for _, test := range tests {
		if got := ensureSQLiteDSN(test.in); got != test.want {
			t.Fatalf("ensureSQLiteDSN(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestRebind(t *testing.T) {
	pg := NewQueries(nil, DialectPostgres)
	if got := pg.rebind("SELECT 1 WHERE a = ? AND b = ?"); got != "SELECT 1 WHERE a = $1 AND b = $2" {
		t.Fatalf("rebind = %q", got)
	}
	lite := NewQueries(nil, DialectSQLite)
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind = %q", got)
	}
}
