package repository

import "testing"

func TestDateExprByDialectSQLite(t *testing.T) {
	got := dateExprByDialect("sqlite", "created_at")
	want := "substr(created_at, 1, 10)"
	if got != want {
		t.Fatalf("sqlite date expr mismatch, want %s got %s", want, got)
	}
}

func TestDateExprByDialectPostgres(t *testing.T) {
	got := dateExprByDialect("PostgreSQL", "payments.created_at")
	want := "TO_CHAR(payments.created_at, 'YYYY-MM-DD')"
	if got != want {
		t.Fatalf("postgres date expr mismatch, want %s got %s", want, got)
	}
}

func TestDBDialectNameNil(t *testing.T) {
	if got := dbDialectName(nil); got != "sqlite" {
		t.Fatalf("nil db should default to sqlite, got %s", got)
	}
}

func TestPageOffset(t *testing.T) {
	cases := []struct {
		page, size, want int
	}{
		{page: 1, size: 20, want: 0},
		{page: 3, size: 20, want: 40},
		{page: 0, size: 20, want: 0},
		{page: -2, size: 10, want: 0},
		{page: 2, size: 0, want: 0},
	}
	for _, tc := range cases {
		if got := pageOffset(tc.page, tc.size); got != tc.want {
			t.Fatalf("pageOffset(%d,%d) want %d got %d", tc.page, tc.size, tc.want, got)
		}
	}
}
