package repository

import (
	"database/sql"
	"testing"
	"time"
)

// PostgresClientRepoはClientRepositoryインターフェースを満たすことを検証
func TestPostgresClientRepo_ImplementsInterface(t *testing.T) {
	var _ ClientRepository = (*PostgresClientRepo)(nil)
}

// PostgresDealRepoはDealRepositoryインターフェースを満たすことを検証
func TestPostgresDealRepo_ImplementsInterface(t *testing.T) {
	var _ DealRepository = (*PostgresDealRepo)(nil)
}

// NewPostgresClientRepoが正しく初期化されることを検証
func TestNewPostgresClientRepo_Initializes(t *testing.T) {
	repo := NewPostgresClientRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresDealRepoが正しく初期化されることを検証
func TestNewPostgresDealRepo_Initializes(t *testing.T) {
	repo := NewPostgresDealRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

func TestNullString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  sql.NullString
	}{
		{"空文字列はNULLになる", "", sql.NullString{}},
		{"非空文字列は有効な値になる", "example", sql.NullString{String: "example", Valid: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nullString(tt.input); got != tt.want {
				t.Errorf("nullString(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNullStringValue(t *testing.T) {
	tests := []struct {
		name  string
		input sql.NullString
		want  string
	}{
		{"NULLは空文字列になる", sql.NullString{}, ""},
		{"有効な値は文字列になる", sql.NullString{String: "example", Valid: true}, "example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nullStringValue(tt.input); got != tt.want {
				t.Errorf("nullStringValue(%+v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Run("RFC3339文字列をパースする", func(t *testing.T) {
		got, err := parseTimestamp("2024-01-15T10:00:00Z")
		if err != nil {
			t.Fatalf("parseTimestamp error: %v", err)
		}
		want := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("parseTimestamp = %v, want %v", got, want)
		}
	})

	t.Run("空文字列は現在時刻を返す", func(t *testing.T) {
		before := time.Now().UTC().Add(-time.Second)
		got, err := parseTimestamp("")
		if err != nil {
			t.Fatalf("parseTimestamp error: %v", err)
		}
		if got.Before(before) {
			t.Errorf("parseTimestamp(\"\") = %v, want a recent timestamp", got)
		}
	})

	t.Run("不正な文字列はエラーを返す", func(t *testing.T) {
		if _, err := parseTimestamp("not-a-date"); err == nil {
			t.Error("expected error for invalid timestamp")
		}
	})
}
