package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueConstraintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped pg unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"pg foreign key violation", &pgconn.PgError{Code: "23503"}, false},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, true},
		{"sqlite message", errors.New("UNIQUE constraint failed: posts.title"), true},
		{"postgres message", errors.New(`duplicate key value violates unique constraint "idx_posts_title"`), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueConstraintError(tt.err))
		})
	}
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%hello%", containsPattern("HeLLo"))
	assert.Equal(t, `%50\%%`, containsPattern("50%"))
	assert.Equal(t, `%a\_b%`, containsPattern("a_b"))
	assert.Equal(t, `%c:\\d%`, containsPattern(`c:\d`))
}

func TestPageNormalized(t *testing.T) {
	assert.Equal(t, Page{Limit: DefaultPageSize}, Page{}.normalized())
	assert.Equal(t, Page{Limit: MaxPageSize, Offset: 0}, Page{Limit: 1000, Offset: -5}.normalized())
	assert.Equal(t, Page{Limit: 5, Offset: 10}, Page{Limit: 5, Offset: 10}.normalized())
}
