package dbio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/parquio/parquio/pkg/config"
	"github.com/parquio/parquio/pkg/schema"
)

func TestBuildInsertSQL(t *testing.T) {
	cols := []schema.ColumnDescriptor{
		{Name: "country", Kind: schema.KindUtf8},
		{Name: "population", Kind: schema.KindInt64},
		{Name: "gdp", Kind: schema.KindDouble},
	}

	tests := []struct {
		name        string
		placeholder string
		want        string
	}{
		{
			name:        "question marks",
			placeholder: config.PlaceholderQuestion,
			want:        "INSERT INTO countries (country, population, gdp) VALUES (?, ?, ?)",
		},
		{
			name:        "numbered dollars",
			placeholder: config.PlaceholderDollar,
			want:        "INSERT INTO countries (country, population, gdp) VALUES ($1, $2, $3)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildInsertSQL("countries", cols, tt.placeholder)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildInsertSQLSingleColumn(t *testing.T) {
	cols := []schema.ColumnDescriptor{{Name: "id", Kind: schema.KindInt32}}
	assert.Equal(t, "INSERT INTO t (id) VALUES ($1)",
		buildInsertSQL("t", cols, config.PlaceholderDollar))
}
