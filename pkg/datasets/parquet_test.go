package datasets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/apache/arrow/go/v13/parquet"
	"github.com/apache/arrow/go/v13/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeParquet(t *testing.T, path string, questions, answers []string) {
	t.Helper()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "question", Type: arrow.BinaryTypes.String},
		{Name: "answer", Type: arrow.BinaryTypes.String},
	}, nil)

	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()
	builder.Field(0).(*array.StringBuilder).AppendValues(questions, nil)
	builder.Field(1).(*array.StringBuilder).AppendValues(answers, nil)

	record := builder.NewRecord()
	defer record.Release()

	table := array.NewTableFromRecords(schema, []arrow.Record{record})
	defer table.Release()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, pqarrow.WriteTable(table, f, 1024,
		parquet.NewWriterProperties(), pqarrow.DefaultWriterProps()))
}

func TestLoadParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.parquet")
	writeParquet(t, path,
		[]string{"What is 2+2?", "Capital of France?"},
		[]string{"4", "Paris"})

	pairs, err := LoadParquet(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, RawPair{Input: "What is 2+2?", Output: "4"}, pairs[0])
	assert.Equal(t, RawPair{Input: "Capital of France?", Output: "Paris"}, pairs[1])
}

func TestLoadParquetMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.parquet")

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "text", Type: arrow.BinaryTypes.String},
	}, nil)
	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()
	builder.Field(0).(*array.StringBuilder).AppendValues([]string{"x"}, nil)
	record := builder.NewRecord()
	defer record.Release()
	table := array.NewTableFromRecords(schema, []arrow.Record{record})
	defer table.Release()

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, pqarrow.WriteTable(table, f, 1024,
		parquet.NewWriterProperties(), pqarrow.DefaultWriterProps()))
	// pqarrow.WriteTable closes the sink; a second Close returns os.ErrClosed.
	_ = f.Close()

	_, err = LoadParquet(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'question' and 'answer'")
}

func TestLoadParquetMissingFile(t *testing.T) {
	_, err := LoadParquet(context.Background(), filepath.Join(t.TempDir(), "nope.parquet"))
	require.Error(t, err)
}
