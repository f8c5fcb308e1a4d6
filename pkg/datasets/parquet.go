package datasets

import (
	"context"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/apache/arrow/go/v13/parquet/file"
	"github.com/apache/arrow/go/v13/parquet/pqarrow"

	"github.com/ojasjagtap/prompt-ide/pkg/errors"
)

// LoadParquet reads input/output pairs from a parquet file with
// "question" and "answer" string columns. Jobs can point their dataset at
// a file instead of inlining pairs in the configuration.
func LoadParquet(ctx context.Context, path string) ([]RawPair, error) {
	reader, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.DatasetInvalid, "failed to open parquet file"),
			errors.Fields{
				"path": path,
			})
	}
	defer reader.Close()

	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.DatasetInvalid, "failed to create arrow reader"),
			errors.Fields{
				"path": path,
			})
	}

	schema, err := arrowReader.Schema()
	if err != nil {
		return nil, errors.Wrap(err, errors.DatasetInvalid, "failed to read parquet schema")
	}

	questionIndices := schema.FieldIndices("question")
	answerIndices := schema.FieldIndices("answer")
	if len(questionIndices) == 0 || len(answerIndices) == 0 {
		return nil, errors.WithFields(
			errors.New(errors.DatasetInvalid, "required columns 'question' and 'answer' not found in parquet schema"),
			errors.Fields{
				"path": path,
			})
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.DatasetInvalid, "failed to read parquet table")
	}
	defer table.Release()

	questions, err := stringColumn(table.Column(questionIndices[0]).Data().Chunks())
	if err != nil {
		return nil, errors.Wrap(err, errors.DatasetInvalid, "question column is not a string column")
	}
	answers, err := stringColumn(table.Column(answerIndices[0]).Data().Chunks())
	if err != nil {
		return nil, errors.Wrap(err, errors.DatasetInvalid, "answer column is not a string column")
	}

	if len(questions) != len(answers) {
		return nil, errors.New(errors.DatasetInvalid, "question and answer columns have different lengths")
	}

	pairs := make([]RawPair, len(questions))
	for i := range questions {
		pairs[i] = RawPair{Input: questions[i], Output: answers[i]}
	}
	return pairs, nil
}

func stringColumn(chunks []arrow.Array) ([]string, error) {
	var values []string
	for _, chunk := range chunks {
		strs, ok := chunk.(*array.String)
		if !ok {
			return nil, errors.Newf(errors.DatasetInvalid, "unexpected column chunk type %T", chunk)
		}
		for i := 0; i < strs.Len(); i++ {
			values = append(values, strs.Value(i))
		}
	}
	return values, nil
}
