// Package table provides the in-memory tabular structure CSV files are loaded into.
//
// A [Table] is columnar: each [Column] has a name, a [Kind] and a slice of
// nullable cells stored as pgx pgtype values, so a loaded table can be handed
// to Postgres COPY without another conversion step.
//
// # Column Kinds
//
//   - KindText: pgtype.Text cells, the fallback for anything not numeric
//   - KindInteger: pgtype.Int8 cells, inferred when every non-missing cell is a base-10 integer
//   - KindNumber: pgtype.Float8 cells, inferred when every non-missing cell parses as a number
//   - KindTime: pgtype.Timestamp cells, only for columns listed in [ReadOptions.DateColumns]
//
// Empty cells and the usual missing-value markers (NA, N/A, NaN, null, None,
// #N/A and friends, see [IsNA]) are null in every kind read from CSV.
// Sorting places nulls last.
//
// # Reading
//
// [ReadCSV] strips a UTF-8 BOM, replaces invalid UTF-8 and parses with
// encoding/csv. Short rows are padded with nulls; rows longer than the header
// and unparseable dates fail with a [ParseError] carrying the line number.
package table
