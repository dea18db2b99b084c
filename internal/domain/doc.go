// Package domain models cargo shipment records exported from the airport
// cargo system and the predictions made against them.
//
// # Data Source
//
// Shipment rows are bulk-loaded into the datastore from spreadsheet exports
// and are never written by this service. Column names follow the export
// ("Year Text", "Weight KG", ...) and the values are loosely typed: the same
// column can hold a number in one row and a string in the next.
//
// # Export Conventions
//
// Weight ("Weight KG"):
//
//	A JSON number, or a string with thousands separators ("1,234.5").
//	Null, empty and non-numeric values count as 0 kg.
//
// Year ("Year Text"):
//
//	A number or numeric string, e.g. 2024 or "2024". Anything else is
//	[UnknownYear] and drops out of year-keyed reports.
//
// Month ("Month Short Text"):
//
//	One of Jan..Dec, case-sensitive, sometimes padded with spaces.
//
// Flight date ("Accept Flight Date"):
//
//	Day, abbreviated month, two-digit year: "05-Jan-24". Other layouts are
//	rejected rather than guessed at, so a record either has a reliable date
//	or none.
//
// Type ("TYPE"):
//
//	IMPORT, EXPORT, TRN IN, TRN OUT. Compared after upper-casing.
//
// Cargo category ("Tonnages Product Final"):
//
//	Free text, frequently null. Reports bucket blanks under [UnknownLabel].
//
// # Normalization Boundary
//
// [Normalize] is the only code that reads [RawRecord] fields. Everything
// downstream works on [Record].
package domain
