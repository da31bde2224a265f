// Package sanitizer normalizes user-supplied text before validation and storage.
//
// All functions are idempotent: applying them twice gives the same result as
// applying them once. Invalid input yields an empty value rather than an
// error; the validators decide whether empty is acceptable.
//
// Normalization includes:
//   - Phone numbers: E.164 (+[country][number]), local numbers read as GB
//   - E-mail addresses: trimmed and lower-cased
//   - Free text (titles, descriptions, cities): collapsed whitespace
//   - Tags (amenities, rules): lower-cased, deduplicated
//   - URLs: https enforced, host lower-cased, tracking parameters dropped
package sanitizer
