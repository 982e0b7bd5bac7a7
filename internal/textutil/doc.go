// Package textutil compares short texts such as headlines.
//
// A Fingerprint is a term-frequency vector over lowercase alphanumeric tokens
// of three or more characters. Two fingerprints are compared with cosine
// similarity, which the Scout uses to avoid seeding the same story twice when
// several outlets cover it under slightly different titles.
package textutil
