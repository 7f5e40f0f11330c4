// Package utils provides small helpers shared by the source adapters: type
// conversion of loosely typed rows and normalization of scraped text.
package utils
