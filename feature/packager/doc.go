// Package packager bundles verified card images into distributable archives.
//
// One zip is written per expansion, named "<expansion>-images.zip" in lower
// case. Entries follow catalog order, native before proxy, and carry a fixed
// modification time, so packaging the same store twice gives identical bytes.
//
// Packaging is all or nothing: when any selected asset is missing or does not
// match its catalog record, Package returns a *NotVerifiedError (wrapping
// ErrAssetsNotVerified) and writes no archive.
//
// A Publisher optionally uploads the archives to the configured bucket.
package packager
